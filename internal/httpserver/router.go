package httpserver

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"storefront/internal/observability"
	"storefront/internal/service/session"
	"storefront/internal/storeapi"
)

const sessionHeader = "X-Session-Token"

type ctxKey string

const shopperCtxKey ctxKey = "shopper"

type SessionService interface {
	Issue(ctx context.Context) (session.Session, error)
	Lookup(ctx context.Context, token string) (string, error)
}

type ShopperSource interface {
	Get(ctx context.Context, sessionID string) (*session.Shopper, error)
}

type CatalogService interface {
	List(ctx context.Context, q storeapi.ProductQuery) (storeapi.ProductPage, error)
	Get(ctx context.Context, id string) (storeapi.Product, error)
	Categories(ctx context.Context) ([]storeapi.Category, error)
}

// Deps are the services behind the routes.
type Deps struct {
	Sessions    SessionService
	Shoppers    ShopperSource
	Catalog     CatalogService
	ReadyChecks map[string]ReadyCheck
	CORSOrigins []string
}

// buildRouter wires routes for the API.
func buildRouter(logger *zap.Logger, deps Deps) (*gin.Engine, error) {
	if deps.Sessions == nil || deps.Shoppers == nil || deps.Catalog == nil {
		return nil, errors.New("httpserver: sessions, shoppers and catalog are required")
	}
	logger = observability.OrNop(logger)

	router := gin.New()
	router.Use(observability.RequestLogger(logger), gin.Recovery())
	if len(deps.CORSOrigins) > 0 {
		router.Use(cors.New(corsConfig(deps.CORSOrigins)))
	}

	h := &handlers{deps: deps, logger: logger}

	router.GET("/healthz", healthHandler)
	router.GET("/readyz", readyHandler(deps.ReadyChecks))

	router.POST("/sessions", h.createSession)
	router.GET("/products", h.listProducts)
	router.GET("/products/:id", h.getProduct)
	router.GET("/categories", h.listCategories)

	me := router.Group("/me", shopperMiddleware(deps.Sessions, deps.Shoppers))
	{
		me.GET("/cart", h.getCart)
		me.POST("/cart/items", h.addCartItem)
		me.PATCH("/cart/items/:lineId", h.updateCartItem)
		me.DELETE("/cart/items/:lineId", h.removeCartItem)
		me.POST("/cart/items/:lineId/wishlist", h.moveToWishlist)
		me.DELETE("/cart", h.clearCart)

		me.GET("/wishlist", h.getWishlist)
		me.POST("/wishlist", h.addWishlistItem)
		me.GET("/wishlist/:productId", h.wishlistContains)
		me.DELETE("/wishlist/:productId", h.removeWishlistItem)
		me.DELETE("/wishlist", h.clearWishlist)

		me.GET("/currency", h.getCurrency)
		me.PUT("/currency", h.setCurrency)

		me.GET("/summary", h.getSummary)
		me.PUT("/summary/promo", h.setPromo)

		me.POST("/checkout", h.startCheckout)
		me.GET("/checkout", h.getCheckout)
		me.PUT("/checkout/address", h.setAddress)
		me.PUT("/checkout/delivery", h.selectDelivery)
		me.PUT("/checkout/payment", h.selectPayment)
		me.POST("/checkout/submit", h.submitCheckout)

		me.PUT("/catalog/filter", h.updateCatalogFilter)
		me.GET("/catalog", h.getCatalogFeed)
	}

	return router, nil
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	cfg.AllowOrigins = origins
	cfg.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	cfg.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", sessionHeader}
	cfg.MaxAge = 12 * time.Hour
	return cfg
}

type handlers struct {
	deps   Deps
	logger *zap.Logger
}

// shopperMiddleware resolves the session token into the shopper's components.
func shopperMiddleware(sessions SessionService, shoppers ShopperSource) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := strings.TrimSpace(c.GetHeader(sessionHeader))
		if token == "" {
			abortWithError(c, session.ErrInvalidToken)
			return
		}
		id, err := sessions.Lookup(c.Request.Context(), token)
		if err != nil {
			abortWithError(c, err)
			return
		}
		sh, err := shoppers.Get(c.Request.Context(), id)
		if err != nil {
			abortWithError(c, err)
			return
		}
		ctx := context.WithValue(c.Request.Context(), shopperCtxKey, sh)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func shopperFrom(c *gin.Context) *session.Shopper {
	sh, _ := c.Request.Context().Value(shopperCtxKey).(*session.Shopper)
	return sh
}

// bearerToken returns the shopper's own API token from the Authorization header.
func bearerToken(c *gin.Context) string {
	auth := strings.TrimSpace(c.GetHeader("Authorization"))
	if len(auth) > 7 && strings.EqualFold(auth[:7], "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}
