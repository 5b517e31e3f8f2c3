package httpserver

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"storefront/internal/domain"
	"storefront/internal/service/session"
)

type wishlistItemRequest struct {
	ProductID string `json:"productId" binding:"required"`
	Name      string `json:"name"`
	Price     int64  `json:"price" binding:"min=0"`
	ImageURL  string `json:"imageUrl"`
	Badge     string `json:"badge"`
}

type wishlistItemResponse struct {
	domain.WishlistItem
	FormattedPrice string `json:"formattedPrice"`
}

type wishlistResponse struct {
	Items    []wishlistItemResponse `json:"items"`
	Count    int                    `json:"count"`
	Currency string                 `json:"currency"`
}

func renderWishlist(c *gin.Context, sh *session.Shopper) wishlistResponse {
	ctx := c.Request.Context()
	items := sh.Wishlist.Items()
	out := make([]wishlistItemResponse, 0, len(items))
	for _, it := range items {
		out = append(out, wishlistItemResponse{WishlistItem: it, FormattedPrice: sh.Currency.Format(ctx, it.Price)})
	}
	return wishlistResponse{Items: out, Count: len(out), Currency: sh.Currency.Currency()}
}

func (h *handlers) getWishlist(c *gin.Context) {
	c.JSON(http.StatusOK, renderWishlist(c, shopperFrom(c)))
}

func (h *handlers) addWishlistItem(c *gin.Context) {
	var req wishlistItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, bindError(err))
		return
	}
	sh := shopperFrom(c)
	added := sh.Wishlist.Add(c.Request.Context(), domain.WishlistItem{
		ID:       strings.TrimSpace(req.ProductID),
		Name:     req.Name,
		Price:    req.Price,
		ImageURL: req.ImageURL,
		Badge:    req.Badge,
	})
	status := http.StatusOK
	if added {
		status = http.StatusCreated
	}
	c.JSON(status, renderWishlist(c, sh))
}

func (h *handlers) wishlistContains(c *gin.Context) {
	id := c.Param("productId")
	c.JSON(http.StatusOK, gin.H{"productId": id, "inWishlist": shopperFrom(c).Wishlist.Contains(id)})
}

func (h *handlers) removeWishlistItem(c *gin.Context) {
	sh := shopperFrom(c)
	if !sh.Wishlist.Remove(c.Request.Context(), c.Param("productId")) {
		writeError(c, domain.ErrNotFound)
		return
	}
	c.JSON(http.StatusOK, renderWishlist(c, sh))
}

func (h *handlers) clearWishlist(c *gin.Context) {
	sh := shopperFrom(c)
	sh.Wishlist.Clear(c.Request.Context())
	c.JSON(http.StatusOK, renderWishlist(c, sh))
}
