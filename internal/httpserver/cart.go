package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront/internal/domain"
	"storefront/internal/service/session"
)

type lineResponse struct {
	domain.LineItem
	FormattedUnitPrice string `json:"formattedUnitPrice"`
	LineTotal          money  `json:"lineTotal"`
}

type cartResponse struct {
	Lines     []lineResponse `json:"lines"`
	Subtotal  money          `json:"subtotal"`
	ItemCount int            `json:"itemCount"`
	LineCount int            `json:"lineCount"`
	Currency  string         `json:"currency"`
}

type updateQuantityRequest struct {
	Quantity *int `json:"quantity" binding:"required,max=99"`
}

func renderCart(c *gin.Context, sh *session.Shopper) cartResponse {
	ctx := c.Request.Context()
	snap := sh.Cart.Snapshot()
	lines := make([]lineResponse, 0, len(snap.Lines))
	for _, l := range snap.Lines {
		lines = append(lines, lineResponse{
			LineItem:           l,
			FormattedUnitPrice: sh.Currency.Format(ctx, l.UnitPrice),
			LineTotal:          newMoney(ctx, sh.Currency, l.Total()),
		})
	}
	return cartResponse{
		Lines:     lines,
		Subtotal:  newMoney(ctx, sh.Currency, snap.Subtotal),
		ItemCount: snap.ItemCount,
		LineCount: snap.LineCount,
		Currency:  sh.Currency.Currency(),
	}
}

func (h *handlers) getCart(c *gin.Context) {
	c.JSON(http.StatusOK, renderCart(c, shopperFrom(c)))
}

func (h *handlers) addCartItem(c *gin.Context) {
	var in domain.LineInput
	if err := c.ShouldBindJSON(&in); err != nil {
		writeError(c, bindError(err))
		return
	}
	sh := shopperFrom(c)
	if _, err := sh.Cart.AddItem(c.Request.Context(), in); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, renderCart(c, sh))
}

func (h *handlers) updateCartItem(c *gin.Context) {
	var req updateQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, bindError(err))
		return
	}
	sh := shopperFrom(c)
	if err := sh.Cart.UpdateQuantity(c.Request.Context(), c.Param("lineId"), *req.Quantity); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, renderCart(c, sh))
}

func (h *handlers) removeCartItem(c *gin.Context) {
	sh := shopperFrom(c)
	if !sh.Cart.RemoveItem(c.Request.Context(), c.Param("lineId")) {
		writeError(c, domain.ErrNotFound)
		return
	}
	c.JSON(http.StatusOK, renderCart(c, sh))
}

func (h *handlers) moveToWishlist(c *gin.Context) {
	sh := shopperFrom(c)
	if err := sh.Cart.MoveToWishlist(c.Request.Context(), c.Param("lineId"), sh.Wishlist); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, renderCart(c, sh))
}

func (h *handlers) clearCart(c *gin.Context) {
	sh := shopperFrom(c)
	sh.Cart.Clear(c.Request.Context())
	c.JSON(http.StatusOK, renderCart(c, sh))
}
