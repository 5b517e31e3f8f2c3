package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront/internal/domain"
	"storefront/internal/service/checkout"
	"storefront/internal/service/session"
)

type checkoutResponse struct {
	checkout.View
	Totals summaryResponse `json:"totals"`
}

type deliveryRequest struct {
	Key string `json:"key" binding:"required"`
}

type paymentRequest struct {
	PaymentMethod domain.PaymentMethod `json:"paymentMethod" binding:"required"`
	Notes         string               `json:"notes"`
}

func renderCheckout(c *gin.Context, sh *session.Shopper, v checkout.View) checkoutResponse {
	return checkoutResponse{View: v, Totals: renderSummary(c.Request.Context(), sh.Currency, v.Summary)}
}

// writeCheckout renders the flow after a step, or the error with the flow state.
func writeCheckout(c *gin.Context, sh *session.Shopper, status int, v checkout.View, err error) {
	if err != nil {
		code, body := statusFor(err)
		if code >= http.StatusInternalServerError {
			_ = c.Error(err)
		}
		c.JSON(code, gin.H{"message": body.Message, "field": body.Field, "checkout": renderCheckout(c, sh, v)})
		return
	}
	c.JSON(status, renderCheckout(c, sh, v))
}

func (h *handlers) startCheckout(c *gin.Context) {
	sh := shopperFrom(c)
	v := sh.Checkout.Prefill(c.Request.Context(), c.ClientIP(), bearerToken(c))
	c.JSON(http.StatusOK, renderCheckout(c, sh, v))
}

func (h *handlers) getCheckout(c *gin.Context) {
	sh := shopperFrom(c)
	c.JSON(http.StatusOK, renderCheckout(c, sh, sh.Checkout.View()))
}

func (h *handlers) setAddress(c *gin.Context) {
	var addr domain.ShippingAddress
	if err := c.ShouldBindJSON(&addr); err != nil {
		writeError(c, bindError(err))
		return
	}
	sh := shopperFrom(c)
	v, err := sh.Checkout.SetAddress(addr)
	writeCheckout(c, sh, http.StatusOK, v, err)
}

func (h *handlers) selectDelivery(c *gin.Context) {
	var req deliveryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, bindError(err))
		return
	}
	sh := shopperFrom(c)
	v, err := sh.Checkout.SelectDelivery(req.Key)
	writeCheckout(c, sh, http.StatusOK, v, err)
}

func (h *handlers) selectPayment(c *gin.Context) {
	var req paymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, bindError(err))
		return
	}
	sh := shopperFrom(c)
	v, err := sh.Checkout.SelectPayment(req.PaymentMethod, req.Notes)
	writeCheckout(c, sh, http.StatusOK, v, err)
}

func (h *handlers) submitCheckout(c *gin.Context) {
	sh := shopperFrom(c)
	v, err := sh.Checkout.Submit(c.Request.Context(), bearerToken(c))
	writeCheckout(c, sh, http.StatusCreated, v, err)
}
