package httpserver

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront/internal/domain"
	"storefront/internal/service/currency"
)

type summaryResponse struct {
	Subtotal  money  `json:"subtotal"`
	Discount  money  `json:"discount"`
	Shipping  money  `json:"shipping"`
	Total     money  `json:"total"`
	PromoCode string `json:"promoCode,omitempty"`
	Currency  string `json:"currency"`
}

type promoRequest struct {
	Code string `json:"code"`
}

func renderSummary(ctx context.Context, conv *currency.Converter, s domain.Summary) summaryResponse {
	return summaryResponse{
		Subtotal:  newMoney(ctx, conv, s.Subtotal),
		Discount:  newMoney(ctx, conv, s.Discount),
		Shipping:  newMoney(ctx, conv, s.Shipping),
		Total:     newMoney(ctx, conv, s.Total),
		PromoCode: s.PromoCode,
		Currency:  conv.Currency(),
	}
}

func (h *handlers) getSummary(c *gin.Context) {
	sh := shopperFrom(c)
	c.JSON(http.StatusOK, renderSummary(c.Request.Context(), sh.Currency, sh.Summary.Current()))
}

func (h *handlers) setPromo(c *gin.Context) {
	var req promoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, bindError(err))
		return
	}
	sh := shopperFrom(c)
	s, err := sh.Summary.SetPromo(c.Request.Context(), req.Code)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, renderSummary(c.Request.Context(), sh.Currency, s))
}
