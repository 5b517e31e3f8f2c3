package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type setCurrencyRequest struct {
	Currency string `json:"currency" binding:"required"`
}

func (h *handlers) getCurrency(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"currency": shopperFrom(c).Currency.Currency()})
}

func (h *handlers) setCurrency(c *gin.Context) {
	var req setCurrencyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, bindError(err))
		return
	}
	conv := shopperFrom(c).Currency
	if err := conv.SetCurrency(c.Request.Context(), req.Currency); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"currency": conv.Currency()})
}
