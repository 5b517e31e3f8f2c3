package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront/internal/storeapi"
)

func (h *handlers) listProducts(c *gin.Context) {
	var q storeapi.ProductQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		writeError(c, bindError(err))
		return
	}
	page, err := h.deps.Catalog.List(c.Request.Context(), q)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *handlers) getProduct(c *gin.Context) {
	p, err := h.deps.Catalog.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *handlers) listCategories(c *gin.Context) {
	cats, err := h.deps.Catalog.Categories(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": cats})
}

func (h *handlers) updateCatalogFilter(c *gin.Context) {
	var q storeapi.ProductQuery
	if err := c.ShouldBindJSON(&q); err != nil {
		writeError(c, bindError(err))
		return
	}
	gen := shopperFrom(c).Feed.Update(q)
	c.JSON(http.StatusAccepted, gin.H{"generation": gen})
}

func (h *handlers) getCatalogFeed(c *gin.Context) {
	res, ok, pending := shopperFrom(c).Feed.Latest()
	if !ok {
		c.JSON(http.StatusOK, gin.H{"pending": pending})
		return
	}
	c.JSON(http.StatusOK, gin.H{"pending": pending, "result": res})
}
