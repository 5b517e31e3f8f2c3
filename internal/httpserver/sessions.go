package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *handlers) createSession(c *gin.Context) {
	sess, err := h.deps.Sessions.Issue(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sess)
}
