package handlers

import (
	"net/http"

	"github.com/archivesocial/archive/backend/internal/util"
	"github.com/gin-gonic/gin"
)

// GetFeed returns the composed feed of posts and news for the caller
func (h *Handlers) GetFeed(c *gin.Context) {
	resp, err := h.Feed.Build(c.Request.Context(), util.OptionalUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
