package handlers

import (
	"net/http"

	"github.com/archivesocial/archive/backend/internal/util"
	"github.com/gin-gonic/gin"
)

// Search matches posts and profiles against ?q=. A blank query returns empty results.
func (h *Handlers) Search(c *gin.Context) {
	results, err := h.Services.Search.Search(c.Request.Context(), c.Query("q"), util.OptionalUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, results)
}
