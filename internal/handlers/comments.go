package handlers

import (
	"net/http"

	"github.com/archivesocial/archive/backend/internal/dto"
	"github.com/archivesocial/archive/backend/internal/util"
	"github.com/gin-gonic/gin"
)

// ListComments returns a post's comment tree and the total comment count
func (h *Handlers) ListComments(c *gin.Context) {
	roots, total, err := h.Comments.List(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"comments": roots,
		"total":    total,
	})
}

func (h *Handlers) CreateComment(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	var req dto.CreateCommentRequest
	if !bindJSON(c, &req) {
		return
	}

	comment, err := h.Comments.Create(c.Request.Context(), c.Param("id"), userID, req.Content, req.ParentID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, comment)
}

// DeleteComment removes a comment and, for a top-level comment, its replies
func (h *Handlers) DeleteComment(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	removed, err := h.Comments.Delete(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"removed": removed})
}
