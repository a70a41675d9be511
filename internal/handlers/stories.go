package handlers

import (
	"net/http"

	"github.com/archivesocial/archive/backend/internal/stories"
	"github.com/archivesocial/archive/backend/internal/util"
	"github.com/gin-gonic/gin"
)

// GetStories returns active stories grouped by author
func (h *Handlers) GetStories(c *gin.Context) {
	groups, err := h.Stories.Grouped(c.Request.Context(), util.OptionalUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"groups":            groups,
		"story_duration_ms": stories.StoryDurationMS,
	})
}

// CreateStory uploads an image story
func (h *Handlers) CreateStory(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	img, closer, ok := imageFromForm(c)
	if !ok {
		return
	}
	defer closer.Close()

	story, err := h.Stories.Create(c.Request.Context(), userID, img)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, story)
}

func (h *Handlers) ViewStory(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	if err := h.Stories.MarkViewed(c.Request.Context(), c.Param("id"), userID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handlers) DeleteStory(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	if err := h.Stories.Delete(c.Request.Context(), c.Param("id"), userID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
