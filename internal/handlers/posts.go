package handlers

import (
	"net/http"

	"github.com/archivesocial/archive/backend/internal/social"
	"github.com/archivesocial/archive/backend/internal/util"
	"github.com/gin-gonic/gin"
)

// CreatePost accepts a multipart form with title, content and an optional image
func (h *Handlers) CreatePost(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	img, closer, ok := imageFromForm(c)
	if !ok {
		return
	}
	defer closer.Close()

	post, err := h.Posts.Create(c.Request.Context(), userID, social.CreatePostInput{
		Title:   c.PostForm("title"),
		Content: c.PostForm("content"),
		Image:   img,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, post)
}

// GetPost returns a single post
func (h *Handlers) GetPost(c *gin.Context) {
	post, err := h.Posts.Get(c.Request.Context(), c.Param("id"), util.OptionalUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

// DeletePost removes one of the caller's posts
func (h *Handlers) DeletePost(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	if err := h.Posts.Delete(c.Request.Context(), c.Param("id"), userID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ToggleLike likes or unlikes a post
func (h *Handlers) ToggleLike(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	state, err := h.Likes.Toggle(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}
