package handlers

import (
	"context"
	"net/http"

	"github.com/archivesocial/archive/backend/internal/dto"
	"github.com/archivesocial/archive/backend/internal/models"
	"github.com/archivesocial/archive/backend/internal/social"
	"github.com/archivesocial/archive/backend/internal/util"
	"github.com/gin-gonic/gin"
)

// suggestionLimit caps GET /users/suggestions
const suggestionLimit = 20

// GetUser returns a public profile by id
func (h *Handlers) GetUser(c *gin.Context) {
	profile, err := h.Profiles.Get(c.Request.Context(), c.Param("id"), util.OptionalUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// GetUserByUsername returns a public profile by username
func (h *Handlers) GetUserByUsername(c *gin.Context) {
	profile, err := h.Profiles.GetByUsername(c.Request.Context(), c.Param("username"), util.OptionalUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// GetUserPosts returns a page of a user's posts, newest first
func (h *Handlers) GetUserPosts(c *gin.Context) {
	page, size := util.PageFromQuery(c)
	posts, err := h.Posts.ListByAuthor(c.Request.Context(), c.Param("id"), util.OptionalUserID(c), page, size)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"posts":     posts,
		"page":      page,
		"page_size": size,
	})
}

func (h *Handlers) GetFollowers(c *gin.Context) {
	h.listFollowEdge(c, h.Follows.Followers)
}

func (h *Handlers) GetFollowing(c *gin.Context) {
	h.listFollowEdge(c, h.Follows.Following)
}

func (h *Handlers) listFollowEdge(c *gin.Context, list func(ctx context.Context, userID string, page, size int) ([]models.Profile, error)) {
	page, size := util.PageFromQuery(c)
	users, err := list(c.Request.Context(), c.Param("id"), page, size)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"users":     users,
		"page":      page,
		"page_size": size,
	})
}

// ToggleFollow follows or unfollows :id
func (h *Handlers) ToggleFollow(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	state, err := h.Follows.Toggle(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

// GetSuggestions lists accounts the caller might follow
func (h *Handlers) GetSuggestions(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	limit := util.ParseInt(c.Query("limit"), 5)
	if limit > suggestionLimit {
		limit = suggestionLimit
	}

	users, err := h.Follows.Suggestions(c.Request.Context(), userID, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

// UpdateMe applies a partial profile edit
func (h *Handlers) UpdateMe(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	var patch social.ProfileUpdate
	if !bindJSON(c, &patch) {
		return
	}

	user, err := h.Profiles.Update(c.Request.Context(), userID, patch)
	if err != nil {
		respondError(c, err)
		return
	}
	h.respondMe(c, user)
}

// UploadAvatar replaces the caller's avatar
func (h *Handlers) UploadAvatar(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	img, closer, ok := imageFromForm(c)
	if !ok {
		return
	}
	defer closer.Close()
	if img == nil {
		util.RespondValidationError(c, "image", "an image is required")
		return
	}

	user, err := h.Profiles.UploadAvatar(c.Request.Context(), userID, *img)
	if err != nil {
		respondError(c, err)
		return
	}
	h.respondMe(c, user)
}

func (h *Handlers) respondMe(c *gin.Context, user *models.User) {
	profile, err := h.Profiles.Get(c.Request.Context(), user.ID, user.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToMeResponse(user, profile))
}
