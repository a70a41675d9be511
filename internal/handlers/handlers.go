// Package handlers exposes the aRchive services over HTTP with gin.
package handlers

import (
	"github.com/archivesocial/archive/backend/internal/auth"
	"github.com/archivesocial/archive/backend/internal/feed"
	"github.com/archivesocial/archive/backend/internal/search"
	"github.com/archivesocial/archive/backend/internal/social"
	"github.com/archivesocial/archive/backend/internal/stories"
	"github.com/archivesocial/archive/backend/internal/validation"
	"github.com/archivesocial/archive/backend/internal/websocket"
)

// Services are the domain services the handlers call
type Services struct {
	Auth          *auth.Service
	Feed          *feed.Service
	Posts         *social.PostService
	Likes         *social.LikeService
	Comments      *social.CommentService
	Follows       *social.FollowService
	Notifications *social.NotificationService
	Profiles      *social.ProfileService
	Stories       *stories.Service
	Search        *search.Service
}

// Handlers contains all HTTP handlers for the API
type Handlers struct {
	Services

	wsHandler *websocket.Handler
	validator *validation.ServiceValidator
}

// NewHandlers creates a new handlers instance
func NewHandlers(services Services) *Handlers {
	return &Handlers{Services: services}
}

// SetWebSocketHandler sets the handler serving /api/v1/ws
func (h *Handlers) SetWebSocketHandler(ws *websocket.Handler) {
	h.wsHandler = ws
}

// SetServiceValidator sets the checks reported by /health
func (h *Handlers) SetServiceValidator(v *validation.ServiceValidator) {
	h.validator = v
}
