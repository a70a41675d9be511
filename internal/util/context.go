package util

import (
	"github.com/archivesocial/archive/backend/internal/models"
	"github.com/gin-gonic/gin"
)

// Context keys set by the auth middleware
const (
	ContextUserIDKey = "user_id"
	ContextUserKey   = "user"
)

// GetUserFromContext extracts the authenticated user from the Gin context.
// Returns the user and true if found, or nil and false if not authenticated.
// If the user is not authenticated, it automatically responds with 401 Unauthorized.
func GetUserFromContext(c *gin.Context) (*models.User, bool) {
	user, exists := c.Get(ContextUserKey)
	if !exists {
		RespondUnauthorized(c)
		return nil, false
	}
	userPtr, ok := user.(*models.User)
	if !ok {
		RespondInternalError(c, "invalid user data in context")
		return nil, false
	}
	return userPtr, true
}

// GetUserIDFromContext extracts the user ID from the Gin context.
// Returns the user ID and true if found, or empty string and false if not authenticated.
// If the user is not authenticated, it automatically responds with 401 Unauthorized.
func GetUserIDFromContext(c *gin.Context) (string, bool) {
	userID := c.GetString(ContextUserIDKey)
	if userID == "" {
		RespondUnauthorized(c)
		return "", false
	}
	return userID, true
}

// OptionalUserID returns the caller's user ID or "" for anonymous requests
func OptionalUserID(c *gin.Context) string {
	return c.GetString(ContextUserIDKey)
}
