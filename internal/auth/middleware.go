package auth

import (
	"strings"

	"github.com/archivesocial/archive/backend/internal/util"
	"github.com/gin-gonic/gin"
)

// TokenFromRequest reads a bearer token from the Authorization header, falling
// back to the token query parameter (websocket upgrades cannot set headers).
func TokenFromRequest(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	return c.Query("token")
}

// RequireAuth rejects requests without a valid token
func (s *Service) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := TokenFromRequest(c)
		if token == "" {
			util.RespondUnauthorized(c, "no token provided")
			c.Abort()
			return
		}

		user, err := s.ValidateToken(c.Request.Context(), token)
		if err != nil {
			util.RespondUnauthorized(c, "invalid token")
			c.Abort()
			return
		}

		c.Set(util.ContextUserIDKey, user.ID)
		c.Set(util.ContextUserKey, user)
		c.Next()
	}
}

// OptionalAuth identifies the caller when a valid token is present and
// otherwise lets the request through anonymously
func (s *Service) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := TokenFromRequest(c); token != "" {
			if user, err := s.ValidateToken(c.Request.Context(), token); err == nil {
				c.Set(util.ContextUserIDKey, user.ID)
				c.Set(util.ContextUserKey, user)
			}
		}
		c.Next()
	}
}
