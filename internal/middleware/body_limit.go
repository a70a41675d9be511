package middleware

import (
	"net/http"

	"github.com/archivesocial/archive/backend/internal/util"
	"github.com/gin-gonic/gin"
)

// BodySizeLimit caps the request body at maxBytes. Reads past the cap fail
// with *http.MaxBytesError, which handlers report as 413.
func BodySizeLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			util.RespondPayloadTooLarge(c, "request body too large")
			c.Abort()
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
