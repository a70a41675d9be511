package handlers

import (
	"net/http"
	"time"

	"github.com/archivesocial/archive/backend/internal/validation"
	"github.com/gin-gonic/gin"
)

// Health reports per-service status. Only a failing database makes the
// service unhealthy; other backends have fallbacks.
func (h *Handlers) Health(c *gin.Context) {
	status := "ok"
	code := http.StatusOK

	var services map[string]string
	if h.validator != nil {
		services = h.validator.Status(c.Request.Context())
		if s, ok := services[validation.ServiceDatabase]; ok && s != "ok" {
			status = "unhealthy"
			code = http.StatusServiceUnavailable
		}
	}

	c.JSON(code, gin.H{
		"status":    status,
		"timestamp": time.Now().UTC(),
		"service":   "archive-backend",
		"services":  services,
	})
}
