package middleware

import (
	"github.com/archivesocial/archive/backend/internal/util"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracingMiddleware returns otelgin followed by a handler that annotates the
// server span once the route has run. Use as router.Use(TracingMiddleware(name)...).
func TracingMiddleware(serviceName string) []gin.HandlerFunc {
	return []gin.HandlerFunc{otelgin.Middleware(serviceName), spanAttributes}
}

// spanAttributes runs inside the otelgin span; it must not be installed alone
func spanAttributes(c *gin.Context) {
	c.Next()

	span := trace.SpanFromContext(c.Request.Context())
	if !span.IsRecording() {
		return
	}

	if userID := c.GetString(util.ContextUserIDKey); userID != "" {
		span.SetAttributes(attribute.String("user.id", userID))
	}
	if requestID := c.GetString(RequestIDKey); requestID != "" {
		span.SetAttributes(attribute.String("request.id", requestID))
	}
	if page := c.Query("page"); page != "" {
		span.SetAttributes(attribute.String("query.page", page))
	}

	for _, ginErr := range c.Errors {
		if ginErr.Err != nil {
			span.RecordError(ginErr.Err, trace.WithStackTrace(true))
			span.SetStatus(codes.Error, ginErr.Error())
		}
	}
}
