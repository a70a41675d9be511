package telemetry

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// HTTPClientConfig holds configuration for an instrumented HTTP client
type HTTPClientConfig struct {
	ServiceName string        // Name of the external service (e.g., "gnews", "guardian")
	Timeout     time.Duration // Request timeout
}

// NewInstrumentedHTTPClient creates an HTTP client whose requests are traced
func NewInstrumentedHTTPClient(cfg HTTPClientConfig) *http.Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &http.Client{
		Timeout: cfg.Timeout,
		Transport: otelhttp.NewTransport(
			http.DefaultTransport,
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				return fmt.Sprintf("%s %s", cfg.ServiceName, r.Method)
			}),
			otelhttp.WithSpanOptions(
				trace.WithSpanKind(trace.SpanKindClient),
				trace.WithAttributes(attribute.String("external.service", cfg.ServiceName)),
			),
		),
	}
}

// TraceExternalCall creates a span for a call to an external service
func TraceExternalCall(ctx context.Context, service, operation string) (context.Context, trace.Span) {
	return otel.Tracer("external-api").Start(ctx, service+"."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("external.service", service),
			attribute.String("external.operation", operation),
		),
	)
}

// RecordExternalCallError records error details in a span
func RecordExternalCallError(span trace.Span, err error, statusCode int) {
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
	}
	if statusCode > 0 {
		span.SetAttributes(attribute.Int("http.status_code", statusCode))
		if statusCode >= 500 || statusCode == http.StatusRequestTimeout || statusCode == http.StatusTooManyRequests {
			span.SetAttributes(attribute.Bool("external.error.retryable", true))
		}
	}
}

// RecordExternalCallSuccess records the status and result size in a span
func RecordExternalCallSuccess(span trace.Span, statusCode int, items int) {
	span.SetAttributes(
		attribute.Int("http.status_code", statusCode),
		attribute.Int("external.items", items),
	)
	span.SetStatus(codes.Ok, "")
}
