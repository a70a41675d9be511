package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// BusinessEvents traces domain operations above the HTTP/DB level
// ("user followed another user", "feed was composed")
type BusinessEvents struct {
	tracer trace.Tracer
}

// NewBusinessEvents creates a new business events tracer
func NewBusinessEvents() *BusinessEvents {
	return &BusinessEvents{
		tracer: otel.Tracer("business-events"),
	}
}

// ============================================================================
// FEED
// ============================================================================

// TraceFeedBuild creates a span covering one feed composition
func (be *BusinessEvents) TraceFeedBuild(ctx context.Context, viewerID string) (context.Context, trace.Span) {
	return be.tracer.Start(ctx, "feed.build",
		trace.WithAttributes(
			attribute.String("user.id", viewerID),
			attribute.Bool("user.anonymous", viewerID == ""),
		),
	)
}

// RecordFeedComposition attaches the result counts to a feed span
func RecordFeedComposition(span trace.Span, posts, news int, followStripIndex int) {
	span.SetAttributes(
		attribute.Int("feed.post_count", posts),
		attribute.Int("feed.news_count", news),
		attribute.Int("feed.follow_strip_index", followStripIndex),
	)
}

// ============================================================================
// SOCIAL INTERACTIONS
// ============================================================================

// TraceSocialAction creates a span for like/follow/comment/story actions
func (be *BusinessEvents) TraceSocialAction(ctx context.Context, action, userID, targetType, targetID string) (context.Context, trace.Span) {
	return be.tracer.Start(ctx, "social."+action,
		trace.WithAttributes(
			attribute.String("action.type", action),
			attribute.String("user.id", userID),
			attribute.String("target.type", targetType),
			attribute.String("target.id", targetID),
		),
	)
}

// ============================================================================
// SEARCH
// ============================================================================

// TraceSearch creates a span for search operations
func (be *BusinessEvents) TraceSearch(ctx context.Context, query string) (context.Context, trace.Span) {
	return be.tracer.Start(ctx, "search.query",
		trace.WithAttributes(attribute.String("search.query", query)),
	)
}

// RecordSearchResult attaches result counts and backend to a search span
func RecordSearchResult(span trace.Span, posts, profiles int, backend string) {
	span.SetAttributes(
		attribute.Int("search.post_count", posts),
		attribute.Int("search.profile_count", profiles),
		attribute.String("search.backend", backend),
		attribute.Bool("search.fallback_used", backend != "elasticsearch"),
	)
}

// RecordError marks a span as failed
func RecordError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.SetStatus(codes.Error, err.Error())
	span.RecordError(err)
}

var globalBusinessEvents = NewBusinessEvents()

// GetBusinessEvents returns the global business events tracer
func GetBusinessEvents() *BusinessEvents {
	return globalBusinessEvents
}
