package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPResponseSize    *prometheus.HistogramVec

	// Cache metrics
	CacheHitsTotal   *prometheus.CounterVec
	CacheMissesTotal *prometheus.CounterVec

	// Rate limiting metrics
	RateLimitExceededTotal *prometheus.CounterVec

	// News metrics
	NewsFetchTotal    *prometheus.CounterVec
	NewsFetchDuration *prometheus.HistogramVec

	// Feed and social metrics
	FeedBuildDuration  prometheus.Histogram
	SocialActionsTotal *prometheus.CounterVec
	SearchRequests     *prometheus.CounterVec
	StoriesExpired     prometheus.Counter

	// Realtime
	WebsocketConnectionsActive prometheus.Gauge
	WebsocketMessagesSent      *prometheus.CounterVec
}

var (
	instance *Metrics
	once     sync.Once
)

// Initialize creates and registers all Prometheus metrics
func Initialize() *Metrics {
	once.Do(func() {
		instance = &Metrics{
			HTTPRequestsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "http_requests_total",
					Help: "Total number of HTTP requests",
				},
				[]string{"method", "path", "status"},
			),
			HTTPRequestDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "http_request_duration_seconds",
					Help:    "HTTP request latency in seconds",
					Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
				},
				[]string{"method", "path", "status"},
			),
			HTTPResponseSize: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "http_response_size_bytes",
					Help:    "HTTP response size in bytes",
					Buckets: prometheus.ExponentialBuckets(100, 10, 7),
				},
				[]string{"method", "path"},
			),

			CacheHitsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "cache_hits_total",
					Help: "Total number of cache hits",
				},
				[]string{"cache"},
			),
			CacheMissesTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "cache_misses_total",
					Help: "Total number of cache misses",
				},
				[]string{"cache"},
			),

			RateLimitExceededTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "rate_limit_exceeded_total",
					Help: "Total number of rate limit violations",
				},
				[]string{"scope"},
			),

			NewsFetchTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "news_fetch_total",
					Help: "News source fetches by outcome",
				},
				[]string{"source", "result"},
			),
			NewsFetchDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "news_fetch_duration_seconds",
					Help:    "Latency of news source requests",
					Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
				},
				[]string{"source"},
			),

			FeedBuildDuration: promauto.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "feed_build_duration_seconds",
					Help:    "Time to compose a feed in seconds",
					Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5},
				},
			),
			SocialActionsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "social_actions_total",
					Help: "Likes, follows, comments, posts and stories by action",
				},
				[]string{"action"},
			),
			SearchRequests: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "search_requests_total",
					Help: "Search requests by serving backend",
				},
				[]string{"backend"},
			),
			StoriesExpired: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "stories_expired_total",
					Help: "Expired stories removed by the cleanup job",
				},
			),

			WebsocketConnectionsActive: promauto.NewGauge(
				prometheus.GaugeOpts{
					Name: "websocket_connections_active",
					Help: "Currently open websocket connections",
				},
			),
			WebsocketMessagesSent: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "websocket_messages_sent_total",
					Help: "Messages pushed to websocket clients by type",
				},
				[]string{"type"},
			),
		}
	})
	return instance
}

// Get returns the global metrics instance
func Get() *Metrics {
	return Initialize()
}

// RecordCacheHit counts a hit on the named cache
func RecordCacheHit(cache string) {
	Get().CacheHitsTotal.WithLabelValues(cache).Inc()
}

// RecordCacheMiss counts a miss on the named cache
func RecordCacheMiss(cache string) {
	Get().CacheMissesTotal.WithLabelValues(cache).Inc()
}

// RecordRateLimitExceeded counts a rejected request
func RecordRateLimitExceeded(scope string) {
	Get().RateLimitExceededTotal.WithLabelValues(scope).Inc()
}

// RecordNewsFetch counts one source fetch; result is ok, error or skipped
func RecordNewsFetch(source, result string, duration time.Duration) {
	m := Get()
	m.NewsFetchTotal.WithLabelValues(source, result).Inc()
	if result != "skipped" {
		m.NewsFetchDuration.WithLabelValues(source).Observe(duration.Seconds())
	}
}

// RecordFeedBuild observes one feed composition
func RecordFeedBuild(duration time.Duration) {
	Get().FeedBuildDuration.Observe(duration.Seconds())
}

// RecordSocialAction counts like, unlike, follow, unfollow, comment, post, story
func RecordSocialAction(action string) {
	Get().SocialActionsTotal.WithLabelValues(action).Inc()
}

// RecordSearch counts a search served by backend
func RecordSearch(backend string) {
	Get().SearchRequests.WithLabelValues(backend).Inc()
}
