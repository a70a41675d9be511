// Package news pulls technology headlines from GNews and The Guardian and
// maps them onto feed items.
package news

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/archivesocial/archive/backend/internal/cache"
	"github.com/archivesocial/archive/backend/internal/feed"
	"github.com/archivesocial/archive/backend/internal/logger"
	"github.com/archivesocial/archive/backend/internal/metrics"
	"github.com/archivesocial/archive/backend/internal/models"
	"github.com/archivesocial/archive/backend/internal/telemetry"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultGNewsBaseURL    = "https://gnews.io/api/v4"
	DefaultGuardianBaseURL = "https://content.guardianapis.com"

	// CacheKey holds the last successful merged result
	CacheKey = "news:tech"

	// FallbackID is the placeholder shown when no source returned anything
	FallbackID = "mock-news-1"

	pageSize = "10"
)

var newsIDPrefixes = []string{"gnews-", "guardian-", "mock-"}

// IsNewsID reports whether id names an external article rather than a post.
// News items cannot be liked, commented on or deleted.
func IsNewsID(id string) bool {
	for _, p := range newsIDPrefixes {
		if strings.HasPrefix(id, p) {
			return true
		}
	}
	return false
}

// Config configures the news client
type Config struct {
	GNewsAPIKey     string
	GuardianAPIKey  string
	CacheTTL        time.Duration
	Timeout         time.Duration
	GNewsBaseURL    string
	GuardianBaseURL string
}

// Client fetches and merges both sources
type Client struct {
	http  *resty.Client
	cfg   Config
	cache *cache.RedisClient
	now   func() time.Time
}

// NewClient builds a client over an instrumented http.Client. redis may be nil.
func NewClient(cfg Config, redis *cache.RedisClient) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 8 * time.Second
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 10 * time.Minute
	}
	if cfg.GNewsBaseURL == "" {
		cfg.GNewsBaseURL = DefaultGNewsBaseURL
	}
	if cfg.GuardianBaseURL == "" {
		cfg.GuardianBaseURL = DefaultGuardianBaseURL
	}

	httpClient := telemetry.NewInstrumentedHTTPClient(telemetry.HTTPClientConfig{
		ServiceName: "news",
		Timeout:     cfg.Timeout,
	})
	rc := resty.NewWithClient(httpClient).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "aRchive-backend/1.0")

	return &Client{
		http:  rc,
		cfg:   cfg,
		cache: redis,
		now:   time.Now,
	}
}

// Fetch returns the merged headlines. It never fails: sources that error or
// lack an API key contribute nothing, and an empty merge yields the fallback item.
func (c *Client) Fetch(ctx context.Context) ([]feed.Item, error) {
	var cached []feed.Item
	if err := c.cache.GetJSON(ctx, CacheKey, &cached); err == nil {
		metrics.RecordCacheHit("news")
		return cached, nil
	} else if !cache.IsMiss(err) {
		logger.Log.Warn("News cache read failed", zap.Error(err))
	}
	metrics.RecordCacheMiss("news")

	var gnewsItems, guardianItems []feed.Item
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		gnewsItems = c.fetchSource(gctx, feed.SourceGNews, c.cfg.GNewsAPIKey, c.fetchGNews)
		return nil
	})
	g.Go(func() error {
		guardianItems = c.fetchSource(gctx, feed.SourceGuardian, c.cfg.GuardianAPIKey, c.fetchGuardian)
		return nil
	})
	_ = g.Wait()

	combined := make([]feed.Item, 0, len(gnewsItems)+len(guardianItems))
	combined = append(combined, gnewsItems...)
	combined = append(combined, guardianItems...)

	if len(combined) == 0 {
		return []feed.Item{c.fallback()}, nil
	}

	if err := c.cache.SetJSON(ctx, CacheKey, combined, c.cfg.CacheTTL); err != nil && !errors.Is(err, cache.ErrNoClient) {
		logger.Log.Warn("News cache write failed", zap.Error(err))
	}
	return combined, nil
}

func (c *Client) fetchSource(ctx context.Context, source, apiKey string, fetch func(context.Context, string) ([]feed.Item, error)) []feed.Item {
	if apiKey == "" {
		metrics.RecordNewsFetch(source, "skipped", 0)
		return nil
	}

	ctx, span := telemetry.TraceExternalCall(ctx, source, "top_headlines")
	defer span.End()

	start := time.Now()
	items, err := fetch(ctx, apiKey)
	if err != nil {
		telemetry.RecordExternalCallError(span, err, 0)
		metrics.RecordNewsFetch(source, "error", time.Since(start))
		logger.Log.Warn("News source failed", zap.String("source", source), zap.Error(err))
		return nil
	}
	telemetry.RecordExternalCallSuccess(span, 200, len(items))
	metrics.RecordNewsFetch(source, "ok", time.Since(start))
	return items
}

func (c *Client) get(ctx context.Context, url string, params map[string]string, out interface{}) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(params).
		Get(url)
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("status %d", resp.StatusCode())
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}

func (c *Client) parseTime(raw string) time.Time {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC()
	}
	return c.now().UTC()
}

func (c *Client) fallback() feed.Item {
	return feed.Item{
		ID:        FallbackID,
		Title:     "News Feed Loading...",
		Content:   "We are currently pulling the latest stories from GNews and The Guardian. If this persists, please check your API keys!",
		ImageURL:  "https://images.unsplash.com/photo-1504711434969-e33886168f5c?q=80&w=1000",
		URL:       "https://gnews.io",
		CreatedAt: c.now().UTC(),
		IsNews:    true,
		Source:    feed.SourceSystem,
		Author: feed.Author{
			FullName:      "System Bot",
			Username:      "system",
			AvatarURL:     "https://cdn-icons-png.flaticon.com/512/4712/4712109.png",
			Badge:         models.BadgeAdmin,
			BorderVariant: models.BorderGhost,
		},
	}
}
