package middleware

import (
	"strconv"
	"sync"
	"time"

	"github.com/archivesocial/archive/backend/internal/cache"
	"github.com/archivesocial/archive/backend/internal/errors"
	"github.com/archivesocial/archive/backend/internal/logger"
	"github.com/archivesocial/archive/backend/internal/metrics"
	"github.com/archivesocial/archive/backend/internal/util"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// RateLimitConfig holds configuration for rate limiting
type RateLimitConfig struct {
	// Scope names the limit in redis keys and metrics
	Scope string
	// Requests per window
	Limit  int
	Window time.Duration
}

// DefaultRateLimitConfig applies to the whole API
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{Scope: "api", Limit: 300, Window: time.Minute}
}

// AuthRateLimitConfig returns stricter limits for auth endpoints
func AuthRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{Scope: "auth", Limit: 10, Window: time.Minute}
}

// UploadRateLimitConfig returns limits for image upload endpoints
func UploadRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{Scope: "upload", Limit: 20, Window: time.Minute}
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// MemoryLimiter is a per-key token bucket limiter for a single instance
type MemoryLimiter struct {
	config    RateLimitConfig
	mu        sync.Mutex
	visitors  map[string]*visitor
	lastSweep time.Time
}

// NewMemoryLimiter creates a limiter allowing config.Limit requests per
// config.Window per key, refilled smoothly
func NewMemoryLimiter(config RateLimitConfig) *MemoryLimiter {
	return &MemoryLimiter{
		config:    config,
		visitors:  make(map[string]*visitor),
		lastSweep: time.Now(),
	}
}

// Allow consumes a token for key
func (l *MemoryLimiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if now.Sub(l.lastSweep) > 2*l.config.Window {
		l.sweep(now.Add(-l.config.Window))
		l.lastSweep = now
	}

	v, ok := l.visitors[key]
	if !ok {
		every := l.config.Window / time.Duration(l.config.Limit)
		v = &visitor{limiter: rate.NewLimiter(rate.Every(every), l.config.Limit)}
		l.visitors[key] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1)
}

// sweep drops visitors idle since before cutoff; a full bucket needs no state
func (l *MemoryLimiter) sweep(cutoff time.Time) {
	for key, v := range l.visitors {
		if v.lastSeen.Before(cutoff) {
			delete(l.visitors, key)
		}
	}
}

// RateLimit limits requests per client IP. When rc is non-nil a redis fixed
// window shares the budget across instances; without redis, or when redis
// errors, the in-process limiter decides.
func RateLimit(config RateLimitConfig, rc *cache.RedisClient) gin.HandlerFunc {
	memory := NewMemoryLimiter(config)
	distributed := NewRedisLimiter(rc, config)

	return func(c *gin.Context) {
		key := c.ClientIP()

		var allowed bool
		if rc != nil {
			var err error
			allowed, err = distributed.Allow(c.Request.Context(), key)
			if err != nil {
				logger.Log.Warn("Redis rate limit check failed, using in-process limiter",
					zap.String("scope", config.Scope),
					zap.Error(err),
				)
				allowed = memory.Allow(key)
			}
		} else {
			allowed = memory.Allow(key)
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(config.Limit))
		if !allowed {
			metrics.RecordRateLimitExceeded(config.Scope)
			logger.Log.Warn("Rate limit exceeded",
				logger.WithIP(key),
				zap.String("scope", config.Scope),
			)
			c.Header("Retry-After", strconv.Itoa(int(config.Window.Seconds())))
			util.RespondWithAPIError(c, errors.RateLimited("rate limit exceeded"))
			c.Abort()
			return
		}
		c.Next()
	}
}
