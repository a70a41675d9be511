package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/archivesocial/archive/backend/internal/cache"
)

// RedisLimiter is a fixed-window counter shared by every instance
type RedisLimiter struct {
	rc     *cache.RedisClient
	config RateLimitConfig
	now    func() time.Time
}

// NewRedisLimiter creates a distributed limiter on rc
func NewRedisLimiter(rc *cache.RedisClient, config RateLimitConfig) *RedisLimiter {
	return &RedisLimiter{rc: rc, config: config, now: time.Now}
}

// Allow counts a request for key in the current window
func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	window := l.now().Truncate(l.config.Window).Unix()
	redisKey := fmt.Sprintf("rate_limit:%s:%s:%d", l.config.Scope, key, window)

	count, err := l.rc.Incr(ctx, redisKey)
	if err != nil {
		return false, err
	}
	if count == 1 {
		if err := l.rc.Expire(ctx, redisKey, l.config.Window); err != nil {
			return false, err
		}
	}
	return count <= int64(l.config.Limit), nil
}
