package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/archivesocial/archive/backend/internal/config"
	"github.com/archivesocial/archive/backend/internal/logger"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ErrNoClient is returned by every method on a nil *RedisClient
var ErrNoClient = errors.New("redis client not configured")

// RedisClient wraps the redis.Client with centralized connection pooling.
// A nil *RedisClient is valid: reads miss and writes return ErrNoClient.
type RedisClient struct {
	client *redis.Client
}

// NewRedisClient creates and initializes a Redis client with connection pooling
func NewRedisClient(cfg config.RedisConfig) (*RedisClient, error) {
	host, port := cfg.Host, cfg.Port
	if host == "" {
		host = "localhost"
	}
	if port == "" {
		port = "6379"
	}

	addr := fmt.Sprintf("%s:%s", host, port)

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     cfg.Password,
		DB:           0,
		MaxRetries:   3,
		PoolSize:     10,
		MinIdleConns: 5,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		DialTimeout:  5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		logger.ErrorWithFields("Failed to connect to Redis", err)
		_ = client.Close()
		return nil, err
	}

	rc := &RedisClient{client: client}

	logger.Log.Info("Redis client connected",
		zap.String("address", addr),
	)

	return rc, nil
}

// NewFromClient wraps an existing go-redis client (tests point it at miniredis)
func NewFromClient(client *redis.Client) *RedisClient {
	return &RedisClient{client: client}
}

// IsMiss reports whether err means the key was absent
func IsMiss(err error) bool {
	return errors.Is(err, redis.Nil) || errors.Is(err, ErrNoClient)
}

// Close closes the Redis connection gracefully
func (rc *RedisClient) Close() error {
	if rc == nil || rc.client == nil {
		return nil
	}
	return rc.client.Close()
}

// Get retrieves a value from Redis
func (rc *RedisClient) Get(ctx context.Context, key string) (string, error) {
	if rc == nil {
		return "", ErrNoClient
	}
	return rc.client.Get(ctx, key).Result()
}

// SetEx stores a value in Redis with expiration
func (rc *RedisClient) SetEx(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if rc == nil {
		return ErrNoClient
	}
	return rc.client.Set(ctx, key, value, ttl).Err()
}

// Del deletes one or more keys from Redis
func (rc *RedisClient) Del(ctx context.Context, keys ...string) error {
	if rc == nil {
		return ErrNoClient
	}
	return rc.client.Del(ctx, keys...).Err()
}

// Exists checks if one or more keys exist in Redis
func (rc *RedisClient) Exists(ctx context.Context, keys ...string) (int64, error) {
	if rc == nil {
		return 0, ErrNoClient
	}
	return rc.client.Exists(ctx, keys...).Result()
}

// Incr increments a key value in Redis
func (rc *RedisClient) Incr(ctx context.Context, key string) (int64, error) {
	if rc == nil {
		return 0, ErrNoClient
	}
	return rc.client.Incr(ctx, key).Result()
}

// Expire sets an expiration timeout on a key
func (rc *RedisClient) Expire(ctx context.Context, key string, ttl time.Duration) error {
	if rc == nil {
		return ErrNoClient
	}
	return rc.client.Expire(ctx, key, ttl).Err()
}

// TTL returns the time-to-live for a key
func (rc *RedisClient) TTL(ctx context.Context, key string) (time.Duration, error) {
	if rc == nil {
		return 0, ErrNoClient
	}
	return rc.client.TTL(ctx, key).Result()
}

// Ping tests the Redis connection
func (rc *RedisClient) Ping(ctx context.Context) error {
	if rc == nil {
		return ErrNoClient
	}
	return rc.client.Ping(ctx).Err()
}

// Keys returns all keys matching a pattern
func (rc *RedisClient) Keys(ctx context.Context, pattern string) ([]string, error) {
	if rc == nil {
		return nil, ErrNoClient
	}
	return rc.client.Keys(ctx, pattern).Result()
}

// DelPattern removes every key matching pattern
func (rc *RedisClient) DelPattern(ctx context.Context, pattern string) error {
	keys, err := rc.Keys(ctx, pattern)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return rc.Del(ctx, keys...)
}

// GetJSON decodes the JSON value at key into dest
func (rc *RedisClient) GetJSON(ctx context.Context, key string, dest interface{}) error {
	raw, err := rc.Get(ctx, key)
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(raw), dest)
}

// SetJSON stores value as JSON with a TTL
func (rc *RedisClient) SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return rc.SetEx(ctx, key, data, ttl)
}
