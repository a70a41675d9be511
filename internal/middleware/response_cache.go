package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"time"

	"github.com/archivesocial/archive/backend/internal/cache"
	"github.com/archivesocial/archive/backend/internal/logger"
	"github.com/archivesocial/archive/backend/internal/metrics"
	"github.com/archivesocial/archive/backend/internal/util"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const responseCacheName = "response"

// ResponseCacheMiddleware caches successful GET responses in redis for ttl.
// Entries are keyed by path, query and viewer, so personalised fields never
// leak between users. X-Cache reports HIT or MISS.
func ResponseCacheMiddleware(rc *cache.RedisClient, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rc == nil || c.Request.Method != http.MethodGet {
			c.Next()
			return
		}

		cacheKey := responseCacheKey(c.Request.URL.Path, c.Request.URL.RawQuery, c.GetString(util.ContextUserIDKey))
		ctx := c.Request.Context()

		if cached, err := rc.Get(ctx, cacheKey); err == nil {
			metrics.RecordCacheHit(responseCacheName)
			c.Header("X-Cache", "HIT")
			c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(cached))
			c.Abort()
			return
		} else if !cache.IsMiss(err) {
			logger.Log.Debug("Response cache read failed", zap.String("key", cacheKey), zap.Error(err))
		}
		metrics.RecordCacheMiss(responseCacheName)

		writer := &cachedResponseWriter{ResponseWriter: c.Writer, body: &bytes.Buffer{}}
		c.Writer = writer
		c.Header("X-Cache", "MISS")

		c.Next()

		status := writer.Status()
		if status < 200 || status >= 300 || writer.body.Len() == 0 {
			return
		}
		if err := rc.SetEx(ctx, cacheKey, writer.body.String(), ttl); err != nil {
			logger.Log.Debug("Response cache write failed", zap.String("key", cacheKey), zap.Error(err))
		}
	}
}

// PurgeResponseCache drops every cached response, for tools that rewrite data
// underneath the API
func PurgeResponseCache(ctx context.Context, rc *cache.RedisClient) error {
	if rc == nil {
		return nil
	}
	return rc.DelPattern(ctx, responseCacheName+":*")
}

// responseCacheKey hashes the query so arbitrary user input never forms part of a redis key
func responseCacheKey(path, query, userID string) string {
	sum := sha256.Sum256([]byte(query))
	key := fmt.Sprintf("response:%s:%s", path, hex.EncodeToString(sum[:8]))
	if userID != "" {
		key += ":" + userID
	}
	return key
}

// cachedResponseWriter captures the body while writing it through
type cachedResponseWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *cachedResponseWriter) Write(data []byte) (int, error) {
	w.body.Write(data)
	return w.ResponseWriter.Write(data)
}

func (w *cachedResponseWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}
