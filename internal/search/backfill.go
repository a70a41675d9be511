package search

import (
	"context"
	"time"

	"github.com/archivesocial/archive/backend/internal/database"
	"github.com/archivesocial/archive/backend/internal/logger"
	"github.com/archivesocial/archive/backend/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const backfillBatchSize = 500

// Backfill indexes every post and profile. Individual document failures are
// logged and counted; only database errors abort.
func (c *Client) Backfill(ctx context.Context) error {
	if c == nil {
		return nil
	}

	start := time.Now()
	var indexed, failed int

	var users []models.User
	err := database.DB.WithContext(ctx).FindInBatches(&users, backfillBatchSize, func(tx *gorm.DB, batch int) error {
		for i := range users {
			if err := c.IndexProfile(ctx, &users[i]); err != nil {
				failed++
				logger.Log.Warn("Failed to index profile", zap.String("user_id", users[i].ID), zap.Error(err))
				continue
			}
			indexed++
		}
		return ctx.Err()
	}).Error
	if err != nil {
		return err
	}

	var posts []models.Post
	err = database.DB.WithContext(ctx).Preload("Author").FindInBatches(&posts, backfillBatchSize, func(tx *gorm.DB, batch int) error {
		for i := range posts {
			if err := c.IndexPost(ctx, &posts[i]); err != nil {
				failed++
				logger.Log.Warn("Failed to index post", zap.String("post_id", posts[i].ID), zap.Error(err))
				continue
			}
			indexed++
		}
		return ctx.Err()
	}).Error
	if err != nil {
		return err
	}

	logger.Log.Info("Search backfill completed",
		zap.Int("indexed", indexed),
		zap.Int("failed", failed),
		zap.Duration("duration", time.Since(start)),
	)
	return nil
}
