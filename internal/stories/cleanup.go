package stories

import (
	"context"
	"time"

	"github.com/archivesocial/archive/backend/internal/database"
	"github.com/archivesocial/archive/backend/internal/logger"
	"github.com/archivesocial/archive/backend/internal/metrics"
	"github.com/archivesocial/archive/backend/internal/models"
	"go.uber.org/zap"
)

// FileDeleter removes stored files by key
type FileDeleter interface {
	DeleteFile(ctx context.Context, key string) error
}

// CleanupResult summarises one cleanup pass
type CleanupResult struct {
	StoriesDeleted int
	ImagesDeleted  int
	ViewsDeleted   int64
	Errors         int
}

// CleanupService periodically deletes expired stories
type CleanupService struct {
	fileDeleter FileDeleter
	ctx         context.Context
	cancel      context.CancelFunc
	interval    time.Duration
	done        chan struct{}
	now         func() time.Time
}

// NewCleanupService creates a cleanup service; fileDeleter may be nil
func NewCleanupService(fileDeleter FileDeleter, interval time.Duration) *CleanupService {
	if interval <= 0 {
		interval = time.Hour
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &CleanupService{
		fileDeleter: fileDeleter,
		ctx:         ctx,
		cancel:      cancel,
		interval:    interval,
		done:        make(chan struct{}),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Start runs a pass immediately and then on every interval
func (s *CleanupService) Start() {
	logger.Log.Info("Starting story cleanup service", zap.Duration("interval", s.interval))
	go s.run()
}

// Stop cancels the loop and waits for an in-flight pass to finish
func (s *CleanupService) Stop() {
	logger.Log.Info("Stopping story cleanup service")
	s.cancel()
	<-s.done
}

func (s *CleanupService) run() {
	defer close(s.done)

	s.CleanupExpired(s.ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.CleanupExpired(s.ctx)
		case <-s.ctx.Done():
			return
		}
	}
}

// CleanupExpired deletes every expired story with its views and image.
// Image deletion failures are logged and do not keep the row.
func (s *CleanupService) CleanupExpired(ctx context.Context) CleanupResult {
	start := time.Now()
	var result CleanupResult

	var expired []models.Story
	if err := database.DB.WithContext(ctx).Where("expires_at <= ?", s.now()).Find(&expired).Error; err != nil {
		logger.Log.Error("Failed to query expired stories", zap.Error(err))
		result.Errors++
		return result
	}
	if len(expired) == 0 {
		return result
	}

	for i := range expired {
		story := &expired[i]

		views := database.DB.WithContext(ctx).Where("story_id = ?", story.ID).Delete(&models.StoryView{})
		if views.Error != nil {
			logger.Log.Error("Failed to delete story views", zap.String("story_id", story.ID), zap.Error(views.Error))
			result.Errors++
			continue
		}
		result.ViewsDeleted += views.RowsAffected

		if story.ImageKey != "" && s.fileDeleter != nil {
			delCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
			err := s.fileDeleter.DeleteFile(delCtx, story.ImageKey)
			cancel()
			if err != nil {
				logger.Log.Warn("Failed to delete story image",
					zap.String("story_id", story.ID),
					zap.String("key", story.ImageKey),
					zap.Error(err),
				)
			} else {
				result.ImagesDeleted++
			}
		}

		if err := database.DB.WithContext(ctx).Delete(story).Error; err != nil {
			logger.Log.Error("Failed to delete story", zap.String("story_id", story.ID), zap.Error(err))
			result.Errors++
			continue
		}
		result.StoriesDeleted++
	}

	metrics.Get().StoriesExpired.Add(float64(result.StoriesDeleted))
	logger.Log.Info("Story cleanup completed",
		zap.Int("stories_deleted", result.StoriesDeleted),
		zap.Int("images_deleted", result.ImagesDeleted),
		zap.Int64("views_deleted", result.ViewsDeleted),
		zap.Int("errors", result.Errors),
		zap.Duration("duration", time.Since(start)),
	)
	return result
}
