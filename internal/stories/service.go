// Package stories manages expiring image stories and their view state.
package stories

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/archivesocial/archive/backend/internal/database"
	"github.com/archivesocial/archive/backend/internal/logger"
	"github.com/archivesocial/archive/backend/internal/metrics"
	"github.com/archivesocial/archive/backend/internal/models"
	"github.com/archivesocial/archive/backend/internal/storage"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// StoryDurationMS is how long each story plays before advancing
const StoryDurationMS = 5000

var (
	ErrStoryNotFound = errors.New("story not found")
	ErrNotOwner      = errors.New("not the owner")
	ErrNoImage       = errors.New("a story needs an image")
)

// Group is one author's active stories, in playback order
type Group struct {
	Author      models.Profile  `json:"author"`
	Stories     []*models.Story `json:"stories"`
	LatestAt    time.Time       `json:"latest_at"`
	HasUnviewed bool            `json:"has_unviewed"`
}

// Service creates, lists and deletes stories
type Service struct {
	store storage.ImageStore
	ttl   time.Duration
	now   func() time.Time
}

// NewService creates a story service; ttl <= 0 uses models.DefaultStoryTTL
func NewService(store storage.ImageStore, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = models.DefaultStoryTTL
	}
	return &Service{store: store, ttl: ttl, now: func() time.Time { return time.Now().UTC() }}
}

// Create uploads img and stores a story that expires after the service TTL
func (s *Service) Create(ctx context.Context, authorID string, img *storage.Image) (*models.Story, error) {
	if img == nil {
		return nil, ErrNoImage
	}
	if s.store == nil {
		return nil, fmt.Errorf("image storage not configured")
	}

	upload, err := s.store.UploadImage(ctx, storage.BucketStories, authorID, *img)
	if err != nil {
		return nil, err
	}

	now := s.now()
	story := &models.Story{
		AuthorID:  authorID,
		ImageURL:  upload.URL,
		ImageKey:  upload.Key,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := database.DB.WithContext(ctx).Create(story).Error; err != nil {
		if delErr := s.store.DeleteFile(ctx, upload.Key); delErr != nil {
			logger.Log.Warn("Failed to delete orphaned story image", zap.String("key", upload.Key), zap.Error(delErr))
		}
		return nil, err
	}

	var author models.User
	if err := database.DB.WithContext(ctx).First(&author, "id = ?", authorID).Error; err == nil {
		story.Author = &author
	}

	metrics.RecordSocialAction("story")
	return story, nil
}

// Active returns unexpired stories, newest first, with Viewed set for viewerID
func (s *Service) Active(ctx context.Context, viewerID string) ([]*models.Story, error) {
	var stories []*models.Story
	err := database.DB.WithContext(ctx).
		Preload("Author").
		Where("expires_at > ?", s.now()).
		Order("created_at DESC").
		Find(&stories).Error
	if err != nil {
		return nil, err
	}

	if viewerID != "" && len(stories) > 0 {
		ids := make([]string, len(stories))
		for i, st := range stories {
			ids[i] = st.ID
		}
		var viewed []string
		err := database.DB.WithContext(ctx).Model(&models.StoryView{}).
			Where("viewer_id = ? AND story_id IN ?", viewerID, ids).
			Pluck("story_id", &viewed).Error
		if err != nil {
			return nil, err
		}
		seen := make(map[string]bool, len(viewed))
		for _, id := range viewed {
			seen[id] = true
		}
		for _, st := range stories {
			st.Viewed = seen[st.ID]
		}
	}
	return stories, nil
}

// Grouped is Active folded into per-author groups
func (s *Service) Grouped(ctx context.Context, viewerID string) ([]Group, error) {
	stories, err := s.Active(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	return GroupStories(stories), nil
}

// GroupStories groups stories by author. Groups with something unviewed come
// first, then the most recently active; stories within a group play newest first.
func GroupStories(stories []*models.Story) []Group {
	index := make(map[string]int)
	groups := make([]Group, 0)

	for _, st := range stories {
		i, ok := index[st.AuthorID]
		if !ok {
			g := Group{}
			if st.Author != nil {
				g.Author = st.Author.ToProfile()
			} else {
				g.Author = models.Profile{ID: st.AuthorID}
			}
			groups = append(groups, g)
			i = len(groups) - 1
			index[st.AuthorID] = i
		}

		g := &groups[i]
		g.Stories = append(g.Stories, st)
		if st.CreatedAt.After(g.LatestAt) {
			g.LatestAt = st.CreatedAt
		}
		if !st.Viewed {
			g.HasUnviewed = true
		}
	}

	for i := range groups {
		sort.SliceStable(groups[i].Stories, func(a, b int) bool {
			return groups[i].Stories[a].CreatedAt.After(groups[i].Stories[b].CreatedAt)
		})
	}

	sort.SliceStable(groups, func(a, b int) bool {
		if groups[a].HasUnviewed != groups[b].HasUnviewed {
			return groups[a].HasUnviewed
		}
		return groups[a].LatestAt.After(groups[b].LatestAt)
	})
	return groups
}

// MarkViewed records that viewerID saw the story; repeating it is a no-op
func (s *Service) MarkViewed(ctx context.Context, storyID, viewerID string) error {
	var count int64
	if err := database.DB.WithContext(ctx).Model(&models.Story{}).Where("id = ?", storyID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrStoryNotFound
	}

	return database.DB.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.StoryView{StoryID: storyID, ViewerID: viewerID}).Error
}

// Delete removes a story the caller owns along with its views and image
func (s *Service) Delete(ctx context.Context, storyID, userID string) error {
	var story models.Story
	err := database.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&story, "id = ?", storyID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrStoryNotFound
			}
			return err
		}
		if story.AuthorID != userID {
			return ErrNotOwner
		}
		if err := tx.Where("story_id = ?", storyID).Delete(&models.StoryView{}).Error; err != nil {
			return err
		}
		return tx.Delete(&story).Error
	})
	if err != nil {
		return err
	}

	if story.ImageKey != "" && s.store != nil {
		if err := s.store.DeleteFile(ctx, story.ImageKey); err != nil {
			logger.Log.Warn("Failed to delete story image", zap.String("story_id", storyID), zap.Error(err))
		}
	}
	return nil
}
