package feed

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/archivesocial/archive/backend/internal/database"
	"github.com/archivesocial/archive/backend/internal/logger"
	"github.com/archivesocial/archive/backend/internal/metrics"
	"github.com/archivesocial/archive/backend/internal/models"
	"github.com/archivesocial/archive/backend/internal/telemetry"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	// PostLimit is how many recent posts feed composition considers
	PostLimit = 100
	// SuggestionLimit is the size of the follow strip
	SuggestionLimit = 5
	// RefreshAfterSeconds tells clients when to pull a fresh feed
	RefreshAfterSeconds = 100
)

// NewsSource supplies external articles as feed items
type NewsSource interface {
	Fetch(ctx context.Context) ([]Item, error)
}

// SuggestionSource supplies accounts for the follow strip
type SuggestionSource interface {
	Suggestions(ctx context.Context, viewerID string, limit int) ([]models.Profile, error)
}

// LikeLookup reports which of postIDs the user has liked
type LikeLookup interface {
	LikedSet(ctx context.Context, postIDs []string, userID string) (map[string]bool, error)
}

// Response is the composed home feed
type Response struct {
	Items               []Item           `json:"items"`
	FollowStripIndex    int              `json:"follow_strip_index"`
	Suggestions         []models.Profile `json:"suggestions"`
	RefreshAfterSeconds int              `json:"refresh_after_seconds"`
}

// Service composes the home feed
type Service struct {
	news        NewsSource
	suggestions SuggestionSource
	likes       LikeLookup

	mu  sync.Mutex
	rng *rand.Rand
}

// NewService creates a feed service. A nil rng seeds one from the clock.
func NewService(news NewsSource, suggestions SuggestionSource, likes LikeLookup, rng *rand.Rand) *Service {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Service{
		news:        news,
		suggestions: suggestions,
		likes:       likes,
		rng:         rng,
	}
}

// Build loads posts and news in parallel and composes them.
// A failing news source degrades to a posts-only feed; a failing database fails the build.
func (s *Service) Build(ctx context.Context, viewerID string) (*Response, error) {
	start := time.Now()
	ctx, span := telemetry.GetBusinessEvents().TraceFeedBuild(ctx, viewerID)
	defer span.End()

	var (
		posts []models.Post
		news  []Item
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := database.DB.WithContext(gctx).
			Preload("Author").
			Order("created_at DESC").
			Limit(PostLimit).
			Find(&posts).Error
		if err != nil {
			return fmt.Errorf("load posts: %w", err)
		}
		return nil
	})
	if s.news != nil {
		g.Go(func() error {
			items, err := s.news.Fetch(gctx)
			if err != nil {
				logger.Log.Warn("News unavailable for feed", zap.Error(err))
				return nil
			}
			news = items
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	liked := map[string]bool{}
	if viewerID != "" && s.likes != nil && len(posts) > 0 {
		ids := make([]string, len(posts))
		for i := range posts {
			ids[i] = posts[i].ID
		}
		set, err := s.likes.LikedSet(ctx, ids, viewerID)
		if err != nil {
			logger.Log.Warn("Failed to load liked set", logger.WithUserID(viewerID), zap.Error(err))
		} else {
			liked = set
		}
	}

	items := make([]Item, 0, len(posts)+len(news))
	for i := range posts {
		posts[i].LikedByMe = liked[posts[i].ID]
		items = append(items, FromPost(&posts[i]))
	}
	items = append(items, news...)

	s.mu.Lock()
	composed := Compose(items, s.rng)
	stripIndex := FollowStripIndex(len(composed), s.rng)
	s.mu.Unlock()

	suggestions := []models.Profile{}
	if s.suggestions != nil {
		profiles, err := s.suggestions.Suggestions(ctx, viewerID, SuggestionLimit)
		if err != nil {
			logger.Log.Warn("Failed to load follow suggestions", zap.Error(err))
		} else {
			suggestions = profiles
		}
	}

	telemetry.RecordFeedComposition(span, len(posts), len(news), stripIndex)
	metrics.RecordFeedBuild(time.Since(start))

	return &Response{
		Items:               composed,
		FollowStripIndex:    stripIndex,
		Suggestions:         suggestions,
		RefreshAfterSeconds: RefreshAfterSeconds,
	}, nil
}
