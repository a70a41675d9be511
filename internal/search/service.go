package search

import (
	"context"
	"strings"

	"github.com/archivesocial/archive/backend/internal/database"
	"github.com/archivesocial/archive/backend/internal/logger"
	"github.com/archivesocial/archive/backend/internal/metrics"
	"github.com/archivesocial/archive/backend/internal/models"
	"github.com/archivesocial/archive/backend/internal/telemetry"
	"go.uber.org/zap"
)

// Result limits
const (
	PostLimit    = 20
	ProfileLimit = 5
)

// Backends reported in Results.Backend
const (
	BackendElasticsearch = "elasticsearch"
	BackendDatabase      = "database"
)

// Results holds one search's matches
type Results struct {
	Query    string           `json:"query"`
	Posts    []models.Post    `json:"posts"`
	Profiles []models.Profile `json:"profiles"`
	Backend  string           `json:"-"`
}

// LikeLookup reports which posts a viewer has liked
type LikeLookup interface {
	LikedSet(ctx context.Context, postIDs []string, userID string) (map[string]bool, error)
}

// Service answers search queries from Elasticsearch when available and
// from the database otherwise
type Service struct {
	es    *Client
	likes LikeLookup
}

// NewService creates a search service; es and likes may be nil
func NewService(es *Client, likes LikeLookup) *Service {
	return &Service{es: es, likes: likes}
}

// Indexer returns the client used to keep the indices current (possibly nil)
func (s *Service) Indexer() *Client {
	return s.es
}

// Search finds posts by title or content and profiles by username or full
// name. Posts viewerID liked carry liked_by_me; viewerID may be empty.
func (s *Service) Search(ctx context.Context, q, viewerID string) (*Results, error) {
	q = strings.TrimSpace(q)
	results := &Results{
		Query:    q,
		Posts:    []models.Post{},
		Profiles: []models.Profile{},
	}
	if q == "" {
		return results, nil
	}

	ctx, span := telemetry.GetBusinessEvents().TraceSearch(ctx, q)
	defer span.End()

	if s.es != nil {
		err := s.searchElasticsearch(ctx, q, results)
		if err == nil {
			err = s.markLiked(ctx, results.Posts, viewerID)
		}
		if err == nil {
			results.Backend = BackendElasticsearch
			metrics.RecordSearch(results.Backend)
			telemetry.RecordSearchResult(span, len(results.Posts), len(results.Profiles), results.Backend)
			return results, nil
		}
		logger.Log.Warn("Elasticsearch query failed, falling back to database",
			zap.String("query", q),
			zap.Error(err),
		)
		results.Posts = []models.Post{}
		results.Profiles = []models.Profile{}
	}

	if err := searchDatabase(ctx, q, results); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if err := s.markLiked(ctx, results.Posts, viewerID); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	results.Backend = BackendDatabase
	metrics.RecordSearch(results.Backend)
	telemetry.RecordSearchResult(span, len(results.Posts), len(results.Profiles), results.Backend)
	return results, nil
}

func (s *Service) searchElasticsearch(ctx context.Context, q string, results *Results) error {
	postIDs, err := s.es.searchIDs(ctx, IndexPosts, []string{"title", "content"}, q, PostLimit)
	if err != nil {
		return err
	}
	profileIDs, err := s.es.searchIDs(ctx, IndexProfiles, []string{"username", "full_name"}, q, ProfileLimit)
	if err != nil {
		return err
	}

	if len(postIDs) > 0 {
		var posts []models.Post
		if err := database.DB.WithContext(ctx).Preload("Author").Where("id IN ?", postIDs).Find(&posts).Error; err != nil {
			return err
		}
		byID := make(map[string]models.Post, len(posts))
		for _, p := range posts {
			byID[p.ID] = p
		}
		// Rows deleted since indexing are skipped
		for _, id := range postIDs {
			if p, ok := byID[id]; ok {
				results.Posts = append(results.Posts, p)
			}
		}
	}

	if len(profileIDs) > 0 {
		var users []models.User
		if err := database.DB.WithContext(ctx).Where("id IN ?", profileIDs).Find(&users).Error; err != nil {
			return err
		}
		byID := make(map[string]*models.User, len(users))
		for i := range users {
			byID[users[i].ID] = &users[i]
		}
		for _, id := range profileIDs {
			if u, ok := byID[id]; ok {
				results.Profiles = append(results.Profiles, u.ToProfile())
			}
		}
	}
	return nil
}

func searchDatabase(ctx context.Context, q string, results *Results) error {
	pattern := "%" + escapeLike(strings.ToLower(q)) + "%"

	var posts []models.Post
	err := database.DB.WithContext(ctx).
		Preload("Author").
		Where(`LOWER(title) LIKE ? ESCAPE '\' OR LOWER(content) LIKE ? ESCAPE '\'`, pattern, pattern).
		Order("created_at DESC").
		Limit(PostLimit).
		Find(&posts).Error
	if err != nil {
		return err
	}

	var users []models.User
	err = database.DB.WithContext(ctx).
		Where(`LOWER(username) LIKE ? ESCAPE '\' OR LOWER(full_name) LIKE ? ESCAPE '\'`, pattern, pattern).
		Order("username ASC").
		Limit(ProfileLimit).
		Find(&users).Error
	if err != nil {
		return err
	}

	results.Posts = posts
	results.Profiles = models.ToProfiles(users)
	return nil
}

func (s *Service) markLiked(ctx context.Context, posts []models.Post, viewerID string) error {
	if s.likes == nil || viewerID == "" || len(posts) == 0 {
		return nil
	}
	ids := make([]string, len(posts))
	for i := range posts {
		ids[i] = posts[i].ID
	}
	liked, err := s.likes.LikedSet(ctx, ids, viewerID)
	if err != nil {
		return err
	}
	for i := range posts {
		posts[i].LikedByMe = liked[posts[i].ID]
	}
	return nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
