package social

import (
	"context"
	"fmt"
	"strings"

	"github.com/archivesocial/archive/backend/internal/database"
	"github.com/archivesocial/archive/backend/internal/logger"
	"github.com/archivesocial/archive/backend/internal/metrics"
	"github.com/archivesocial/archive/backend/internal/models"
	"github.com/archivesocial/archive/backend/internal/news"
	"github.com/archivesocial/archive/backend/internal/storage"
	"github.com/archivesocial/archive/backend/internal/util"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Post field limits, in characters
const (
	MaxTitleLength   = 200
	MaxContentLength = 5000
)

// Indexer keeps the search index in step with posts and profiles
type Indexer interface {
	IndexPost(ctx context.Context, post *models.Post) error
	DeletePost(ctx context.Context, postID string) error
	IndexProfile(ctx context.Context, user *models.User) error
}

type noopIndexer struct{}

func (noopIndexer) IndexPost(context.Context, *models.Post) error    { return nil }
func (noopIndexer) DeletePost(context.Context, string) error         { return nil }
func (noopIndexer) IndexProfile(context.Context, *models.User) error { return nil }

// CreatePostInput is a new post; Image is optional
type CreatePostInput struct {
	Title   string
	Content string
	Image   *storage.Image
}

// PostService creates, reads and deletes posts
type PostService struct {
	store storage.ImageStore
	index Indexer
	likes *LikeService
}

// NewPostService creates a post service. index may be nil.
func NewPostService(store storage.ImageStore, index Indexer, likes *LikeService) *PostService {
	if index == nil {
		index = noopIndexer{}
	}
	return &PostService{store: store, index: index, likes: likes}
}

// Create stores a post after trimming and validating its fields and uploading its image
func (s *PostService) Create(ctx context.Context, authorID string, in CreatePostInput) (*models.Post, error) {
	title := strings.TrimSpace(in.Title)
	content := strings.TrimSpace(in.Content)

	if title == "" && content == "" && in.Image == nil {
		return nil, ErrEmptyPost
	}
	if util.RuneLen(title) > MaxTitleLength {
		return nil, fieldError("title", fmt.Sprintf("must be at most %d characters", MaxTitleLength))
	}
	if util.RuneLen(content) > MaxContentLength {
		return nil, fieldError("content", fmt.Sprintf("must be at most %d characters", MaxContentLength))
	}

	post := &models.Post{
		AuthorID: authorID,
		Title:    title,
		Content:  content,
	}

	if in.Image != nil {
		if s.store == nil {
			return nil, fmt.Errorf("image storage not configured")
		}
		upload, err := s.store.UploadImage(ctx, storage.BucketPostImages, authorID, *in.Image)
		if err != nil {
			return nil, err
		}
		post.ImageURL = upload.URL
		post.ImageKey = upload.Key
	}

	if err := database.DB.WithContext(ctx).Create(post).Error; err != nil {
		s.deleteImage(ctx, post.ImageKey)
		return nil, err
	}

	var author models.User
	if err := database.DB.WithContext(ctx).First(&author, "id = ?", authorID).Error; err == nil {
		post.Author = &author
	}

	if err := s.index.IndexPost(ctx, post); err != nil {
		logger.Log.Warn("Failed to index post", logger.WithPostID(post.ID), zap.Error(err))
	}

	metrics.RecordSocialAction("post")
	logger.Log.Info("Post created", logger.WithPostID(post.ID), logger.WithUserID(authorID))
	return post, nil
}

// Get loads a post with its author and whether viewerID liked it
func (s *PostService) Get(ctx context.Context, id, viewerID string) (*models.Post, error) {
	if news.IsNewsID(id) {
		return nil, ErrPostNotFound
	}

	var post models.Post
	if err := database.DB.WithContext(ctx).Preload("Author").First(&post, "id = ?", id).Error; err != nil {
		if isNotFound(err) {
			return nil, ErrPostNotFound
		}
		return nil, err
	}

	if s.likes != nil {
		liked, err := s.likes.HasLiked(ctx, post.ID, viewerID)
		if err != nil {
			return nil, err
		}
		post.LikedByMe = liked
	}
	return &post, nil
}

// ListByAuthor pages through authorID's posts, newest first
func (s *PostService) ListByAuthor(ctx context.Context, authorID, viewerID string, page, size int) ([]models.Post, error) {
	if err := userExists(ctx, authorID); err != nil {
		return nil, err
	}
	page, size = util.NormalizePage(page, size)

	posts := []models.Post{}
	err := database.DB.WithContext(ctx).
		Preload("Author").
		Where("author_id = ?", authorID).
		Order("created_at DESC").
		Offset(util.Offset(page, size)).
		Limit(size).
		Find(&posts).Error
	if err != nil {
		return nil, err
	}

	if s.likes != nil {
		if err := s.likes.markLiked(ctx, posts, viewerID); err != nil {
			return nil, err
		}
	}
	return posts, nil
}

// Delete removes a post the caller owns together with its likes, comments,
// notifications, image and search document
func (s *PostService) Delete(ctx context.Context, id, userID string) error {
	if news.IsNewsID(id) {
		return ErrNewsImmutable
	}

	var post models.Post
	err := database.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&post, "id = ?", id).Error; err != nil {
			if isNotFound(err) {
				return ErrPostNotFound
			}
			return err
		}
		if post.AuthorID != userID {
			return ErrNotOwner
		}

		if err := tx.Where("post_id = ?", id).Delete(&models.PostLike{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		if err := deleteNotificationsForPost(tx, id); err != nil {
			return err
		}
		return tx.Delete(&post).Error
	})
	if err != nil {
		return err
	}

	s.deleteImage(ctx, post.ImageKey)
	if err := s.index.DeletePost(ctx, id); err != nil {
		logger.Log.Warn("Failed to remove post from search index", logger.WithPostID(id), zap.Error(err))
	}

	logger.Log.Info("Post deleted", logger.WithPostID(id), logger.WithUserID(userID))
	return nil
}

func (s *PostService) deleteImage(ctx context.Context, key string) {
	if key == "" || s.store == nil {
		return
	}
	if err := s.store.DeleteFile(ctx, key); err != nil {
		logger.Log.Warn("Failed to delete image", zap.String("key", key), zap.Error(err))
	}
}
