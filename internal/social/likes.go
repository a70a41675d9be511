package social

import (
	"context"

	"github.com/archivesocial/archive/backend/internal/database"
	"github.com/archivesocial/archive/backend/internal/metrics"
	"github.com/archivesocial/archive/backend/internal/models"
	"github.com/archivesocial/archive/backend/internal/news"
	"github.com/archivesocial/archive/backend/internal/telemetry"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LikeState is the result of a like toggle
type LikeState struct {
	Liked     bool  `json:"liked"`
	LikeCount int64 `json:"like_count"`
}

// LikeService toggles likes and keeps posts.like_count in step
type LikeService struct {
	notifications *NotificationService
}

// NewLikeService creates a like service
func NewLikeService(notifications *NotificationService) *LikeService {
	return &LikeService{notifications: notifications}
}

// Toggle likes the post if userID has not liked it yet and unlikes it otherwise
func (s *LikeService) Toggle(ctx context.Context, postID, userID string) (*LikeState, error) {
	if news.IsNewsID(postID) {
		return nil, ErrNewsImmutable
	}

	ctx, span := telemetry.GetBusinessEvents().TraceSocialAction(ctx, "like", userID, "post", postID)
	defer span.End()

	var (
		post  models.Post
		state LikeState
	)
	err := database.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Select("id", "author_id").First(&post, "id = ?", postID).Error; err != nil {
			if isNotFound(err) {
				return ErrPostNotFound
			}
			return err
		}

		removed := tx.Where("post_id = ? AND user_id = ?", postID, userID).Delete(&models.PostLike{})
		if removed.Error != nil {
			return removed.Error
		}

		if removed.RowsAffected > 0 {
			if err := tx.Model(&models.Post{}).Where("id = ? AND like_count > 0", postID).
				UpdateColumn("like_count", gorm.Expr("like_count - ?", removed.RowsAffected)).Error; err != nil {
				return err
			}
			// A retracted like also retracts its unread notification
			if err := tx.Where("type = ? AND actor_id = ? AND post_id = ? AND read = ?",
				models.NotificationLike, userID, postID, false).
				Delete(&models.Notification{}).Error; err != nil {
				return err
			}
		} else {
			added := tx.Clauses(clause.OnConflict{DoNothing: true}).
				Create(&models.PostLike{PostID: postID, UserID: userID})
			if added.Error != nil {
				return added.Error
			}
			if added.RowsAffected > 0 {
				if err := tx.Model(&models.Post{}).Where("id = ?", postID).
					UpdateColumn("like_count", gorm.Expr("like_count + 1")).Error; err != nil {
					return err
				}
			}
			state.Liked = true
		}

		return tx.Model(&models.Post{}).Select("like_count").Where("id = ?", postID).Scan(&state.LikeCount).Error
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if state.Liked {
		metrics.RecordSocialAction("like")
		s.notifications.notify(ctx, post.AuthorID, userID, models.NotificationLike, &post.ID, nil)
	} else {
		metrics.RecordSocialAction("unlike")
	}
	return &state, nil
}

// Count returns how many users liked postID
func (s *LikeService) Count(ctx context.Context, postID string) (int64, error) {
	var count int64
	err := database.DB.WithContext(ctx).Model(&models.PostLike{}).Where("post_id = ?", postID).Count(&count).Error
	return count, err
}

// HasLiked reports whether userID liked postID
func (s *LikeService) HasLiked(ctx context.Context, postID, userID string) (bool, error) {
	if userID == "" || news.IsNewsID(postID) {
		return false, nil
	}
	var count int64
	err := database.DB.WithContext(ctx).Model(&models.PostLike{}).
		Where("post_id = ? AND user_id = ?", postID, userID).
		Count(&count).Error
	return count > 0, err
}

// LikedSet returns the subset of postIDs that userID liked
func (s *LikeService) LikedSet(ctx context.Context, postIDs []string, userID string) (map[string]bool, error) {
	set := make(map[string]bool)
	if userID == "" || len(postIDs) == 0 {
		return set, nil
	}

	var liked []string
	err := database.DB.WithContext(ctx).Model(&models.PostLike{}).
		Where("user_id = ? AND post_id IN ?", userID, postIDs).
		Pluck("post_id", &liked).Error
	if err != nil {
		return nil, err
	}
	for _, id := range liked {
		set[id] = true
	}
	return set, nil
}

// markLiked sets LikedByMe on each post for userID
func (s *LikeService) markLiked(ctx context.Context, posts []models.Post, userID string) error {
	if userID == "" || len(posts) == 0 {
		return nil
	}
	ids := make([]string, len(posts))
	for i := range posts {
		ids[i] = posts[i].ID
	}
	set, err := s.LikedSet(ctx, ids, userID)
	if err != nil {
		return err
	}
	for i := range posts {
		posts[i].LikedByMe = set[posts[i].ID]
	}
	return nil
}
