package social

import (
	"context"
	"fmt"
	"strings"

	"github.com/archivesocial/archive/backend/internal/database"
	"github.com/archivesocial/archive/backend/internal/metrics"
	"github.com/archivesocial/archive/backend/internal/models"
	"github.com/archivesocial/archive/backend/internal/news"
	"github.com/archivesocial/archive/backend/internal/util"
	"gorm.io/gorm"
)

// MaxCommentLength caps a comment, in characters
const MaxCommentLength = 1000

// BuildTree nests a flat, oldest-first comment list one level deep. A comment
// whose parent is in the list becomes one of its replies; any other comment,
// including one whose parent is missing, is a root. total counts every comment.
func BuildTree(flat []*models.Comment) (roots []*models.Comment, total int) {
	byID := make(map[string]*models.Comment, len(flat))
	for _, c := range flat {
		c.Replies = nil
		byID[c.ID] = c
	}

	roots = make([]*models.Comment, 0, len(flat))
	for _, c := range flat {
		if c.ParentID != nil {
			if parent, ok := byID[*c.ParentID]; ok {
				parent.Replies = append(parent.Replies, c)
				continue
			}
		}
		roots = append(roots, c)
	}
	return roots, len(flat)
}

// CommentService manages threaded comments on posts
type CommentService struct {
	notifications *NotificationService
}

// NewCommentService creates a comment service
func NewCommentService(notifications *NotificationService) *CommentService {
	return &CommentService{notifications: notifications}
}

// List returns postID's comments as a one-level tree plus the total count.
// News items have no comments.
func (s *CommentService) List(ctx context.Context, postID string) ([]*models.Comment, int, error) {
	if news.IsNewsID(postID) {
		return []*models.Comment{}, 0, nil
	}

	var flat []*models.Comment
	err := database.DB.WithContext(ctx).
		Preload("Author").
		Where("post_id = ?", postID).
		Order("created_at ASC").
		Find(&flat).Error
	if err != nil {
		return nil, 0, err
	}

	roots, total := BuildTree(flat)
	return roots, total, nil
}

// Create adds a comment or a reply. Replying to a reply attaches the new
// comment to that reply's top-level parent.
func (s *CommentService) Create(ctx context.Context, postID, authorID, content string, parentID *string) (*models.Comment, error) {
	if news.IsNewsID(postID) {
		return nil, ErrNewsImmutable
	}

	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyComment
	}
	if util.RuneLen(content) > MaxCommentLength {
		return nil, fieldError("content", fmt.Sprintf("must be at most %d characters", MaxCommentLength))
	}

	var post models.Post
	comment := &models.Comment{PostID: postID, AuthorID: authorID, Content: content}

	err := database.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Select("id", "author_id").First(&post, "id = ?", postID).Error; err != nil {
			if isNotFound(err) {
				return ErrPostNotFound
			}
			return err
		}

		if parentID != nil && *parentID != "" {
			var parent models.Comment
			if err := tx.Select("id", "post_id", "parent_id").First(&parent, "id = ?", *parentID).Error; err != nil {
				if isNotFound(err) {
					return ErrCommentNotFound
				}
				return err
			}
			if parent.PostID != postID {
				return fieldError("parent_id", "belongs to another post")
			}
			rootID := parent.ID
			if parent.ParentID != nil {
				rootID = *parent.ParentID
			}
			comment.ParentID = &rootID
		}

		if err := tx.Create(comment).Error; err != nil {
			return err
		}
		return tx.Model(&models.Post{}).Where("id = ?", postID).
			UpdateColumn("comment_count", gorm.Expr("comment_count + 1")).Error
	})
	if err != nil {
		return nil, err
	}

	var author models.User
	if err := database.DB.WithContext(ctx).First(&author, "id = ?", authorID).Error; err == nil {
		comment.Author = &author
	}

	metrics.RecordSocialAction("comment")
	s.notifications.notify(ctx, post.AuthorID, authorID, models.NotificationComment, &post.ID, &comment.ID)
	return comment, nil
}

// Delete removes a comment the caller wrote. Deleting a top-level comment
// removes its replies too; removed counts every deleted row.
func (s *CommentService) Delete(ctx context.Context, commentID, userID string) (removed int64, err error) {
	err = database.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var comment models.Comment
		if err := tx.First(&comment, "id = ?", commentID).Error; err != nil {
			if isNotFound(err) {
				return ErrCommentNotFound
			}
			return err
		}
		if comment.AuthorID != userID {
			return ErrNotOwner
		}

		ids := []string{comment.ID}
		if comment.ParentID == nil {
			var replyIDs []string
			if err := tx.Model(&models.Comment{}).Where("parent_id = ?", comment.ID).Pluck("id", &replyIDs).Error; err != nil {
				return err
			}
			ids = append(ids, replyIDs...)
		}

		if err := tx.Where("comment_id IN ?", ids).Delete(&models.Notification{}).Error; err != nil {
			return err
		}
		res := tx.Where("id IN ?", ids).Delete(&models.Comment{})
		if res.Error != nil {
			return res.Error
		}
		removed = res.RowsAffected

		return tx.Model(&models.Post{}).Where("id = ?", comment.PostID).
			UpdateColumn("comment_count", gorm.Expr("CASE WHEN comment_count > ? THEN comment_count - ? ELSE 0 END", removed, removed)).Error
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}
