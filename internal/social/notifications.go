package social

import (
	"context"

	"github.com/archivesocial/archive/backend/internal/database"
	"github.com/archivesocial/archive/backend/internal/logger"
	"github.com/archivesocial/archive/backend/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Notification list limits
const (
	DefaultNotificationLimit = 10
	MaxNotificationLimit     = 50
)

// Pusher delivers notifications to a user's live connections
type Pusher interface {
	PushNotification(recipientID string, n *models.Notification, unread int64)
	PushUnreadCount(recipientID string, unread int64)
}

// NotificationService stores notifications and pushes them to connected clients
type NotificationService struct {
	pusher Pusher
}

// NewNotificationService creates a notification service; pusher may be nil
func NewNotificationService(pusher Pusher) *NotificationService {
	return &NotificationService{pusher: pusher}
}

// Notify records that actorID did typ to something of recipientID's.
// Acting on your own content notifies nobody and returns nil.
func (s *NotificationService) Notify(ctx context.Context, recipientID, actorID, typ string, postID, commentID *string) (*models.Notification, error) {
	if recipientID == actorID {
		return nil, nil
	}

	n := &models.Notification{
		RecipientID: recipientID,
		ActorID:     actorID,
		Type:        typ,
		PostID:      postID,
		CommentID:   commentID,
	}
	if err := database.DB.WithContext(ctx).Create(n).Error; err != nil {
		return nil, err
	}

	var actor models.User
	if err := database.DB.WithContext(ctx).First(&actor, "id = ?", actorID).Error; err == nil {
		n.Actor = &actor
	}

	if s.pusher != nil {
		unread, err := s.UnreadCount(ctx, recipientID)
		if err != nil {
			logger.Log.Warn("Failed to count unread notifications", logger.WithUserID(recipientID), zap.Error(err))
		}
		s.pusher.PushNotification(recipientID, n, unread)
	}
	return n, nil
}

// notify is Notify for callers whose own operation already succeeded
func (s *NotificationService) notify(ctx context.Context, recipientID, actorID, typ string, postID, commentID *string) {
	if s == nil {
		return
	}
	if _, err := s.Notify(ctx, recipientID, actorID, typ, postID, commentID); err != nil {
		logger.Log.Warn("Failed to create notification",
			zap.String("type", typ),
			logger.WithUserID(recipientID),
			zap.Error(err),
		)
	}
}

// List returns the newest notifications for recipientID with actors loaded
func (s *NotificationService) List(ctx context.Context, recipientID string, limit int) ([]models.Notification, error) {
	if limit < 1 {
		limit = DefaultNotificationLimit
	}
	if limit > MaxNotificationLimit {
		limit = MaxNotificationLimit
	}

	notifications := []models.Notification{}
	err := database.DB.WithContext(ctx).
		Preload("Actor").
		Where("recipient_id = ?", recipientID).
		Order("created_at DESC").
		Limit(limit).
		Find(&notifications).Error
	return notifications, err
}

// UnreadCount counts recipientID's unread notifications
func (s *NotificationService) UnreadCount(ctx context.Context, recipientID string) (int64, error) {
	var count int64
	err := database.DB.WithContext(ctx).
		Model(&models.Notification{}).
		Where("recipient_id = ? AND read = ?", recipientID, false).
		Count(&count).Error
	return count, err
}

// MarkRead marks one notification read. Someone else's notification is reported as not found.
func (s *NotificationService) MarkRead(ctx context.Context, id, recipientID string) error {
	res := database.DB.WithContext(ctx).
		Model(&models.Notification{}).
		Where("id = ? AND recipient_id = ?", id, recipientID).
		Update("read", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotificationNotFound
	}
	s.pushUnread(ctx, recipientID)
	return nil
}

// MarkAllRead marks every notification of recipientID read and returns how many changed
func (s *NotificationService) MarkAllRead(ctx context.Context, recipientID string) (int64, error) {
	res := database.DB.WithContext(ctx).
		Model(&models.Notification{}).
		Where("recipient_id = ? AND read = ?", recipientID, false).
		Update("read", true)
	if res.Error != nil {
		return 0, res.Error
	}
	s.pushUnread(ctx, recipientID)
	return res.RowsAffected, nil
}

func (s *NotificationService) pushUnread(ctx context.Context, recipientID string) {
	if s.pusher == nil {
		return
	}
	unread, err := s.UnreadCount(ctx, recipientID)
	if err != nil {
		logger.Log.Warn("Failed to count unread notifications", logger.WithUserID(recipientID), zap.Error(err))
		return
	}
	s.pusher.PushUnreadCount(recipientID, unread)
}

// deleteNotificationsForPost removes notifications pointing at postID inside tx
func deleteNotificationsForPost(tx *gorm.DB, postID string) error {
	return tx.Where("post_id = ?", postID).Delete(&models.Notification{}).Error
}
