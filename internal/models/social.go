package models

import (
	"time"

	"gorm.io/gorm"
)

// Follow is a directed relationship: FollowerID follows FollowingID
type Follow struct {
	ID          string    `gorm:"primaryKey;type:uuid" json:"id"`
	FollowerID  string    `gorm:"type:uuid;not null;index;uniqueIndex:idx_follows_pair" json:"follower_id"`
	FollowingID string    `gorm:"type:uuid;not null;index;uniqueIndex:idx_follows_pair" json:"following_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// Notification types
const (
	NotificationLike    = "like"
	NotificationComment = "comment"
	NotificationFollow  = "follow"
)

// Notification tells RecipientID that ActorID did something
type Notification struct {
	ID          string  `gorm:"primaryKey;type:uuid" json:"id"`
	RecipientID string  `gorm:"type:uuid;not null;index" json:"recipient_id"`
	ActorID     string  `gorm:"type:uuid;not null" json:"actor_id"`
	Actor       *User   `gorm:"foreignKey:ActorID" json:"actor,omitempty"`
	Type        string  `gorm:"size:20;not null" json:"type"`
	PostID      *string `gorm:"type:uuid;index" json:"post_id,omitempty"`
	CommentID   *string `gorm:"type:uuid" json:"comment_id,omitempty"`
	Read        bool    `gorm:"default:false;not null" json:"read"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

func (f *Follow) BeforeCreate(tx *gorm.DB) error {
	if f.ID == "" {
		f.ID = generateUUID()
	}
	return nil
}

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == "" {
		n.ID = generateUUID()
	}
	return nil
}
