package models

import (
	"time"

	"gorm.io/gorm"
)

// Post is a user-authored record with optional title, text and image
type Post struct {
	ID       string `gorm:"primaryKey;type:uuid" json:"id"`
	AuthorID string `gorm:"type:uuid;not null;index" json:"author_id"`
	Author   *User  `gorm:"foreignKey:AuthorID" json:"author,omitempty"`

	Title    string `gorm:"size:200" json:"title"`
	Content  string `gorm:"type:text" json:"content"`
	ImageURL string `json:"image_url"`
	ImageKey string `json:"-"`

	// Denormalised counters, kept in step with post_likes and comments
	LikeCount    int64 `gorm:"default:0;not null" json:"like_count"`
	CommentCount int64 `gorm:"default:0;not null" json:"comment_count"`

	LikedByMe bool `gorm:"-" json:"liked_by_me"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PostLike records that a user liked a post
type PostLike struct {
	ID        string    `gorm:"primaryKey;type:uuid" json:"id"`
	PostID    string    `gorm:"type:uuid;not null;uniqueIndex:idx_post_likes_pair" json:"post_id"`
	UserID    string    `gorm:"type:uuid;not null;uniqueIndex:idx_post_likes_pair;index" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (p *Post) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = generateUUID()
	}
	return nil
}

func (l *PostLike) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = generateUUID()
	}
	return nil
}
