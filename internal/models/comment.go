package models

import (
	"time"

	"gorm.io/gorm"
)

// Comment is a post comment; ParentID set means it is a reply to a top-level comment
type Comment struct {
	ID       string  `gorm:"primaryKey;type:uuid" json:"id"`
	PostID   string  `gorm:"type:uuid;not null;index" json:"post_id"`
	AuthorID string  `gorm:"type:uuid;not null;index" json:"author_id"`
	Author   *User   `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
	ParentID *string `gorm:"type:uuid;index" json:"parent_id"`
	Content  string  `gorm:"type:text;not null" json:"content"`

	Replies []*Comment `gorm:"-" json:"replies,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (c *Comment) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = generateUUID()
	}
	return nil
}
