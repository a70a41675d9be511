package models

import (
	"time"

	"gorm.io/gorm"
)

// DefaultStoryTTL is how long a story stays visible when the caller does not set ExpiresAt
const DefaultStoryTTL = 24 * time.Hour

// Story is an ephemeral image post
type Story struct {
	ID       string `gorm:"primaryKey;type:uuid" json:"id"`
	AuthorID string `gorm:"type:uuid;not null;index" json:"author_id"`
	Author   *User  `gorm:"foreignKey:AuthorID" json:"author,omitempty"`

	ImageURL string `gorm:"not null" json:"image_url"`
	ImageKey string `json:"-"`

	ExpiresAt time.Time `gorm:"not null;index" json:"expires_at"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`

	Viewed bool `gorm:"-" json:"viewed"`
}

// StoryView records that a viewer has seen a story
type StoryView struct {
	ID       string    `gorm:"primaryKey;type:uuid" json:"id"`
	StoryID  string    `gorm:"type:uuid;not null;uniqueIndex:idx_story_views_pair" json:"story_id"`
	ViewerID string    `gorm:"type:uuid;not null;uniqueIndex:idx_story_views_pair;index" json:"viewer_id"`
	ViewedAt time.Time `json:"viewed_at"`
}

func (s *Story) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = generateUUID()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = tx.NowFunc()
	}
	if s.ExpiresAt.IsZero() {
		s.ExpiresAt = s.CreatedAt.Add(DefaultStoryTTL)
	}
	return nil
}

func (v *StoryView) BeforeCreate(tx *gorm.DB) error {
	if v.ID == "" {
		v.ID = generateUUID()
	}
	if v.ViewedAt.IsZero() {
		v.ViewedAt = tx.NowFunc()
	}
	return nil
}
