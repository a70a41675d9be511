package feed

import (
	"time"

	"github.com/archivesocial/archive/backend/internal/models"
)

// Item sources
const (
	SourcePost     = "post"
	SourceGNews    = "gnews"
	SourceGuardian = "guardian"
	SourceSystem   = "system"
)

// Author is the byline rendered on a feed card
type Author struct {
	ID            string `json:"id,omitempty"`
	FullName      string `json:"full_name"`
	Username      string `json:"username"`
	AvatarURL     string `json:"avatar_url"`
	Badge         string `json:"badge"`
	BorderVariant string `json:"border_variant"`
}

// Item is one card in the home feed: a user post or a news article
type Item struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Content      string    `json:"content"`
	ImageURL     string    `json:"image_url,omitempty"`
	URL          string    `json:"url,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	Author       Author    `json:"author"`
	IsNews       bool      `json:"is_news"`
	Source       string    `json:"source"`
	LikeCount    int64     `json:"like_count"`
	CommentCount int64     `json:"comment_count"`
	LikedByMe    bool      `json:"liked_by_me"`
}

// FromPost converts a stored post (author preloaded) into a feed item
func FromPost(p *models.Post) Item {
	item := Item{
		ID:           p.ID,
		Title:        p.Title,
		Content:      p.Content,
		ImageURL:     p.ImageURL,
		CreatedAt:    p.CreatedAt,
		Source:       SourcePost,
		LikeCount:    p.LikeCount,
		CommentCount: p.CommentCount,
		LikedByMe:    p.LikedByMe,
	}
	if p.Author != nil {
		item.Author = Author{
			ID:            p.Author.ID,
			FullName:      p.Author.FullName,
			Username:      p.Author.Username,
			AvatarURL:     p.Author.AvatarURL,
			Badge:         p.Author.Badge,
			BorderVariant: p.Author.BorderVariant,
		}
	}
	return item
}
