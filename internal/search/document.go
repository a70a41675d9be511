package search

import (
	"time"

	"github.com/archivesocial/archive/backend/internal/models"
)

// PostDoc is the indexed shape of a post
type PostDoc struct {
	ID        string `json:"id"`
	AuthorID  string `json:"author_id"`
	Username  string `json:"username,omitempty"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at"`
}

// ProfileDoc is the indexed shape of a profile
type ProfileDoc struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	FullName  string `json:"full_name"`
	Bio       string `json:"bio"`
	CreatedAt string `json:"created_at"`
}

// PostToDoc converts a post (author optional) into its search document
func PostToDoc(p *models.Post) PostDoc {
	doc := PostDoc{
		ID:        p.ID,
		AuthorID:  p.AuthorID,
		Title:     p.Title,
		Content:   p.Content,
		CreatedAt: p.CreatedAt.UTC().Format(time.RFC3339),
	}
	if p.Author != nil {
		doc.Username = p.Author.Username
	}
	return doc
}

// ProfileToDoc converts a user into its search document
func ProfileToDoc(u *models.User) ProfileDoc {
	return ProfileDoc{
		ID:        u.ID,
		Username:  u.Username,
		FullName:  u.FullName,
		Bio:       u.Bio,
		CreatedAt: u.CreatedAt.UTC().Format(time.RFC3339),
	}
}
