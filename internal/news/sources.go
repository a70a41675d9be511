package news

import (
	"context"
	"fmt"

	"github.com/archivesocial/archive/backend/internal/feed"
	"github.com/archivesocial/archive/backend/internal/models"
)

const (
	gnewsAvatar    = "https://cdn-icons-png.flaticon.com/512/21/21601.png"
	guardianAvatar = "https://encrypted-tbn0.gstatic.com/images?q=tbn:ANd9GcQ2VsbKU5ZIyU7Lo9H-s_zj7WhX2A4yyxK8dA&s"
)

type gnewsResponse struct {
	Articles []struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		Content     string `json:"content"`
		URL         string `json:"url"`
		Image       string `json:"image"`
		PublishedAt string `json:"publishedAt"`
		Source      struct {
			Name string `json:"name"`
		} `json:"source"`
	} `json:"articles"`
}

type guardianResponse struct {
	Response struct {
		Results []struct {
			WebTitle           string `json:"webTitle"`
			WebURL             string `json:"webUrl"`
			WebPublicationDate string `json:"webPublicationDate"`
			Fields             struct {
				Thumbnail string `json:"thumbnail"`
				TrailText string `json:"trailText"`
				BodyText  string `json:"bodyText"`
			} `json:"fields"`
		} `json:"results"`
	} `json:"response"`
}

func (c *Client) fetchGNews(ctx context.Context, apiKey string) ([]feed.Item, error) {
	var body gnewsResponse
	err := c.get(ctx, c.cfg.GNewsBaseURL+"/top-headlines", map[string]string{
		"lang":    "en",
		"country": "us",
		"max":     pageSize,
		"apikey":  apiKey,
	}, &body)
	if err != nil {
		return nil, fmt.Errorf("gnews: %w", err)
	}

	items := make([]feed.Item, 0, len(body.Articles))
	for i, a := range body.Articles {
		content := a.Content
		if content == "" {
			content = a.Description
		}
		if content == "" {
			content = "No content available."
		}
		sourceName := a.Source.Name
		if sourceName == "" {
			sourceName = "Global News"
		}

		items = append(items, feed.Item{
			ID:        fmt.Sprintf("gnews-%d-%s", i, a.PublishedAt),
			Title:     a.Title,
			Content:   content,
			ImageURL:  a.Image,
			URL:       a.URL,
			CreatedAt: c.parseTime(a.PublishedAt),
			IsNews:    true,
			Source:    feed.SourceGNews,
			Author: feed.Author{
				FullName:      sourceName,
				Username:      "gnews",
				AvatarURL:     gnewsAvatar,
				Badge:         models.BadgeBot,
				BorderVariant: models.BorderGhost,
			},
		})
	}
	return items, nil
}

func (c *Client) fetchGuardian(ctx context.Context, apiKey string) ([]feed.Item, error) {
	var body guardianResponse
	err := c.get(ctx, c.cfg.GuardianBaseURL+"/search", map[string]string{
		"section":     "technology",
		"show-fields": "thumbnail,trailText,bodyText",
		"page-size":   pageSize,
		"api-key":     apiKey,
	}, &body)
	if err != nil {
		return nil, fmt.Errorf("guardian: %w", err)
	}

	items := make([]feed.Item, 0, len(body.Response.Results))
	for i, r := range body.Response.Results {
		content := r.Fields.BodyText
		if content == "" {
			content = r.Fields.TrailText
		}

		items = append(items, feed.Item{
			ID:        fmt.Sprintf("guardian-%d-%s", i, r.WebPublicationDate),
			Title:     r.WebTitle,
			Content:   StripHTML(content),
			ImageURL:  r.Fields.Thumbnail,
			URL:       r.WebURL,
			CreatedAt: c.parseTime(r.WebPublicationDate),
			IsNews:    true,
			Source:    feed.SourceGuardian,
			Author: feed.Author{
				FullName:      "The Guardian",
				Username:      "guardian",
				AvatarURL:     guardianAvatar,
				Badge:         models.BadgeVerified,
				BorderVariant: models.BorderFire,
			},
		})
	}
	return items, nil
}
