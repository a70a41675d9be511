package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/archivesocial/archive/backend/internal/models"
	"github.com/elastic/go-elasticsearch/v9"
	"github.com/elastic/go-elasticsearch/v9/esapi"
)

// Index names
const (
	IndexPosts    = "archive-posts"
	IndexProfiles = "archive-profiles"
)

// Client wraps the Elasticsearch client. A nil *Client is valid and every
// write on it is a no-op, so callers need not check whether search is configured.
type Client struct {
	es *elasticsearch.Client
}

// NewClient connects to Elasticsearch at url and verifies the connection
func NewClient(url string) (*Client, error) {
	return newClient(elasticsearch.Config{Addresses: []string{url}})
}

func newClient(cfg elasticsearch.Config) (*Client, error) {
	es, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Elasticsearch client: %w", err)
	}

	res, err := es.Info()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Elasticsearch: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, responseError("info", res)
	}

	return &Client{es: es}, nil
}

// Ping checks cluster health; it fails on a red cluster
func (c *Client) Ping(ctx context.Context) error {
	if c == nil {
		return fmt.Errorf("elasticsearch not configured")
	}
	res, err := c.es.Cluster.Health(c.es.Cluster.Health.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to reach Elasticsearch: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return responseError("cluster health", res)
	}

	var health struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(res.Body).Decode(&health); err != nil {
		return fmt.Errorf("failed to decode cluster health: %w", err)
	}
	if health.Status == "red" {
		return fmt.Errorf("cluster status is red")
	}
	return nil
}

// EnsureIndices creates both indices when they do not exist yet
func (c *Client) EnsureIndices(ctx context.Context) error {
	if c == nil {
		return nil
	}

	text := map[string]interface{}{"type": "text", "analyzer": "standard"}
	keyword := map[string]interface{}{"type": "keyword"}
	date := map[string]interface{}{"type": "date"}

	posts := map[string]interface{}{
		"mappings": map[string]interface{}{
			"properties": map[string]interface{}{
				"id":         keyword,
				"author_id":  keyword,
				"username":   keyword,
				"title":      text,
				"content":    text,
				"created_at": date,
			},
		},
	}
	if err := c.createIndex(ctx, IndexPosts, posts); err != nil {
		return fmt.Errorf("failed to create posts index: %w", err)
	}

	profiles := map[string]interface{}{
		"mappings": map[string]interface{}{
			"properties": map[string]interface{}{
				"id":         keyword,
				"username":   text,
				"full_name":  text,
				"bio":        text,
				"created_at": date,
			},
		},
	}
	if err := c.createIndex(ctx, IndexProfiles, profiles); err != nil {
		return fmt.Errorf("failed to create profiles index: %w", err)
	}
	return nil
}

func (c *Client) createIndex(ctx context.Context, indexName string, mapping map[string]interface{}) error {
	res, err := c.es.Indices.Exists([]string{indexName}, c.es.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to check if index exists: %w", err)
	}
	res.Body.Close()
	if res.StatusCode == http.StatusOK {
		return nil
	}

	body, err := json.Marshal(mapping)
	if err != nil {
		return fmt.Errorf("failed to marshal mapping: %w", err)
	}

	res, err = c.es.Indices.Create(indexName,
		c.es.Indices.Create.WithBody(bytes.NewReader(body)),
		c.es.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return responseError("creating index", res)
	}
	return nil
}

// IndexPost writes (or replaces) the post's document
func (c *Client) IndexPost(ctx context.Context, post *models.Post) error {
	if c == nil {
		return nil
	}
	return c.index(ctx, IndexPosts, post.ID, PostToDoc(post))
}

// IndexProfile writes (or replaces) the user's profile document
func (c *Client) IndexProfile(ctx context.Context, user *models.User) error {
	if c == nil {
		return nil
	}
	return c.index(ctx, IndexProfiles, user.ID, ProfileToDoc(user))
}

// DeletePost removes the post's document; a missing document is not an error
func (c *Client) DeletePost(ctx context.Context, postID string) error {
	if c == nil {
		return nil
	}

	res, err := c.es.Delete(IndexPosts, postID, c.es.Delete.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return responseError("deleting post", res)
	}
	return nil
}

func (c *Client) index(ctx context.Context, indexName, id string, doc interface{}) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}

	res, err := c.es.Index(indexName, bytes.NewReader(body),
		c.es.Index.WithDocumentID(id),
		c.es.Index.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("failed to index %s: %w", indexName, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return responseError("indexing "+indexName, res)
	}
	return nil
}

// searchIDs runs a phrase_prefix multi_match and returns matching ids by score
func (c *Client) searchIDs(ctx context.Context, indexName string, fields []string, query string, limit int) ([]string, error) {
	body, err := json.Marshal(map[string]interface{}{
		"size":    limit,
		"_source": false,
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  query,
				"type":   "phrase_prefix",
				"fields": fields,
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal search query: %w", err)
	}

	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(indexName),
		c.es.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to execute search: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, responseError("searching "+indexName, res)
	}

	var searchResp struct {
		Hits struct {
			Hits []struct {
				ID string `json:"_id"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&searchResp); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	ids := make([]string, 0, len(searchResp.Hits.Hits))
	for _, hit := range searchResp.Hits.Hits {
		ids = append(ids, hit.ID)
	}
	return ids, nil
}

func responseError(action string, res *esapi.Response) error {
	var errResp map[string]interface{}
	raw, _ := io.ReadAll(res.Body)
	if err := json.Unmarshal(raw, &errResp); err != nil {
		return fmt.Errorf("error %s: [%s]", action, res.Status())
	}
	return fmt.Errorf("error %s: [%s] %v", action, res.Status(), errResp["error"])
}
