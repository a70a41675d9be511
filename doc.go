// Package backend provides the aRchive API server.

// The server entry point lives in cmd/server. The API is organized into
// subpackages:

// - internal/handlers: HTTP request handlers for all API endpoints
// - internal/models: Data models and database schemas
// - internal/auth: Registration, login, JWT sessions and auth middleware
// - internal/feed: Feed composition of posts, news and the follow strip
// - internal/social: Posts, comments, likes, follows, notifications, profiles
// - internal/stories: Ephemeral stories and their cleanup worker
// - internal/search: Elasticsearch indexing with a database fallback
// - internal/news: External news providers
// - internal/websocket: Realtime notification delivery
// - internal/storage: Image storage (S3 or local disk)
// - internal/database: Database connection and migrations
// - internal/email: Confirmation email delivery

// See the individual package documentation for detailed API reference.
package backend
