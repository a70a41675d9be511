// Package websocket pushes notifications to connected users over
// github.com/coder/websocket.
package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/archivesocial/archive/backend/internal/logger"
	"github.com/archivesocial/archive/backend/internal/metrics"
	"github.com/archivesocial/archive/backend/internal/models"
	"go.uber.org/zap"
)

// Hub tracks live clients by user and delivers targeted messages to them
type Hub struct {
	// Registered clients by user ID; a user may hold several connections
	clients map[string]map[*Client]struct{}
	mu      sync.RWMutex

	unregister chan *Client
	unicast    chan *UnicastMessage

	metrics *Metrics

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	closing atomic.Bool

	rateLimitConfig RateLimitConfig
	pingPeriod      time.Duration
}

// Metrics tracks hub statistics
type Metrics struct {
	TotalConnections   atomic.Int64
	ActiveConnections  atomic.Int64
	MessagesReceived   atomic.Int64
	MessagesSent       atomic.Int64
	Errors             atomic.Int64
	ConnectionsDropped atomic.Int64
}

// RateLimitConfig bounds inbound client frames
type RateLimitConfig struct {
	MaxMessagesPerSecond int
	BurstSize            int
}

// DefaultRateLimitConfig returns sensible defaults
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		MaxMessagesPerSecond: 5,
		BurstSize:            10,
	}
}

// UnicastMessage is a message targeted at a specific user
type UnicastMessage struct {
	UserID  string
	Message *Message
}

// NewHub creates a Hub. Call Start before serving connections.
func NewHub() *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:         make(map[string]map[*Client]struct{}),
		unregister:      make(chan *Client, 64),
		unicast:         make(chan *UnicastMessage, 256),
		metrics:         &Metrics{},
		ctx:             ctx,
		cancel:          cancel,
		rateLimitConfig: DefaultRateLimitConfig(),
		pingPeriod:      defaultPingPeriod,
	}
}

// Start runs the delivery loop in the background
func (h *Hub) Start() {
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		h.run()
	}()
}

func (h *Hub) run() {
	logger.Log.Info("Websocket hub started")
	for {
		select {
		case <-h.ctx.Done():
			return

		case client := <-h.unregister:
			h.unregisterClient(client)

		case unicast := <-h.unicast:
			h.sendToUser(unicast.UserID, unicast.Message)
		}
	}
}

// Closed reports whether Shutdown has been called
func (h *Hub) Closed() bool {
	return h.closing.Load() || h.ctx.Err() != nil
}

// Register adds client to the hub synchronously, so messages sent after
// Register returns reach it
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closing.Load() {
		go client.Close()
		return
	}
	if h.clients[client.UserID] == nil {
		h.clients[client.UserID] = make(map[*Client]struct{})
	}
	h.clients[client.UserID][client] = struct{}{}

	h.metrics.TotalConnections.Add(1)
	h.metrics.ActiveConnections.Add(1)
	metrics.Get().WebsocketConnectionsActive.Inc()

	logger.Log.Debug("Websocket client connected",
		logger.WithUserID(client.UserID),
		zap.Int64("active", h.metrics.ActiveConnections.Load()))
}

// Unregister schedules client for removal
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.ctx.Done():
	}
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients, ok := h.clients[client.UserID]
	if !ok {
		return
	}
	if _, ok := clients[client]; !ok {
		return
	}
	delete(clients, client)
	if len(clients) == 0 {
		delete(h.clients, client.UserID)
	}

	h.metrics.ActiveConnections.Add(-1)
	metrics.Get().WebsocketConnectionsActive.Dec()
	go client.Close()
}

func (h *Hub) sendToUser(userID string, message *Message) {
	data, err := json.Marshal(message)
	if err != nil {
		logger.Log.Error("Failed to marshal websocket message", zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients[userID] {
		if err := client.enqueue(data); err != nil {
			// A client that cannot keep up is dropped rather than blocking the hub
			h.metrics.ConnectionsDropped.Add(1)
			go h.Unregister(client)
			continue
		}
		h.metrics.MessagesSent.Add(1)
		metrics.Get().WebsocketMessagesSent.WithLabelValues(message.Type).Inc()
	}
}

// SendToUser queues message for every connection userID holds
func (h *Hub) SendToUser(userID string, message *Message) {
	select {
	case h.unicast <- &UnicastMessage{UserID: userID, Message: message}:
	case <-h.ctx.Done():
	}
}

// PushNotification delivers a new notification with the updated unread count
func (h *Hub) PushNotification(recipientID string, n *models.Notification, unread int64) {
	if !h.IsUserOnline(recipientID) {
		return
	}
	h.SendToUser(recipientID, NewMessage(MessageTypeNotification, NotificationPayload{
		Notification: n,
		UnreadCount:  unread,
	}))
}

// PushUnreadCount tells recipientID's clients their unread total changed
func (h *Hub) PushUnreadCount(recipientID string, unread int64) {
	if !h.IsUserOnline(recipientID) {
		return
	}
	h.SendToUser(recipientID, NewMessage(MessageTypeUnreadCount, UnreadCountPayload{UnreadCount: unread}))
}

// IsUserOnline checks if a user has any active connections
func (h *Hub) IsUserOnline(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID]) > 0
}

// GetMetrics returns current hub metrics
func (h *Hub) GetMetrics() MetricsSnapshot {
	return MetricsSnapshot{
		TotalConnections:   h.metrics.TotalConnections.Load(),
		ActiveConnections:  h.metrics.ActiveConnections.Load(),
		MessagesReceived:   h.metrics.MessagesReceived.Load(),
		MessagesSent:       h.metrics.MessagesSent.Load(),
		Errors:             h.metrics.Errors.Load(),
		ConnectionsDropped: h.metrics.ConnectionsDropped.Load(),
	}
}

// MetricsSnapshot is a point-in-time snapshot of metrics
type MetricsSnapshot struct {
	TotalConnections   int64 `json:"total_connections"`
	ActiveConnections  int64 `json:"active_connections"`
	MessagesReceived   int64 `json:"messages_received"`
	MessagesSent       int64 `json:"messages_sent"`
	Errors             int64 `json:"errors"`
	ConnectionsDropped int64 `json:"connections_dropped"`
}

func (m MetricsSnapshot) String() string {
	return fmt.Sprintf(
		"connections=%d/%d messages=rx:%d/tx:%d errors=%d dropped=%d",
		m.ActiveConnections, m.TotalConnections,
		m.MessagesReceived, m.MessagesSent,
		m.Errors, m.ConnectionsDropped,
	)
}

// Shutdown stops the hub and closes every connection. Clients are sent a
// server_shutdown notice first, which their write pumps flush before closing.
func (h *Hub) Shutdown(ctx context.Context) error {
	h.detachAll()
	h.cancel()

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Log.Info("Websocket hub stopped", zap.Stringer("metrics", h.GetMetrics()))
		return nil
	case <-ctx.Done():
		return fmt.Errorf("shutdown timeout: %w", ctx.Err())
	}
}

// detachAll queues the shutdown notice for every client and forgets them
func (h *Hub) detachAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closing.Store(true)

	notice, _ := json.Marshal(&Message{
		Type:      MessageTypeSystem,
		Payload:   SystemPayload{Event: "server_shutdown"},
		Timestamp: FlexibleTime{Time: time.Now().UTC()},
	})

	for _, clients := range h.clients {
		for client := range clients {
			_ = client.enqueue(notice)
			metrics.Get().WebsocketConnectionsActive.Dec()
		}
	}
	h.clients = make(map[string]map[*Client]struct{})
	h.metrics.ActiveConnections.Store(0)
}
