package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/archivesocial/archive/backend/internal/logger"
	"github.com/coder/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Send pings to peer with this period. A ping that gets no pong within
	// writeWait drops the connection; reads themselves never time out
	// because clients mostly listen.
	defaultPingPeriod = 30 * time.Second

	// Clients only send small control frames
	maxMessageSize = 4 * 1024

	sendBufferSize = 64
)

var (
	ErrClientClosed = errors.New("client connection closed")
	ErrBufferFull   = errors.New("send buffer full")
)

// Client is a single websocket connection owned by one user
type Client struct {
	conn *websocket.Conn
	hub  *Hub

	UserID      string
	ConnectedAt time.Time
	RemoteAddr  string

	// Buffered channel of outbound frames
	send chan []byte

	limiter *rate.Limiter

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	closed bool
}

// NewClient creates a Client bound to hub
func NewClient(hub *Hub, conn *websocket.Conn, userID string) *Client {
	ctx, cancel := context.WithCancel(hub.ctx)
	cfg := hub.rateLimitConfig

	return &Client{
		hub:         hub,
		conn:        conn,
		UserID:      userID,
		ConnectedAt: time.Now(),
		send:        make(chan []byte, sendBufferSize),
		limiter:     rate.NewLimiter(rate.Limit(cfg.MaxMessagesPerSecond), cfg.BurstSize),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// ReadPump reads client frames until the connection drops. It blocks.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)

	for {
		// Not c.ctx: cancelling a read closes the conn, and on shutdown the
		// write pump must flush first. Close ends this read instead.
		_, data, err := c.conn.Read(context.Background())
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
				logger.Log.Debug("Websocket client disconnected", logger.WithUserID(c.UserID))
			} else if c.ctx.Err() == nil {
				logger.Log.Warn("Websocket read error", logger.WithUserID(c.UserID), zap.Error(err))
				c.hub.metrics.Errors.Add(1)
			}
			return
		}

		if !c.limiter.Allow() {
			c.SendError("rate_limited", "Too many messages, please slow down")
			c.hub.metrics.Errors.Add(1)
			continue
		}

		c.hub.metrics.MessagesReceived.Add(1)

		var message Message
		if err := json.Unmarshal(data, &message); err != nil {
			c.SendError("invalid_json", "Failed to parse message")
			continue
		}

		c.handleMessage(&message)
	}
}

// WritePump drains the send buffer and keeps the connection alive with pings
func (c *Client) WritePump() {
	ticker := time.NewTicker(c.hub.pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case <-c.ctx.Done():
			c.flush()
			return

		case frame := <-c.send:
			if err := c.write(frame); err != nil {
				logger.Log.Warn("Websocket write error", logger.WithUserID(c.UserID), zap.Error(err))
				c.hub.metrics.Errors.Add(1)
				return
			}

		case <-ticker.C:
			ctx, cancel := context.WithTimeout(c.ctx, writeWait)
			err := c.conn.Ping(ctx)
			cancel()
			if err != nil {
				logger.Log.Debug("Websocket ping failed", logger.WithUserID(c.UserID), zap.Error(err))
				return
			}
		}
	}
}

func (c *Client) write(frame []byte) error {
	ctx, cancel := context.WithTimeout(c.ctx, writeWait)
	defer cancel()
	return c.conn.Write(ctx, websocket.MessageText, frame)
}

// flush writes whatever is still buffered after shutdown began, such as
// the server_shutdown notice
func (c *Client) flush() {
	for {
		select {
		case frame := <-c.send:
			ctx, cancel := context.WithTimeout(context.Background(), writeWait)
			err := c.conn.Write(ctx, websocket.MessageText, frame)
			cancel()
			if err != nil {
				return
			}
		default:
			return
		}
	}
}

func (c *Client) handleMessage(message *Message) {
	switch message.Type {
	case MessageTypePing:
		c.handlePing(message)
	default:
		c.SendError("unknown_type", fmt.Sprintf("Unknown message type: %s", message.Type))
	}
}

func (c *Client) handlePing(message *Message) {
	var ping PingPayload
	if message.Payload != nil {
		_ = message.ParsePayload(&ping)
	}

	// Best effort; the connection may be closing
	_ = c.Send(NewReply(message, MessageTypePong, PongPayload{
		ClientTime: ping.ClientTime,
		ServerTime: time.Now().UnixMilli(),
	}))
}

// Send queues message without blocking. A full buffer is reported, not waited on.
func (c *Client) Send(message *Message) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}
	return c.enqueue(data)
}

func (c *Client) enqueue(data []byte) error {
	if c.IsClosed() {
		return ErrClientClosed
	}
	select {
	case c.send <- data:
		return nil
	default:
		return ErrBufferFull
	}
}

// SendError sends an error frame to the client
func (c *Client) SendError(code, message string) {
	_ = c.Send(NewErrorMessage(code, message))
}

// Close cancels the pumps and closes the connection. Safe to call repeatedly.
func (c *Client) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	c.cancel()
	_ = c.conn.Close(websocket.StatusNormalClosure, "closing")
}

// IsClosed reports whether Close has been called
func (c *Client) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
