package websocket

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/archivesocial/archive/backend/internal/models"
)

// FlexibleTime handles both Unix millisecond timestamps and RFC3339 strings
type FlexibleTime struct {
	time.Time
}

// UnmarshalJSON accepts Unix milliseconds or an RFC3339 string
func (ft *FlexibleTime) UnmarshalJSON(b []byte) error {
	var ms int64
	if err := json.Unmarshal(b, &ms); err == nil {
		ft.Time = time.UnixMilli(ms)
		return nil
	}

	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return fmt.Errorf("timestamp must be Unix milliseconds (integer) or RFC3339 string")
	}

	t, err := time.Parse(time.RFC3339, str)
	if err != nil {
		return err
	}
	ft.Time = t
	return nil
}

// MarshalJSON always writes RFC3339
func (ft FlexibleTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(ft.Time)
}

// Message types
const (
	MessageTypeSystem       = "system"
	MessageTypePing         = "ping"
	MessageTypePong         = "pong"
	MessageTypeError        = "error"
	MessageTypeNotification = "notification"
	MessageTypeUnreadCount  = "unread_count"
)

// Message is the envelope for every frame in either direction
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`

	// ID lets a client match replies to its requests
	ID      string `json:"id,omitempty"`
	ReplyTo string `json:"reply_to,omitempty"`

	Timestamp FlexibleTime `json:"timestamp"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(msgType string, payload interface{}) *Message {
	return &Message{
		Type:      msgType,
		Payload:   payload,
		Timestamp: FlexibleTime{Time: time.Now().UTC()},
	}
}

// NewReply creates a response to original
func NewReply(original *Message, msgType string, payload interface{}) *Message {
	msg := NewMessage(msgType, payload)
	msg.ReplyTo = original.ID
	return msg
}

// NewErrorMessage creates an error message
func NewErrorMessage(code string, message string) *Message {
	return NewMessage(MessageTypeError, ErrorPayload{
		Code:    code,
		Message: message,
	})
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type PingPayload struct {
	ClientTime int64 `json:"client_time,omitempty"`
}

type PongPayload struct {
	ClientTime int64 `json:"client_time,omitempty"`
	ServerTime int64 `json:"server_time"`
}

type SystemPayload struct {
	Event string                 `json:"event"`
	Data  map[string]interface{} `json:"data,omitempty"`
}

// NotificationPayload carries a freshly created notification and the
// recipient's unread total after it
type NotificationPayload struct {
	Notification *models.Notification `json:"notification"`
	UnreadCount  int64                `json:"unread_count"`
}

type UnreadCountPayload struct {
	UnreadCount int64 `json:"unread_count"`
}

// ParsePayload decodes the payload into target
func (m *Message) ParsePayload(target interface{}) error {
	if m.Payload == nil {
		return fmt.Errorf("message has no payload")
	}
	data, err := json.Marshal(m.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}
	return json.Unmarshal(data, target)
}
