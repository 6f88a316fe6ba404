package realtime

import (
	"time"

	"github.com/google/uuid"
)

// Envelope event types pushed to clients.
const (
	EventNotification   = "notification"
	EventNewMessage     = "new_message"
	EventMessageDeleted = "message_deleted"
	EventOrderUpdate    = "order_update"
	EventAuthSuccess    = "auth_success"
	EventError          = "error"
)

// Envelope wraps every payload sent over a live channel so clients can
// demultiplex by Type.
type Envelope struct {
	ID        string      `json:"id"`
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Message   string      `json:"message,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

func NewEnvelope(eventType string, data interface{}) Envelope {
	return Envelope{
		ID:        uuid.NewString(),
		Type:      eventType,
		Data:      data,
		Timestamp: time.Now(),
	}
}
