package model

import "time"

type EventType string

const (
	EventMessage EventType = "message"
	EventError   EventType = "error"
)

// Error codes carried on EventError frames.
const (
	CodeValidation         = "validation"
	CodeStorageUnavailable = "storage_unavailable"
)

// Event is a single server-to-client frame on the websocket channel.
// Message events carry the persisted copy of a message; error events tell
// the sender why a send was rejected.
type Event struct {
	Type      EventType `json:"type"`
	ID        int64     `json:"id,omitempty"`
	FromID    int64     `json:"from_id,omitempty"`
	ToID      int64     `json:"to_id,omitempty"`
	Content   string    `json:"content,omitempty"`
	Timestamp time.Time `json:"timestamp,omitzero"`
	Code      string    `json:"code,omitempty"`
	Detail    string    `json:"detail,omitempty"`
}

// MessageEvent wraps a persisted message for delivery. The shared fields are
// copied verbatim so the delivered frame and the stored row agree.
func MessageEvent(m Message) Event {
	return Event{
		Type:      EventMessage,
		ID:        m.ID,
		FromID:    m.FromID,
		ToID:      m.ToID,
		Content:   m.Content,
		Timestamp: m.Timestamp,
	}
}

func ErrorEvent(code, detail string) Event {
	return Event{Type: EventError, Code: code, Detail: detail}
}
