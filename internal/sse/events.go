// Package sse streams notifications, timer readouts and document changes to
// connected clients as Server-Sent Events.
package sse

import (
	"time"
)

// EventType represents the type of SSE Event.
type EventType string

const (
	// EventNotificationPosted is a notification entering the tray.
	EventNotificationPosted EventType = "notification.posted"
	// EventNotificationCancelled is a notification leaving the tray.
	EventNotificationCancelled EventType = "notification.cancelled"

	// EventTimerTick carries the remaining countdown readout.
	EventTimerTick EventType = "timer.tick"
	// EventTimerState carries a countdown state transition.
	EventTimerState EventType = "timer.state"

	// EventDocumentChanged is a committed write to one of the user's documents.
	EventDocumentChanged EventType = "document.changed"

	// EventHeartbeat represents a connection keepalive event.
	EventHeartbeat EventType = "heartbeat"
)

// Event represents an SSE event to be sent to clients.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
	Type      EventType `json:"type"`

	// UserID restricts delivery to one user's clients. Empty means everyone.
	UserID string `json:"-"`
}

// HeartbeatEventData is the data payload for heartbeat events.
type HeartbeatEventData struct {
	ServerTime time.Time `json:"server_time"`
}

// NewEvent creates an event of the given type.
func NewEvent(eventType EventType, data any) Event {
	return Event{
		Type:      eventType,
		Data:      data,
		Timestamp: time.Now(),
	}
}

// NewHeartbeatEvent creates a keepalive event.
func NewHeartbeatEvent() Event {
	now := time.Now()
	return Event{
		Type:      EventHeartbeat,
		Data:      HeartbeatEventData{ServerTime: now},
		Timestamp: now,
	}
}
