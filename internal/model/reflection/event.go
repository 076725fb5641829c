package reflection

import "time"

// EventType tags a progress event.
type EventType string

const (
	EventThinkingStarted     EventType = "thinking_started"
	EventThinkingCompleted   EventType = "thinking_completed"
	EventCollectingStarted   EventType = "collecting_started"
	EventCollectingCompleted EventType = "collecting_completed"
	EventSessionCompleted    EventType = "session_completed"
	EventSessionError        EventType = "session_error"
)

// Terminal reports whether this event ends a session's stream.
func (t EventType) Terminal() bool {
	return t == EventSessionCompleted || t == EventSessionError
}

// ProgressEvent is one entry of a session's append-only event log. Events are
// never mutated after append.
type ProgressEvent struct {
	EventType EventType      `json:"eventType"`
	Agent     Agent          `json:"agent,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}
