// Package uistream encodes assistant output in the incremental UI message
// stream protocol that the browser chat client consumes.
package uistream

const (
	// HeaderName marks a response as a UI message stream.
	HeaderName  = "x-vercel-ai-ui-message-stream"
	HeaderValue = "v1"

	// DoneMarker terminates every stream.
	DoneMarker = "[DONE]"
)

type EventType string

const (
	EventStart      EventType = "start"
	EventStartStep  EventType = "start-step"
	EventTextStart  EventType = "text-start"
	EventTextDelta  EventType = "text-delta"
	EventTextEnd    EventType = "text-end"
	EventFinishStep EventType = "finish-step"
	EventFinish     EventType = "finish"
	EventError      EventType = "error"
)

type Event struct {
	Type      EventType `json:"type"`
	MessageID string    `json:"messageId,omitempty"`
	ID        string    `json:"id,omitempty"`
	Delta     string    `json:"delta,omitempty"`
	ErrorText string    `json:"errorText,omitempty"`
}

// Transport delivers encoded events to one caller.
type Transport interface {
	Send(Event) error
	// Done writes the terminator. No Send may follow.
	Done() error
}
