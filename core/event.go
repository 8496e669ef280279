package core

import "encoding/json"

// StreamEventType enumerates the typed events carried over the outbound
// turn stream.
type StreamEventType string

const (
	EventStateSnapshot StreamEventType = "StateSnapshot"
	EventTextDelta     StreamEventType = "TextDelta"
	EventToolCall      StreamEventType = "ToolCall"
	EventToolResult    StreamEventType = "ToolResult"
	EventRevealMarker  StreamEventType = "RevealMarker"
	EventDone          StreamEventType = "Done"
	EventError         StreamEventType = "Error"
)

// StreamEvent is the self-describing wire record: {type, payload}.
// Payload is kept as json.RawMessage so the wire
// encoder (internal/transport) never needs to know the concrete payload
// type ahead of time.
type StreamEvent struct {
	Type    StreamEventType `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// NewStreamEvent marshals payload and returns the resulting StreamEvent.
// An unmarshalable payload type is a programmer error; it degrades to a
// marshal_error payload rather than dropping the event.
func NewStreamEvent(t StreamEventType, payload any) StreamEvent {
	raw, err := json.Marshal(payload)
	if err != nil {
		raw, _ = json.Marshal(map[string]string{"marshal_error": err.Error()})
	}
	return StreamEvent{Type: t, Payload: raw}
}

// TextDeltaPayload is the payload of an EventTextDelta event.
type TextDeltaPayload struct {
	Text string `json:"text"`
}

// ToolCallPayload is the payload of an EventToolCall event.
type ToolCallPayload struct {
	ID   string         `json:"id"`
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

// ToolResultPayload is the payload of an EventToolResult event.
type ToolResultPayload struct {
	ID     string         `json:"id"`
	Result map[string]any `json:"result,omitempty"`
	Error  string         `json:"error,omitempty"`
}

// RevealMarkerPayload is {tool_call_id}: the id of a hidden
// visualization the model has asked to reveal.
type RevealMarkerPayload struct {
	ToolCallID string `json:"tool_call_id"`
}

// ErrorPayload is the payload of a terminal EventError event.
type ErrorPayload struct {
	ErrorType string `json:"error_type"`
	Message   string `json:"message"`
}

// DonePayload closes the stream.
type DonePayload struct{}
