package session

import "time"

// EventKind tags the variants of a session event.
type EventKind string

const (
	EventUserMessage             EventKind = "user_message"
	EventAssistantMessage        EventKind = "assistant_message"
	EventPartialAssistantMessage EventKind = "partial_assistant_message"
	EventToolResult              EventKind = "tool_result"
	EventError                   EventKind = "error"
	EventSystemMessage           EventKind = "system_message"
)

// Event is a single entry in the session stream. Seq is assigned at append
// time and increases monotonically for the life of the log.
type Event struct {
	Seq       uint64
	Timestamp time.Time
	Kind      EventKind

	// For user/assistant/system messages and partial chunks
	Content string

	// For tool results
	ToolName string
	ToolID   string

	// For errors: the component that failed and why
	Source string
	Reason string
}
