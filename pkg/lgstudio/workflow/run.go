package workflow

import "slices"

// EventType names one kind of stream event emitted by the backend.
type EventType string

// Stream event kinds.
const (
	EventNodeStart     EventType = "node_start"
	EventNodeEnd       EventType = "node_end"
	EventToken         EventType = "token"
	EventToolCall      EventType = "tool_call"
	EventToolResult    EventType = "tool_result"
	EventStateUpdate   EventType = "state_update"
	EventHumanInput    EventType = "human_input"
	EventCheckpoint    EventType = "checkpoint"
	EventError         EventType = "error"
	EventWorkflowStart EventType = "workflow_start"
	EventWorkflowEnd   EventType = "workflow_end"
)

// StreamEvent is one unit of a run's event log.
// Timestamp is seconds since the epoch as reported by the backend.
type StreamEvent struct {
	EventType EventType `json:"event_type"`
	NodeID    string    `json:"node_id,omitempty"`
	NodeName  string    `json:"node_name,omitempty"`
	Data      any       `json:"data,omitempty"`
	Timestamp float64   `json:"timestamp"`
}

// Message is a chat-style entry of the run's message history.
type Message struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

// StateSnapshot is the last-known backend state for a thread.
// Variables is keyed by node ID, then by variable key.
type StateSnapshot struct {
	Messages  []Message      `json:"messages"`
	Variables map[string]any `json:"variables"`
	Metadata  map[string]any `json:"metadata"`
	NextNodes []string       `json:"next_nodes,omitempty"`
}

// RunState is ephemeral and never persisted with the graph.
type RunState struct {
	IsRunning    bool
	ActiveNodeID string
	ThreadID     string
	StreamEvents []StreamEvent
	StateData    *StateSnapshot
}

// Clone copies the event slice so the caller cannot alter stored history.
func (r RunState) Clone() RunState {
	out := r
	out.StreamEvents = slices.Clone(r.StreamEvents)
	return out
}
