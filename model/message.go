package model

import "time"

// Direction marks which way a message travelled relative to the platform.
type Direction string

const (
	DirectionIncoming Direction = "incoming"
	DirectionOutgoing Direction = "outgoing"
)

// Status is the lifecycle state of a persisted message.
//
// External writers only ever create messages as StatusPending; the worker owns
// every transition after that. StatusWaitingForTool and StatusToolComplete are
// written while tool invocations for the message are in flight so an operator
// can see where a long-running message sits.
type Status string

const (
	StatusPending        Status = "pending"
	StatusProcessing     Status = "processing"
	StatusWaitingForTool Status = "waiting_for_tool"
	StatusToolComplete   Status = "tool_complete"
	StatusCompleted      Status = "completed"
	StatusFailed         Status = "failed"
)

// Terminal reports whether a message in this status will never transition again.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// ToolInvocation is a single tool call requested by the assistant.
// Arguments is the open key/value object produced by the model; it is
// validated against the tool's declared schema at the directory boundary,
// not here.
type ToolInvocation struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// Message is one persisted conversation message.
//
// ParentID is a relation, not ownership: several messages may share a parent
// (a reply and the tool results it produced all point back at the message
// that caused them). ConversationKey scopes "same conversation" windows and
// is a composite of the channel address and the tenant.
type Message struct {
	ID              string
	ParentID        string
	ConversationKey string
	Direction       Direction
	Content         string
	ToolInvocations []ToolInvocation
	ToolResultFor   string
	Status          Status
	ErrorMessage    string
	CreatedAt       time.Time
}

// IsToolRequest reports whether the message recorded one or more tool
// invocations requested by the assistant.
func (m *Message) IsToolRequest() bool {
	return len(m.ToolInvocations) > 0
}

// IsToolResult reports whether the message answers a recorded tool invocation.
func (m *Message) IsToolResult() bool {
	return m.ToolResultFor != ""
}
