package model

import "reflect"

// Role tags a Turn as authored by the user or the assistant.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// BlockType discriminates the variants of a content Block.
type BlockType string

const (
	BlockTypeText           BlockType = "text"
	BlockTypeToolInvocation BlockType = "tool_invocation"
	BlockTypeToolResult     BlockType = "tool_result"
)

// ToolResult answers a ToolInvocation. Content is the tool's output, or an
// error description when IsError is set; either way the conversation
// continues with the model seeing the result.
type ToolResult struct {
	InvocationID string `json:"invocation_id"`
	Content      string `json:"content"`
	IsError      bool   `json:"is_error,omitempty"`
}

// Block is one typed fragment of a Turn's payload. Exactly one of Text,
// Invocation, or Result is meaningful depending on Type.
//
// Invocation blocks are only legal in assistant turns; result blocks only in
// user turns immediately following the assistant turn that carries the
// matching invocation.
type Block struct {
	Type       BlockType
	Text       string
	Invocation *ToolInvocation
	Result     *ToolResult
}

// Turn is one role-tagged unit of conversation content exchanged with the
// LLM API, built from one or more persisted Messages. Turns are ephemeral:
// reconstructed per processing attempt, never stored.
type Turn struct {
	Role   Role
	Blocks []Block
}

// TextBlock builds a text content block.
func TextBlock(text string) Block {
	return Block{Type: BlockTypeText, Text: text}
}

// InvocationBlock builds a tool-invocation content block.
func InvocationBlock(inv ToolInvocation) Block {
	return Block{Type: BlockTypeToolInvocation, Invocation: &inv}
}

// ResultBlock builds a tool-result content block.
func ResultBlock(res ToolResult) Block {
	return Block{Type: BlockTypeToolResult, Result: &res}
}

// NewTextTurn builds a single-text-block turn.
func NewTextTurn(role Role, text string) Turn {
	return Turn{Role: role, Blocks: []Block{TextBlock(text)}}
}

// Text returns the concatenated text of all text blocks in the turn.
func (t *Turn) Text() string {
	var out string
	for _, b := range t.Blocks {
		if b.Type == BlockTypeText {
			out += b.Text
		}
	}
	return out
}

// Invocations returns the tool invocations carried by the turn, in order.
func (t *Turn) Invocations() []ToolInvocation {
	var out []ToolInvocation
	for _, b := range t.Blocks {
		if b.Type == BlockTypeToolInvocation && b.Invocation != nil {
			out = append(out, *b.Invocation)
		}
	}
	return out
}

// Results returns the tool results carried by the turn, in order.
func (t *Turn) Results() []ToolResult {
	var out []ToolResult
	for _, b := range t.Blocks {
		if b.Type == BlockTypeToolResult && b.Result != nil {
			out = append(out, *b.Result)
		}
	}
	return out
}

// HasInvocations reports whether any block is a tool invocation.
func (t *Turn) HasInvocations() bool {
	for _, b := range t.Blocks {
		if b.Type == BlockTypeToolInvocation {
			return true
		}
	}
	return false
}

// HasResults reports whether any block is a tool result.
func (t *Turn) HasResults() bool {
	for _, b := range t.Blocks {
		if b.Type == BlockTypeToolResult {
			return true
		}
	}
	return false
}

// Equal reports deep equality of two turns, including tool argument maps.
// Used when collapsing adjacent duplicate turns after repair.
func (t Turn) Equal(other Turn) bool {
	if t.Role != other.Role || len(t.Blocks) != len(other.Blocks) {
		return false
	}
	for i, b := range t.Blocks {
		o := other.Blocks[i]
		if b.Type != o.Type || b.Text != o.Text {
			return false
		}
		if (b.Invocation == nil) != (o.Invocation == nil) {
			return false
		}
		if b.Invocation != nil && !reflect.DeepEqual(*b.Invocation, *o.Invocation) {
			return false
		}
		if (b.Result == nil) != (o.Result == nil) {
			return false
		}
		if b.Result != nil && *b.Result != *o.Result {
			return false
		}
	}
	return true
}
