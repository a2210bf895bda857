// Package transcript rebuilds LLM-ready conversation transcripts from the
// persisted message graph: reconstruction of a chronological message list,
// conversion to role-tagged turns, repair of the tool invocation/result
// pairing protocol, and size budgeting.
package transcript

import (
	"context"
	"sort"

	"outfitter/config"
	"outfitter/model"
)

const (
	// DefaultMaxDepth bounds the upward parent-chain walk.
	DefaultMaxDepth = 10

	// DepthCeiling is the hard safety limit on the walk regardless of
	// configuration, so malformed or cyclic links always terminate.
	DepthCeiling = 30

	// DefaultWindow is how many recent same-conversation messages are
	// pulled alongside the parent chain.
	DefaultWindow = 50
)

// MessageSource is the slice of the message store the reconstructor reads.
//
// GetThread returns the message with the given id together with its direct
// children (messages whose parent is that id) in one call. GetConversationWindow
// returns the most recent limit messages sharing the conversation key,
// newest first.
type MessageSource interface {
	GetThread(ctx context.Context, id string) ([]model.Message, error)
	GetConversationWindow(ctx context.Context, conversationKey string, limit int) ([]model.Message, error)
}

// Reconstructor builds a deduplicated, chronologically ordered message list
// for a conversation by walking the parent/child graph and merging in a
// recent same-conversation window.
type Reconstructor struct {
	source MessageSource

	// MaxDepth bounds the parent-chain walk; values above DepthCeiling are
	// clamped. Window is the same-conversation lookback size.
	MaxDepth int
	Window   int
}

// NewReconstructor returns a Reconstructor with default depth and window.
func NewReconstructor(source MessageSource) *Reconstructor {
	return &Reconstructor{
		source:   source,
		MaxDepth: DefaultMaxDepth,
		Window:   DefaultWindow,
	}
}

// Reconstruct gathers the messages relevant to seed from three sources: the
// parent chain upward from seed, the direct children of every node on that
// chain, and the recent window of messages sharing seed's conversation key.
// The union is deduplicated by id and sorted by (createdAt, id).
//
// Store errors degrade the affected branch rather than aborting: a failed
// thread read ends the upward walk, a failed window read skips the window.
// The seed itself is always present in the result.
func (r *Reconstructor) Reconstruct(ctx context.Context, seed *model.Message) []model.Message {
	arena := map[string]model.Message{seed.ID: *seed}

	maxDepth := r.MaxDepth
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	if maxDepth > DepthCeiling {
		maxDepth = DepthCeiling
	}

	visited := make(map[string]bool)
	currentID := seed.ID
	depth := 0

	for currentID != "" && depth < maxDepth {
		if visited[currentID] {
			if config.DebugLog != nil {
				config.DebugLog.Printf("[Transcript] Cycle detected at message %s, stopping walk", currentID)
			}
			break
		}
		visited[currentID] = true

		thread, err := r.source.GetThread(ctx, currentID)
		if err != nil {
			if config.DebugLog != nil {
				config.DebugLog.Printf("[Transcript] Thread read failed at %s: %v (branch degraded)", currentID, err)
			}
			break
		}

		var current *model.Message
		for i := range thread {
			arena[thread[i].ID] = thread[i]
			if thread[i].ID == currentID {
				current = &thread[i]
			}
		}
		if current == nil {
			break
		}

		currentID = current.ParentID
		depth++
	}

	if currentID != "" && depth >= maxDepth && config.DebugLog != nil {
		config.DebugLog.Printf("[Transcript] Parent walk truncated at depth %d (next parent %s)", depth, currentID)
	}

	window := r.Window
	if window <= 0 {
		window = DefaultWindow
	}
	if seed.ConversationKey != "" {
		recent, err := r.source.GetConversationWindow(ctx, seed.ConversationKey, window)
		if err != nil {
			if config.DebugLog != nil {
				config.DebugLog.Printf("[Transcript] Window read failed for %s: %v (window skipped)", seed.ConversationKey, err)
			}
		} else {
			for i := range recent {
				arena[recent[i].ID] = recent[i]
			}
		}
	}

	out := make([]model.Message, 0, len(arena))
	for _, m := range arena {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// placeholderResult stands in for a tool result that has not been persisted
// yet (or never will be). The model treats it as a successful, content-free
// completion.
const placeholderResult = "Tool completed successfully."

// ToTurns converts an ordered message list into the turn sequence the LLM
// API consumes.
//
// Plain text messages map 1:1 to single-text-block turns with the role
// derived from direction. A tool-request message becomes an assistant turn
// (text, if any, plus one invocation block per recorded invocation)
// immediately followed by a user turn holding one result block per
// invocation; result content comes from the matching tool-result message
// when one exists, otherwise a success placeholder. Tool-result messages
// are consumed by that pairing and never stand alone.
func ToTurns(messages []model.Message) []model.Turn {
	resultsByInvocation := make(map[string]*model.Message)
	for i := range messages {
		if messages[i].IsToolResult() {
			if _, seen := resultsByInvocation[messages[i].ToolResultFor]; !seen {
				resultsByInvocation[messages[i].ToolResultFor] = &messages[i]
			}
		}
	}

	var turns []model.Turn
	for i := range messages {
		msg := &messages[i]

		switch {
		case msg.IsToolRequest():
			assistant := model.Turn{Role: model.RoleAssistant}
			if msg.Content != "" {
				assistant.Blocks = append(assistant.Blocks, model.TextBlock(msg.Content))
			}
			for _, inv := range msg.ToolInvocations {
				assistant.Blocks = append(assistant.Blocks, model.InvocationBlock(inv))
			}

			results := model.Turn{Role: model.RoleUser}
			for _, inv := range msg.ToolInvocations {
				content := placeholderResult
				if res := resultsByInvocation[inv.ID]; res != nil && res.Content != "" {
					content = res.Content
				}
				results.Blocks = append(results.Blocks, model.ResultBlock(model.ToolResult{
					InvocationID: inv.ID,
					Content:      content,
				}))
			}

			turns = append(turns, assistant, results)

		case msg.IsToolResult():
			// Consumed by the pairing above.

		case msg.Content != "":
			role := model.RoleUser
			if msg.Direction == model.DirectionOutgoing {
				role = model.RoleAssistant
			}
			turns = append(turns, model.NewTextTurn(role, msg.Content))
		}
	}
	return turns
}
