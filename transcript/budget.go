package transcript

import (
	"encoding/json"

	mcptypes "github.com/mark3labs/mcp-go/mcp"

	"outfitter/config"
	"outfitter/model"
)

const (
	// DefaultBudgetCeiling is the maximum estimated size, in units, a
	// transcript plus its advertised tool set may occupy before truncation
	// starts. One unit approximates four UTF-8 bytes of serialized text.
	DefaultBudgetCeiling = 30000

	// DefaultBudgetFloor is the minimum number of turns always retained.
	DefaultBudgetFloor = 5
)

// TruncationNotice is prepended to the newest user turn when dropping turns
// could not bring the transcript under the ceiling.
const TruncationNotice = "[Note: earlier messages in this conversation were truncated to fit the model's context limit.]"

// BudgetManager estimates transcript size and sheds old plain-text turns
// under pressure. This is best-effort backpressure, not a guarantee: the
// remote side may still reject a call for size, which is handled as an
// ordinary API failure.
type BudgetManager struct {
	Ceiling int
	Floor   int
}

// NewBudgetManager returns a BudgetManager with the default ceiling and floor.
func NewBudgetManager() *BudgetManager {
	return &BudgetManager{
		Ceiling: DefaultBudgetCeiling,
		Floor:   DefaultBudgetFloor,
	}
}

// Estimate returns the separate size estimates for the turn sequence and the
// tool descriptor set. Tool schemas can dominate a conversation, which is
// why they are accounted separately.
func (b *BudgetManager) Estimate(turns []model.Turn, tools []mcptypes.Tool) (messageUnits, toolUnits int) {
	for _, t := range turns {
		messageUnits += turnUnits(t)
	}
	for _, tool := range tools {
		if buf, err := json.Marshal(tool); err == nil {
			toolUnits += len(buf) / 4
		}
	}
	return messageUnits, toolUnits
}

// Apply returns the turn sequence reduced to fit the ceiling where possible.
//
// Only plain-text turns are ever dropped; turns carrying invocation or
// result blocks are both halves of a protocol pairing and removing either
// would break it. Oldest turns go first, in decreasing batches, stopping at
// the retained-turn floor. If the result still exceeds the ceiling, a
// truncation notice is added to the newest user turn instead of failing.
func (b *BudgetManager) Apply(turns []model.Turn, tools []mcptypes.Tool) []model.Turn {
	ceiling := b.Ceiling
	if ceiling <= 0 {
		ceiling = DefaultBudgetCeiling
	}
	floor := b.Floor
	if floor <= 0 {
		floor = DefaultBudgetFloor
	}

	messageUnits, toolUnits := b.Estimate(turns, tools)
	if messageUnits+toolUnits <= ceiling {
		return turns
	}

	retained := append([]model.Turn(nil), turns...)

	droppable := plainTurnIndexes(retained)
	batch := len(droppable) / 2
	if batch < 1 {
		batch = 1
	}

	for messageUnits+toolUnits > ceiling && len(retained) > floor {
		droppable = plainTurnIndexes(retained)
		if len(droppable) == 0 {
			break
		}

		n := batch
		if n > len(droppable) {
			n = len(droppable)
		}
		if len(retained)-n < floor {
			n = len(retained) - floor
		}
		if n <= 0 {
			break
		}

		dropSet := make(map[int]bool, n)
		for _, idx := range droppable[:n] {
			dropSet[idx] = true
		}

		next := retained[:0:0]
		for i, t := range retained {
			if !dropSet[i] {
				next = append(next, t)
			}
		}
		retained = next

		messageUnits = 0
		for _, t := range retained {
			messageUnits += turnUnits(t)
		}

		if config.DebugLog != nil {
			config.DebugLog.Printf("[Transcript] Dropped %d old turn(s), %d retained, %d+%d units against ceiling %d",
				n, len(retained), messageUnits, toolUnits, ceiling)
		}

		if batch > 1 {
			batch /= 2
		}
	}

	if messageUnits+toolUnits > ceiling {
		if config.DebugLog != nil {
			config.DebugLog.Printf("[Transcript] Still %d+%d units over ceiling %d after truncation, adding notice",
				messageUnits, toolUnits, ceiling)
		}
		retained = addTruncationNotice(retained)
	}

	return retained
}

func plainTurnIndexes(turns []model.Turn) []int {
	var out []int
	for i := range turns {
		if !turns[i].HasInvocations() && !turns[i].HasResults() {
			out = append(out, i)
		}
	}
	return out
}

func turnUnits(t model.Turn) int {
	bytes := 0
	for _, b := range t.Blocks {
		switch b.Type {
		case model.BlockTypeText:
			bytes += len(b.Text)
		case model.BlockTypeToolInvocation:
			if b.Invocation != nil {
				bytes += len(b.Invocation.Name)
				if buf, err := json.Marshal(b.Invocation.Arguments); err == nil {
					bytes += len(buf)
				}
			}
		case model.BlockTypeToolResult:
			if b.Result != nil {
				bytes += len(b.Result.Content)
			}
		}
	}
	return bytes / 4
}

// addTruncationNotice places the notice on the newest user turn. Result
// blocks have to stay at the front of a user turn for the API to accept
// them, so result-bearing turns get the notice appended instead.
func addTruncationNotice(turns []model.Turn) []model.Turn {
	for i := len(turns) - 1; i >= 0; i-- {
		if turns[i].Role != model.RoleUser {
			continue
		}

		turn := turns[i]
		blocks := append([]model.Block(nil), turn.Blocks...)
		switch {
		case turn.HasResults():
			blocks = append(blocks, model.TextBlock(TruncationNotice))
		case len(blocks) > 0 && blocks[0].Type == model.BlockTypeText:
			blocks[0] = model.TextBlock(TruncationNotice + "\n\n" + blocks[0].Text)
		default:
			blocks = append([]model.Block{model.TextBlock(TruncationNotice)}, blocks...)
		}
		turn.Blocks = blocks

		out := append([]model.Turn(nil), turns...)
		out[i] = turn
		return out
	}
	return turns
}
