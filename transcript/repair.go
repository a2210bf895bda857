package transcript

import (
	"fmt"

	"outfitter/config"
	"outfitter/model"
)

// Repair returns a turn sequence in which every tool invocation in an
// assistant turn is answered by a result block in the immediately following
// user turn. Messages are written by several code paths that can race or
// partially fail, so write-time correctness cannot be relied on; the LLM API
// rejects malformed transcripts outright, which makes this pass mandatory
// before every call.
//
// The scan is a single forward pass. When an assistant turn carries
// invocations and no user turn follows (or the following turn has the wrong
// role), a synthetic user turn holding one placeholder result per invocation
// is inserted directly after it. When a user turn follows but answers only
// some of the invocations, placeholder results for the missing ids are
// merged into that turn, keeping its real results adjacent to their
// invocations. Either way the assistant turn ends up fully answered by its
// immediate successor, so one pass reaches a fixed point. Adjacent
// exactly-equal turns are collapsed afterwards.
func Repair(turns []model.Turn) []model.Turn {
	repaired := make([]model.Turn, 0, len(turns))

	for i := 0; i < len(turns); i++ {
		turn := turns[i]
		repaired = append(repaired, turn)

		if turn.Role != model.RoleAssistant || !turn.HasInvocations() {
			continue
		}

		var next *model.Turn
		if i+1 < len(turns) && turns[i+1].Role == model.RoleUser {
			next = &turns[i+1]
		}

		answered := make(map[string]bool)
		if next != nil {
			for _, res := range next.Results() {
				answered[res.InvocationID] = true
			}
		}

		var missing []model.ToolInvocation
		for _, inv := range turn.Invocations() {
			if !answered[inv.ID] {
				missing = append(missing, inv)
			}
		}
		if len(missing) == 0 {
			continue
		}

		if config.DebugLog != nil {
			config.DebugLog.Printf("[Transcript] Synthesizing %d missing tool result(s) after assistant turn %d", len(missing), i)
		}

		if next == nil {
			synthetic := model.Turn{Role: model.RoleUser}
			for _, inv := range missing {
				synthetic.Blocks = append(synthetic.Blocks, model.ResultBlock(model.ToolResult{
					InvocationID: inv.ID,
					Content:      placeholderResult,
				}))
			}
			repaired = append(repaired, synthetic)
			continue
		}

		repaired = append(repaired, mergeMissingResults(*next, missing))
		i++
	}

	return dedupeAdjacent(repaired)
}

// mergeMissingResults returns a copy of turn with placeholder results for
// the missing invocations spliced in after its existing result blocks, so
// results stay grouped at the front of the turn.
func mergeMissingResults(turn model.Turn, missing []model.ToolInvocation) model.Turn {
	insertAt := 0
	for i, b := range turn.Blocks {
		if b.Type == model.BlockTypeToolResult {
			insertAt = i + 1
		}
	}

	synthesized := make([]model.Block, 0, len(missing))
	for _, inv := range missing {
		synthesized = append(synthesized, model.ResultBlock(model.ToolResult{
			InvocationID: inv.ID,
			Content:      placeholderResult,
		}))
	}

	blocks := make([]model.Block, 0, len(turn.Blocks)+len(synthesized))
	blocks = append(blocks, turn.Blocks[:insertAt]...)
	blocks = append(blocks, synthesized...)
	blocks = append(blocks, turn.Blocks[insertAt:]...)

	turn.Blocks = blocks
	return turn
}

func dedupeAdjacent(turns []model.Turn) []model.Turn {
	out := make([]model.Turn, 0, len(turns))
	for _, turn := range turns {
		if len(out) > 0 && out[len(out)-1].Equal(turn) {
			continue
		}
		out = append(out, turn)
	}
	return out
}

// PairingViolations lists every invocation that the following turn fails to
// answer, one description per missing pairing. An empty result means the
// sequence is protocol-legal.
func PairingViolations(turns []model.Turn) []string {
	var violations []string

	for i := range turns {
		turn := turns[i]
		if turn.Role != model.RoleAssistant || !turn.HasInvocations() {
			continue
		}

		answered := make(map[string]bool)
		if i+1 < len(turns) && turns[i+1].Role == model.RoleUser {
			for _, res := range turns[i+1].Results() {
				answered[res.InvocationID] = true
			}
		}

		for _, inv := range turn.Invocations() {
			if !answered[inv.ID] {
				violations = append(violations, fmt.Sprintf("turn %d: invocation %s (%s) has no result in turn %d", i, inv.ID, inv.Name, i+1))
			}
		}
	}

	return violations
}
