package transcript

import (
	"fmt"
	"strings"
	"testing"

	mcptypes "github.com/mark3labs/mcp-go/mcp"

	"outfitter/model"
)

// plainTurn builds a text turn whose estimated size is exactly units.
func plainTurn(role model.Role, label string, units int) model.Turn {
	text := label + strings.Repeat("x", units*4-len(label))
	return model.NewTextTurn(role, text)
}

func TestEstimateSeparatesMessageAndToolUnits(t *testing.T) {
	mgr := NewBudgetManager()
	turns := []model.Turn{plainTurn(model.RoleUser, "u", 100)}
	tools := []mcptypes.Tool{{Name: "check_availability", Description: strings.Repeat("d", 400)}}

	messageUnits, toolUnits := mgr.Estimate(turns, tools)

	if messageUnits != 100 {
		t.Errorf("messageUnits = %d, expected 100", messageUnits)
	}
	if toolUnits < 100 {
		t.Errorf("toolUnits = %d, expected at least the description bytes / 4", toolUnits)
	}
}

func TestEstimateCountsInvocationsAndResults(t *testing.T) {
	mgr := NewBudgetManager()
	turns := []model.Turn{
		invocationTurn("", model.ToolInvocation{
			Name:      "check_availability",
			Arguments: map[string]any{"date": strings.Repeat("2", 100)},
		}),
		resultTurn(model.ToolResult{InvocationID: "t1", Content: strings.Repeat("r", 400)}),
	}

	messageUnits, _ := mgr.Estimate(turns, nil)

	if messageUnits < 100 {
		t.Errorf("messageUnits = %d, invocation and result payloads not counted", messageUnits)
	}
}

func TestApplyUnderCeilingUnchanged(t *testing.T) {
	mgr := NewBudgetManager()
	turns := []model.Turn{
		model.NewTextTurn(model.RoleUser, "hi"),
		model.NewTextTurn(model.RoleAssistant, "hello"),
	}

	out := mgr.Apply(turns, nil)

	if len(out) != len(turns) {
		t.Fatalf("under-ceiling transcript changed length: %d -> %d", len(turns), len(out))
	}
	for i := range turns {
		if !turns[i].Equal(out[i]) {
			t.Errorf("turn %d modified", i)
		}
	}
}

func TestApplyDropsOldestFirst(t *testing.T) {
	mgr := &BudgetManager{Ceiling: 500, Floor: 2}

	var turns []model.Turn
	for i := 0; i < 10; i++ {
		role := model.RoleUser
		if i%2 == 1 {
			role = model.RoleAssistant
		}
		turns = append(turns, plainTurn(role, fmt.Sprintf("%02d", i), 100))
	}

	out := mgr.Apply(turns, nil)

	if len(out) != 5 {
		t.Fatalf("expected 5 turns retained, got %d", len(out))
	}
	for i, turn := range out {
		wantLabel := fmt.Sprintf("%02d", i+5)
		if !strings.HasPrefix(turn.Text(), wantLabel) {
			t.Errorf("turn %d starts with %q, expected the newer half (label %s)", i, turn.Text()[:2], wantLabel)
		}
	}
}

func TestApplyNeverDropsPairedTurns(t *testing.T) {
	mgr := NewBudgetManager()
	mgr.Ceiling = 10

	turns := []model.Turn{
		plainTurn(model.RoleUser, "00", 100),
		plainTurn(model.RoleAssistant, "01", 100),
		plainTurn(model.RoleUser, "02", 100),
		invocationTurn("", model.ToolInvocation{
			ID:        "t1",
			Name:      "check_availability",
			Arguments: map[string]any{"notes": strings.Repeat("a", 400)},
		}),
		resultTurn(model.ToolResult{InvocationID: "t1", Content: strings.Repeat("r", 400)}),
		plainTurn(model.RoleUser, "05", 100),
	}

	out := mgr.Apply(turns, nil)

	if len(out) != DefaultBudgetFloor {
		t.Fatalf("expected floor of %d turns, got %d", DefaultBudgetFloor, len(out))
	}

	var hasInvocation, hasResult bool
	for _, turn := range out {
		if turn.HasInvocations() {
			hasInvocation = true
		}
		if turn.HasResults() {
			hasResult = true
		}
	}
	if !hasInvocation || !hasResult {
		t.Error("a paired invocation or result turn was dropped")
	}

	last := out[len(out)-1]
	if !strings.HasPrefix(last.Text(), TruncationNotice) {
		t.Errorf("still-over transcript missing truncation notice on newest user turn: %q", last.Text()[:40])
	}
}

func TestApplyNoticeAfterResultBlocks(t *testing.T) {
	mgr := NewBudgetManager()
	mgr.Ceiling = 10

	turns := []model.Turn{
		plainTurn(model.RoleUser, "00", 100),
		plainTurn(model.RoleAssistant, "01", 100),
		plainTurn(model.RoleUser, "02", 100),
		invocationTurn("", model.ToolInvocation{ID: "t1", Name: "check_availability"}),
		resultTurn(model.ToolResult{InvocationID: "t1", Content: strings.Repeat("r", 400)}),
	}

	out := mgr.Apply(turns, nil)

	if len(out) != len(turns) {
		t.Fatalf("at-floor transcript changed length: %d -> %d", len(turns), len(out))
	}

	last := out[len(out)-1]
	if last.Blocks[0].Type != model.BlockTypeToolResult {
		t.Errorf("result block displaced from the front of the turn: %v", last.Blocks[0].Type)
	}
	tail := last.Blocks[len(last.Blocks)-1]
	if tail.Type != model.BlockTypeText || tail.Text != TruncationNotice {
		t.Errorf("truncation notice not appended after results: %+v", tail)
	}
}

func TestApplyToolSchemaPressureStillSheds(t *testing.T) {
	mgr := NewBudgetManager()
	mgr.Ceiling = 100

	var turns []model.Turn
	for i := 0; i < 6; i++ {
		role := model.RoleUser
		if i%2 == 1 {
			role = model.RoleAssistant
		}
		turns = append(turns, model.NewTextTurn(role, fmt.Sprintf("short %d", i)))
	}
	tools := []mcptypes.Tool{{Name: "bulky", Description: strings.Repeat("d", 8000)}}

	out := mgr.Apply(turns, tools)

	if len(out) != DefaultBudgetFloor {
		t.Fatalf("expected shedding down to the floor of %d, got %d turns", DefaultBudgetFloor, len(out))
	}

	var noticed bool
	for _, turn := range out {
		if strings.Contains(turn.Text(), TruncationNotice) {
			noticed = true
		}
	}
	if !noticed {
		t.Error("tool-schema pressure left no truncation notice")
	}
}

func TestApplyDoesNotMutateInput(t *testing.T) {
	mgr := NewBudgetManager()
	mgr.Ceiling = 10

	turns := []model.Turn{
		plainTurn(model.RoleUser, "00", 100),
		plainTurn(model.RoleAssistant, "01", 100),
		plainTurn(model.RoleUser, "02", 100),
		plainTurn(model.RoleAssistant, "03", 100),
		plainTurn(model.RoleUser, "04", 100),
		plainTurn(model.RoleUser, "05", 100),
	}
	originalLen := len(turns)
	originalNewest := turns[5].Text()

	mgr.Apply(turns, nil)

	if len(turns) != originalLen {
		t.Errorf("input slice length changed: %d", len(turns))
	}
	if turns[5].Text() != originalNewest {
		t.Error("input turn text mutated by notice insertion")
	}
}
