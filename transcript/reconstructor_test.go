package transcript

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"
	"time"

	"outfitter/model"
)

var testBase = time.Date(2025, 6, 8, 9, 0, 0, 0, time.UTC)

type fakeSource struct {
	messages  map[string]model.Message
	threadErr map[string]error
	windowErr error

	threadCalls int
	windowCalls int
}

func newFakeSource(msgs ...model.Message) *fakeSource {
	f := &fakeSource{
		messages:  make(map[string]model.Message),
		threadErr: make(map[string]error),
	}
	for _, m := range msgs {
		f.messages[m.ID] = m
	}
	return f
}

func (f *fakeSource) GetThread(ctx context.Context, id string) ([]model.Message, error) {
	f.threadCalls++
	if err := f.threadErr[id]; err != nil {
		return nil, err
	}
	var out []model.Message
	for _, m := range f.messages {
		if m.ID == id || m.ParentID == id {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeSource) GetConversationWindow(ctx context.Context, key string, limit int) ([]model.Message, error) {
	f.windowCalls++
	if f.windowErr != nil {
		return nil, f.windowErr
	}
	var out []model.Message
	for _, m := range f.messages {
		if m.ConversationKey == key {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func textMsg(id, parent, key string, dir model.Direction, content string, offset int) model.Message {
	return model.Message{
		ID:              id,
		ParentID:        parent,
		ConversationKey: key,
		Direction:       dir,
		Content:         content,
		Status:          model.StatusCompleted,
		CreatedAt:       testBase.Add(time.Duration(offset) * time.Second),
	}
}

func TestReconstructOrdersAndDeduplicates(t *testing.T) {
	src := newFakeSource(
		textMsg("m1", "", "15551234:acme", model.DirectionIncoming, "hi", 0),
		textMsg("m2", "m1", "15551234:acme", model.DirectionOutgoing, "hello", 1),
		textMsg("m3", "m2", "15551234:acme", model.DirectionIncoming, "book tour X", 2),
		textMsg("w1", "", "15551234:acme", model.DirectionOutgoing, "side branch", 3),
	)
	r := NewReconstructor(src)

	seed := src.messages["m3"]
	got := r.Reconstruct(context.Background(), &seed)

	if len(got) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(got))
	}

	seen := make(map[string]bool)
	for i, m := range got {
		if seen[m.ID] {
			t.Errorf("duplicate id %s in result", m.ID)
		}
		seen[m.ID] = true

		if i > 0 {
			prev := got[i-1]
			if m.CreatedAt.Before(prev.CreatedAt) {
				t.Errorf("message %d (%s) out of order", i, m.ID)
			}
			if m.CreatedAt.Equal(prev.CreatedAt) && m.ID < prev.ID {
				t.Errorf("tie at %d not broken by id", i)
			}
		}
	}

	wantOrder := []string{"m1", "m2", "m3", "w1"}
	for i, id := range wantOrder {
		if got[i].ID != id {
			t.Errorf("position %d: expected %s, got %s", i, id, got[i].ID)
		}
	}
}

func TestReconstructSurvivesParentCycle(t *testing.T) {
	a := textMsg("a", "b", "", model.DirectionIncoming, "first", 0)
	b := textMsg("b", "a", "", model.DirectionOutgoing, "second", 1)
	src := newFakeSource(a, b)
	r := NewReconstructor(src)

	done := make(chan []model.Message, 1)
	go func() {
		seed := src.messages["a"]
		done <- r.Reconstruct(context.Background(), &seed)
	}()

	select {
	case got := <-done:
		if len(got) != 2 {
			t.Errorf("expected both cycle members, got %d messages", len(got))
		}
	case <-time.After(2 * time.Second):
		t.Fatal("reconstruction did not terminate on cyclic parent links")
	}
}

func TestReconstructDepthBounds(t *testing.T) {
	const chain = 40
	var msgs []model.Message
	for i := 0; i < chain; i++ {
		parent := ""
		if i > 0 {
			parent = fmt.Sprintf("m%02d", i-1)
		}
		msgs = append(msgs, textMsg(fmt.Sprintf("m%02d", i), parent, "", model.DirectionIncoming, "msg", i))
	}
	seedID := fmt.Sprintf("m%02d", chain-1)

	tests := []struct {
		name     string
		maxDepth int
		want     int
	}{
		{"default depth", 0, DefaultMaxDepth},
		{"raised depth clamps to ceiling", 100, DepthCeiling},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := newFakeSource(msgs...)
			r := NewReconstructor(src)
			if tt.maxDepth > 0 {
				r.MaxDepth = tt.maxDepth
			}

			seed := src.messages[seedID]
			got := r.Reconstruct(context.Background(), &seed)

			if len(got) != tt.want {
				t.Errorf("expected %d messages from bounded walk, got %d", tt.want, len(got))
			}
			for _, m := range got {
				var idx int
				fmt.Sscanf(m.ID, "m%02d", &idx)
				if idx < chain-tt.want {
					t.Errorf("message %s beyond depth bound present in result", m.ID)
				}
			}
		})
	}
}

func TestReconstructPullsChildren(t *testing.T) {
	req := textMsg("req", "in", "", model.DirectionOutgoing, "", 1)
	req.ToolInvocations = []model.ToolInvocation{{ID: "t1", Name: "check_availability", Arguments: map[string]any{"date": "2025-06-08"}}}
	res := textMsg("res", "req", "", model.DirectionIncoming, "3 slots open", 2)
	res.ToolResultFor = "t1"

	src := newFakeSource(
		textMsg("in", "", "", model.DirectionIncoming, "any openings?", 0),
		req,
		res,
	)
	r := NewReconstructor(src)

	seed := src.messages["req"]
	got := r.Reconstruct(context.Background(), &seed)

	found := false
	for _, m := range got {
		if m.ID == "res" {
			found = true
		}
	}
	if !found {
		t.Error("child tool-result message not captured by reconstruction")
	}
}

func TestReconstructStoreErrorDegrades(t *testing.T) {
	src := newFakeSource(
		textMsg("m1", "", "key", model.DirectionIncoming, "hi", 0),
		textMsg("m2", "m1", "key", model.DirectionOutgoing, "hello", 1),
	)
	src.threadErr["m2"] = errors.New("store unavailable")
	r := NewReconstructor(src)

	seed := src.messages["m2"]
	got := r.Reconstruct(context.Background(), &seed)

	// Thread branch failed but the window still recovers both messages.
	if len(got) != 2 {
		t.Fatalf("expected window to recover 2 messages, got %d", len(got))
	}
	if src.windowCalls != 1 {
		t.Errorf("expected window query despite thread failure, got %d calls", src.windowCalls)
	}
}

func TestReconstructWindowErrorDegrades(t *testing.T) {
	src := newFakeSource(
		textMsg("m1", "", "key", model.DirectionIncoming, "hi", 0),
		textMsg("m2", "m1", "key", model.DirectionOutgoing, "hello", 1),
	)
	src.windowErr = errors.New("store unavailable")
	r := NewReconstructor(src)

	seed := src.messages["m2"]
	got := r.Reconstruct(context.Background(), &seed)

	if len(got) != 2 {
		t.Fatalf("expected chain messages despite window failure, got %d", len(got))
	}
}

func TestToTurnsPlainConversation(t *testing.T) {
	msgs := []model.Message{
		textMsg("m1", "", "key", model.DirectionIncoming, "hi", 0),
		textMsg("m2", "m1", "key", model.DirectionOutgoing, "hello", 1),
		textMsg("m3", "m2", "key", model.DirectionIncoming, "book tour X for 2 people tomorrow", 2),
	}

	turns := ToTurns(msgs)

	if len(turns) != 3 {
		t.Fatalf("expected 3 turns, got %d", len(turns))
	}

	want := []struct {
		role model.Role
		text string
	}{
		{model.RoleUser, "hi"},
		{model.RoleAssistant, "hello"},
		{model.RoleUser, "book tour X for 2 people tomorrow"},
	}
	for i, w := range want {
		if turns[i].Role != w.role {
			t.Errorf("turn %d: expected role %s, got %s", i, w.role, turns[i].Role)
		}
		if turns[i].Text() != w.text {
			t.Errorf("turn %d: expected text %q, got %q", i, w.text, turns[i].Text())
		}
	}

	repaired := Repair(turns)
	if len(repaired) != len(turns) {
		t.Fatalf("repair changed a legal plain sequence: %d -> %d turns", len(turns), len(repaired))
	}
	for i := range turns {
		if !turns[i].Equal(repaired[i]) {
			t.Errorf("repair modified turn %d of a legal sequence", i)
		}
	}
}

func TestToTurnsPairsInvocationWithResult(t *testing.T) {
	req := textMsg("req", "m1", "key", model.DirectionOutgoing, "Let me check.", 1)
	req.ToolInvocations = []model.ToolInvocation{{ID: "t1", Name: "check_availability", Arguments: map[string]any{"date": "2025-06-08"}}}
	res := textMsg("res", "req", "key", model.DirectionIncoming, "3 slots open", 2)
	res.ToolResultFor = "t1"

	msgs := []model.Message{
		textMsg("m1", "", "key", model.DirectionIncoming, "any openings?", 0),
		req,
		res,
		textMsg("m2", "req", "key", model.DirectionOutgoing, "There are 3 slots open.", 3),
	}

	turns := ToTurns(msgs)

	if len(turns) != 4 {
		t.Fatalf("expected 4 turns, got %d", len(turns))
	}
	if turns[1].Role != model.RoleAssistant || !turns[1].HasInvocations() {
		t.Fatalf("turn 1 should be the assistant invocation turn")
	}
	if turns[1].Text() != "Let me check." {
		t.Errorf("assistant text lost: %q", turns[1].Text())
	}
	results := turns[2].Results()
	if len(results) != 1 {
		t.Fatalf("expected 1 result block, got %d", len(results))
	}
	if results[0].InvocationID != "t1" {
		t.Errorf("result paired to %s, expected t1", results[0].InvocationID)
	}
	if results[0].Content != "3 slots open" {
		t.Errorf("result content %q, expected stored content", results[0].Content)
	}
	if turns[3].Role != model.RoleAssistant || turns[3].Text() != "There are 3 slots open." {
		t.Errorf("final reply turn wrong: %+v", turns[3])
	}
}

func TestToTurnsSynthesizesMissingResult(t *testing.T) {
	req := textMsg("req", "", "key", model.DirectionOutgoing, "", 0)
	req.ToolInvocations = []model.ToolInvocation{{ID: "t1", Name: "check_availability"}}

	turns := ToTurns([]model.Message{req})

	if len(turns) != 2 {
		t.Fatalf("expected invocation + synthetic result, got %d turns", len(turns))
	}
	results := turns[1].Results()
	if len(results) != 1 || results[0].InvocationID != "t1" {
		t.Fatalf("synthetic result missing or mispaired: %+v", results)
	}
	if results[0].Content == "" {
		t.Error("synthetic result has empty content")
	}
}

func TestToTurnsSkipsEmptyMessages(t *testing.T) {
	msgs := []model.Message{
		textMsg("m1", "", "key", model.DirectionIncoming, "", 0),
		textMsg("m2", "m1", "key", model.DirectionOutgoing, "hello", 1),
	}

	turns := ToTurns(msgs)

	if len(turns) != 1 {
		t.Fatalf("expected empty message skipped, got %d turns", len(turns))
	}
	if turns[0].Text() != "hello" {
		t.Errorf("surviving turn text %q", turns[0].Text())
	}
}
