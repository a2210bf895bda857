package agent

import (
	"context"
	"errors"
	"io"
	"log"
	"strings"
	"testing"
	"time"

	mcptypes "github.com/mark3labs/mcp-go/mcp"

	"outfitter/mcp"
	"outfitter/model"
	"outfitter/provider/testutil"
	"outfitter/storage"
)

func quietLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func newTestStore(t *testing.T) *storage.MessageStore {
	t.Helper()
	store, err := storage.OpenMessageStore(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

// seedMessage inserts an incoming message in processing status, as the worker
// leaves it after a claim.
func seedMessage(t *testing.T, store *storage.MessageStore, key, content string) *model.Message {
	t.Helper()
	msg := &model.Message{
		ConversationKey: key,
		Direction:       model.DirectionIncoming,
		Content:         content,
		Status:          model.StatusProcessing,
	}
	if err := store.Insert(context.Background(), msg); err != nil {
		t.Fatalf("insert seed: %v", err)
	}
	return msg
}

type delivery struct {
	To   string
	Text string
}

type captureNotifier struct {
	sent []delivery
	err  error
}

func (c *captureNotifier) Send(ctx context.Context, to, message string) error {
	c.sent = append(c.sent, delivery{To: to, Text: message})
	return c.err
}

func messageStatus(t *testing.T, store *storage.MessageStore, id string) model.Status {
	t.Helper()
	msg, err := store.GetMessage(context.Background(), id)
	if err != nil {
		t.Fatalf("get message: %v", err)
	}
	if msg == nil {
		t.Fatalf("message %s not found", id)
	}
	return msg.Status
}

func TestProcessPlainReply(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	seed := seedMessage(t, store, "+15551230001:tenant-a", "Hi there")

	mock := testutil.NewMockProvider("test-model")
	mock.GenerateFunc = func(ctx context.Context, req model.GenerateRequest) (*model.GenerateResult, error) {
		return &model.GenerateResult{
			Blocks:     []model.Block{model.TextBlock("Happy to help!")},
			StopReason: "end_turn",
		}, nil
	}

	notifier := &captureNotifier{}
	orch := NewOrchestrator(store, mock, nil, notifier, quietLogger())

	if err := orch.Process(ctx, seed); err != nil {
		t.Fatalf("Process returned error: %v", err)
	}

	if got := messageStatus(t, store, seed.ID); got != model.StatusCompleted {
		t.Errorf("seed status = %q, want %q", got, model.StatusCompleted)
	}

	children, err := store.GetChildren(ctx, seed.ID)
	if err != nil {
		t.Fatalf("get children: %v", err)
	}
	if len(children) != 1 {
		t.Fatalf("children count = %d, want 1", len(children))
	}
	reply := children[0]
	if reply.Direction != model.DirectionOutgoing {
		t.Errorf("reply direction = %q, want %q", reply.Direction, model.DirectionOutgoing)
	}
	if reply.Content != "Happy to help!" {
		t.Errorf("reply content = %q, want %q", reply.Content, "Happy to help!")
	}
	if reply.Status != model.StatusCompleted {
		t.Errorf("reply status = %q, want %q", reply.Status, model.StatusCompleted)
	}

	if len(notifier.sent) != 1 {
		t.Fatalf("deliveries = %d, want 1", len(notifier.sent))
	}
	if notifier.sent[0].To != seed.ConversationKey {
		t.Errorf("delivered to %q, want %q", notifier.sent[0].To, seed.ConversationKey)
	}
	if notifier.sent[0].Text != "Happy to help!" {
		t.Errorf("delivered text = %q, want %q", notifier.sent[0].Text, "Happy to help!")
	}
}

func TestProcessSendsConversationWindow(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	base := time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC)
	key := "+15551230002:tenant-a"

	first := &model.Message{
		ID:              "m1",
		ConversationKey: key,
		Direction:       model.DirectionIncoming,
		Content:         "Hi",
		Status:          model.StatusCompleted,
		CreatedAt:       base,
	}
	second := &model.Message{
		ID:              "m2",
		ParentID:        "m1",
		ConversationKey: key,
		Direction:       model.DirectionOutgoing,
		Content:         "Hello! How can I help?",
		Status:          model.StatusCompleted,
		CreatedAt:       base.Add(time.Minute),
	}
	seed := &model.Message{
		ID:              "m3",
		ParentID:        "m2",
		ConversationKey: key,
		Direction:       model.DirectionIncoming,
		Content:         "Any kayak tours on Saturday?",
		Status:          model.StatusProcessing,
		CreatedAt:       base.Add(2 * time.Minute),
	}
	for _, msg := range []*model.Message{first, second, seed} {
		if err := store.Insert(ctx, msg); err != nil {
			t.Fatalf("insert %s: %v", msg.ID, err)
		}
	}

	mock := testutil.NewMockProvider("test-model")
	orch := NewOrchestrator(store, mock, nil, &captureNotifier{}, quietLogger())

	if err := orch.Process(ctx, seed); err != nil {
		t.Fatalf("Process returned error: %v", err)
	}

	if len(mock.Requests) != 1 {
		t.Fatalf("LLM calls = %d, want 1", len(mock.Requests))
	}
	req := mock.Requests[0]

	if !strings.Contains(req.System, "SMS concierge") {
		t.Errorf("system prompt missing persona: %q", req.System)
	}

	if len(req.Turns) != 3 {
		t.Fatalf("turn count = %d, want 3", len(req.Turns))
	}
	wantRoles := []model.Role{model.RoleUser, model.RoleAssistant, model.RoleUser}
	wantTexts := []string{"Hi", "Hello! How can I help?", "Any kayak tours on Saturday?"}
	for i, turn := range req.Turns {
		if turn.Role != wantRoles[i] {
			t.Errorf("turn %d role = %q, want %q", i, turn.Role, wantRoles[i])
		}
		if turn.Text() != wantTexts[i] {
			t.Errorf("turn %d text = %q, want %q", i, turn.Text(), wantTexts[i])
		}
	}
}

func TestProcessRunsToolRound(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	seed := seedMessage(t, store, "+15551230003:tenant-a", "What's the weather in Lisbon?")

	var statusDuringTool model.Status
	var identitySeen any

	registry := mcp.NewLocalRegistry()
	registry.Register(testutil.TestDirectoryTools()[0], func(ctx context.Context, args map[string]any) (string, error) {
		identitySeen = args["auth_token"]
		if m, err := store.GetMessage(ctx, seed.ID); err == nil && m != nil {
			statusDuringTool = m.Status
		}
		return "Sunny, 24C", nil
	})
	directory := mcp.NewDirectory(nil, registry, nil)

	mock := testutil.NewMockProvider("test-model")
	mock.GenerateFunc = func(ctx context.Context, req model.GenerateRequest) (*model.GenerateResult, error) {
		if len(mock.Requests) == 1 {
			return &model.GenerateResult{
				Blocks: []model.Block{
					model.TextBlock("Let me check."),
					model.InvocationBlock(model.ToolInvocation{
						ID:        "inv-1",
						Name:      "get_weather",
						Arguments: map[string]any{"location": "Lisbon"},
					}),
				},
				StopReason: "tool_use",
			}, nil
		}
		return &model.GenerateResult{
			Blocks:     []model.Block{model.TextBlock("Sunny and 24C in Lisbon today.")},
			StopReason: "end_turn",
		}, nil
	}

	notifier := &captureNotifier{}
	orch := NewOrchestrator(store, mock, directory, notifier, quietLogger())

	if err := orch.Process(ctx, seed); err != nil {
		t.Fatalf("Process returned error: %v", err)
	}

	if statusDuringTool != model.StatusWaitingForTool {
		t.Errorf("status during tool = %q, want %q", statusDuringTool, model.StatusWaitingForTool)
	}
	if identitySeen != seed.ConversationKey {
		t.Errorf("caller identity = %v, want %q", identitySeen, seed.ConversationKey)
	}
	if got := messageStatus(t, store, seed.ID); got != model.StatusCompleted {
		t.Errorf("seed status = %q, want %q", got, model.StatusCompleted)
	}

	children, err := store.GetChildren(ctx, seed.ID)
	if err != nil {
		t.Fatalf("get children: %v", err)
	}
	if len(children) != 1 {
		t.Fatalf("seed children = %d, want 1 tool request", len(children))
	}
	request := children[0]
	if !request.IsToolRequest() {
		t.Fatalf("child is not a tool request: %+v", request)
	}
	if request.Direction != model.DirectionOutgoing {
		t.Errorf("request direction = %q, want %q", request.Direction, model.DirectionOutgoing)
	}
	if request.Content != "Let me check." {
		t.Errorf("request content = %q, want %q", request.Content, "Let me check.")
	}
	if len(request.ToolInvocations) != 1 || request.ToolInvocations[0].Name != "get_weather" {
		t.Errorf("request invocations = %+v, want one get_weather call", request.ToolInvocations)
	}

	grand, err := store.GetChildren(ctx, request.ID)
	if err != nil {
		t.Fatalf("get request children: %v", err)
	}
	var result, reply *model.Message
	for i := range grand {
		switch {
		case grand[i].IsToolResult():
			result = &grand[i]
		default:
			reply = &grand[i]
		}
	}
	if result == nil {
		t.Fatalf("no tool result persisted under request")
	}
	if result.ToolResultFor != "inv-1" {
		t.Errorf("result ToolResultFor = %q, want %q", result.ToolResultFor, "inv-1")
	}
	if result.Content != "Sunny, 24C" {
		t.Errorf("result content = %q, want %q", result.Content, "Sunny, 24C")
	}
	if result.Direction != model.DirectionIncoming {
		t.Errorf("result direction = %q, want %q", result.Direction, model.DirectionIncoming)
	}
	if reply == nil {
		t.Fatalf("no final reply persisted under request")
	}
	if reply.Content != "Sunny and 24C in Lisbon today." {
		t.Errorf("reply content = %q", reply.Content)
	}

	if len(mock.Requests) != 2 {
		t.Fatalf("LLM calls = %d, want 2", len(mock.Requests))
	}
	followUp := mock.Requests[1].Turns
	if len(followUp) < 2 {
		t.Fatalf("follow-up turn count = %d, want at least 2", len(followUp))
	}
	last := followUp[len(followUp)-1]
	if last.Role != model.RoleUser || !last.HasResults() {
		t.Fatalf("last follow-up turn is not a result turn: %+v", last)
	}
	results := last.Results()
	if results[0].InvocationID != "inv-1" || results[0].Content != "Sunny, 24C" {
		t.Errorf("follow-up result = %+v", results[0])
	}
	prev := followUp[len(followUp)-2]
	if prev.Role != model.RoleAssistant || !prev.HasInvocations() {
		t.Fatalf("turn before results is not the invocation turn: %+v", prev)
	}

	if len(notifier.sent) != 1 || notifier.sent[0].Text != "Sunny and 24C in Lisbon today." {
		t.Errorf("deliveries = %+v, want just the final reply", notifier.sent)
	}
}

func TestProcessToolFailureBecomesResult(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	seed := seedMessage(t, store, "+15551230004:tenant-a", "Weather in Lisbon?")

	registry := mcp.NewLocalRegistry()
	registry.Register(testutil.TestDirectoryTools()[0], func(ctx context.Context, args map[string]any) (string, error) {
		return "", errors.New("upstream service unavailable right now")
	})
	directory := mcp.NewDirectory(nil, registry, nil)

	mock := testutil.NewMockProvider("test-model")
	mock.GenerateFunc = func(ctx context.Context, req model.GenerateRequest) (*model.GenerateResult, error) {
		if len(mock.Requests) == 1 {
			return &model.GenerateResult{
				Blocks: []model.Block{
					model.InvocationBlock(model.ToolInvocation{
						ID:        "inv-1",
						Name:      "get_weather",
						Arguments: map[string]any{"location": "Lisbon"},
					}),
				},
				StopReason: "tool_use",
			}, nil
		}
		return &model.GenerateResult{
			Blocks:     []model.Block{model.TextBlock("I couldn't reach the weather service, sorry.")},
			StopReason: "end_turn",
		}, nil
	}

	orch := NewOrchestrator(store, mock, directory, &captureNotifier{}, quietLogger())

	if err := orch.Process(ctx, seed); err != nil {
		t.Fatalf("tool failure should not fail the message: %v", err)
	}
	if got := messageStatus(t, store, seed.ID); got != model.StatusCompleted {
		t.Errorf("seed status = %q, want %q", got, model.StatusCompleted)
	}

	children, err := store.GetChildren(ctx, seed.ID)
	if err != nil || len(children) != 1 {
		t.Fatalf("seed children = %d (err %v), want 1", len(children), err)
	}
	grand, err := store.GetChildren(ctx, children[0].ID)
	if err != nil {
		t.Fatalf("get request children: %v", err)
	}
	var result *model.Message
	for i := range grand {
		if grand[i].IsToolResult() {
			result = &grand[i]
		}
	}
	if result == nil {
		t.Fatalf("no tool result persisted for failed invocation")
	}
	if !strings.Contains(result.Content, "Tool get_weather failed") {
		t.Errorf("result content = %q, want failure description", result.Content)
	}

	last := mock.Requests[1].Turns[len(mock.Requests[1].Turns)-1]
	results := last.Results()
	if len(results) != 1 || !results[0].IsError {
		t.Errorf("follow-up result = %+v, want IsError set", results)
	}
}

func threeToolRegistry() *mcp.Registry {
	registry := mcp.NewLocalRegistry()
	for _, tool := range testutil.TestDirectoryTools() {
		registry.Register(tool, func(ctx context.Context, args map[string]any) (string, error) {
			return "ok", nil
		})
	}
	registry.Register(mcptypes.Tool{
		Name:        "calendar_list",
		Description: "List calendar events",
		InputSchema: mcptypes.ToolInputSchema{Type: "object"},
	}, func(ctx context.Context, args map[string]any) (string, error) {
		return "no events", nil
	})
	return registry
}

func TestProcessNarrowsToolsAfterMultiToolRound(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	seed := seedMessage(t, store, "+15551230005:tenant-a", "Weather and availability please")

	directory := mcp.NewDirectory(nil, threeToolRegistry(), nil)

	mock := testutil.NewMockProvider("test-model")
	mock.GenerateFunc = func(ctx context.Context, req model.GenerateRequest) (*model.GenerateResult, error) {
		if len(mock.Requests) == 1 {
			return &model.GenerateResult{
				Blocks: []model.Block{
					model.InvocationBlock(model.ToolInvocation{
						ID:        "inv-1",
						Name:      "get_weather",
						Arguments: map[string]any{"location": "Lisbon"},
					}),
					model.InvocationBlock(model.ToolInvocation{
						ID:        "inv-2",
						Name:      "octo_availability",
						Arguments: map[string]any{"product_id": "kayak-tour"},
					}),
				},
				StopReason: "tool_use",
			}, nil
		}
		return &model.GenerateResult{
			Blocks:     []model.Block{model.TextBlock("All set.")},
			StopReason: "end_turn",
		}, nil
	}

	orch := NewOrchestrator(store, mock, directory, &captureNotifier{}, quietLogger())

	if err := orch.Process(ctx, seed); err != nil {
		t.Fatalf("Process returned error: %v", err)
	}
	if len(mock.Requests) != 2 {
		t.Fatalf("LLM calls = %d, want 2", len(mock.Requests))
	}

	if got := len(mock.Requests[0].Tools); got != 3 {
		t.Errorf("first call tool count = %d, want 3", got)
	}

	narrowed := mock.Requests[1].Tools
	if len(narrowed) != 2 {
		t.Fatalf("follow-up tool count = %d, want 2", len(narrowed))
	}
	names := map[string]bool{}
	for _, tool := range narrowed {
		names[tool.Name] = true
	}
	if !names["get_weather"] || !names["octo_availability"] {
		t.Errorf("narrowed set = %v, want the two tools just used", names)
	}
}

func TestProcessSingleToolKeepsFullSet(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	seed := seedMessage(t, store, "+15551230006:tenant-a", "Weather please")

	directory := mcp.NewDirectory(nil, threeToolRegistry(), nil)

	mock := testutil.NewMockProvider("test-model")
	mock.GenerateFunc = func(ctx context.Context, req model.GenerateRequest) (*model.GenerateResult, error) {
		if len(mock.Requests) == 1 {
			return &model.GenerateResult{
				Blocks: []model.Block{
					model.InvocationBlock(model.ToolInvocation{
						ID:        "inv-1",
						Name:      "get_weather",
						Arguments: map[string]any{"location": "Lisbon"},
					}),
				},
				StopReason: "tool_use",
			}, nil
		}
		return &model.GenerateResult{
			Blocks:     []model.Block{model.TextBlock("Done.")},
			StopReason: "end_turn",
		}, nil
	}

	orch := NewOrchestrator(store, mock, directory, &captureNotifier{}, quietLogger())

	if err := orch.Process(ctx, seed); err != nil {
		t.Fatalf("Process returned error: %v", err)
	}
	if got := len(mock.Requests[1].Tools); got != 3 {
		t.Errorf("follow-up tool count = %d, want full set of 3", got)
	}
}

func TestProcessRoundLimitForcesTextAnswer(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	seed := seedMessage(t, store, "+15551230007:tenant-a", "Keep checking the weather")

	registry := mcp.NewLocalRegistry()
	registry.Register(testutil.TestDirectoryTools()[0], func(ctx context.Context, args map[string]any) (string, error) {
		return "Sunny", nil
	})
	directory := mcp.NewDirectory(nil, registry, nil)

	// Always asks for another tool call, regardless of what it is offered.
	mock := testutil.NewMockProvider("test-model")
	mock.GenerateFunc = func(ctx context.Context, req model.GenerateRequest) (*model.GenerateResult, error) {
		return &model.GenerateResult{
			Blocks: []model.Block{
				model.TextBlock("Here's what I found so far."),
				model.InvocationBlock(model.ToolInvocation{
					ID:        "inv-loop",
					Name:      "get_weather",
					Arguments: map[string]any{"location": "Lisbon"},
				}),
			},
			StopReason: "tool_use",
		}, nil
	}

	notifier := &captureNotifier{}
	orch := NewOrchestrator(store, mock, directory, notifier, quietLogger())
	orch.MaxToolRounds = 1

	if err := orch.Process(ctx, seed); err != nil {
		t.Fatalf("Process returned error: %v", err)
	}

	if len(mock.Requests) != 2 {
		t.Fatalf("LLM calls = %d, want 2 (one round plus the forced answer)", len(mock.Requests))
	}
	if got := len(mock.Requests[1].Tools); got != 0 {
		t.Errorf("final call tool count = %d, want 0", got)
	}

	children, err := store.GetChildren(ctx, seed.ID)
	if err != nil || len(children) != 1 {
		t.Fatalf("seed children = %d (err %v), want exactly 1 tool request", len(children), err)
	}

	if got := messageStatus(t, store, seed.ID); got != model.StatusCompleted {
		t.Errorf("seed status = %q, want %q", got, model.StatusCompleted)
	}
	if len(notifier.sent) != 1 || notifier.sent[0].Text != "Here's what I found so far." {
		t.Errorf("deliveries = %+v, want the stubborn reply's text", notifier.sent)
	}
}

func TestProcessStaysProcessingWithUnresolvedResult(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	seed := seedMessage(t, store, "+15551230008:tenant-a", "Anything new?")

	pending := &model.Message{
		ParentID:        seed.ID,
		ConversationKey: seed.ConversationKey,
		Direction:       model.DirectionIncoming,
		ToolResultFor:   "inv-external",
		Status:          model.StatusPending,
	}
	if err := store.Insert(ctx, pending); err != nil {
		t.Fatalf("insert pending result: %v", err)
	}

	mock := testutil.NewMockProvider("test-model")
	notifier := &captureNotifier{}
	orch := NewOrchestrator(store, mock, nil, notifier, quietLogger())

	if err := orch.Process(ctx, seed); err != nil {
		t.Fatalf("Process returned error: %v", err)
	}

	if got := messageStatus(t, store, seed.ID); got != model.StatusProcessing {
		t.Errorf("seed status = %q, want it left %q", got, model.StatusProcessing)
	}
	if len(notifier.sent) != 1 {
		t.Errorf("deliveries = %d, want the reply still delivered", len(notifier.sent))
	}
}

func TestProcessGenerateFailure(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	seed := seedMessage(t, store, "+15551230009:tenant-a", "Hello?")

	mock := testutil.NewMockProvider("test-model")
	mock.GenerateFunc = func(ctx context.Context, req model.GenerateRequest) (*model.GenerateResult, error) {
		return nil, errors.New("model rejected the request")
	}

	notifier := &captureNotifier{}
	orch := NewOrchestrator(store, mock, nil, notifier, quietLogger())

	err := orch.Process(ctx, seed)
	if err == nil {
		t.Fatalf("expected error from failed generation")
	}
	if !strings.Contains(err.Error(), "llm call failed") {
		t.Errorf("error = %v, want llm call failure", err)
	}

	if got := messageStatus(t, store, seed.ID); got != model.StatusProcessing {
		t.Errorf("seed status = %q, want untouched %q for the caller to fail", got, model.StatusProcessing)
	}
	if len(notifier.sent) != 0 {
		t.Errorf("deliveries = %d, want none", len(notifier.sent))
	}
}

func TestProcessEmptyReplySkipsDelivery(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	seed := seedMessage(t, store, "+15551230010:tenant-a", "...")

	mock := testutil.NewMockProvider("test-model")
	mock.GenerateFunc = func(ctx context.Context, req model.GenerateRequest) (*model.GenerateResult, error) {
		return &model.GenerateResult{
			Blocks:     []model.Block{model.TextBlock("   ")},
			StopReason: "end_turn",
		}, nil
	}

	notifier := &captureNotifier{}
	orch := NewOrchestrator(store, mock, nil, notifier, quietLogger())

	if err := orch.Process(ctx, seed); err != nil {
		t.Fatalf("Process returned error: %v", err)
	}

	if got := messageStatus(t, store, seed.ID); got != model.StatusCompleted {
		t.Errorf("seed status = %q, want %q", got, model.StatusCompleted)
	}
	children, err := store.GetChildren(ctx, seed.ID)
	if err != nil {
		t.Fatalf("get children: %v", err)
	}
	if len(children) != 0 {
		t.Errorf("children = %d, want no reply message", len(children))
	}
	if len(notifier.sent) != 0 {
		t.Errorf("deliveries = %d, want none", len(notifier.sent))
	}
}

func TestProcessDeliveryFailureStillCompletes(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	seed := seedMessage(t, store, "+15551230011:tenant-a", "Hi")

	mock := testutil.NewMockProvider("test-model")
	notifier := &captureNotifier{err: errors.New("dispatch endpoint down")}
	orch := NewOrchestrator(store, mock, nil, notifier, quietLogger())

	if err := orch.Process(ctx, seed); err != nil {
		t.Fatalf("delivery failure should not fail the message: %v", err)
	}

	if got := messageStatus(t, store, seed.ID); got != model.StatusCompleted {
		t.Errorf("seed status = %q, want %q", got, model.StatusCompleted)
	}
	children, err := store.GetChildren(ctx, seed.ID)
	if err != nil || len(children) != 1 {
		t.Fatalf("children = %d (err %v), want the reply persisted anyway", len(children), err)
	}
}

func TestNarrowTools(t *testing.T) {
	tools := testutil.TestDirectoryTools()

	tests := []struct {
		name        string
		invocations []model.ToolInvocation
		wantNames   []string
	}{
		{
			name: "subset kept in listing order",
			invocations: []model.ToolInvocation{
				{ID: "a", Name: "octo_availability"},
			},
			wantNames: []string{"octo_availability"},
		},
		{
			name: "unknown names keep full set",
			invocations: []model.ToolInvocation{
				{ID: "a", Name: "no_such_tool"},
			},
			wantNames: []string{"get_weather", "octo_availability"},
		},
		{
			name: "duplicates collapse",
			invocations: []model.ToolInvocation{
				{ID: "a", Name: "get_weather"},
				{ID: "b", Name: "get_weather"},
			},
			wantNames: []string{"get_weather"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := narrowTools(tools, tt.invocations)
			if len(got) != len(tt.wantNames) {
				t.Fatalf("length mismatch: got %d, want %d", len(got), len(tt.wantNames))
			}
			for i, want := range tt.wantNames {
				if got[i].Name != want {
					t.Errorf("tool %d = %q, want %q", i, got[i].Name, want)
				}
			}
		})
	}
}
