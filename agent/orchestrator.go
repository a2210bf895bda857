package agent

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	mcptypes "github.com/mark3labs/mcp-go/mcp"

	"outfitter/mcp"
	"outfitter/model"
	"outfitter/notify"
	"outfitter/retry"
	"outfitter/storage"
	"outfitter/transcript"
)

// DefaultMaxToolRounds bounds how many tool-execution rounds one message may
// trigger before the model is forced to answer in text.
const DefaultMaxToolRounds = 8

// Orchestrator drives one claimed message through the conversation loop:
// transcript reconstruction, LLM calls, tool dispatch, and reply delivery.
// Every intermediate exchange is persisted so the transcript can be rebuilt
// from the store alone.
type Orchestrator struct {
	store     *storage.MessageStore
	provider  model.Provider
	directory *mcp.Directory
	notifier  notify.Notifier

	recon    *transcript.Reconstructor
	budget   *transcript.BudgetManager
	llmRetry *retry.Executor
	logger   *log.Logger

	// MaxToolRounds caps tool-execution rounds per message. Once reached,
	// the next LLM call offers no tools so the model has to produce text.
	MaxToolRounds int
}

// NewOrchestrator wires an orchestrator from its collaborators. notifier and
// logger may be nil; delivery then becomes a no-op and logging goes to stderr.
func NewOrchestrator(store *storage.MessageStore, provider model.Provider, directory *mcp.Directory, notifier notify.Notifier, logger *log.Logger) *Orchestrator {
	if notifier == nil {
		notifier = notify.NoopNotifier{}
	}
	if logger == nil {
		logger = log.New(os.Stderr, "", log.LstdFlags)
	}
	return &Orchestrator{
		store:         store,
		provider:      provider,
		directory:     directory,
		notifier:      notifier,
		recon:         transcript.NewReconstructor(store),
		budget:        transcript.NewBudgetManager(),
		llmRetry:      retry.New(),
		logger:        logger,
		MaxToolRounds: DefaultMaxToolRounds,
	}
}

// Process runs one already-claimed message to its terminal state. A nil
// return means the message completed (or was deliberately left processing
// because tool results are still unresolved); an error means the caller
// should mark it failed.
func (o *Orchestrator) Process(ctx context.Context, msg *model.Message) error {
	history := o.recon.Reconstruct(ctx, msg)
	turns := transcript.Repair(transcript.ToTurns(history))

	tools := o.listTools(ctx, msg.ConversationKey)
	offered := tools
	system := BuildSystemPrompt(time.Now())

	maxRounds := o.MaxToolRounds
	if maxRounds <= 0 {
		maxRounds = DefaultMaxToolRounds
	}

	parentID := msg.ID
	requestIDs := []string{msg.ID}
	rounds := 0
	var replyText string

	for {
		turns = o.budget.Apply(turns, offered)

		result, err := o.generate(ctx, model.GenerateRequest{
			System: system,
			Turns:  turns,
			Tools:  offered,
		})
		if err != nil {
			return fmt.Errorf("llm call failed: %w", err)
		}

		invocations := result.Invocations()
		if len(invocations) == 0 {
			replyText = strings.TrimSpace(result.Text())
			break
		}
		if rounds >= maxRounds {
			o.logger.Printf("[Agent] Message %s still requesting tools after %d rounds, answering in text", msg.ID, rounds)
			replyText = strings.TrimSpace(result.Text())
			break
		}
		rounds++

		request := &model.Message{
			ParentID:        parentID,
			ConversationKey: msg.ConversationKey,
			Direction:       model.DirectionOutgoing,
			Content:         strings.TrimSpace(result.Text()),
			ToolInvocations: invocations,
			Status:          model.StatusCompleted,
		}
		if err := o.store.Insert(ctx, request); err != nil {
			return fmt.Errorf("failed to record tool request: %w", err)
		}
		parentID = request.ID
		requestIDs = append(requestIDs, request.ID)

		resultTurn := model.Turn{Role: model.RoleUser}
		for _, inv := range invocations {
			if err := o.store.SetStatus(ctx, msg.ID, model.StatusWaitingForTool); err != nil {
				return fmt.Errorf("failed to mark waiting_for_tool: %w", err)
			}

			content, isErr := o.invokeTool(ctx, inv, msg.ConversationKey)

			toolResult := &model.Message{
				ParentID:        request.ID,
				ConversationKey: msg.ConversationKey,
				Direction:       model.DirectionIncoming,
				Content:         content,
				ToolResultFor:   inv.ID,
				Status:          model.StatusCompleted,
			}
			if err := o.store.Insert(ctx, toolResult); err != nil {
				return fmt.Errorf("failed to record result for %s: %w", inv.Name, err)
			}

			resultTurn.Blocks = append(resultTurn.Blocks, model.ResultBlock(model.ToolResult{
				InvocationID: inv.ID,
				Content:      content,
				IsError:      isErr,
			}))

			if err := o.store.SetStatus(ctx, msg.ID, model.StatusToolComplete); err != nil {
				return fmt.Errorf("failed to mark tool_complete: %w", err)
			}
		}

		turns = append(turns,
			model.Turn{Role: model.RoleAssistant, Blocks: result.Blocks},
			resultTurn,
		)

		if len(invocations) > 1 {
			offered = narrowTools(offered, invocations)
		}
		if rounds == maxRounds {
			o.logger.Printf("[Agent] Tool round limit reached for message %s, next call offers no tools", msg.ID)
			offered = nil
		}
	}

	if replyText == "" {
		o.logger.Printf("[Agent] Message %s produced no reply text", msg.ID)
	} else {
		reply := &model.Message{
			ParentID:        parentID,
			ConversationKey: msg.ConversationKey,
			Direction:       model.DirectionOutgoing,
			Content:         replyText,
			Status:          model.StatusCompleted,
		}
		if err := o.store.Insert(ctx, reply); err != nil {
			return fmt.Errorf("failed to record reply: %w", err)
		}

		if err := o.notifier.Send(ctx, msg.ConversationKey, replyText); err != nil {
			o.logger.Printf("[Agent] Reply delivery to %s failed: %v", msg.ConversationKey, err)
		}
	}

	if n := o.unresolvedResults(ctx, requestIDs); n > 0 {
		o.logger.Printf("[Agent] Message %s has %d unresolved tool results, leaving it processing", msg.ID, n)
		return nil
	}

	if err := o.store.SetStatus(ctx, msg.ID, model.StatusCompleted); err != nil {
		return fmt.Errorf("failed to mark completed: %w", err)
	}
	return nil
}

// generate calls the provider with bounded retries on transient failures.
func (o *Orchestrator) generate(ctx context.Context, req model.GenerateRequest) (*model.GenerateResult, error) {
	var result *model.GenerateResult
	err := o.llmRetry.Do(ctx, func(ctx context.Context) error {
		r, err := o.provider.Generate(ctx, req)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	return result, err
}

// listTools fetches the tool set for this cycle. A directory failure degrades
// to an empty set rather than failing the message; the model then answers
// from conversation context alone.
func (o *Orchestrator) listTools(ctx context.Context, callerIdentity string) []mcptypes.Tool {
	if o.directory == nil {
		return nil
	}
	tools, err := o.directory.ListTools(ctx, mcp.ListOptions{CallerIdentity: callerIdentity})
	if err != nil {
		o.logger.Printf("[Agent] Tool listing failed, continuing without tools: %v", err)
		return nil
	}
	return tools
}

// invokeTool runs a single invocation. Failures never abort the message:
// the error text becomes the result content so the model can tell the guest
// what went wrong.
func (o *Orchestrator) invokeTool(ctx context.Context, inv model.ToolInvocation, callerIdentity string) (content string, isError bool) {
	o.logger.Printf("[Agent] Invoking tool %s", inv.Name)

	if o.directory == nil {
		return fmt.Sprintf("Tool %s failed: no tool directory configured", inv.Name), true
	}

	result, err := o.directory.Invoke(ctx, inv.Name, inv.Arguments, callerIdentity)
	if err != nil {
		o.logger.Printf("[Agent] Tool %s failed: %v", inv.Name, err)
		return fmt.Sprintf("Tool %s failed: %v", inv.Name, err), true
	}

	text := mcp.ResultText(result)
	if result.IsError {
		o.logger.Printf("[Agent] Tool %s returned an error result", inv.Name)
		return text, true
	}
	return text, false
}

// unresolvedResults counts tool-result children of this cycle's messages that
// have not reached a terminal status. External writers create results as
// pending; one still in flight means the transcript is incomplete and the
// seed message must stay processing for a later pass.
func (o *Orchestrator) unresolvedResults(ctx context.Context, parentIDs []string) int {
	count := 0
	for _, id := range parentIDs {
		children, err := o.store.GetChildren(ctx, id)
		if err != nil {
			o.logger.Printf("[Agent] Could not check children of %s: %v", id, err)
			continue
		}
		for i := range children {
			if children[i].IsToolResult() && !children[i].Status.Terminal() {
				count++
			}
		}
	}
	return count
}

// narrowTools cuts the offered set down to the descriptors of the tools just
// used, so a multi-tool reply cannot fan out across the whole catalog on the
// follow-up call. When none of the used names appear in the listing the full
// set is kept.
func narrowTools(tools []mcptypes.Tool, invocations []model.ToolInvocation) []mcptypes.Tool {
	used := make(map[string]bool, len(invocations))
	for _, inv := range invocations {
		used[inv.Name] = true
	}

	var narrowed []mcptypes.Tool
	for _, tool := range tools {
		if used[tool.Name] {
			narrowed = append(narrowed, tool)
		}
	}
	if len(narrowed) == 0 {
		return tools
	}
	return narrowed
}
