package provider

import (
	"encoding/json"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/google/uuid"
	"github.com/ollama/ollama/api"
	"github.com/openai/openai-go/v3"

	"outfitter/model"
)

// ConvertToAnthropicMessages converts repaired conversation turns to Anthropic
// MessageParam format.
//
// Assistant tool invocations are replayed as tool_use blocks and user-carried
// tool results as tool_result blocks, so the API sees every invocation paired
// with its result. Block order within a turn is preserved. The system prompt
// is not part of the message list for Anthropic; callers pass it separately on
// the request.
//
// Example:
//
//	turns := []model.Turn{
//	    model.NewTextTurn(model.RoleUser, "What's the weather in Lisbon?"),
//	}
//	msgs := ConvertToAnthropicMessages(turns)
//	// msgs[0] is a user message with one text block
func ConvertToAnthropicMessages(turns []model.Turn) []anthropic.MessageParam {
	result := make([]anthropic.MessageParam, 0, len(turns))

	for _, turn := range turns {
		blocks := make([]anthropic.ContentBlockParamUnion, 0, len(turn.Blocks))
		for _, b := range turn.Blocks {
			switch b.Type {
			case model.BlockTypeText:
				blocks = append(blocks, anthropic.NewTextBlock(b.Text))
			case model.BlockTypeToolInvocation:
				blocks = append(blocks, anthropic.ContentBlockParamUnion{
					OfToolUse: &anthropic.ToolUseBlockParam{
						ID:    b.Invocation.ID,
						Input: b.Invocation.Arguments,
						Name:  b.Invocation.Name,
					},
				})
			case model.BlockTypeToolResult:
				blocks = append(blocks, anthropic.NewToolResultBlock(
					b.Result.InvocationID, b.Result.Content, b.Result.IsError))
			}
		}
		if len(blocks) == 0 {
			continue
		}

		switch turn.Role {
		case model.RoleAssistant:
			result = append(result, anthropic.NewAssistantMessage(blocks...))
		default:
			result = append(result, anthropic.NewUserMessage(blocks...))
		}
	}

	return result
}

// ConvertToOpenAIMessages converts conversation turns to OpenAI chat
// completion format. OpenRouter shares this format.
//
// OpenAI models tool interactions differently from Anthropic: tool calls ride
// on the assistant message itself, and each result is a separate message with
// role "tool" that must directly follow the assistant message carrying the
// matching call. A user turn that mixes results and text therefore expands to
// the tool messages first and a plain user message after.
func ConvertToOpenAIMessages(system string, turns []model.Turn) []openai.ChatCompletionMessageParamUnion {
	result := make([]openai.ChatCompletionMessageParamUnion, 0, len(turns)+1)

	if system != "" {
		result = append(result, openai.SystemMessage(system))
	}

	for _, turn := range turns {
		switch turn.Role {
		case model.RoleAssistant:
			invocations := turn.Invocations()
			if len(invocations) == 0 {
				if text := turn.Text(); text != "" {
					result = append(result, openai.AssistantMessage(text))
				}
				continue
			}

			assistant := openai.ChatCompletionAssistantMessageParam{
				ToolCalls: make([]openai.ChatCompletionMessageToolCallUnionParam, 0, len(invocations)),
			}
			if text := turn.Text(); text != "" {
				assistant.Content = openai.ChatCompletionAssistantMessageParamContentUnion{
					OfString: openai.String(text),
				}
			}
			for _, inv := range invocations {
				assistant.ToolCalls = append(assistant.ToolCalls, openai.ChatCompletionMessageToolCallUnionParam{
					OfFunction: &openai.ChatCompletionMessageFunctionToolCallParam{
						ID: inv.ID,
						Function: openai.ChatCompletionMessageFunctionToolCallFunctionParam{
							Name:      inv.Name,
							Arguments: encodeToolArguments(inv.Arguments),
						},
					},
				})
			}
			result = append(result, openai.ChatCompletionMessageParamUnion{OfAssistant: &assistant})
		default:
			for _, res := range turn.Results() {
				result = append(result, openai.ToolMessage(res.Content, res.InvocationID))
			}
			if text := turn.Text(); text != "" {
				result = append(result, openai.UserMessage(text))
			}
		}
	}

	return result
}

// ConvertToOllamaMessages converts conversation turns to Ollama api.Message
// format. Like OpenAI, Ollama carries tool calls on the assistant message and
// results as separate role "tool" messages.
func ConvertToOllamaMessages(system string, turns []model.Turn) []api.Message {
	result := make([]api.Message, 0, len(turns)+1)

	if system != "" {
		result = append(result, api.Message{Role: "system", Content: system})
	}

	for _, turn := range turns {
		switch turn.Role {
		case model.RoleAssistant:
			msg := api.Message{Role: "assistant", Content: turn.Text()}
			if invs := turn.Invocations(); len(invs) > 0 {
				msg.ToolCalls = ConvertFromProviderInvocations(invs)
			}
			if msg.Content == "" && len(msg.ToolCalls) == 0 {
				continue
			}
			result = append(result, msg)
		default:
			for _, res := range turn.Results() {
				result = append(result, api.Message{Role: "tool", Content: res.Content})
			}
			if text := turn.Text(); text != "" {
				result = append(result, api.Message{Role: "user", Content: text})
			}
		}
	}

	return result
}

// ParseToolArguments parses JSON arguments string into a map.
// Used by OpenAI and OpenRouter providers for tool call parsing.
func ParseToolArguments(argsJSON string) map[string]any {
	var args map[string]any
	if err := json.Unmarshal([]byte(argsJSON), &args); err != nil {
		// If parsing fails, return empty map
		return make(map[string]any)
	}
	return args
}

// encodeToolArguments renders an argument map as the JSON string OpenAI
// expects when replaying a past tool call. Nil or unmarshalable arguments
// become an empty object rather than failing the whole request.
func encodeToolArguments(args map[string]any) string {
	if len(args) == 0 {
		return "{}"
	}
	data, err := json.Marshal(args)
	if err != nil {
		return "{}"
	}
	return string(data)
}

// ConvertToProviderInvocations converts Ollama api.ToolCall to
// provider-agnostic model.ToolInvocation.
//
// Ollama tool calls carry no identifier, so each invocation is assigned a
// fresh one; the identifier pairs the invocation with its eventual result in
// the persisted conversation.
//
// Returns nil if the input is nil or empty, maintaining the same nil
// semantics as the Ollama API.
//
// Example:
//
//	ollamaCalls := []api.ToolCall{
//	    {Function: api.ToolCallFunction{
//	        Name: "get_weather",
//	        Arguments: map[string]any{"city": "San Francisco"},
//	    }},
//	}
//	invocations := ConvertToProviderInvocations(ollamaCalls)
//	// invocations[0].Name == "get_weather"
func ConvertToProviderInvocations(ollamaCalls []api.ToolCall) []model.ToolInvocation {
	if len(ollamaCalls) == 0 {
		return nil
	}

	result := make([]model.ToolInvocation, len(ollamaCalls))
	for i, call := range ollamaCalls {
		result[i] = model.ToolInvocation{
			ID:        uuid.New().String(),
			Name:      call.Function.Name,
			Arguments: call.Function.Arguments,
		}
	}
	return result
}

// ConvertFromProviderInvocations converts provider-agnostic
// model.ToolInvocation to Ollama api.ToolCall. The identifier is dropped;
// Ollama has no field for it.
//
// Returns nil if the input is nil or empty, maintaining the same nil
// semantics.
func ConvertFromProviderInvocations(invocations []model.ToolInvocation) []api.ToolCall {
	if len(invocations) == 0 {
		return nil
	}

	result := make([]api.ToolCall, len(invocations))
	for i, inv := range invocations {
		result[i] = api.ToolCall{
			Function: api.ToolCallFunction{
				Name:      inv.Name,
				Arguments: inv.Arguments,
			},
		}
	}
	return result
}
