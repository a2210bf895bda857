package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/ollama/ollama/api"

	"outfitter/model"
	"outfitter/ollama"
)

// OllamaProvider wraps the existing ollama.Client to implement the Provider interface.
//
// This provider handles all type conversions between provider-agnostic types
// and Ollama's specific API types: model.Turn to api.Message, directory tool
// descriptors to api.Tool, and api.ToolCall back to model.ToolInvocation.
type OllamaProvider struct {
	client *ollama.Client
}

// NewOllamaProvider creates a new Ollama provider instance.
//
// Parameters:
//   - baseURL: The Ollama server URL (e.g., "http://localhost:11434").
//     If empty, defaults to "http://localhost:11434".
//   - model: The model name to use (e.g., "llama3.1:latest").
//     If empty, defaults to "llama3.1:latest".
//
// Returns an error if the baseURL is invalid or the Ollama client cannot be created.
func NewOllamaProvider(baseURL, model string) (*OllamaProvider, error) {
	client, err := ollama.NewClient(baseURL, model)
	if err != nil {
		return nil, fmt.Errorf("failed to create Ollama client: %w", err)
	}

	return &OllamaProvider{
		client: client,
	}, nil
}

// Generate implements model.Provider.Generate. Chunks stream through the
// client callback and are collected into a single result.
//
// Tools are only advertised when the active model family is known to support
// tool calling; smaller local models otherwise echo the tool schema back as
// text. Models that leak tool calls as text get them recovered by the leak
// parsers either way.
func (p *OllamaProvider) Generate(ctx context.Context, req model.GenerateRequest) (*model.GenerateResult, error) {
	messages := ConvertToOllamaMessages(req.System, req.Turns)

	var ollamaTools []api.Tool
	if len(req.Tools) > 0 && p.client.SupportsToolCalling() {
		ollamaTools = ToOllamaTools(req.Tools)
	}

	var contentBuilder strings.Builder
	var calls []api.ToolCall
	callback := func(chunk string, toolCalls []api.ToolCall) error {
		contentBuilder.WriteString(chunk)
		calls = append(calls, toolCalls...)
		return nil
	}

	final, err := p.client.Chat(ctx, messages, ollamaTools, callback)
	if err != nil {
		return nil, fmt.Errorf("Ollama chat failed: %w", err)
	}

	text := contentBuilder.String()
	invocations := ConvertToProviderInvocations(calls)

	// Safety check: detect leaked tool calls if none came via the API
	if len(invocations) == 0 {
		leaked := ParseLeakedJSONToolCalls(text)
		leaked = append(leaked, ParseLeakedXMLToolCalls(text)...)
		if len(leaked) > 0 {
			invocations = leaked
			text = CleanLeakedToolCalls(text)
		}
	}

	result := &model.GenerateResult{}
	if text != "" {
		result.Blocks = append(result.Blocks, model.TextBlock(text))
	}
	for _, inv := range invocations {
		result.Blocks = append(result.Blocks, model.InvocationBlock(inv))
	}
	if final != nil {
		result.StopReason = final.DoneReason
		result.InputUnits = int64(final.Metrics.PromptEvalCount)
		result.OutputUnits = int64(final.Metrics.EvalCount)
	}

	return result, nil
}

// ListModels implements Provider.ListModels (direct passthrough).
//
// Returns a list of all models available on the Ollama server.
func (p *OllamaProvider) ListModels(ctx context.Context) ([]ollama.ModelInfo, error) {
	return p.client.ListModels(ctx)
}

// GetModel implements Provider.GetModel (direct passthrough).
func (p *OllamaProvider) GetModel() string {
	return p.client.GetModel()
}

// GetDisplayName implements Provider.GetDisplayName.
//
// For Ollama, the display name is the same as the model name (no vendor prefix).
func (p *OllamaProvider) GetDisplayName() string {
	return p.client.GetModel()
}

// SetModel implements Provider.SetModel (direct passthrough).
//
// Changes the active model for subsequent chat operations.
func (p *OllamaProvider) SetModel(model string) {
	p.client.SetModel(model)
}

// Ping implements Provider.Ping (direct passthrough).
//
// Checks if the Ollama server is reachable by making a lightweight API call.
// Returns an error if the server is not reachable or times out.
func (p *OllamaProvider) Ping(ctx context.Context) error {
	return p.client.Ping(ctx)
}
