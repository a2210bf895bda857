package provider

import (
	"context"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"outfitter/model"
	"outfitter/ollama"
)

// OpenAIProvider implements the Provider interface using OpenAI's official API.
// It uses the official OpenAI Go SDK for direct OpenAI API access.
type OpenAIProvider struct {
	client  openai.Client
	model   string
	baseURL string
	apiKey  string
}

// NewOpenAIProvider creates a new OpenAI provider instance.
//
// Parameters:
//   - baseURL: OpenAI API base URL (default: "https://api.openai.com/v1")
//   - apiKey: OpenAI API key (required)
//   - model: Initial model to use (default: "gpt-4o-mini")
//
// Returns an error if the API key is missing.
func NewOpenAIProvider(baseURL, apiKey, model string) (*OpenAIProvider, error) {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}
	if model == "" {
		model = "gpt-4o-mini" // Default to affordable model
	}

	client := openai.NewClient(
		option.WithBaseURL(baseURL),
		option.WithAPIKey(apiKey),
	)

	return &OpenAIProvider{
		client:  client,
		model:   model,
		baseURL: baseURL,
		apiKey:  apiKey,
	}, nil
}

// Generate implements model.Provider.Generate. The request streams internally
// and accumulates to a complete chat completion before returning.
func (p *OpenAIProvider) Generate(ctx context.Context, req model.GenerateRequest) (*model.GenerateResult, error) {
	messages := ConvertToOpenAIMessages(req.System, req.Turns)

	// Prepend tool instructions if tools present
	if len(req.Tools) > 0 {
		instruction := openai.SystemMessage(buildOpenAIToolInstructions(req.Tools))
		messages = append([]openai.ChatCompletionMessageParamUnion{instruction}, messages...)
	}

	params := openai.ChatCompletionNewParams{
		Messages: messages,
		Model:    openai.ChatModel(p.model),
	}
	if len(req.Tools) > 0 {
		params.Tools = ToOpenAITools(req.Tools)
	}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(req.MaxTokens)
	}
	if req.Temperature > 0 {
		params.Temperature = openai.Float(req.Temperature)
	}

	stream := p.client.Chat.Completions.NewStreaming(ctx, params)
	acc := openai.ChatCompletionAccumulator{}

	for stream.Next() {
		acc.AddChunk(stream.Current())
	}
	if err := stream.Err(); err != nil {
		return nil, fmt.Errorf("OpenAI streaming error: %w", err)
	}

	return buildOpenAIResult(acc.ChatCompletion, nil), nil
}

// buildOpenAIResult converts an accumulated chat completion to a
// GenerateResult. convertName rewrites tool names when the upstream required
// mangled names (OpenRouter); nil means names pass through.
func buildOpenAIResult(completion openai.ChatCompletion, convertName func(string) string) *model.GenerateResult {
	result := &model.GenerateResult{
		InputUnits:  completion.Usage.PromptTokens,
		OutputUnits: completion.Usage.CompletionTokens,
	}

	if len(completion.Choices) == 0 {
		return result
	}
	choice := completion.Choices[0]
	result.StopReason = string(choice.FinishReason)

	text := choice.Message.Content
	invocations := make([]model.ToolInvocation, 0, len(choice.Message.ToolCalls))
	for i, tc := range choice.Message.ToolCalls {
		id := tc.ID
		if id == "" {
			id = fmt.Sprintf("call_%d", i+1)
		}
		name := tc.Function.Name
		if convertName != nil {
			name = convertName(name)
		}
		invocations = append(invocations, model.ToolInvocation{
			ID:        id,
			Name:      name,
			Arguments: ParseToolArguments(tc.Function.Arguments),
		})
	}

	// Safety check: detect leaked tool calls if none came via the API
	if len(invocations) == 0 {
		leaked := ParseLeakedJSONToolCalls(text)
		leaked = append(leaked, ParseLeakedXMLToolCalls(text)...)
		if len(leaked) > 0 {
			if convertName != nil {
				for i := range leaked {
					leaked[i].Name = convertName(leaked[i].Name)
				}
			}
			invocations = leaked
			text = CleanLeakedToolCalls(text)
		}
	}

	if text != "" {
		result.Blocks = append(result.Blocks, model.TextBlock(text))
	}
	for _, inv := range invocations {
		result.Blocks = append(result.Blocks, model.InvocationBlock(inv))
	}

	return result
}

// ListModels implements Provider.ListModels.
func (p *OpenAIProvider) ListModels(ctx context.Context) ([]ollama.ModelInfo, error) {
	modelsPage, err := p.client.Models.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list OpenAI models: %w", err)
	}

	result := make([]ollama.ModelInfo, 0, len(modelsPage.Data))
	for _, m := range modelsPage.Data {
		result = append(result, ollama.ModelInfo{
			Name:         m.ID,     // OpenAI models don't have vendor prefixes
			InternalName: m.ID,     // Same as display name
			Size:         0,        // OpenAI doesn't provide size info
			Provider:     "openai", // Must match provider ID
		})
	}

	return result, nil
}

// GetModel implements Provider.GetModel.
// Returns the full model name for API calls.
func (p *OpenAIProvider) GetModel() string {
	return p.model
}

// GetDisplayName implements Provider.GetDisplayName.
// Returns the model name for display (same as GetModel for OpenAI).
func (p *OpenAIProvider) GetDisplayName() string {
	return p.model
}

// SetModel implements Provider.SetModel.
func (p *OpenAIProvider) SetModel(model string) {
	p.model = model
}

// Ping implements Provider.Ping by attempting to list models.
func (p *OpenAIProvider) Ping(ctx context.Context) error {
	_, err := p.client.Models.List(ctx)
	if err != nil {
		return fmt.Errorf("OpenAI ping failed: %w", err)
	}
	return nil
}
