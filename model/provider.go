package model

import (
	"context"

	mcptypes "github.com/mark3labs/mcp-go/mcp"

	"outfitter/ollama"
)

// GenerateRequest carries one complete LLM call: an optional system prompt,
// the repaired and budgeted turn sequence, and the tool set advertised for
// this call. Tools use the directory's native descriptor type; each provider
// converts them to its own wire format.
type GenerateRequest struct {
	System      string
	Turns       []Turn
	Tools       []mcptypes.Tool
	MaxTokens   int64
	Temperature float64
}

// GenerateResult is the assistant's reply as an ordered sequence of content
// blocks (text and/or tool invocations), plus accounting the caller may log.
type GenerateResult struct {
	Blocks      []Block
	StopReason  string
	InputUnits  int64
	OutputUnits int64
}

// Invocations returns the tool invocations requested by the reply, in order.
func (r *GenerateResult) Invocations() []ToolInvocation {
	var out []ToolInvocation
	for _, b := range r.Blocks {
		if b.Type == BlockTypeToolInvocation && b.Invocation != nil {
			out = append(out, *b.Invocation)
		}
	}
	return out
}

// Text returns the concatenated text blocks of the reply.
func (r *GenerateResult) Text() string {
	var out string
	for _, b := range r.Blocks {
		if b.Type == BlockTypeText {
			out += b.Text
		}
	}
	return out
}

// Provider abstracts LLM provider implementations (Anthropic, OpenAI,
// OpenRouter, Ollama) using provider-agnostic types from the model layer.
//
// This interface is defined in the model package (not provider package) to
// avoid import cycles: provider implementations can import model, and model
// can use the Provider interface without importing the provider package.
type Provider interface {
	// Generate sends one complete request and returns the full reply.
	// Implementations may stream internally but always accumulate to a
	// finished result; the worker has no use for partial output.
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error)

	// ListModels returns available models for this provider.
	ListModels(ctx context.Context) ([]ollama.ModelInfo, error)

	// GetModel returns the currently selected model name (InternalName for API calls).
	// For OpenRouter, this returns the full name with vendor prefix (e.g., "qwen/qwen3-coder:free").
	GetModel() string

	// GetDisplayName returns the model name formatted for display.
	// For OpenRouter, this strips the vendor prefix (e.g., "qwen/qwen3-coder:free" → "qwen3-coder:free").
	GetDisplayName() string

	// SetModel changes the active model.
	SetModel(model string)

	// Ping checks if the provider is reachable.
	Ping(ctx context.Context) error
}
