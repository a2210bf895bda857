// Package provider implements LLM provider integrations for the concierge
// worker.
//
// The worker supports multiple LLM providers (Ollama, OpenRouter, OpenAI,
// Anthropic) through the common model.Provider interface. This keeps the
// orchestration layer provider-agnostic: it builds one GenerateRequest from
// the repaired conversation and receives one GenerateResult back, regardless
// of which API served it.
//
// # Why Provider Abstraction?
//
// The provider abstraction exists to:
//   - Enable multi-provider support (local Ollama, cloud APIs)
//   - Isolate provider-specific wire types from the worker's core types
//   - Allow easy testing with mock providers
//   - Make adding new providers straightforward (just implement the interface)
//
// # Type Conversions
//
// The provider layer handles all type conversions between the worker's
// provider-agnostic types and provider-specific types. See the conversion
// functions in conversions.go and tools.go:
//   - ConvertToAnthropicMessages / ConvertToOpenAIMessages / ConvertToOllamaMessages
//   - ConvertToProviderInvocations / ConvertFromProviderInvocations
//   - ToAnthropicTools / ToOpenAITools / ToOllamaTools
//
// # Usage
//
//	cfg := provider.Config{
//	    Type:    provider.ProviderTypeOllama,
//	    BaseURL: "http://localhost:11434",
//	    Model:   "llama3.1",
//	}
//	p, err := provider.NewProvider(cfg)
//	if err != nil {
//	    // handle error
//	}
//	result, err := p.Generate(ctx, req)
package provider

// Note: The Provider interface is defined in the model package
// (model/provider.go) to avoid import cycles. This package implements model.Provider.

// ProviderType identifies the provider implementation.
type ProviderType string

const (
	ProviderTypeOllama     ProviderType = "ollama"
	ProviderTypeOpenRouter ProviderType = "openrouter"
	ProviderTypeOpenAI     ProviderType = "openai"
	ProviderTypeAnthropic  ProviderType = "anthropic"
)

// Config holds provider-specific configuration.
type Config struct {
	Type    ProviderType
	BaseURL string
	Model   string
	APIKey  string // For cloud providers (unused for Ollama)
}
