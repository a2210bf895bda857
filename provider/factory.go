package provider

import (
	"fmt"

	"outfitter/model"
)

var providerTypesByID = map[string]ProviderType{
	"ollama":     ProviderTypeOllama,
	"openrouter": ProviderTypeOpenRouter,
	"openai":     ProviderTypeOpenAI,
	"anthropic":  ProviderTypeAnthropic,
}

// NewProvider dispatches to the constructor for cfg.Type. Construction can
// fail on a bad base URL or a missing API key; the error carries enough to
// log without retrying.
func NewProvider(cfg Config) (model.Provider, error) {
	switch cfg.Type {
	case ProviderTypeOllama:
		return NewOllamaProvider(cfg.BaseURL, cfg.Model)
	case ProviderTypeOpenRouter:
		return NewOpenRouterProvider(cfg.BaseURL, cfg.APIKey, cfg.Model)
	case ProviderTypeOpenAI:
		return NewOpenAIProvider(cfg.BaseURL, cfg.APIKey, cfg.Model)
	case ProviderTypeAnthropic:
		return NewAnthropicProvider(cfg.BaseURL, cfg.APIKey, cfg.Model)
	default:
		return nil, fmt.Errorf("unknown provider type: %s", cfg.Type)
	}
}

// MapProviderIDToType converts a config-file provider ID into the factory's
// ProviderType. Unknown IDs pass through unchanged so NewProvider can report
// them in its error.
func MapProviderIDToType(id string) ProviderType {
	if t, ok := providerTypesByID[id]; ok {
		return t
	}
	return ProviderType(id)
}
