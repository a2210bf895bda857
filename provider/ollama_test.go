package provider

import (
	"testing"

	"outfitter/model"
)

// TestProvidersImplementInterface is a compile-time check that every provider
// implements the Provider interface. This test will fail to compile if the
// interface is not satisfied.
func TestProvidersImplementInterface(t *testing.T) {
	var _ model.Provider = (*OllamaProvider)(nil)
	var _ model.Provider = (*OpenAIProvider)(nil)
	var _ model.Provider = (*OpenRouterProvider)(nil)
	var _ model.Provider = (*AnthropicProvider)(nil)
}

// Note: Integration tests that require a running Ollama server live outside
// this package. The interface contract tests in interface_test.go exercise the
// same contract against the mock.
