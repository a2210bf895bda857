package testutil

import (
	"context"

	"outfitter/model"
	"outfitter/ollama"
)

// MockProvider implements the model.Provider interface for testing
type MockProvider struct {
	// Configurable responses
	GenerateFunc   func(ctx context.Context, req model.GenerateRequest) (*model.GenerateResult, error)
	ListModelsFunc func(ctx context.Context) ([]ollama.ModelInfo, error)
	PingFunc       func(ctx context.Context) error

	// Requests records every GenerateRequest received, in order, so tests
	// can assert on the turns and tool sets the caller built.
	Requests []model.GenerateRequest

	// State
	currentModel string
}

// NewMockProvider creates a mock provider with default implementations
func NewMockProvider(modelName string) *MockProvider {
	mock := &MockProvider{
		currentModel: modelName,
	}
	mock.GenerateFunc = mock.defaultGenerate
	mock.ListModelsFunc = mock.defaultListModels
	mock.PingFunc = mock.defaultPing
	return mock
}

func (m *MockProvider) defaultGenerate(ctx context.Context, req model.GenerateRequest) (*model.GenerateResult, error) {
	// Default: a single text reply
	return &model.GenerateResult{
		Blocks:     []model.Block{model.TextBlock("Mock response")},
		StopReason: "end_turn",
	}, nil
}

func (m *MockProvider) defaultListModels(ctx context.Context) ([]ollama.ModelInfo, error) {
	return []ollama.ModelInfo{
		{Name: "mock-model-1", Size: 1000},
		{Name: "mock-model-2", Size: 2000},
	}, nil
}

func (m *MockProvider) defaultPing(ctx context.Context) error {
	return nil
}

func (m *MockProvider) Generate(ctx context.Context, req model.GenerateRequest) (*model.GenerateResult, error) {
	m.Requests = append(m.Requests, req)
	return m.GenerateFunc(ctx, req)
}

func (m *MockProvider) ListModels(ctx context.Context) ([]ollama.ModelInfo, error) {
	return m.ListModelsFunc(ctx)
}

func (m *MockProvider) GetModel() string {
	return m.currentModel
}

func (m *MockProvider) GetDisplayName() string {
	// Mock provider returns same value as GetModel (no prefix stripping)
	return m.currentModel
}

func (m *MockProvider) SetModel(model string) {
	m.currentModel = model
}

func (m *MockProvider) Ping(ctx context.Context) error {
	return m.PingFunc(ctx)
}
