package ollama

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
)

// Client wraps the official Ollama API client with the small surface the
// rest of the application needs.
type Client struct {
	client  *api.Client
	model   string
	baseURL string
}

// StreamCallback receives each streamed chunk as it arrives. Returning an
// error aborts the stream.
type StreamCallback func(chunk string, toolCalls []api.ToolCall) error

func NewClient(baseURL, model string) (*Client, error) {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if model == "" {
		model = "llama3.1:latest"
	}

	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid Ollama URL: %w", err)
	}

	return &Client{
		client:  api.NewClient(u, http.DefaultClient),
		model:   model,
		baseURL: baseURL,
	}, nil
}

// Chat streams a completion for the given conversation. tools may be nil.
// The returned response is the final frame with Done set, which carries
// DoneReason and the eval metrics.
func (c *Client) Chat(ctx context.Context, messages []api.Message, tools []api.Tool, callback StreamCallback) (*api.ChatResponse, error) {
	stream := true
	req := &api.ChatRequest{
		Model:    c.model,
		Messages: messages,
		Tools:    tools,
		Stream:   &stream,
	}

	var final api.ChatResponse
	err := c.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		if resp.Done {
			final = resp
		}
		if callback != nil {
			return callback(resp.Message.Content, resp.Message.ToolCalls)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &final, nil
}

// ModelInfo describes one selectable model, normalized across providers.
type ModelInfo struct {
	Name         string // display name, may be stripped of a vendor prefix
	Size         int64
	Provider     string // "ollama", "openrouter", "anthropic", "openai"
	InternalName string // exact name the provider API expects
}

func (c *Client) ListModels(ctx context.Context) ([]ModelInfo, error) {
	resp, err := c.client.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list models: %w", err)
	}

	models := make([]ModelInfo, len(resp.Models))
	for i, m := range resp.Models {
		models[i] = ModelInfo{
			Name:         m.Name,
			Size:         m.Size,
			Provider:     "ollama",
			InternalName: m.Name,
		}
	}
	return models, nil
}

func (c *Client) SetModel(model string) {
	c.model = model
}

func (c *Client) GetModel() string {
	return c.model
}

// Ping does a cheap List call to confirm the server answers at all.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := c.client.List(ctx)
	return err
}

// toolSupport is a curated prefix table of model families and whether the
// Ollama build of each handles the tools field. Longer prefixes come first
// so llama3.2 is not swallowed by the llama3 entry.
var toolSupport = []struct {
	prefix string
	tools  bool
}{
	{"llama3.3", true},
	{"llama3.2", true},
	{"llama3.1", true},
	{"llama3-gradient", false},
	{"command-r", true},
	{"qwen", true},
	{"mistral", true},
	{"nemotron", true},
	{"granite3", true},
	{"codellama", false},
	{"llama3", false},
	{"deepseek", false},
	{"phi", false},
	{"gemma", false},
}

// SupportsToolCalling reports whether the active model is known to handle
// the tools field.
func (c *Client) SupportsToolCalling() bool {
	return ModelSupportsToolCalling(c.model)
}

// ModelSupportsToolCalling checks a model name against the curated table.
// Unknown families report false; advertising tools to a model that cannot
// use them makes it echo the schema back as text.
func ModelSupportsToolCalling(modelName string) bool {
	modelName = strings.ToLower(modelName)
	for _, entry := range toolSupport {
		if strings.HasPrefix(modelName, entry.prefix) {
			return entry.tools
		}
	}
	return false
}
