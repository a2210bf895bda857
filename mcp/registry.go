package mcp

import (
	"context"
	"fmt"
	"sort"
	"sync"

	mcptypes "github.com/mark3labs/mcp-go/mcp"

	"outfitter/config"
)

// Handler executes a locally registered tool and returns its text output.
type Handler func(ctx context.Context, args map[string]any) (string, error)

type localTool struct {
	descriptor mcptypes.Tool
	handler    Handler
}

// Registry holds tools served in-process rather than by the remote
// directory. Listings merge them ahead of remote tools; Dispatch runs them
// without caching so side effects fire on every invocation.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]localTool
}

func NewLocalRegistry() *Registry {
	return &Registry{
		tools: make(map[string]localTool),
	}
}

// Register adds a tool under its descriptor name, replacing any previous
// registration with the same name.
func (r *Registry) Register(descriptor mcptypes.Tool, handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[descriptor.Name] = localTool{descriptor: descriptor, handler: handler}
}

// Tools returns the registered descriptors sorted by name.
func (r *Registry) Tools() []mcptypes.Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]mcptypes.Tool, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t.descriptor)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Dispatch runs the named tool if it is registered locally. handled reports
// whether the name matched; callers fall through to the remote directory
// when it did not.
func (r *Registry) Dispatch(ctx context.Context, name string, args map[string]any) (result *mcptypes.CallToolResult, handled bool, err error) {
	r.mu.RLock()
	t, ok := r.tools[name]
	r.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}

	if config.DebugLog != nil {
		config.DebugLog.Printf("[Registry] Dispatching local tool %s", name)
	}

	if err := ValidateArguments(t.descriptor, args); err != nil {
		return nil, true, err
	}

	text, err := t.handler(ctx, args)
	if err != nil {
		return nil, true, fmt.Errorf("local tool %s: %w", name, err)
	}

	return mcptypes.NewToolResultText(text), true, nil
}
