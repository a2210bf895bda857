package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	mcptypes "github.com/mark3labs/mcp-go/mcp"

	"outfitter/config"
	"outfitter/retry"
)

// DirectorySession is the connection surface the Directory drives. *Session
// implements it; tests substitute fakes.
type DirectorySession interface {
	ListTools(ctx context.Context) ([]mcptypes.Tool, error)
	CallTool(ctx context.Context, name string, args map[string]any) (*mcptypes.CallToolResult, error)
	Reconnect(ctx context.Context) error
}

// ListOptions narrow a tool listing. Categories filter by substring match
// against tool name and description when the remote side does not filter
// itself. CallerIdentity is recorded for diagnostics; tenant scoping on the
// remote side rides the session's auth headers.
type ListOptions struct {
	Categories     []string
	CallerIdentity string
}

// Directory discovers and invokes capabilities. Locally registered tools are
// merged into listings and dispatched in-process, and attached plugin servers
// contribute their namespaced tools; everything else goes to the remote
// directory service with caching, bounded retries, session reconnection on
// connection-class failures, and tool-name recovery when a previously
// discovered name no longer resolves.
type Directory struct {
	session  DirectorySession
	registry *Registry
	cache    *ResultCache
	plugins  *Manager
	exec     *retry.Executor

	// IdentityArg is the top-level argument name the caller identity is
	// merged under before dispatch.
	IdentityArg string

	mu    sync.Mutex
	known map[string]mcptypes.Tool
}

// NewDirectory builds a Directory. registry and cache may be nil to disable
// local dispatch and result caching respectively; a nil session yields a
// local-only directory that lists and dispatches registry tools.
func NewDirectory(session DirectorySession, registry *Registry, cache *ResultCache) *Directory {
	return &Directory{
		session:     session,
		registry:    registry,
		cache:       cache,
		exec:        retry.New(),
		IdentityArg: "auth_token",
		known:       make(map[string]mcptypes.Tool),
	}
}

// AttachPlugins merges an operator plugin manager into the directory. Its
// namespaced tools appear in listings and route straight to the owning
// plugin on invocation.
func (d *Directory) AttachPlugins(m *Manager) {
	d.plugins = m
}

// ListTools returns the merged local, plugin and remote tool listing. Local
// tools shadow plugin and remote tools with the same name.
func (d *Directory) ListTools(ctx context.Context, opts ListOptions) ([]mcptypes.Tool, error) {
	if opts.CallerIdentity != "" && config.DebugLog != nil {
		config.DebugLog.Printf("[Directory] Listing tools for caller %s", opts.CallerIdentity)
	}

	var remote []mcptypes.Tool
	if d.session != nil {
		err := d.do(ctx, func(ctx context.Context) error {
			tools, err := d.session.ListTools(ctx)
			if err != nil {
				return err
			}
			remote = tools
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	var merged []mcptypes.Tool
	seen := make(map[string]bool)
	if d.registry != nil {
		for _, tool := range d.registry.Tools() {
			merged = append(merged, tool)
			seen[tool.Name] = true
		}
	}
	if d.plugins != nil {
		pluginTools, err := d.plugins.GetTools(ctx)
		if err != nil && config.DebugLog != nil {
			config.DebugLog.Printf("[Directory] Plugin tool listing failed: %v", err)
		}
		for _, tool := range pluginTools {
			if seen[tool.Name] {
				continue
			}
			merged = append(merged, tool)
			seen[tool.Name] = true
		}
	}
	for _, tool := range remote {
		if seen[tool.Name] {
			continue
		}
		merged = append(merged, tool)
	}

	d.rememberTools(merged)

	return filterByCategory(merged, opts.Categories), nil
}

// Invoke dispatches a tool invocation and returns its result. Plugin-owned
// names go straight to their plugin with the arguments untouched; plugin
// servers define their own schemas and know nothing of caller identity. For
// everything else the caller identity is merged into the top-level arguments
// first; a nested identity under a "context" wrapper is hoisted out and the
// emptied wrapper dropped.
func (d *Directory) Invoke(ctx context.Context, name string, args map[string]any, callerIdentity string) (*mcptypes.CallToolResult, error) {
	if d.plugins != nil && d.plugins.OwnsTool(name) {
		return d.plugins.CallTool(ctx, name, args)
	}

	args = NormalizeArguments(args, d.IdentityArg, callerIdentity)

	if d.registry != nil {
		if result, handled, err := d.registry.Dispatch(ctx, name, args); handled {
			return result, err
		}
	}

	if d.cache != nil {
		if cached, ok := d.cache.Get(name, args); ok {
			if config.DebugLog != nil {
				config.DebugLog.Printf("[Directory] Cache hit for %s", name)
			}
			return cached, nil
		}
	}

	if tool, ok := d.knownTool(name); ok {
		if err := ValidateArguments(tool, args); err != nil {
			return nil, err
		}
	}

	result, err := d.call(ctx, name, args)
	if err != nil && isToolNotFound(err) {
		result, err = d.recoverToolName(ctx, name, args, err)
	}
	if err != nil {
		return nil, err
	}

	if d.cache != nil {
		d.cache.Put(name, args, result)
	}

	return result, nil
}

func (d *Directory) call(ctx context.Context, name string, args map[string]any) (*mcptypes.CallToolResult, error) {
	if d.session == nil {
		return nil, fmt.Errorf("tool %s: no directory session", name)
	}

	var result *mcptypes.CallToolResult
	err := d.do(ctx, func(ctx context.Context) error {
		r, err := d.session.CallTool(ctx, name, args)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	return result, err
}

// do wraps an operation with the retry policy. A connection-class failure
// triggers a session reconnect before the next attempt.
func (d *Directory) do(ctx context.Context, op func(context.Context) error) error {
	exec := *d.exec
	exec.OnRetry = func(retryNum int, err error, wait time.Duration) {
		if config.DebugLog != nil {
			config.DebugLog.Printf("[Directory] Retry %d after %v: %v", retryNum, wait, err)
		}
		if retry.IsConnectionError(err) {
			if rerr := d.session.Reconnect(ctx); rerr != nil && config.DebugLog != nil {
				config.DebugLog.Printf("[Directory] Reconnect failed: %v", rerr)
			}
		}
	}
	return exec.Do(ctx, op)
}

// recoverToolName handles "tool not found" failures: re-list, match the
// stale name case- and whitespace-insensitively against the fresh listing,
// and retry once with the corrected identifier. With no match the retry uses
// a freshly generated identifier, leaving the final word to the service.
func (d *Directory) recoverToolName(ctx context.Context, name string, args map[string]any, orig error) (*mcptypes.CallToolResult, error) {
	if config.DebugLog != nil {
		config.DebugLog.Printf("[Directory] Tool %s not found, attempting name recovery", name)
	}

	var tools []mcptypes.Tool
	err := d.do(ctx, func(ctx context.Context) error {
		listed, err := d.session.ListTools(ctx)
		if err != nil {
			return err
		}
		tools = listed
		return nil
	})
	if err != nil {
		return nil, orig
	}

	d.rememberTools(tools)

	corrected := matchToolName(name, tools)
	switch {
	case corrected == "":
		corrected = uuid.New().String()
		if config.DebugLog != nil {
			config.DebugLog.Printf("[Directory] No match for %s, retrying with fallback identifier %s", name, corrected)
		}
	default:
		if config.DebugLog != nil {
			config.DebugLog.Printf("[Directory] Recovered tool name %s -> %s", name, corrected)
		}
	}

	return d.call(ctx, corrected, args)
}

func (d *Directory) rememberTools(tools []mcptypes.Tool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, tool := range tools {
		d.known[tool.Name] = tool
	}
}

func (d *Directory) knownTool(name string) (mcptypes.Tool, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	tool, ok := d.known[name]
	return tool, ok
}

// NormalizeArguments returns a copy of args with the caller identity merged
// in at the top level. An identity nested under a "context" wrapper is
// hoisted out; the wrapper is removed once empty. An explicit identity
// always wins over whatever the arguments carried.
func NormalizeArguments(args map[string]any, identityArg, identity string) map[string]any {
	out := make(map[string]any, len(args)+1)
	for k, v := range args {
		out[k] = v
	}

	if wrapper, ok := out["context"].(map[string]any); ok {
		if nested, found := wrapper[identityArg]; found {
			if _, exists := out[identityArg]; !exists {
				out[identityArg] = nested
			}
			rest := make(map[string]any, len(wrapper))
			for k, v := range wrapper {
				if k != identityArg {
					rest[k] = v
				}
			}
			switch {
			case len(rest) == 0:
				delete(out, "context")
			default:
				out["context"] = rest
			}
		}
	}

	if identity != "" {
		out[identityArg] = identity
	}

	return out
}

func filterByCategory(tools []mcptypes.Tool, categories []string) []mcptypes.Tool {
	if len(categories) == 0 {
		return tools
	}

	var filtered []mcptypes.Tool
	for _, tool := range tools {
		name := strings.ToLower(tool.Name)
		desc := strings.ToLower(tool.Description)
		for _, category := range categories {
			c := strings.ToLower(category)
			if strings.Contains(name, c) || strings.Contains(desc, c) {
				filtered = append(filtered, tool)
				break
			}
		}
	}
	return filtered
}

func matchToolName(name string, tools []mcptypes.Tool) string {
	want := normalizeToolName(name)
	for _, tool := range tools {
		if normalizeToolName(tool.Name) == want {
			return tool.Name
		}
	}
	return ""
}

func normalizeToolName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), ""))
}

func isToolNotFound(err error) bool {
	if err == nil {
		return false
	}
	text := strings.ToLower(err.Error())
	if strings.Contains(text, "unknown tool") || strings.Contains(text, "no such tool") {
		return true
	}
	return strings.Contains(text, "tool") &&
		(strings.Contains(text, "not found") || strings.Contains(text, "does not exist"))
}

// ResultText flattens a tool result into text for transcripts and replies.
func ResultText(result *mcptypes.CallToolResult) string {
	if result == nil || len(result.Content) == 0 {
		return "Tool executed successfully (no output)"
	}

	var parts []string
	for _, item := range result.Content {
		switch tc := item.(type) {
		case mcptypes.TextContent:
			parts = append(parts, tc.Text)
		case *mcptypes.TextContent:
			parts = append(parts, tc.Text)
		}
	}
	if len(parts) > 0 {
		return strings.Join(parts, "\n")
	}

	if data, err := json.Marshal(result.Content); err == nil {
		return string(data)
	}
	return "Tool executed successfully (no output)"
}
