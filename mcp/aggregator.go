package mcp

import (
	"context"
	"strings"

	mcptypes "github.com/mark3labs/mcp-go/mcp"
)

// pluginNameSep joins a plugin ID and a tool name into one advertised name.
// Provider tool-name rules only allow [a-zA-Z0-9_-], so a dot won't do.
const pluginNameSep = "__"

// ToolAggregator merges the tools of running plugins under namespaced names
// and routes calls back to the owning plugin.
type ToolAggregator struct {
	processManager *ProcessManager
}

func NewToolAggregator(pm *ProcessManager) *ToolAggregator {
	return &ToolAggregator{
		processManager: pm,
	}
}

// GetToolsForPlugins returns the tools of the given plugins, each renamed to
// pluginID__toolName. Plugins that are not running are skipped.
func (ta *ToolAggregator) GetToolsForPlugins(ctx context.Context, pluginIDs []string) ([]mcptypes.Tool, error) {
	var allTools []mcptypes.Tool

	for _, pluginID := range pluginIDs {
		tools, err := ta.processManager.GetTools(pluginID)
		if err != nil {
			continue
		}

		for _, tool := range tools {
			namespacedTool := tool
			namespacedTool.Name = NamespacedToolName(pluginID, tool.Name)
			allTools = append(allTools, namespacedTool)
		}
	}

	return allTools, nil
}

// ExecuteTool calls a namespaced tool on its owning plugin.
func (ta *ToolAggregator) ExecuteTool(ctx context.Context, toolName string, args map[string]any) (*mcptypes.CallToolResult, error) {
	pluginID, actualToolName := parseToolName(toolName)

	client, err := ta.processManager.GetClient(pluginID)
	if err != nil {
		return nil, err
	}

	return client.CallTool(ctx, mcptypes.CallToolRequest{
		Params: mcptypes.CallToolParams{
			Name:      actualToolName,
			Arguments: args,
		},
	})
}

// NamespacedToolName builds the advertised name for a plugin tool.
func NamespacedToolName(pluginID, toolName string) string {
	return pluginID + pluginNameSep + toolName
}

func parseToolName(namespacedName string) (string, string) {
	idx := strings.Index(namespacedName, pluginNameSep)
	if idx == -1 {
		return "", namespacedName
	}
	return namespacedName[:idx], namespacedName[idx+len(pluginNameSep):]
}
