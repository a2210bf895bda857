package mcp

import (
	"context"

	mcptypes "github.com/mark3labs/mcp-go/mcp"
	globalconfig "outfitter/config"
)

// Client bundles the process manager and tool aggregator behind one facade.
type Client struct {
	processManager *ProcessManager
	aggregator     *ToolAggregator
}

func NewClient(dataDir string, cfg *globalconfig.Config) *Client {
	pm := NewProcessManager(dataDir, cfg)
	return &Client{
		processManager: pm,
		aggregator:     NewToolAggregator(pm),
	}
}

func (c *Client) Start(ctx context.Context, config PluginConfig) error {
	return c.processManager.StartPlugin(ctx, config)
}

func (c *Client) Stop(ctx context.Context, pluginID string) error {
	return c.processManager.StopPlugin(ctx, pluginID)
}

func (c *Client) IsRunning(pluginID string) bool {
	return c.processManager.IsRunning(pluginID)
}

func (c *Client) GetTools(ctx context.Context, pluginIDs []string) ([]mcptypes.Tool, error) {
	return c.aggregator.GetToolsForPlugins(ctx, pluginIDs)
}

func (c *Client) PluginTools(pluginID string) ([]mcptypes.Tool, error) {
	return c.processManager.GetTools(pluginID)
}

func (c *Client) RefreshTools(ctx context.Context, pluginID string) error {
	return c.processManager.RefreshTools(ctx, pluginID)
}

func (c *Client) CallTool(ctx context.Context, toolName string, args map[string]any) (*mcptypes.CallToolResult, error) {
	return c.aggregator.ExecuteTool(ctx, toolName, args)
}

func (c *Client) Shutdown(ctx context.Context) error {
	return c.processManager.Shutdown(ctx)
}
