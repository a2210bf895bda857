package mcp

import (
	"context"
	"fmt"
	"sort"
	"sync"

	mcptypes "github.com/mark3labs/mcp-go/mcp"
	"outfitter/config"
)

// Manager runs the operator-declared tool servers from plugins.toml and
// exposes their tools under namespaced names.
type Manager struct {
	mu            sync.RWMutex
	config        *config.Config
	client        *Client
	declarations  map[string]*Declaration
	activePlugins map[string]bool
	failedPlugins map[string]error // plugins that failed to start or parse
}

// PluginStatus is one row of the plugin overview.
type PluginStatus struct {
	ID      string
	Name    string
	Enabled bool
	Running bool
	Remote  bool
	Tools   int
	Err     error
}

func NewManager(cfg *config.Config) *Manager {
	return &Manager{
		config:        cfg,
		client:        NewClient(cfg.DataDir(), cfg),
		declarations:  make(map[string]*Declaration),
		activePlugins: make(map[string]bool),
		failedPlugins: make(map[string]error),
	}
}

func (m *Manager) IsEnabled() bool {
	return m.config.PluginsEnabled
}

// StartAllEnabledPlugins reads plugins.toml and starts every enabled
// declaration. Called once at startup; start errors don't abort the rest.
func (m *Manager) StartAllEnabledPlugins(ctx context.Context) error {
	if !m.config.PluginsEnabled {
		if config.DebugLog != nil {
			config.DebugLog.Printf("[MCP] StartAllEnabledPlugins: plugins disabled in config, skipping")
		}
		return nil
	}

	decls, invalid, err := LoadDeclarations(m.config)
	if err != nil {
		return fmt.Errorf("failed to load plugin declarations: %w", err)
	}

	// Record state with the mutex held briefly, then start without it:
	// spawning and initializing servers is slow.
	var toStart []*Declaration
	m.mu.Lock()
	m.declarations = make(map[string]*Declaration, len(decls))
	for _, decl := range decls {
		m.declarations[decl.ID] = decl
	}
	for id, declErr := range invalid {
		m.failedPlugins[id] = declErr
	}
	for _, decl := range decls {
		if m.activePlugins[decl.ID] {
			continue
		}
		toStart = append(toStart, decl)
	}
	m.mu.Unlock()

	for id, declErr := range invalid {
		fmt.Printf("Warning: invalid plugin declaration %s: %v\n", id, declErr)
	}
	if config.DebugLog != nil {
		config.DebugLog.Printf("[MCP] StartAllEnabledPlugins: %d declarations to start, %d invalid", len(toStart), len(invalid))
	}

	for _, decl := range toStart {
		m.startDeclaration(ctx, decl)
	}
	return nil
}

// startDeclaration starts one declaration and records the outcome. A plugin
// that failed after its process may have spawned is marked both active and
// failed, so shutdown still tries to reap it.
func (m *Manager) startDeclaration(ctx context.Context, decl *Declaration) {
	if !decl.IsRemote() {
		if err := CheckCommand(decl.Command); err != nil {
			fmt.Printf("Warning: plugin %s: %v\n", decl.ID, err)
			m.mu.Lock()
			m.failedPlugins[decl.ID] = err
			m.mu.Unlock()
			return
		}
	}

	if err := m.client.Start(ctx, *decl.BuildConfig()); err != nil {
		fmt.Printf("Warning: failed to start plugin %s: %v\n", decl.ID, err)
		if config.DebugLog != nil {
			config.DebugLog.Printf("[MCP] StartAllEnabledPlugins: error starting plugin '%s': %v", decl.ID, err)
		}
		m.mu.Lock()
		m.activePlugins[decl.ID] = true
		m.failedPlugins[decl.ID] = err
		m.mu.Unlock()
		return
	}

	if config.DebugLog != nil {
		config.DebugLog.Printf("[MCP] StartAllEnabledPlugins: started plugin '%s'", decl.ID)
	}
	m.mu.Lock()
	m.activePlugins[decl.ID] = true
	delete(m.failedPlugins, decl.ID)
	m.mu.Unlock()
}

// StartPlugin starts or retries a single declared plugin. Declarations are
// re-read so edits to plugins.toml take effect without a full restart.
// Starting a disabled declaration enables it persistently, so the worker
// picks it up on its next restart too.
func (m *Manager) StartPlugin(ctx context.Context, pluginID string) error {
	if !m.config.PluginsEnabled {
		return fmt.Errorf("plugins are disabled")
	}

	pluginsConfig, err := config.LoadPluginsConfig(m.config.DataDir())
	if err != nil {
		return fmt.Errorf("failed to load plugins config: %w", err)
	}
	if _, declared := pluginsConfig.Plugins[pluginID]; !declared {
		return fmt.Errorf("plugin %s is not declared", pluginID)
	}
	if !pluginsConfig.GetPluginEnabled(pluginID) {
		pluginsConfig.SetPluginEnabled(pluginID, true)
		if err := config.SavePluginsConfig(m.config.DataDir(), pluginsConfig); err != nil {
			return fmt.Errorf("failed to enable plugin %s: %w", pluginID, err)
		}
	}

	decls, invalid, err := LoadDeclarations(m.config)
	if err != nil {
		return fmt.Errorf("failed to load plugin declarations: %w", err)
	}
	if declErr, ok := invalid[pluginID]; ok {
		m.mu.Lock()
		m.failedPlugins[pluginID] = declErr
		m.mu.Unlock()
		return declErr
	}

	var decl *Declaration
	for _, d := range decls {
		if d.ID == pluginID {
			decl = d
			break
		}
	}
	if decl == nil {
		return fmt.Errorf("plugin %s did not load", pluginID)
	}

	m.mu.Lock()
	m.declarations[decl.ID] = decl
	if m.activePlugins[pluginID] && m.failedPlugins[pluginID] == nil && m.client.IsRunning(pluginID) {
		m.mu.Unlock()
		return fmt.Errorf("plugin %s already running", pluginID)
	}
	// Clear stale failure state so a retry starts clean.
	delete(m.activePlugins, pluginID)
	delete(m.failedPlugins, pluginID)
	m.mu.Unlock()

	m.startDeclaration(ctx, decl)

	m.mu.RLock()
	startErr := m.failedPlugins[pluginID]
	m.mu.RUnlock()
	return startErr
}

// StopPlugin stops a running plugin and persists it as disabled, so a
// worker restart does not bring it straight back.
func (m *Manager) StopPlugin(ctx context.Context, pluginID string) error {
	m.mu.Lock()
	active := m.activePlugins[pluginID]
	delete(m.activePlugins, pluginID)
	delete(m.failedPlugins, pluginID)
	m.mu.Unlock()

	if !active {
		return fmt.Errorf("plugin %s not running", pluginID)
	}

	if pluginsConfig, err := config.LoadPluginsConfig(m.config.DataDir()); err == nil && pluginsConfig.GetPluginEnabled(pluginID) {
		pluginsConfig.SetPluginEnabled(pluginID, false)
		if err := config.SavePluginsConfig(m.config.DataDir(), pluginsConfig); err != nil && config.Debug {
			config.DebugLog.Printf("[MCP] failed to persist disable for %s: %v", pluginID, err)
		}
	}
	if !m.client.IsRunning(pluginID) {
		// Marked active but the process never came up.
		return nil
	}
	return m.client.Stop(ctx, pluginID)
}

// RefreshTools re-queries a running plugin's tool list.
func (m *Manager) RefreshTools(ctx context.Context, pluginID string) error {
	return m.client.RefreshTools(ctx, pluginID)
}

// GetTools returns the namespaced tools of all running plugins.
func (m *Manager) GetTools(ctx context.Context) ([]mcptypes.Tool, error) {
	if !m.config.PluginsEnabled {
		return nil, nil
	}

	m.mu.RLock()
	pluginIDs := make([]string, 0, len(m.activePlugins))
	for id := range m.activePlugins {
		if m.failedPlugins[id] == nil {
			pluginIDs = append(pluginIDs, id)
		}
	}
	m.mu.RUnlock()
	sort.Strings(pluginIDs)

	return m.client.GetTools(ctx, pluginIDs)
}

// OwnsTool reports whether a namespaced tool name belongs to a running plugin.
func (m *Manager) OwnsTool(toolName string) bool {
	pluginID, _ := parseToolName(toolName)
	if pluginID == "" {
		return false
	}
	return m.client.IsRunning(pluginID)
}

// CallTool routes a namespaced tool call to the owning plugin.
func (m *Manager) CallTool(ctx context.Context, toolName string, args map[string]any) (*mcptypes.CallToolResult, error) {
	return m.client.CallTool(ctx, toolName, args)
}

func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.client.Shutdown(ctx); err != nil {
		return err
	}
	m.activePlugins = make(map[string]bool)
	m.failedPlugins = make(map[string]error)
	return nil
}

// ShutdownWithTracking shuts down with the context's deadline enforced and
// returns the names of plugins that didn't respond in time. The shutdown
// goroutine is abandoned on timeout rather than waited on forever.
func (m *Manager) ShutdownWithTracking(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	activeNames := make([]string, 0, len(m.activePlugins))
	for pluginID := range m.activePlugins {
		if decl := m.declarations[pluginID]; decl != nil {
			activeNames = append(activeNames, decl.Name)
		} else {
			activeNames = append(activeNames, pluginID)
		}
	}
	m.mu.RUnlock()
	sort.Strings(activeNames)

	if config.DebugLog != nil {
		config.DebugLog.Printf("[MCP] ShutdownWithTracking: %d active plugins: %v", len(activeNames), activeNames)
	}

	resultChan := make(chan error, 1)
	go func() {
		resultChan <- m.Shutdown(ctx)
	}()

	select {
	case err := <-resultChan:
		return []string{}, err
	case <-ctx.Done():
		if config.DebugLog != nil {
			config.DebugLog.Printf("[MCP] ShutdownWithTracking: timeout, unresponsive plugins: %v", activeNames)
		}
		return activeNames, ctx.Err()
	}
}

// GetActivePluginNames returns the display names of running plugins.
func (m *Manager) GetActivePluginNames() []string {
	if !m.config.PluginsEnabled {
		return nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var names []string
	for pluginID := range m.activePlugins {
		if m.failedPlugins[pluginID] != nil {
			continue
		}
		if decl := m.declarations[pluginID]; decl != nil {
			names = append(names, decl.Name)
		} else {
			names = append(names, pluginID)
		}
	}
	sort.Strings(names)
	return names
}

func (m *Manager) GetFailedPlugins() map[string]error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	failed := make(map[string]error, len(m.failedPlugins))
	for id, err := range m.failedPlugins {
		failed[id] = err
	}
	return failed
}

// Statuses lists every declared plugin with its runtime state, including
// disabled and failed ones.
func (m *Manager) Statuses() ([]PluginStatus, error) {
	pluginsConfig, err := config.LoadPluginsConfig(m.config.DataDir())
	if err != nil {
		return nil, fmt.Errorf("failed to load plugins config: %w", err)
	}

	ids := make([]string, 0, len(pluginsConfig.Plugins))
	for id := range pluginsConfig.Plugins {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	m.mu.RLock()
	defer m.mu.RUnlock()

	statuses := make([]PluginStatus, 0, len(ids))
	for _, id := range ids {
		status := PluginStatus{
			ID:      id,
			Name:    id,
			Enabled: pluginsConfig.GetPluginEnabled(id),
			Err:     m.failedPlugins[id],
		}
		if decl := m.declarations[id]; decl != nil {
			status.Name = decl.Name
			status.Remote = decl.IsRemote()
		}
		if m.client.IsRunning(id) {
			status.Running = true
			if tools, err := m.client.PluginTools(id); err == nil {
				status.Tools = len(tools)
			}
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}
