package mcp

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	mcptypes "github.com/mark3labs/mcp-go/mcp"
	globalconfig "outfitter/config"
)

// ProcessManager owns the running tool-server processes and connections.
type ProcessManager struct {
	processes map[string]*PluginProcess
	dataDir   string               // for FileTokenStore
	config    *globalconfig.Config // for security settings
	mu        sync.RWMutex
}

func NewProcessManager(dataDir string, cfg *globalconfig.Config) *ProcessManager {
	return &ProcessManager{
		processes: make(map[string]*PluginProcess),
		dataDir:   dataDir,
		config:    cfg,
	}
}

func (pm *ProcessManager) StartPlugin(ctx context.Context, config PluginConfig) error {
	isRemote := config.ServerURL != ""

	pm.mu.Lock()
	if proc := pm.processes[config.ID]; proc != nil && proc.Running {
		pm.mu.Unlock()
		return fmt.Errorf("plugin %s already running", config.ID)
	}
	pm.mu.Unlock()

	var mcpClient *client.Client
	var err error
	var capturedCmd *exec.Cmd

	if isRemote {
		mcpClient, err = pm.createRemoteClient(ctx, config)
		if err != nil {
			return fmt.Errorf("failed to connect to remote plugin %s: %w", config.ID, err)
		}
		if globalconfig.DebugLog != nil {
			globalconfig.DebugLog.Printf("[MCP] Connected to remote plugin '%s' at %s (auth: %s)",
				config.ID, config.ServerURL, config.AuthType)
		}
	} else {
		mcpClient, capturedCmd, err = pm.createLocalClient(ctx, config)
		if err != nil {
			return fmt.Errorf("failed to start local plugin %s: %w", config.ID, err)
		}
	}

	// Initialize is the same for remote and local.
	initReq := mcptypes.InitializeRequest{
		Params: mcptypes.InitializeParams{
			ProtocolVersion: "2025-06-18",
			Capabilities:    mcptypes.ClientCapabilities{},
			ClientInfo: mcptypes.Implementation{
				Name:    "outfitter",
				Version: "1.0.0",
			},
		},
	}

	if _, err := mcpClient.Initialize(ctx, initReq); err != nil {
		mcpClient.Close()
		if capturedCmd != nil && capturedCmd.Process != nil {
			capturedCmd.Process.Kill()
		}
		return fmt.Errorf("failed to initialize plugin %s: %w", config.ID, err)
	}

	toolsResult, err := mcpClient.ListTools(ctx, mcptypes.ListToolsRequest{})
	if err != nil {
		mcpClient.Close()
		if capturedCmd != nil && capturedCmd.Process != nil {
			capturedCmd.Process.Kill()
		}
		return fmt.Errorf("failed to list tools for %s: %w", config.ID, err)
	}

	pm.mu.Lock()
	pm.processes[config.ID] = &PluginProcess{
		ID:        config.ID,
		Name:      config.ID,
		Process:   capturedCmd, // nil for remote
		Client:    mcpClient,
		Tools:     toolsResult.Tools,
		Running:   true,
		IsRemote:  isRemote,
		ServerURL: config.ServerURL,
	}
	pm.mu.Unlock()

	return nil
}

// StopPlugin closes the client with a short timeout and, for local plugins
// whose close hangs or fails, kills the child process.
func (pm *ProcessManager) StopPlugin(ctx context.Context, pluginID string) error {
	pm.mu.Lock()
	proc, exists := pm.processes[pluginID]
	if !exists {
		pm.mu.Unlock()
		return fmt.Errorf("plugin %s not found", pluginID)
	}

	// Remove from the map immediately so it can't be used mid-shutdown.
	proc.Running = false
	delete(pm.processes, pluginID)
	pm.mu.Unlock()

	clientClosed := false
	if proc.Client != nil {
		closeCtx, cancel := context.WithTimeout(ctx, 1*time.Second)
		defer cancel()

		closeDone := make(chan error, 1)
		go func() {
			closeDone <- proc.Client.Close()
		}()

		select {
		case err := <-closeDone:
			if err != nil {
				if globalconfig.DebugLog != nil {
					globalconfig.DebugLog.Printf("[MCP] StopPlugin: error closing client for '%s': %v", pluginID, err)
				}
			} else {
				clientClosed = true
			}
		case <-closeCtx.Done():
			if globalconfig.DebugLog != nil {
				globalconfig.DebugLog.Printf("[MCP] StopPlugin: close timeout for '%s', killing process", pluginID)
			}
		}
	}

	if !clientClosed && !proc.IsRemote && proc.Process != nil && proc.Process.Process != nil {
		if err := proc.Process.Process.Kill(); err != nil {
			if globalconfig.DebugLog != nil {
				globalconfig.DebugLog.Printf("[MCP] StopPlugin: error killing process for '%s': %v", pluginID, err)
			}
		}
	}

	if globalconfig.DebugLog != nil {
		globalconfig.DebugLog.Printf("[MCP] StopPlugin: plugin '%s' stopped", pluginID)
	}
	return nil
}

func (pm *ProcessManager) GetClient(pluginID string) (*client.Client, error) {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	proc, exists := pm.processes[pluginID]
	if !exists || !proc.Running {
		return nil, fmt.Errorf("plugin %s not running", pluginID)
	}
	return proc.Client, nil
}

func (pm *ProcessManager) GetTools(pluginID string) ([]mcptypes.Tool, error) {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	proc, exists := pm.processes[pluginID]
	if !exists || !proc.Running {
		return nil, fmt.Errorf("plugin %s not running", pluginID)
	}
	return proc.Tools, nil
}

func (pm *ProcessManager) IsRunning(pluginID string) bool {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	proc, exists := pm.processes[pluginID]
	return exists && proc.Running
}

func (pm *ProcessManager) RefreshTools(ctx context.Context, pluginID string) error {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	proc, exists := pm.processes[pluginID]
	if !exists || !proc.Running {
		return fmt.Errorf("plugin %s not running", pluginID)
	}

	toolsResult, err := proc.Client.ListTools(ctx, mcptypes.ListToolsRequest{})
	if err != nil {
		return fmt.Errorf("failed to refresh tools: %w", err)
	}
	proc.Tools = toolsResult.Tools
	return nil
}

// Shutdown stops all plugins in parallel.
func (pm *ProcessManager) Shutdown(ctx context.Context) error {
	pm.mu.Lock()
	pluginIDs := make([]string, 0, len(pm.processes))
	for id := range pm.processes {
		pluginIDs = append(pluginIDs, id)
	}
	pm.mu.Unlock()

	if globalconfig.DebugLog != nil {
		globalconfig.DebugLog.Printf("[MCP] Shutdown: stopping %d plugins in parallel", len(pluginIDs))
	}

	var wg sync.WaitGroup
	errChan := make(chan error, len(pluginIDs))

	for _, pluginID := range pluginIDs {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			if err := pm.StopPlugin(ctx, id); err != nil {
				errChan <- err
			}
		}(pluginID)
	}

	wg.Wait()
	close(errChan)

	var errs []error
	for err := range errChan {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %v", errs)
	}
	return nil
}

// createRemoteClient routes by transport, then by auth type.
func (pm *ProcessManager) createRemoteClient(ctx context.Context, config PluginConfig) (*client.Client, error) {
	switch config.Transport {
	case "streamable-http":
		return pm.createStreamableHTTPClient(ctx, config)
	case "sse", "":
		switch config.AuthType {
		case "oauth":
			return pm.createOAuthClient(ctx, config)
		case "headers", "none", "":
			return pm.createHeadersClient(ctx, config)
		default:
			return nil, fmt.Errorf("unknown auth type: %s", config.AuthType)
		}
	default:
		return nil, fmt.Errorf("unknown transport type: %s", config.Transport)
	}
}

// createHeadersClient creates an SSE client with header-based auth (or none).
func (pm *ProcessManager) createHeadersClient(ctx context.Context, config PluginConfig) (*client.Client, error) {
	var opts []transport.ClientOption
	if config.AuthType == "headers" && len(config.Env) > 0 {
		headers := make(map[string]string, len(config.Env))
		for key, value := range config.Env {
			headers[key] = value
		}
		opts = append(opts, transport.WithHeaders(headers))
	}

	mcpClient, err := client.NewSSEMCPClient(config.ServerURL, opts...)
	if err != nil {
		return nil, err
	}

	// SSE transport must be started before Initialize/ListTools.
	tr := mcpClient.GetTransport()
	if err := tr.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to start SSE transport: %w", err)
	}
	return mcpClient, nil
}

// createOAuthClient creates an SSE client with OAuth and a persistent token
// store matching the credential storage method.
func (pm *ProcessManager) createOAuthClient(ctx context.Context, config PluginConfig) (*client.Client, error) {
	clientID := config.Env["OAUTH_CLIENT_ID"]
	clientSecret := config.Env["OAUTH_CLIENT_SECRET"]
	redirectURI := config.Env["OAUTH_REDIRECT_URI"]
	scopesStr := config.Env["OAUTH_SCOPES"]

	if clientID == "" {
		return nil, fmt.Errorf("OAUTH_CLIENT_ID required for OAuth auth")
	}
	if redirectURI == "" {
		return nil, fmt.Errorf("OAUTH_REDIRECT_URI required for OAuth auth")
	}

	var scopes []string
	if scopesStr != "" {
		scopes = strings.Split(scopesStr, ",")
	}

	var tokenStore transport.TokenStore
	switch pm.config.Security.CredentialStorage {
	case string(globalconfig.SecuritySSHKey):
		tokenStore = globalconfig.NewFileTokenStore(
			config.ID,
			pm.dataDir,
			globalconfig.SecuritySSHKey,
			pm.config.CredentialStore.GetEncryptionManager(),
		)
	case string(globalconfig.SecurityPlainText):
		tokenStore = globalconfig.NewFileTokenStore(
			config.ID,
			pm.dataDir,
			globalconfig.SecurityPlainText,
			nil,
		)
	default:
		// Tokens lost on restart.
		tokenStore = transport.NewMemoryTokenStore()
	}

	oauthConfig := client.OAuthConfig{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURI:  redirectURI,
		Scopes:       scopes,
		TokenStore:   tokenStore,
		PKCEEnabled:  true,
	}

	mcpClient, err := client.NewOAuthSSEClient(config.ServerURL, oauthConfig)
	if err != nil {
		return nil, err
	}

	tr := mcpClient.GetTransport()
	if err := tr.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to start SSE transport: %w", err)
	}

	if globalconfig.DebugLog != nil {
		globalconfig.DebugLog.Printf("[MCP] Created OAuth client for %s (ClientID: %s, Scopes: %v)",
			config.ID, clientID, scopes)
	}
	return mcpClient, nil
}

func (pm *ProcessManager) createStreamableHTTPClient(ctx context.Context, config PluginConfig) (*client.Client, error) {
	var opts []transport.StreamableHTTPCOption
	if config.AuthType == "headers" && len(config.Env) > 0 {
		headers := make(map[string]string, len(config.Env))
		for key, value := range config.Env {
			headers[key] = value
		}
		opts = append(opts, transport.WithHTTPHeaders(headers))
	}

	mcpClient, err := client.NewStreamableHttpClient(config.ServerURL, opts...)
	if err != nil {
		return nil, err
	}

	tr := mcpClient.GetTransport()
	if err := tr.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to start HTTP transport: %w", err)
	}
	return mcpClient, nil
}

// createLocalClient spawns a stdio server, capturing the cmd so StopPlugin
// can kill it if the client refuses to close.
func (pm *ProcessManager) createLocalClient(ctx context.Context, config PluginConfig) (*client.Client, *exec.Cmd, error) {
	env := configToEnv(config.Env)
	var capturedCmd *exec.Cmd

	if globalconfig.DebugLog != nil {
		globalconfig.DebugLog.Printf("[MCP] StartPlugin: plugin '%s' command=%s args=%v", config.ID, config.Command, config.Args)
	}

	cmdFunc := func(ctx context.Context, command string, env []string, args []string) (*exec.Cmd, error) {
		cmd := exec.CommandContext(ctx, command, args...)
		cmd.Env = env
		capturedCmd = cmd
		return cmd, nil
	}

	mcpClient, err := client.NewStdioMCPClientWithOptions(
		config.Command,
		env,
		config.Args,
		transport.WithCommandFunc(cmdFunc),
	)
	if err != nil {
		return nil, nil, err
	}

	if capturedCmd != nil && capturedCmd.Process != nil && globalconfig.DebugLog != nil {
		globalconfig.DebugLog.Printf("[MCP] Started local plugin %s with PID %d", config.ID, capturedCmd.Process.Pid)
	}
	return mcpClient, capturedCmd, nil
}

// configToEnv merges plugin settings over the current process environment,
// preserving PATH and the rest of the system vars.
func configToEnv(settings map[string]string) []string {
	env := os.Environ()
	for k, v := range settings {
		env = append(env, fmt.Sprintf("%s=%s", k, v))
	}
	return env
}
