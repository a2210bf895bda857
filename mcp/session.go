package mcp

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	mcptypes "github.com/mark3labs/mcp-go/mcp"

	"outfitter/config"
)

// SessionConfig describes how to reach the capability directory service.
type SessionConfig struct {
	ServerURL string
	// Headers are sent on every request; auth for the directory goes here.
	Headers       map[string]string
	ClientName    string
	ClientVersion string
}

// Session is the connection to the capability directory over streamable
// HTTP. The connection is explicit state: Connect establishes it, Reconnect
// replaces it after connection-class failures, and callers fail fast when
// neither has succeeded yet.
type Session struct {
	cfg SessionConfig

	mu     sync.Mutex
	client *client.Client
}

// NewSession builds a session without touching the network.
func NewSession(cfg SessionConfig) *Session {
	if cfg.ClientName == "" {
		cfg.ClientName = "outfitter"
	}
	if cfg.ClientVersion == "" {
		cfg.ClientVersion = "1.0.0"
	}
	return &Session{cfg: cfg}
}

// Connect dials the directory, starts the HTTP transport, and performs the
// initialize handshake. An existing connection is closed and replaced.
func (s *Session) Connect(ctx context.Context) error {
	mcpClient, err := s.dial(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	old := s.client
	s.client = mcpClient
	s.mu.Unlock()

	if old != nil {
		closeClient(old)
	}

	if config.DebugLog != nil {
		config.DebugLog.Printf("[Directory] Connected to %s", s.cfg.ServerURL)
	}

	return nil
}

// Reconnect tears down the current connection and dials fresh. Invoked when
// a call fails with a connection-class error, before the retry attempt.
func (s *Session) Reconnect(ctx context.Context) error {
	if config.DebugLog != nil {
		config.DebugLog.Printf("[Directory] Reconnecting to %s", s.cfg.ServerURL)
	}
	return s.Connect(ctx)
}

func (s *Session) dial(ctx context.Context) (*client.Client, error) {
	var opts []transport.StreamableHTTPCOption
	switch {
	case len(s.cfg.Headers) > 0:
		opts = append(opts, transport.WithHTTPHeaders(s.cfg.Headers))
	}

	mcpClient, err := client.NewStreamableHttpClient(s.cfg.ServerURL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create directory client: %w", err)
	}

	transportObj := mcpClient.GetTransport()
	if err := transportObj.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to start HTTP transport: %w", err)
	}

	initReq := mcptypes.InitializeRequest{
		Params: mcptypes.InitializeParams{
			ProtocolVersion: "2025-06-18",
			Capabilities:    mcptypes.ClientCapabilities{},
			ClientInfo: mcptypes.Implementation{
				Name:    s.cfg.ClientName,
				Version: s.cfg.ClientVersion,
			},
		},
	}

	if _, err := mcpClient.Initialize(ctx, initReq); err != nil {
		closeClient(mcpClient)
		return nil, fmt.Errorf("failed to initialize directory session: %w", err)
	}

	return mcpClient, nil
}

func (s *Session) current() (*client.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client == nil {
		return nil, fmt.Errorf("directory session not connected")
	}
	return s.client, nil
}

// ListTools fetches the directory's full tool listing.
func (s *Session) ListTools(ctx context.Context) ([]mcptypes.Tool, error) {
	mcpClient, err := s.current()
	if err != nil {
		return nil, err
	}

	result, err := mcpClient.ListTools(ctx, mcptypes.ListToolsRequest{})
	if err != nil {
		return nil, err
	}

	return result.Tools, nil
}

// CallTool invokes a named tool with the given arguments.
func (s *Session) CallTool(ctx context.Context, name string, args map[string]any) (*mcptypes.CallToolResult, error) {
	mcpClient, err := s.current()
	if err != nil {
		return nil, err
	}

	return mcpClient.CallTool(ctx, mcptypes.CallToolRequest{
		Params: mcptypes.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	})
}

// Close shuts the session down. Safe to call when never connected.
func (s *Session) Close() error {
	s.mu.Lock()
	mcpClient := s.client
	s.client = nil
	s.mu.Unlock()

	if mcpClient == nil {
		return nil
	}

	closeClient(mcpClient)
	return nil
}

// closeClient closes with a timeout; a dead server can make Close hang.
func closeClient(mcpClient *client.Client) {
	closeDone := make(chan error, 1)
	go func() {
		closeDone <- mcpClient.Close()
	}()

	select {
	case err := <-closeDone:
		if err != nil && config.DebugLog != nil {
			config.DebugLog.Printf("[Directory] Error closing client: %v", err)
		}
	case <-time.After(1 * time.Second):
		if config.DebugLog != nil {
			config.DebugLog.Printf("[Directory] Close timed out, abandoning connection")
		}
	}
}
