package mcp

import (
	"os/exec"

	"github.com/mark3labs/mcp-go/client"
	mcptypes "github.com/mark3labs/mcp-go/mcp"
)

// PluginProcess is one running tool server: a child process speaking stdio,
// or a connection to a remote server.
type PluginProcess struct {
	ID        string
	Name      string
	Process   *exec.Cmd // nil for remote servers
	Client    *client.Client
	Tools     []mcptypes.Tool
	Running   bool
	IsRemote  bool
	ServerURL string
}

// PluginConfig is the resolved launch configuration for one tool server.
// Local servers run Command with Args and Env; remote servers connect to
// ServerURL over the named transport with AuthType credentials in Env.
type PluginConfig struct {
	ID        string
	Command   string
	Args      []string
	Env       map[string]string
	ServerURL string
	AuthType  string
	Transport string
}
