package mcp

import (
	"fmt"
	"sort"
	"strings"

	"outfitter/config"
)

// Reserved keys in a plugin's config table. Everything else is passed to the
// server: as environment variables for local plugins, as HTTP headers or
// OAuth settings for remote ones.
const (
	keyName      = "name"
	keyCommand   = "command"
	keyArgs      = "args"
	keyServerURL = "server_url"
	keyAuth      = "auth"
	keyTransport = "transport"
)

// Declaration is one operator-declared tool server from plugins.toml.
type Declaration struct {
	ID        string
	Name      string
	Command   string
	Args      []string
	ServerURL string
	AuthType  string // oauth, headers or none
	Transport string // sse or streamable-http
	Settings  map[string]string
}

// ParseDeclaration turns a plugin's config table into a Declaration.
// A declaration is either local (command, optional args) or remote
// (server_url, optional auth and transport), never both.
func ParseDeclaration(id string, conf map[string]string) (*Declaration, error) {
	if id == "" {
		return nil, fmt.Errorf("plugin declaration has no ID")
	}

	decl := &Declaration{
		ID:       id,
		Name:     id,
		Settings: make(map[string]string),
	}

	var argStr string
	for key, value := range conf {
		switch key {
		case keyName:
			if value != "" {
				decl.Name = value
			}
		case keyCommand:
			decl.Command = value
		case keyArgs:
			argStr = value
		case keyServerURL:
			decl.ServerURL = value
		case keyAuth:
			decl.AuthType = strings.ToLower(value)
		case keyTransport:
			decl.Transport = strings.ToLower(value)
		default:
			decl.Settings[key] = value
		}
	}

	if decl.Command == "" && decl.ServerURL == "" {
		return nil, fmt.Errorf("plugin %s: declaration needs a command or a server_url", id)
	}
	if decl.Command != "" && decl.ServerURL != "" {
		return nil, fmt.Errorf("plugin %s: command and server_url are mutually exclusive", id)
	}

	if decl.Command != "" {
		args, err := splitArgs(argStr)
		if err != nil {
			return nil, fmt.Errorf("plugin %s: %w", id, err)
		}
		decl.Args = args
		if decl.AuthType != "" || decl.Transport != "" {
			return nil, fmt.Errorf("plugin %s: auth and transport only apply to remote servers", id)
		}
		return decl, nil
	}

	if argStr != "" {
		return nil, fmt.Errorf("plugin %s: args only apply to local commands", id)
	}
	switch decl.AuthType {
	case "", "none":
		decl.AuthType = "none"
	case "oauth", "headers":
	default:
		return nil, fmt.Errorf("plugin %s: unknown auth type %q", id, decl.AuthType)
	}
	switch decl.Transport {
	case "", "sse":
		decl.Transport = "sse"
	case "streamable-http":
	default:
		return nil, fmt.Errorf("plugin %s: unknown transport %q", id, decl.Transport)
	}
	return decl, nil
}

// IsRemote reports whether the declaration points at a remote server.
func (d *Declaration) IsRemote() bool {
	return d.ServerURL != ""
}

// BuildConfig resolves the declaration into a launch configuration.
func (d *Declaration) BuildConfig() *PluginConfig {
	env := make(map[string]string, len(d.Settings))
	for key, value := range d.Settings {
		env[key] = value
	}
	return &PluginConfig{
		ID:        d.ID,
		Command:   d.Command,
		Args:      append([]string(nil), d.Args...),
		Env:       env,
		ServerURL: d.ServerURL,
		AuthType:  d.AuthType,
		Transport: d.Transport,
	}
}

// LoadDeclarations reads plugins.toml and returns the enabled declarations,
// with credential-store values merged back into their settings. Declarations
// that fail to parse are skipped and reported alongside the good ones.
func LoadDeclarations(cfg *config.Config) ([]*Declaration, map[string]error, error) {
	pluginsConfig, err := config.LoadPluginsConfig(cfg.DataDir())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load plugins config: %w", err)
	}

	ids := make([]string, 0, len(pluginsConfig.Plugins))
	for id := range pluginsConfig.Plugins {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var decls []*Declaration
	invalid := make(map[string]error)
	for _, id := range ids {
		if !pluginsConfig.GetPluginEnabled(id) {
			continue
		}
		values, err := config.LoadPluginConfigSecure(cfg, pluginsConfig, id)
		if err != nil {
			invalid[id] = err
			continue
		}
		decl, err := ParseDeclaration(id, values)
		if err != nil {
			invalid[id] = err
			continue
		}
		decls = append(decls, decl)
	}
	return decls, invalid, nil
}

// splitArgs splits a command line into arguments, honoring single and double
// quotes so values with spaces survive intact.
func splitArgs(s string) ([]string, error) {
	var args []string
	var current strings.Builder
	var quote rune
	inArg := false

	for _, r := range s {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			} else {
				current.WriteRune(r)
			}
		case r == '\'' || r == '"':
			quote = r
			inArg = true
		case r == ' ' || r == '\t':
			if inArg {
				args = append(args, current.String())
				current.Reset()
				inArg = false
			}
		default:
			current.WriteRune(r)
			inArg = true
		}
	}
	if quote != 0 {
		return nil, fmt.Errorf("unterminated quote in args")
	}
	if inArg {
		args = append(args, current.String())
	}
	return args, nil
}
