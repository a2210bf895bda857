package mcp

import (
	"context"
	"reflect"
	"testing"

	"outfitter/config"
)

func TestParseDeclaration(t *testing.T) {
	tests := []struct {
		name     string
		id       string
		conf     map[string]string
		validate func(t *testing.T, d *Declaration)
	}{
		{
			name: "local command with args and settings",
			id:   "weather",
			conf: map[string]string{
				"command":     "npx",
				"args":        `-y "@modelcontextprotocol/server-weather"`,
				"WEATHER_KEY": "abc123",
			},
			validate: func(t *testing.T, d *Declaration) {
				if d.Command != "npx" {
					t.Errorf("Command = %q, want %q", d.Command, "npx")
				}
				want := []string{"-y", "@modelcontextprotocol/server-weather"}
				if !reflect.DeepEqual(d.Args, want) {
					t.Errorf("Args = %v, want %v", d.Args, want)
				}
				if d.Settings["WEATHER_KEY"] != "abc123" {
					t.Errorf("Settings[WEATHER_KEY] = %q, want %q", d.Settings["WEATHER_KEY"], "abc123")
				}
				if d.IsRemote() {
					t.Error("IsRemote() = true for local declaration")
				}
			},
		},
		{
			name: "name defaults to ID",
			id:   "files",
			conf: map[string]string{"command": "mcp-files"},
			validate: func(t *testing.T, d *Declaration) {
				if d.Name != "files" {
					t.Errorf("Name = %q, want %q", d.Name, "files")
				}
			},
		},
		{
			name: "explicit name wins",
			id:   "files",
			conf: map[string]string{"command": "mcp-files", "name": "File Server"},
			validate: func(t *testing.T, d *Declaration) {
				if d.Name != "File Server" {
					t.Errorf("Name = %q, want %q", d.Name, "File Server")
				}
			},
		},
		{
			name: "remote defaults to sse and no auth",
			id:   "search",
			conf: map[string]string{"server_url": "https://search.example.com/mcp"},
			validate: func(t *testing.T, d *Declaration) {
				if !d.IsRemote() {
					t.Error("IsRemote() = false for remote declaration")
				}
				if d.Transport != "sse" {
					t.Errorf("Transport = %q, want %q", d.Transport, "sse")
				}
				if d.AuthType != "none" {
					t.Errorf("AuthType = %q, want %q", d.AuthType, "none")
				}
			},
		},
		{
			name: "remote with headers auth keeps settings",
			id:   "search",
			conf: map[string]string{
				"server_url":    "https://search.example.com/mcp",
				"auth":          "headers",
				"Authorization": "Bearer tok",
			},
			validate: func(t *testing.T, d *Declaration) {
				if d.AuthType != "headers" {
					t.Errorf("AuthType = %q, want %q", d.AuthType, "headers")
				}
				if d.Settings["Authorization"] != "Bearer tok" {
					t.Errorf("Settings[Authorization] = %q, want %q", d.Settings["Authorization"], "Bearer tok")
				}
			},
		},
		{
			name: "remote streamable http",
			id:   "search",
			conf: map[string]string{
				"server_url": "https://search.example.com/mcp",
				"transport":  "streamable-http",
			},
			validate: func(t *testing.T, d *Declaration) {
				if d.Transport != "streamable-http" {
					t.Errorf("Transport = %q, want %q", d.Transport, "streamable-http")
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := ParseDeclaration(tt.id, tt.conf)
			if err != nil {
				t.Fatalf("ParseDeclaration() error = %v", err)
			}
			tt.validate(t, d)
		})
	}
}

func TestParseDeclarationErrors(t *testing.T) {
	tests := []struct {
		name string
		id   string
		conf map[string]string
	}{
		{"empty ID", "", map[string]string{"command": "x"}},
		{"neither command nor server_url", "p", map[string]string{"name": "x"}},
		{"both command and server_url", "p", map[string]string{"command": "x", "server_url": "https://x"}},
		{"args on remote", "p", map[string]string{"server_url": "https://x", "args": "-y"}},
		{"auth on local", "p", map[string]string{"command": "x", "auth": "oauth"}},
		{"transport on local", "p", map[string]string{"command": "x", "transport": "sse"}},
		{"unknown auth", "p", map[string]string{"server_url": "https://x", "auth": "basic"}},
		{"unknown transport", "p", map[string]string{"server_url": "https://x", "transport": "websocket"}},
		{"unterminated quote", "p", map[string]string{"command": "x", "args": `"broken`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseDeclaration(tt.id, tt.conf); err == nil {
				t.Error("ParseDeclaration() expected error, got nil")
			}
		})
	}
}

func TestSplitArgs(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"empty", "", nil},
		{"single", "-y", []string{"-y"}},
		{"multiple", "-y --verbose", []string{"-y", "--verbose"}},
		{"double quoted space", `--path "/tmp/my files"`, []string{"--path", "/tmp/my files"}},
		{"single quoted", `--msg 'hello world'`, []string{"--msg", "hello world"}},
		{"quote inside arg", `--key=va'l ue'`, []string{"--key=val ue"}},
		{"tabs and runs of spaces", "a \t b", []string{"a", "b"}},
		{"empty quoted arg", `""`, []string{""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := splitArgs(tt.input)
			if err != nil {
				t.Fatalf("splitArgs(%q) error = %v", tt.input, err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("splitArgs(%q) = %#v, want %#v", tt.input, got, tt.want)
			}
		})
	}
}

func TestBuildConfig(t *testing.T) {
	decl := &Declaration{
		ID:       "files",
		Name:     "File Server",
		Command:  "mcp-files",
		Args:     []string{"--root", "/srv"},
		Settings: map[string]string{"LOG_LEVEL": "debug"},
	}

	cfg := decl.BuildConfig()
	if cfg.ID != "files" || cfg.Command != "mcp-files" {
		t.Errorf("BuildConfig() = %+v", cfg)
	}
	if cfg.Env["LOG_LEVEL"] != "debug" {
		t.Errorf("Env[LOG_LEVEL] = %q, want %q", cfg.Env["LOG_LEVEL"], "debug")
	}

	// The config must not alias the declaration's maps or slices.
	cfg.Env["LOG_LEVEL"] = "info"
	cfg.Args[0] = "--base"
	if decl.Settings["LOG_LEVEL"] != "debug" {
		t.Error("mutating config env changed the declaration")
	}
	if decl.Args[0] != "--root" {
		t.Error("mutating config args changed the declaration")
	}
}

func TestParseToolName(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		wantPlugin string
		wantTool   string
	}{
		{"namespaced", "files__read_file", "files", "read_file"},
		{"tool keeps later separators", "a__b__c", "a", "b__c"},
		{"plain name has no plugin", "read_file", "", "read_file"},
		{"single underscore is not a separator", "read_file_v2", "", "read_file_v2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plugin, tool := parseToolName(tt.input)
			if plugin != tt.wantPlugin || tool != tt.wantTool {
				t.Errorf("parseToolName(%q) = (%q, %q), want (%q, %q)",
					tt.input, plugin, tool, tt.wantPlugin, tt.wantTool)
			}
		})
	}
}

func TestNamespacedToolName(t *testing.T) {
	got := NamespacedToolName("files", "read_file")
	if got != "files__read_file" {
		t.Errorf("NamespacedToolName() = %q, want %q", got, "files__read_file")
	}

	plugin, tool := parseToolName(got)
	if plugin != "files" || tool != "read_file" {
		t.Errorf("roundtrip = (%q, %q), want (files, read_file)", plugin, tool)
	}
}

func TestLoadDeclarations(t *testing.T) {
	dir := t.TempDir()

	pluginsConfig := &config.PluginsConfig{
		Plugins: map[string]config.PluginConfigEntry{
			"files": {
				Enabled: true,
				Config:  map[string]string{"command": "mcp-files", "args": "--root /srv"},
			},
			"search": {
				Enabled: true,
				Config:  map[string]string{"server_url": "https://search.example.com/mcp"},
			},
			"disabled": {
				Enabled: false,
				Config:  map[string]string{"command": "unused"},
			},
			"broken": {
				Enabled: true,
				Config:  map[string]string{"name": "no command here"},
			},
		},
	}
	if err := config.SavePluginsConfig(dir, pluginsConfig); err != nil {
		t.Fatalf("SavePluginsConfig() error = %v", err)
	}

	cfg := &config.Config{
		DataDirectory: dir,
		Security:      config.SecurityConfig{CredentialStorage: string(config.SecurityPlainText)},
	}

	decls, invalid, err := LoadDeclarations(cfg)
	if err != nil {
		t.Fatalf("LoadDeclarations() error = %v", err)
	}

	if len(decls) != 2 {
		t.Fatalf("got %d declarations, want 2", len(decls))
	}
	if decls[0].ID != "files" || decls[1].ID != "search" {
		t.Errorf("declaration order = %q, %q; want files, search", decls[0].ID, decls[1].ID)
	}
	if _, ok := invalid["broken"]; !ok {
		t.Error("expected broken declaration in invalid map")
	}
	if len(invalid) != 1 {
		t.Errorf("got %d invalid declarations, want 1", len(invalid))
	}
}

func TestManagerDisabled(t *testing.T) {
	cfg := &config.Config{
		DataDirectory:  t.TempDir(),
		PluginsEnabled: false,
		Security:       config.SecurityConfig{CredentialStorage: string(config.SecurityPlainText)},
	}
	m := NewManager(cfg)

	if m.IsEnabled() {
		t.Error("IsEnabled() = true with plugins disabled")
	}
	if err := m.StartAllEnabledPlugins(context.Background()); err != nil {
		t.Errorf("StartAllEnabledPlugins() error = %v", err)
	}
	tools, err := m.GetTools(context.Background())
	if err != nil {
		t.Errorf("GetTools() error = %v", err)
	}
	if tools != nil {
		t.Errorf("GetTools() = %v, want nil", tools)
	}
	if names := m.GetActivePluginNames(); names != nil {
		t.Errorf("GetActivePluginNames() = %v, want nil", names)
	}
}
