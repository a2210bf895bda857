package config

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/BurntSushi/toml"
)

func TestUserConfigTemplateMatchesDefaults(t *testing.T) {
	var parsed UserConfig
	if _, err := toml.Decode(GenerateUserConfigTemplate(), &parsed); err != nil {
		t.Fatalf("template does not parse: %v", err)
	}

	defaults := DefaultUserConfig()

	if parsed.Ollama.Host != defaults.Ollama.Host {
		t.Errorf("host: got %q, want %q", parsed.Ollama.Host, defaults.Ollama.Host)
	}
	if parsed.Ollama.DefaultModel != defaults.Ollama.DefaultModel {
		t.Errorf("model: got %q, want %q", parsed.Ollama.DefaultModel, defaults.Ollama.DefaultModel)
	}
	if parsed.Security.CredentialStorage != defaults.Security.CredentialStorage {
		t.Errorf("credential storage: got %q, want %q", parsed.Security.CredentialStorage, defaults.Security.CredentialStorage)
	}
	if parsed.Worker.ActiveProvider != defaults.Worker.ActiveProvider {
		t.Errorf("active provider: got %q, want %q", parsed.Worker.ActiveProvider, defaults.Worker.ActiveProvider)
	}
	if parsed.Worker.PollSeconds != defaults.Worker.PollSeconds {
		t.Errorf("poll seconds: got %d, want %d", parsed.Worker.PollSeconds, defaults.Worker.PollSeconds)
	}
	if parsed.Worker.MorningUpdateAt != defaults.Worker.MorningUpdateAt {
		t.Errorf("morning update at: got %q, want %q", parsed.Worker.MorningUpdateAt, defaults.Worker.MorningUpdateAt)
	}
	if len(parsed.Worker.MorningUpdateRecipients) != 0 {
		t.Errorf("recipients should default empty, got %v", parsed.Worker.MorningUpdateRecipients)
	}
	if parsed.PluginsEnabled {
		t.Error("plugins should default disabled")
	}
}

func TestSystemConfigTemplateParses(t *testing.T) {
	var parsed SystemConfig
	if _, err := toml.Decode(GenerateSystemConfigTemplate(), &parsed); err != nil {
		t.Fatalf("template does not parse: %v", err)
	}
	if parsed.DataDirectory != "~/.local/share/outfitter" {
		t.Errorf("data directory: got %q", parsed.DataDirectory)
	}
}

func TestExpandPath(t *testing.T) {
	t.Setenv("HOME", "/home/tester")

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"tilde", "~/data", "/home/tester/data"},
		{"env var", "$HOME/data", "/home/tester/data"},
		{"absolute untouched", "/var/lib/outfitter", "/var/lib/outfitter"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExpandPath(tt.in); got != tt.want {
				t.Errorf("ExpandPath(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestGetActionKey(t *testing.T) {
	kb := DefaultKeybindings()

	tests := []struct {
		action string
		want   string
	}{
		{"scroll_down", "alt+j"},
		{"help_requests", "alt+t"},
		{"toggle_failed", "alt+x"},
		{"list_down", "j"},
		{"settings", "alt+S"}, // secondary folds shift into the letter
		{"half_page_down", "alt+J"},
		{"page_down", "alt+pgdown"},
		{"no_such_action", ""},
	}

	for _, tt := range tests {
		if got := kb.GetActionKey(tt.action); got != tt.want {
			t.Errorf("GetActionKey(%q) = %q, want %q", tt.action, got, tt.want)
		}
	}
}

func TestGetActionKeyOverride(t *testing.T) {
	kb := DefaultKeybindings()
	kb.Actions = map[string]string{"quit": "ctrl+shift+q"}

	if got := kb.GetActionKey("quit"); got != "ctrl+shift+q" {
		t.Errorf("override ignored: got %q", got)
	}
	// Other actions keep their defaults.
	if got := kb.GetActionKey("help"); got != "alt+h" {
		t.Errorf("GetActionKey(help) = %q, want %q", got, "alt+h")
	}
}

func TestSecondaryKeySpecialKeys(t *testing.T) {
	kb := DefaultKeybindings()

	// Special keys keep the explicit shift; letters do not.
	if got := kb.SecondaryKey("f1"); got != "alt+shift+f1" {
		t.Errorf("SecondaryKey(f1) = %q", got)
	}
	if got := kb.SecondaryKey("s"); got != "alt+S" {
		t.Errorf("SecondaryKey(s) = %q", got)
	}
}

func TestDisplayActionKey(t *testing.T) {
	kb := DefaultKeybindings()

	tests := []struct {
		action string
		want   string
	}{
		{"scroll_down", "Alt+J"},
		{"settings", "Alt+Shift+S"},
		{"page_down", "Alt+Pgdown"},
	}

	for _, tt := range tests {
		if got := kb.DisplayActionKey(tt.action); got != tt.want {
			t.Errorf("DisplayActionKey(%q) = %q, want %q", tt.action, got, tt.want)
		}
	}
}

func TestKeybindingsValidate(t *testing.T) {
	tests := []struct {
		name      string
		primary   string
		secondary string
		valid     bool
		warns     bool
	}{
		{"defaults", "alt", "alt+shift", true, false},
		{"bare shift", "shift", "alt+shift", false, true},
		{"ctrl warns", "ctrl", "ctrl+shift", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kb := &KeyBindingsConfig{Modifiers: ModifierConfig{Primary: tt.primary, Secondary: tt.secondary}}
			valid, msg := kb.Validate()
			if valid != tt.valid {
				t.Errorf("valid = %v, want %v", valid, tt.valid)
			}
			if (msg != "") != tt.warns {
				t.Errorf("warning = %q, expected warning: %v", msg, tt.warns)
			}
		})
	}
}

func TestUpdateProviderField(t *testing.T) {
	dataDir := t.TempDir()

	if err := UpdateProviderField(dataDir, "ollama", "host", "http://10.0.0.9:11434"); err != nil {
		t.Fatalf("update host: %v", err)
	}
	if err := UpdateProviderField(dataDir, "openrouter", "enabled", "true"); err != nil {
		t.Fatalf("enable openrouter: %v", err)
	}
	if err := UpdateProviderField(dataDir, "openrouter", "model", "anthropic/claude-sonnet-4"); err != nil {
		t.Fatalf("set model: %v", err)
	}

	cfg, err := LoadUserConfig(dataDir)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}

	if cfg.Ollama.Host != "http://10.0.0.9:11434" {
		t.Errorf("host not persisted: %q", cfg.Ollama.Host)
	}

	var entry *ProviderConfig
	for i := range cfg.Providers {
		if cfg.Providers[i].ID == "openrouter" {
			entry = &cfg.Providers[i]
		}
	}
	if entry == nil {
		t.Fatal("openrouter entry not created")
	}
	if !entry.Enabled {
		t.Error("openrouter should be enabled")
	}
	if entry.Model != "anthropic/claude-sonnet-4" {
		t.Errorf("model not persisted: %q", entry.Model)
	}
	if entry.BaseURL != "https://openrouter.ai/api/v1" {
		t.Errorf("default base URL missing: %q", entry.BaseURL)
	}
}

func TestUpdateProviderFieldRejectsUnknown(t *testing.T) {
	dataDir := t.TempDir()

	if err := UpdateProviderField(dataDir, "bedrock", "enabled", "true"); err == nil {
		t.Error("expected error for unknown provider")
	}
	if err := UpdateProviderField(dataDir, "ollama", "apikey", "x"); err == nil {
		t.Error("ollama has no apikey field")
	}
}

func TestSetActiveProvider(t *testing.T) {
	dataDir := t.TempDir()

	if err := SetActiveProvider(dataDir, "anthropic"); err != nil {
		t.Fatalf("set active: %v", err)
	}

	cfg, err := LoadUserConfig(dataDir)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if cfg.Worker.ActiveProvider != "anthropic" {
		t.Errorf("active provider = %q", cfg.Worker.ActiveProvider)
	}

	if err := SetActiveProvider(dataDir, "gemini"); err == nil {
		t.Error("expected error for unknown provider")
	}
}

func TestCredentialStorePlainTextRoundtrip(t *testing.T) {
	dataDir := t.TempDir()

	store := NewCredentialStore(SecurityPlainText, "")
	store.Set("openrouter", "sk-or-123")
	store.SetPlugin("gmaps", "api_key", "gm-456")

	if err := store.Save(dataDir); err != nil {
		t.Fatalf("save: %v", err)
	}

	reloaded := NewCredentialStore(SecurityPlainText, "")
	if err := reloaded.Load(dataDir); err != nil {
		t.Fatalf("load: %v", err)
	}

	if got := reloaded.Get("openrouter"); got != "sk-or-123" {
		t.Errorf("provider key: got %q", got)
	}
	if got := reloaded.GetPlugin("gmaps", "api_key"); got != "gm-456" {
		t.Errorf("plugin key: got %q", got)
	}
	if got := reloaded.GetPlugin("gmaps", "missing"); got != "" {
		t.Errorf("absent plugin key returned %q", got)
	}
}

func TestCredentialStoreMissingFile(t *testing.T) {
	store := NewCredentialStore(SecurityPlainText, "")
	if err := store.Load(t.TempDir()); err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
	if got := store.Get("openrouter"); got != "" {
		t.Errorf("empty store returned %q", got)
	}
}

func TestIsSensitiveKey(t *testing.T) {
	sensitive := []string{"api_key", "AUTH_TOKEN", "client_secret", "password", "bearer_value"}
	for _, key := range sensitive {
		if !isSensitiveKey(key) {
			t.Errorf("%q should be sensitive", key)
		}
	}

	plain := []string{"region", "endpoint", "timeout", "locale"}
	for _, key := range plain {
		if isSensitiveKey(key) {
			t.Errorf("%q should not be sensitive", key)
		}
	}
}

func TestPluginConfigSecurePlaintext(t *testing.T) {
	dataDir := t.TempDir()

	cfg := &Config{
		Security:        SecurityConfig{CredentialStorage: string(SecurityPlainText)},
		CredentialStore: NewCredentialStore(SecurityPlainText, ""),
	}
	pluginsCfg := &PluginsConfig{Plugins: make(map[string]PluginConfigEntry)}

	values := map[string]string{"api_key": "secret", "region": "us-west"}
	if err := SavePluginConfigSecure(cfg, dataDir, pluginsCfg, "gmaps", values); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := SavePluginsConfig(dataDir, pluginsCfg); err != nil {
		t.Fatalf("persist: %v", err)
	}

	reloaded, err := LoadPluginsConfig(dataDir)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}

	got, err := LoadPluginConfigSecure(cfg, reloaded, "gmaps")
	if err != nil {
		t.Fatalf("load secure: %v", err)
	}
	if got["api_key"] != "secret" || got["region"] != "us-west" {
		t.Errorf("roundtrip mismatch: %v", got)
	}
}

func TestLoadPluginsConfigMissing(t *testing.T) {
	cfg, err := LoadPluginsConfig(filepath.Join(t.TempDir(), "nope"))
	if err != nil {
		t.Fatalf("missing plugins.toml should not error: %v", err)
	}
	if len(cfg.Plugins) != 0 {
		t.Errorf("expected empty plugins, got %d", len(cfg.Plugins))
	}
}

func TestGenerateKeybindingsTemplateParses(t *testing.T) {
	var parsed KeyBindingsConfig
	if _, err := toml.Decode(GenerateKeybindingsTemplate(), &parsed); err != nil {
		t.Fatalf("template does not parse: %v", err)
	}
	if parsed.Modifiers.Primary != "alt" {
		t.Errorf("primary = %q", parsed.Modifiers.Primary)
	}
	if !strings.Contains(parsed.Modifiers.Secondary, "shift") {
		t.Errorf("secondary = %q", parsed.Modifiers.Secondary)
	}
}
