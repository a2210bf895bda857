// Package config loads and persists the worker's configuration: the
// bootstrap settings file under ~/.config/outfitter, the per-deployment
// config.toml in the data directory, credentials (plain or SSH-key
// encrypted), tool-server plugin settings, and console keybindings.
package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// SystemConfig is the bootstrap file under ~/.config/outfitter. It only says
// where everything else lives.
type SystemConfig struct {
	DataDirectory string `toml:"data_directory"`
}

type OllamaConfig struct {
	Host         string `toml:"host"`
	DefaultModel string `toml:"default_model"`
}

// ProviderConfig describes one LLM provider entry. API keys never live here;
// they come from the credential store or the environment.
type ProviderConfig struct {
	ID      string `toml:"id"`
	Name    string `toml:"name,omitempty"`
	BaseURL string `toml:"base_url,omitempty"`
	Model   string `toml:"model,omitempty"`
	Enabled bool   `toml:"enabled"`
}

// SecurityConfig selects how credentials are stored at rest.
type SecurityConfig struct {
	CredentialStorage string `toml:"credential_storage"`
	SSHKeyPath        string `toml:"ssh_key_path,omitempty"`
}

// DirectoryConfig points at the capability directory service.
type DirectoryConfig struct {
	URL     string            `toml:"url"`
	Headers map[string]string `toml:"headers,omitempty"`
}

// NotifyConfig points at the outbound message dispatch endpoint.
type NotifyConfig struct {
	Endpoint string `toml:"endpoint"`
	Token    string `toml:"token,omitempty"`
}

// WorkerConfig tunes the processing loop and the morning update.
type WorkerConfig struct {
	ActiveProvider          string   `toml:"active_provider"`
	PollSeconds             int      `toml:"poll_seconds"`
	MorningUpdateAt         string   `toml:"morning_update_at,omitempty"`
	MorningUpdateRecipients []string `toml:"morning_update_recipients,omitempty"`
}

// WebConfig configures the signed display links embedded in replies.
type WebConfig struct {
	BaseURL       string `toml:"base_url,omitempty"`
	SigningSecret string `toml:"signing_secret,omitempty"`
}

// UserConfig is the on-disk shape of <data_dir>/config.toml.
type UserConfig struct {
	Ollama              OllamaConfig     `toml:"ollama"`
	Providers           []ProviderConfig `toml:"providers,omitempty"`
	Security            SecurityConfig   `toml:"security"`
	Directory           DirectoryConfig  `toml:"directory"`
	Notify              NotifyConfig     `toml:"notify"`
	Worker              WorkerConfig     `toml:"worker"`
	Web                 WebConfig        `toml:"web"`
	DefaultSystemPrompt string           `toml:"default_system_prompt,omitempty"`
	PluginsEnabled      bool             `toml:"plugins_enabled"`
}

// Config is the assembled runtime configuration.
type Config struct {
	DataDirectory       string
	OllamaHost          string
	DefaultModel        string
	DefaultSystemPrompt string
	PluginsEnabled      bool

	Providers []ProviderConfig
	Security  SecurityConfig
	Directory DirectoryConfig
	Notify    NotifyConfig
	Worker    WorkerConfig
	Web       WebConfig

	CredentialStore *CredentialStore

	// CredentialWarning carries a non-fatal credential load problem out of
	// Load; the worker starts anyway with environment-supplied keys.
	CredentialWarning string
}

var Debug = false
var DebugLog *log.Logger

func (c *Config) OllamaURL() string {
	return c.OllamaHost
}

func (c *Config) Model() string {
	return c.DefaultModel
}

func (c *Config) DataDir() string {
	return ExpandPath(c.DataDirectory)
}

func (c *Config) fromUserConfig(userCfg *UserConfig) {
	c.OllamaHost = userCfg.Ollama.Host
	c.DefaultModel = userCfg.Ollama.DefaultModel
	c.DefaultSystemPrompt = userCfg.DefaultSystemPrompt
	c.PluginsEnabled = userCfg.PluginsEnabled
	c.Providers = userCfg.Providers
	c.Security = userCfg.Security
	c.Directory = userCfg.Directory
	c.Notify = userCfg.Notify
	c.Worker = userCfg.Worker
	c.Web = userCfg.Web
}

// applyEnvOverrides lets deployment environments win over the files. The
// worker typically runs under a process manager where env is the natural
// way to inject endpoints and secrets.
func (c *Config) applyEnvOverrides() {
	if host := os.Getenv("OUTFITTER_OLLAMA_HOST"); host != "" {
		c.OllamaHost = host
	}
	if model := os.Getenv("OUTFITTER_OLLAMA_MODEL"); model != "" {
		c.DefaultModel = model
	}
	if dataDir := os.Getenv("OUTFITTER_DATA_DIR"); dataDir != "" {
		c.DataDirectory = dataDir
	}
	if url := os.Getenv("OUTFITTER_DIRECTORY_URL"); url != "" {
		c.Directory.URL = url
	}
	if token := os.Getenv("OUTFITTER_DIRECTORY_TOKEN"); token != "" {
		if c.Directory.Headers == nil {
			c.Directory.Headers = make(map[string]string)
		}
		c.Directory.Headers["Authorization"] = "Bearer " + token
	}
	if endpoint := os.Getenv("OUTFITTER_NOTIFY_ENDPOINT"); endpoint != "" {
		c.Notify.Endpoint = endpoint
	}
	if token := os.Getenv("OUTFITTER_NOTIFY_TOKEN"); token != "" {
		c.Notify.Token = token
	}
	if provider := os.Getenv("OUTFITTER_PROVIDER"); provider != "" {
		c.Worker.ActiveProvider = provider
	}
	if baseURL := os.Getenv("OUTFITTER_WEB_BASE_URL"); baseURL != "" {
		c.Web.BaseURL = baseURL
	}
	if secret := os.Getenv("OUTFITTER_WEB_SIGNING_SECRET"); secret != "" {
		c.Web.SigningSecret = secret
	}
}

func (c *Config) applyDefaults() {
	if c.Worker.ActiveProvider == "" {
		c.Worker.ActiveProvider = "ollama"
	}
	if c.Worker.PollSeconds <= 0 {
		c.Worker.PollSeconds = 5
	}
	if c.Security.CredentialStorage == "" {
		c.Security.CredentialStorage = string(SecurityPlainText)
	}
}

// overlayEnvCredentials merges API keys from the environment into the store
// without persisting them.
func (c *Config) overlayEnvCredentials() {
	for _, id := range []string{"openrouter", "anthropic", "openai"} {
		envVar := "OUTFITTER_" + strings.ToUpper(id) + "_API_KEY"
		if key := os.Getenv(envVar); key != "" {
			c.CredentialStore.Set(id, key)
		}
	}
}

func CheckDebug() bool {
	debug := os.Getenv("OUTFITTER_DEBUG")
	return debug == "true" || debug == "1"
}

func InitDebugLog(dataDir string) {
	if !CheckDebug() {
		return
	}

	logPath := filepath.Join(dataDir, "debug.log")

	// 0600: debug output can carry message text and tool arguments.
	f, err := os.OpenFile(logPath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0600)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Could not open debug log at %s: %v\n", logPath, err)
		return
	}

	// Debug flips only once the log is writable, so call sites may guard on
	// it alone.
	DebugLog = log.New(f, "", log.Ldate|log.Ltime|log.Lmicroseconds|log.Lshortfile)
	Debug = true
	DebugLog.Printf("=== Debug logging started (OUTFITTER_DEBUG=%s) ===", os.Getenv("OUTFITTER_DEBUG"))
	DebugLog.Printf("Log path: %s", logPath)
}

// HasAllEnvVars reports whether the trio needed for config-less startup is
// present.
func HasAllEnvVars() bool {
	return os.Getenv("OUTFITTER_OLLAMA_HOST") != "" &&
		os.Getenv("OUTFITTER_OLLAMA_MODEL") != "" &&
		os.Getenv("OUTFITTER_DATA_DIR") != ""
}

func HasAnyEnvVar() bool {
	return os.Getenv("OUTFITTER_OLLAMA_HOST") != "" ||
		os.Getenv("OUTFITTER_OLLAMA_MODEL") != "" ||
		os.Getenv("OUTFITTER_DATA_DIR") != ""
}

func GetMissingEnvVar() string {
	if os.Getenv("OUTFITTER_OLLAMA_HOST") == "" {
		return "OUTFITTER_OLLAMA_HOST"
	}
	if os.Getenv("OUTFITTER_OLLAMA_MODEL") == "" {
		return "OUTFITTER_OLLAMA_MODEL"
	}
	if os.Getenv("OUTFITTER_DATA_DIR") == "" {
		return "OUTFITTER_DATA_DIR"
	}
	return ""
}

func Load() (*Config, error) {
	cfg := &Config{
		DataDirectory: "~/.local/share/outfitter",
		OllamaHost:    "http://localhost:11434",
		DefaultModel:  "llama3.1:latest",
	}

	if SystemConfigExists() || !HasAllEnvVars() {
		systemCfg, err := LoadSystemConfig()
		if err != nil {
			return nil, fmt.Errorf("failed to load system config: %w", err)
		}
		cfg.DataDirectory = systemCfg.DataDirectory

		userCfg, err := LoadUserConfig(cfg.DataDir())
		if err != nil {
			return nil, fmt.Errorf("failed to load user config: %w", err)
		}
		cfg.fromUserConfig(userCfg)
	}

	cfg.applyEnvOverrides()
	cfg.applyDefaults()

	dataDir := cfg.DataDir()
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	if err := EnsureDataDirPermissions(dataDir); err != nil {
		return nil, fmt.Errorf("failed to set data directory permissions: %w", err)
	}

	keyPath := ExpandPath(cfg.Security.SSHKeyPath)
	if SecurityMethod(cfg.Security.CredentialStorage) == SecuritySSHKey && keyPath == "" {
		// No key configured: fall back to scanning ~/.ssh so a headless
		// deployment works without editing config.toml.
		if found, err := FindSSHKeys(); err == nil && len(found) > 0 {
			keyPath = found[0]
		}
	}

	cfg.CredentialStore = NewCredentialStore(
		SecurityMethod(cfg.Security.CredentialStorage),
		keyPath,
	)
	if pass := os.Getenv("OUTFITTER_SSH_PASSPHRASE"); pass != "" {
		cfg.CredentialStore.SetPassphrase(pass)
	}
	if err := cfg.CredentialStore.Load(dataDir); err != nil {
		// Not fatal: the worker can run on env-supplied keys while the
		// operator sorts the store out (wrong passphrase, moved SSH key).
		cfg.CredentialWarning = err.Error()
	}
	cfg.overlayEnvCredentials()

	return cfg, nil
}
