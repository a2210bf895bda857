package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// PluginConfigEntry is one tool-server plugin's settings in plugins.toml.
// Sensitive values move to the credential store under ssh_key storage; the
// SensitiveKeys list records which ones.
type PluginConfigEntry struct {
	Enabled       bool              `toml:"enabled"`
	Config        map[string]string `toml:"config,omitempty"`
	SensitiveKeys []string          `toml:"sensitive_keys,omitempty"`
}

type PluginsConfig struct {
	Plugins map[string]PluginConfigEntry `toml:"plugins"`
}

func pluginsConfigPath(dataDir string) string {
	return filepath.Join(dataDir, "plugins.toml")
}

func LoadPluginsConfig(dataDir string) (*PluginsConfig, error) {
	cfg := PluginsConfig{Plugins: make(map[string]PluginConfigEntry)}

	path := pluginsConfigPath(dataDir)
	if !FileExists(path) {
		return &cfg, nil
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode plugins config: %w", err)
	}
	if cfg.Plugins == nil {
		cfg.Plugins = make(map[string]PluginConfigEntry)
	}
	return &cfg, nil
}

func SavePluginsConfig(dataDir string, config *PluginsConfig) error {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	// 0600: may hold API keys under plaintext storage.
	return encodeTOML(pluginsConfigPath(dataDir), config, "plugins config")
}

func (pc *PluginsConfig) GetPluginEnabled(pluginID string) bool {
	entry, exists := pc.Plugins[pluginID]
	if !exists {
		return false
	}
	return entry.Enabled
}

func (pc *PluginsConfig) SetPluginEnabled(pluginID string, enabled bool) {
	if pc.Plugins == nil {
		pc.Plugins = make(map[string]PluginConfigEntry)
	}

	entry, exists := pc.Plugins[pluginID]
	if !exists {
		entry = PluginConfigEntry{
			Config: make(map[string]string),
		}
	}

	entry.Enabled = enabled
	pc.Plugins[pluginID] = entry
}

func isSensitiveKey(key string) bool {
	upperKey := strings.ToUpper(key)
	sensitiveWords := []string{"KEY", "TOKEN", "SECRET", "PASSWORD", "AUTH", "CREDENTIAL", "BEARER"}
	for _, word := range sensitiveWords {
		if strings.Contains(upperKey, word) {
			return true
		}
	}
	return false
}

// SavePluginConfigSecure stores plugin settings, routing sensitive values to
// the credential store when encryption is on. The caller still persists
// pluginsConfig with SavePluginsConfig.
func SavePluginConfigSecure(cfg *Config, dataDir string, pluginsConfig *PluginsConfig, pluginID string, configValues map[string]string) error {
	switch cfg.Security.CredentialStorage {
	case string(SecuritySSHKey):
		sensitiveKeys := []string{}
		plaintextConfig := make(map[string]string)

		for key, value := range configValues {
			if isSensitiveKey(key) {
				if err := cfg.CredentialStore.SetPlugin(pluginID, key, value); err != nil {
					return fmt.Errorf("failed to save sensitive key %s: %w", key, err)
				}
				sensitiveKeys = append(sensitiveKeys, key)
			} else {
				plaintextConfig[key] = value
			}
		}

		pluginsConfig.Plugins[pluginID] = PluginConfigEntry{
			Enabled:       pluginsConfig.GetPluginEnabled(pluginID),
			Config:        plaintextConfig,
			SensitiveKeys: sensitiveKeys,
		}

		return cfg.CredentialStore.Save(dataDir)

	case string(SecurityPlainText):
		pluginsConfig.Plugins[pluginID] = PluginConfigEntry{
			Enabled:       pluginsConfig.GetPluginEnabled(pluginID),
			Config:        configValues,
			SensitiveKeys: []string{},
		}
		return nil

	default:
		return fmt.Errorf("unknown security method: %s", cfg.Security.CredentialStorage)
	}
}

// LoadPluginConfigSecure returns a plugin's full settings, merging sensitive
// values back in from the credential store.
func LoadPluginConfigSecure(cfg *Config, pluginsConfig *PluginsConfig, pluginID string) (map[string]string, error) {
	entry, exists := pluginsConfig.Plugins[pluginID]
	if !exists {
		return make(map[string]string), nil
	}

	result := make(map[string]string)
	for key, value := range entry.Config {
		result[key] = value
	}

	switch cfg.Security.CredentialStorage {
	case string(SecuritySSHKey):
		for _, key := range entry.SensitiveKeys {
			if value := cfg.CredentialStore.GetPlugin(pluginID, key); value != "" {
				result[key] = value
			}
		}
	case string(SecurityPlainText):
		// Everything already lives in Config.
	default:
		return nil, fmt.Errorf("unknown security method: %s", cfg.Security.CredentialStorage)
	}

	return result, nil
}
