package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// userConfigPath is the per-deployment config inside the data directory.
func userConfigPath(dataDir string) string {
	return filepath.Join(dataDir, "config.toml")
}

// LoadUserConfig reads <data_dir>/config.toml, writing the commented
// template first if the file is missing.
func LoadUserConfig(dataDir string) (*UserConfig, error) {
	path := userConfigPath(dataDir)
	if !FileExists(path) {
		if err := CreateDefaultUserConfig(dataDir); err != nil {
			return nil, fmt.Errorf("failed to create user config: %w", err)
		}
		return DefaultUserConfig(), nil
	}

	cfg := DefaultUserConfig()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse user config: %w", err)
	}
	return cfg, nil
}

// SaveUserConfig rewrites <data_dir>/config.toml in place. Comments from
// the template do not survive a save; the file becomes plain TOML.
func SaveUserConfig(cfg *UserConfig, dataDir string) error {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	// 0600: holds service endpoints and tokens.
	return encodeTOML(userConfigPath(dataDir), cfg, "user config")
}

// CreateDefaultUserConfig writes the commented config.toml template if no
// config exists yet. It never overwrites.
func CreateDefaultUserConfig(dataDir string) error {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	return writeTemplate(userConfigPath(dataDir), GenerateUserConfigTemplate(), "user config")
}

// LoadSystemConfig reads the bootstrap file under the XDG config dir,
// creating it from the template on first run.
func LoadSystemConfig() (*SystemConfig, error) {
	path := GetSettingsFilePath()
	if !FileExists(path) {
		if err := CreateDefaultSystemConfig(); err != nil {
			return nil, fmt.Errorf("failed to create system config: %w", err)
		}
		return DefaultSystemConfig(), nil
	}

	cfg := DefaultSystemConfig()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse system config: %w", err)
	}
	return cfg, nil
}

// SystemConfigExists reports whether the settings file is present, without
// the create-on-miss behavior of LoadSystemConfig.
func SystemConfigExists() bool {
	return FileExists(GetSettingsFilePath())
}

func CreateDefaultSystemConfig() error {
	if err := EnsureDir(GetConfigDir()); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return writeTemplate(GetSettingsFilePath(), GenerateSystemConfigTemplate(), "system config")
}

func encodeTOML(path string, v any, what string) error {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create %s file: %w", what, err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(v); err != nil {
		return fmt.Errorf("failed to encode %s: %w", what, err)
	}
	return nil
}

func writeTemplate(path, content, what string) error {
	if FileExists(path) {
		return nil
	}
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", what, err)
	}
	return nil
}
