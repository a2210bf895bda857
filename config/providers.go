package config

import (
	"fmt"
	"strconv"
	"time"
)

// UpdateProviderField updates a single provider setting and persists it.
//
// Fields:
//   - Ollama: "host", "model", "enabled"
//   - Cloud providers: "apikey", "model", "enabled"
func UpdateProviderField(dataDir, providerID, fieldName, value string) error {
	cfg, err := LoadUserConfig(dataDir)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	switch providerID {
	case "ollama":
		switch fieldName {
		case "host":
			cfg.Ollama.Host = value

			// Keep the [[providers]] entry in sync when one exists.
			for i := range cfg.Providers {
				if cfg.Providers[i].ID == "ollama" {
					cfg.Providers[i].BaseURL = value
					break
				}
			}
		case "model":
			cfg.Ollama.DefaultModel = value
		case "enabled":
			updateProviderEnabled(cfg, providerID, value == "true")
		default:
			return fmt.Errorf("unknown field for ollama: %s", fieldName)
		}

	case "openrouter", "anthropic", "openai":
		switch fieldName {
		case "apikey":
			// API keys go to the credential store, never config.toml. Load
			// the full config so the store is initialized.
			fullCfg, err := Load()
			if err != nil {
				return fmt.Errorf("failed to load full config for credential update: %w", err)
			}

			if fullCfg.CredentialStore != nil {
				if err := fullCfg.CredentialStore.Set(providerID, value); err != nil {
					return fmt.Errorf("failed to set API key: %w", err)
				}
				if err := fullCfg.CredentialStore.Save(dataDir); err != nil {
					return fmt.Errorf("failed to persist credentials: %w", err)
				}
			}
			return nil

		case "model":
			updateProviderModel(cfg, providerID, value)
		case "enabled":
			updateProviderEnabled(cfg, providerID, value == "true")
		default:
			return fmt.Errorf("unknown field for %s: %s", providerID, fieldName)
		}

	default:
		return fmt.Errorf("unknown provider: %s", providerID)
	}

	if err := SaveUserConfig(cfg, dataDir); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	return nil
}

// SetActiveProvider switches which provider the worker answers with.
func SetActiveProvider(dataDir, providerID string) error {
	switch providerID {
	case "ollama", "openrouter", "anthropic", "openai":
	default:
		return fmt.Errorf("unknown provider: %s", providerID)
	}

	cfg, err := LoadUserConfig(dataDir)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	cfg.Worker.ActiveProvider = providerID

	if err := SaveUserConfig(cfg, dataDir); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	return nil
}

// UpdateWorkerField updates a [worker] setting and persists it.
//
// Fields: "poll_seconds" (positive integer), "morning_update_at" (HH:MM,
// empty disables the update).
func UpdateWorkerField(dataDir, fieldName, value string) error {
	cfg, err := LoadUserConfig(dataDir)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	switch fieldName {
	case "poll_seconds":
		seconds, err := strconv.Atoi(value)
		if err != nil || seconds <= 0 {
			return fmt.Errorf("poll_seconds must be a positive integer, got %q", value)
		}
		cfg.Worker.PollSeconds = seconds

	case "morning_update_at":
		if value != "" {
			if _, err := time.Parse("15:04", value); err != nil {
				return fmt.Errorf("morning_update_at must be HH:MM, got %q", value)
			}
		}
		cfg.Worker.MorningUpdateAt = value

	default:
		return fmt.Errorf("unknown worker field: %s", fieldName)
	}

	if err := SaveUserConfig(cfg, dataDir); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	return nil
}

func updateProviderEnabled(cfg *UserConfig, providerID string, enabled bool) {
	for i := range cfg.Providers {
		if cfg.Providers[i].ID == providerID {
			cfg.Providers[i].Enabled = enabled
			return
		}
	}

	// Not listed yet: add an entry with sensible defaults.
	cfg.Providers = append(cfg.Providers, ProviderConfig{
		ID:      providerID,
		Name:    getProviderDisplayName(providerID),
		Enabled: enabled,
		BaseURL: getProviderDefaultBaseURL(providerID),
	})
}

func updateProviderModel(cfg *UserConfig, providerID, model string) {
	for i := range cfg.Providers {
		if cfg.Providers[i].ID == providerID {
			cfg.Providers[i].Model = model
			return
		}
	}

	cfg.Providers = append(cfg.Providers, ProviderConfig{
		ID:      providerID,
		Name:    getProviderDisplayName(providerID),
		Model:   model,
		BaseURL: getProviderDefaultBaseURL(providerID),
	})
}

func getProviderDisplayName(providerID string) string {
	switch providerID {
	case "ollama":
		return "Ollama"
	case "openrouter":
		return "OpenRouter"
	case "anthropic":
		return "Anthropic"
	case "openai":
		return "OpenAI"
	default:
		return providerID
	}
}

func getProviderDefaultBaseURL(providerID string) string {
	switch providerID {
	case "openrouter":
		return "https://openrouter.ai/api/v1"
	case "anthropic":
		return "https://api.anthropic.com"
	case "openai":
		return "https://api.openai.com/v1"
	default:
		return ""
	}
}
