package provider

import (
	"outfitter/config"
	"outfitter/model"
)

// InitializeProviders builds every provider the worker can route to, keyed
// by provider ID. Ollama is always attempted from the top-level host/model
// settings; cloud providers come from the [providers] table and read their
// API keys out of the credential store. A provider that fails to construct
// is logged and skipped so one bad entry cannot keep the worker down.
//
// The returned map may be empty (no Ollama host reachable, nothing enabled).
// Callers pick an entry by cfg.Worker.ActiveProvider and decide for
// themselves whether an empty map is fatal.
func InitializeProviders(cfg *config.Config) map[string]model.Provider {
	providers := make(map[string]model.Provider)

	if p, err := NewProvider(Config{
		Type:    ProviderTypeOllama,
		BaseURL: cfg.OllamaURL(),
		Model:   cfg.Model(),
	}); err != nil {
		if config.Debug {
			config.DebugLog.Printf("[Provider] ollama unavailable: %v", err)
		}
	} else {
		providers["ollama"] = p
	}

	for _, pc := range cfg.Providers {
		if !pc.Enabled {
			continue
		}

		var apiKey string
		if cfg.CredentialStore != nil {
			apiKey = cfg.CredentialStore.Get(pc.ID)
		}

		p, err := NewProvider(Config{
			Type:    MapProviderIDToType(pc.ID),
			BaseURL: pc.BaseURL,
			APIKey:  apiKey,
			Model:   pc.Model,
		})
		if err != nil {
			if config.Debug {
				config.DebugLog.Printf("[Provider] skipping %s: %v", pc.ID, err)
			}
			continue
		}
		providers[pc.ID] = p
	}

	if config.Debug {
		for id := range providers {
			config.DebugLog.Printf("[Provider] initialized %s", id)
		}
	}

	return providers
}
