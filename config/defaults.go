package config

func DefaultSystemConfig() *SystemConfig {
	return &SystemConfig{
		DataDirectory: "~/.local/share/outfitter",
	}
}

func DefaultUserConfig() *UserConfig {
	return &UserConfig{
		Ollama: OllamaConfig{
			Host:         "http://localhost:11434",
			DefaultModel: "llama3.1:latest",
		},
		Security: SecurityConfig{
			CredentialStorage: string(SecurityPlainText),
		},
		Worker: WorkerConfig{
			ActiveProvider:  "ollama",
			PollSeconds:     5,
			MorningUpdateAt: "08:00",
		},
		PluginsEnabled: false,
	}
}

func GenerateSystemConfigTemplate() string {
	return `# Outfitter System Configuration
# Location: ~/.config/outfitter/settings.toml
# This file uses TOML format: https://toml.io

# Directory where message history, credentials and user config are stored
data_directory = "~/.local/share/outfitter"
`
}

func GenerateUserConfigTemplate() string {
	return `# Outfitter Worker Configuration
# Location: <data_directory>/config.toml
# This file uses TOML format: https://toml.io

# Default system prompt override (optional)
default_system_prompt = ""

# Tool-server plugins (disabled by default)
plugins_enabled = false

[ollama]
# Ollama server URL
host = "http://localhost:11434"

# Model used when the active provider is ollama
default_model = "llama3.1:latest"

[security]
# How API keys are stored: "plaintext" or "ssh_key"
credential_storage = "plaintext"

# SSH private key used for ssh_key storage (optional)
# ssh_key_path = "~/.ssh/outfitter_ed25519"

[directory]
# Capability directory endpoint; leave empty to run with local tools only
url = ""

[notify]
# Outbound message dispatch endpoint; leave empty to log replies instead
endpoint = ""

[worker]
# Provider that answers messages: ollama, openrouter, anthropic, openai
active_provider = "ollama"

# Seconds between polls for pending messages
poll_seconds = 5

# Local time for the daily business update, HH:MM
morning_update_at = "08:00"

# Conversation keys that receive the update, e.g. ["+15550100"]
morning_update_recipients = []

[web]
# Base URL for signed display links embedded in replies (optional)
# base_url = "https://outfitter.example.com"

# Cloud providers are added here by the console; API keys live in the
# credential store, never in this file.
# [[providers]]
# id = "openrouter"
# name = "OpenRouter"
# base_url = "https://openrouter.ai/api/v1"
# model = "anthropic/claude-sonnet-4"
# enabled = false
`
}
