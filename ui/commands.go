package ui

import (
	"context"
	"fmt"
	"time"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"

	"outfitter/config"
	"outfitter/model"
	"outfitter/provider"
	"outfitter/storage"
)

const (
	loadTimeout   = 5 * time.Second
	pluginTimeout = 30 * time.Second

	// transcriptWindow bounds how many messages one conversation view loads.
	transcriptWindow = 200

	searchLimit = 50

	// dashboardFailures caps the recent-failures list on the dashboard.
	dashboardFailures = 5

	dashboardRefresh = 5 * time.Second
	flashDuration    = 3 * time.Second
)

func (c Console) loadConversationsCmd() tea.Cmd {
	store := c.store
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
		defer cancel()

		conversations, err := store.ListConversations(ctx)
		return conversationsLoadedMsg{conversations: conversations, err: err}
	}
}

func (c Console) loadTranscriptCmd(key string) tea.Cmd {
	store := c.store
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
		defer cancel()

		messages, err := store.GetConversationWindow(ctx, key, transcriptWindow)
		return transcriptLoadedMsg{key: key, messages: messages, err: err}
	}
}

func (c Console) loadHelpRequestsCmd() tea.Cmd {
	store := c.store
	includeResolved := c.requests.includeResolved
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
		defer cancel()

		requests, err := store.ListHelpRequests(ctx, includeResolved)
		return helpRequestsLoadedMsg{requests: requests, err: err}
	}
}

func (c Console) loadDashboardCmd() tea.Cmd {
	store := c.store
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
		defer cancel()

		counts, err := store.CountByStatus(ctx)
		if err != nil {
			return dashboardLoadedMsg{err: err}
		}
		conversations, err := store.ListConversations(ctx)
		if err != nil {
			return dashboardLoadedMsg{err: err}
		}
		requests, err := store.ListHelpRequests(ctx, false)
		if err != nil {
			return dashboardLoadedMsg{err: err}
		}
		failures, err := store.ListFailed(ctx, dashboardFailures)
		if err != nil {
			return dashboardLoadedMsg{err: err}
		}
		return dashboardLoadedMsg{
			counts:        counts,
			conversations: len(conversations),
			requests:      len(requests),
			failures:      failures,
		}
	}
}

func (c Console) loadPluginStatusesCmd() tea.Cmd {
	plugins := c.plugins
	runtimes := c.runtimes
	return func() tea.Msg {
		if plugins == nil {
			return pluginStatusesMsg{}
		}
		statuses, err := plugins.Statuses()
		msg := pluginStatusesMsg{statuses: statuses, err: err}
		if runtimes != nil {
			msg.runtimes = runtimes.List()
		}
		return msg
	}
}

// reprocessCmd requeues a failed message so the worker picks it up again.
func (c Console) reprocessCmd(msg model.Message) tea.Cmd {
	store := c.store
	reload := c.loadTranscriptCmd(msg.ConversationKey)
	return func() tea.Msg {
		if msg.Status != model.StatusFailed {
			return actionDoneMsg{err: fmt.Errorf("message %s is %s, only failed messages can be reprocessed", shortID(msg.ID), msg.Status)}
		}

		ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
		defer cancel()

		if err := store.SetStatus(ctx, msg.ID, model.StatusPending); err != nil {
			return actionDoneMsg{err: err}
		}
		return actionDoneMsg{
			status:   fmt.Sprintf("Message %s requeued for processing", shortID(msg.ID)),
			followup: func() tea.Msg { return reload() },
		}
	}
}

func (c Console) resolveRequestCmd(request storage.HelpRequest) tea.Cmd {
	store := c.store
	reload := c.loadHelpRequestsCmd()
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
		defer cancel()

		if err := store.ResolveHelpRequest(ctx, request.ID); err != nil {
			return actionDoneMsg{err: err}
		}
		return actionDoneMsg{
			status:   fmt.Sprintf("Help request for %s resolved", request.ConversationKey),
			followup: func() tea.Msg { return reload() },
		}
	}
}

func yankCmd(text, label string) tea.Cmd {
	return func() tea.Msg {
		if err := clipboard.WriteAll(text); err != nil {
			return actionDoneMsg{err: fmt.Errorf("clipboard: %w", err)}
		}
		return actionDoneMsg{status: label + " copied to clipboard"}
	}
}

func (c Console) startPluginCmd(pluginID string) tea.Cmd {
	plugins := c.plugins
	reload := c.loadPluginStatusesCmd()
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), pluginTimeout)
		defer cancel()

		if err := plugins.StartPlugin(ctx, pluginID); err != nil {
			return actionDoneMsg{err: err, followup: func() tea.Msg { return reload() }}
		}
		return actionDoneMsg{
			status:   fmt.Sprintf("Plugin %s started and enabled", pluginID),
			followup: func() tea.Msg { return reload() },
		}
	}
}

func (c Console) stopPluginCmd(pluginID string) tea.Cmd {
	plugins := c.plugins
	reload := c.loadPluginStatusesCmd()
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), pluginTimeout)
		defer cancel()

		if err := plugins.StopPlugin(ctx, pluginID); err != nil {
			return actionDoneMsg{err: err, followup: func() tea.Msg { return reload() }}
		}
		return actionDoneMsg{
			status:   fmt.Sprintf("Plugin %s stopped and disabled", pluginID),
			followup: func() tea.Msg { return reload() },
		}
	}
}

// refreshPluginCmd re-reads the tool list of a running plugin, then reloads
// the status table.
func (c Console) refreshPluginCmd(pluginID string) tea.Cmd {
	plugins := c.plugins
	reload := c.loadPluginStatusesCmd()
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), pluginTimeout)
		defer cancel()

		if err := plugins.RefreshTools(ctx, pluginID); err != nil {
			return actionDoneMsg{err: err, followup: func() tea.Msg { return reload() }}
		}
		return actionDoneMsg{
			status:   fmt.Sprintf("Plugin %s tools refreshed", pluginID),
			followup: func() tea.Msg { return reload() },
		}
	}
}

// saveSettingCmd persists one settings-row edit. The worker reads config at
// startup, so most changes need a restart to take effect; the flash says so.
func (c Console) saveSettingCmd(field SettingField, value string) tea.Cmd {
	cfg := c.cfg
	dataDir := cfg.DataDir()
	return func() tea.Msg {
		var err error
		var note string
		switch field.Key {
		case settingActiveProvider:
			err = config.SetActiveProvider(dataDir, value)
			if err == nil {
				note = pingNote(cfg, value)
			}
		case settingOllamaHost:
			err = config.UpdateProviderField(dataDir, "ollama", "host", value)
		case settingOllamaModel:
			err = config.UpdateProviderField(dataDir, "ollama", "model", value)
			if err == nil {
				note = modelNote(cfg, value)
			}
		case settingPollSeconds:
			err = config.UpdateWorkerField(dataDir, "poll_seconds", value)
		case settingMorningAt:
			err = config.UpdateWorkerField(dataDir, "morning_update_at", value)
		default:
			err = fmt.Errorf("field %s is read-only", field.Label)
		}
		if err != nil {
			return actionDoneMsg{err: err}
		}
		return actionDoneMsg{
			status: fmt.Sprintf("%s saved (restart worker to apply)%s", field.Label, note),
			followup: func() tea.Msg {
				cfg, err := config.Load()
				return settingsReloadedMsg{cfg: cfg, err: err}
			},
		}
	}
}

// pingNote checks the newly selected provider's reachability so a typo'd
// host or missing key shows up now instead of at the next worker restart.
// The save stands either way.
func pingNote(cfg *config.Config, providerID string) string {
	ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
	defer cancel()

	baseURL, apiKey := providerEndpoint(cfg, providerID)
	if err := provider.PingProvider(ctx, providerID, baseURL, apiKey); err != nil {
		return fmt.Sprintf("; %s not responding: %v", providerID, err)
	}
	return ""
}

// modelNote warns when the saved model name is not on the Ollama server.
func modelNote(cfg *config.Config, modelName string) string {
	ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
	defer cancel()

	models, err := provider.FetchProviderModels(ctx, "ollama", "", "", cfg.OllamaURL())
	if err != nil {
		return fmt.Sprintf("; could not verify against Ollama: %v", err)
	}
	for _, m := range models {
		if m.Name == modelName || m.InternalName == modelName {
			return ""
		}
	}
	return fmt.Sprintf("; %s is not in Ollama's model list", modelName)
}

func providerEndpoint(cfg *config.Config, providerID string) (baseURL, apiKey string) {
	if providerID == "ollama" {
		return cfg.OllamaURL(), ""
	}
	for _, pc := range cfg.Providers {
		if pc.ID != providerID {
			continue
		}
		if cfg.CredentialStore != nil {
			apiKey = cfg.CredentialStore.Get(pc.ID)
		}
		return pc.BaseURL, apiKey
	}
	return "", ""
}

func dashboardTickCmd() tea.Cmd {
	return tea.Tick(dashboardRefresh, func(t time.Time) tea.Msg {
		return dashboardTickMsg(t)
	})
}

func flashClearCmd() tea.Cmd {
	return tea.Tick(flashDuration, func(time.Time) tea.Msg {
		return flashClearMsg{}
	})
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
