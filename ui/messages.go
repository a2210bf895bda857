package ui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"outfitter/config"
	"outfitter/mcp"
	"outfitter/model"
	"outfitter/storage"
)

// Messages produced by the console's data-loading commands. Every load
// carries its error inline so the Update loop stays the single place that
// surfaces failures.

type conversationsLoadedMsg struct {
	conversations []storage.ConversationSummary
	err           error
}

type transcriptLoadedMsg struct {
	key      string
	messages []model.Message
	err      error
}

type helpRequestsLoadedMsg struct {
	requests []storage.HelpRequest
	err      error
}

type dashboardLoadedMsg struct {
	counts        map[model.Status]int
	conversations int
	requests      int
	failures      []model.Message
	err           error
}

type pluginStatusesMsg struct {
	statuses []mcp.PluginStatus
	runtimes []*mcp.Runtime
	err      error
}

// actionDoneMsg reports a fire-and-forget operator action (reprocess,
// resolve, plugin start/stop, yank, settings save). status is shown in the
// footer flash; followup optionally reloads the affected view.
type actionDoneMsg struct {
	status   string
	err      error
	followup func() tea.Msg
}

// settingsReloadedMsg refreshes the in-memory config after a settings row
// was persisted, so the view shows what the file now says.
type settingsReloadedMsg struct {
	cfg *config.Config
	err error
}

type dashboardTickMsg time.Time

type flashClearMsg struct{}
