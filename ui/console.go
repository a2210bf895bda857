package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"outfitter/config"
	"outfitter/mcp"
	"outfitter/storage"
)

// consoleView enumerates the console's full-screen views. Help and About
// render as overlays on top of whichever view is active.
type consoleView int

const (
	viewConversations consoleView = iota
	viewTranscript
	viewRequests
	viewDashboard
	viewPlugins
	viewSearch
	viewSettings
)

// Console is the operator console: a read-mostly window into the worker's
// conversation store plus the handful of actions an operator needs
// (reprocess, resolve, plugin start/stop, settings edits). It never talks to
// a provider; the worker process owns all conversation traffic.
type Console struct {
	cfg      *config.Config
	kb       *config.KeyBindingsConfig
	store    *storage.MessageStore
	index    *storage.SearchIndex
	plugins  *mcp.Manager
	runtimes *mcp.RuntimeChecker
	version  string

	width  int
	height int
	ready  bool

	view      consoleView
	showHelp  bool
	showAbout bool

	// Armed confirmation plus the command it guards.
	confirm    ConfirmationState
	confirmCmd tea.Cmd

	// Footer flash for action results, cleared on a timer.
	flash    string
	flashErr bool

	spin    spinner.Model
	loading bool

	conversations conversationListState
	transcript    transcriptState
	requests      requestListState
	dashboard     dashboardState
	pluginView    pluginViewState
	search        searchState
	settings      settingsState
}

// NewConsole builds the console model. plugins may be nil when the plugin
// subsystem is disabled; the plugin view then renders a disabled notice.
func NewConsole(cfg *config.Config, store *storage.MessageStore, index *storage.SearchIndex, plugins *mcp.Manager, version string) Console {
	kb, err := config.LoadKeybindings(cfg.DataDir())
	if err != nil {
		kb = config.DefaultKeybindings()
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(accentColor)

	filter := textinput.New()
	filter.Prompt = "/ "
	filter.Placeholder = "filter conversations"
	filter.CharLimit = 80

	query := textinput.New()
	query.Prompt = "? "
	query.Placeholder = "search all messages"
	query.CharLimit = 120

	edit := textinput.New()
	edit.Prompt = "> "
	edit.CharLimit = 200

	c := Console{
		cfg:      cfg,
		kb:       kb,
		store:    store,
		index:    index,
		plugins:  plugins,
		runtimes: mcp.NewRuntimeChecker(),
		version:  version,
		spin:     sp,
		loading:  true,
	}
	c.conversations.filter = filter
	c.search.input = query
	c.settings.input = edit
	c.settings.rows = settingRows(cfg)
	c.transcript.vp = viewport.New(0, 0)
	return c
}

func (c Console) Init() tea.Cmd {
	return tea.Batch(c.spin.Tick, c.loadConversationsCmd())
}

func (c Console) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case spinner.TickMsg:
		if !c.loading {
			return c, nil
		}
		var cmd tea.Cmd
		c.spin, cmd = c.spin.Update(msg)
		return c, cmd

	case tea.WindowSizeMsg:
		c.width = msg.Width
		c.height = msg.Height
		c.ready = true
		c.transcript.vp.Width = msg.Width - 4
		c.transcript.vp.Height = msg.Height - 7
		if len(c.transcript.messages) > 0 {
			c.transcript.refresh(msg.Width)
		}
		return c, nil

	case tea.KeyMsg:
		return c.handleKey(msg)

	case conversationsLoadedMsg:
		c.loading = false
		if msg.err != nil {
			return c.withError(msg.err), nil
		}
		c.conversations.all = msg.conversations
		c.conversations.apply()
		return c, nil

	case transcriptLoadedMsg:
		c.loading = false
		if msg.err != nil {
			return c.withError(msg.err), nil
		}
		c.transcript.key = msg.key
		c.transcript.messages = msg.messages
		if c.transcript.selected >= len(msg.messages) {
			c.transcript.selected = len(msg.messages) - 1
		}
		if c.transcript.selected < 0 {
			c.transcript.selected = 0
		}
		c.view = viewTranscript
		c.transcript.refresh(c.width)
		return c, nil

	case helpRequestsLoadedMsg:
		c.loading = false
		if msg.err != nil {
			return c.withError(msg.err), nil
		}
		c.requests.requests = msg.requests
		if c.requests.selected >= len(msg.requests) {
			c.requests.selected = len(msg.requests) - 1
		}
		if c.requests.selected < 0 {
			c.requests.selected = 0
		}
		return c, nil

	case dashboardLoadedMsg:
		c.loading = false
		if msg.err != nil {
			return c.withError(msg.err), nil
		}
		c.dashboard.counts = msg.counts
		c.dashboard.conversations = msg.conversations
		c.dashboard.requests = msg.requests
		c.dashboard.failures = msg.failures
		c.dashboard.loaded = true
		return c, nil

	case pluginStatusesMsg:
		c.loading = false
		if msg.err != nil {
			return c.withError(msg.err), nil
		}
		c.pluginView.statuses = msg.statuses
		c.pluginView.runtimes = msg.runtimes
		if c.pluginView.selected >= len(msg.statuses) {
			c.pluginView.selected = len(msg.statuses) - 1
		}
		if c.pluginView.selected < 0 {
			c.pluginView.selected = 0
		}
		return c, nil

	case actionDoneMsg:
		c.loading = false
		if msg.err != nil {
			c.flash = msg.err.Error()
			c.flashErr = true
		} else {
			c.flash = msg.status
			c.flashErr = false
		}
		cmds = append(cmds, flashClearCmd())
		if msg.followup != nil {
			followup := msg.followup
			cmds = append(cmds, func() tea.Msg { return followup() })
		}
		return c, tea.Batch(cmds...)

	case settingsReloadedMsg:
		if msg.err != nil || msg.cfg == nil {
			return c, nil
		}
		c.cfg = msg.cfg
		c.settings.rows = settingRows(msg.cfg)
		if c.settings.selected >= len(c.settings.rows) {
			c.settings.selected = len(c.settings.rows) - 1
		}
		return c, nil

	case dashboardTickMsg:
		if c.view != viewDashboard {
			return c, nil
		}
		return c, tea.Batch(c.loadDashboardCmd(), dashboardTickCmd())

	case flashClearMsg:
		c.flash = ""
		c.flashErr = false
		return c, nil
	}

	return c, nil
}

func (c Console) withError(err error) Console {
	c.flash = err.Error()
	c.flashErr = true
	return c
}

// handleKey routes keys: quit and overlay toggles first, then text-input
// modes (which swallow plain keys), then the active view's handler.
func (c Console) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if key == c.kb.GetActionKey("quit") || key == "ctrl+c" {
		return c, tea.Quit
	}

	if c.confirm.Active {
		cmd := c.confirmCmd
		c.confirm = ConfirmationState{}
		c.confirmCmd = nil
		if key == "y" || key == "Y" {
			c.loading = true
			return c, tea.Batch(c.spin.Tick, cmd)
		}
		return c, nil
	}

	if c.showHelp {
		c.showHelp = false
		return c, nil
	}
	if c.showAbout {
		c.showAbout = false
		return c, nil
	}

	// Text-input views get first refusal so typing "h" filters instead of
	// opening help.
	if c.view == viewSearch {
		return c.handleSearchKey(msg)
	}
	if c.view == viewSettings && c.settings.editing {
		return c.handleSettingsKey(msg)
	}
	if c.view == viewConversations && c.conversations.filter.Focused() {
		return c.handleConversationsKey(msg)
	}

	switch key {
	case c.kb.GetActionKey("help"):
		c.showHelp = true
		return c, nil
	case c.kb.GetActionKey("about"):
		c.showAbout = true
		return c, nil
	case c.kb.GetActionKey("dashboard"):
		if c.view == viewDashboard {
			c.view = viewConversations
			return c, nil
		}
		c.view = viewDashboard
		c.loading = true
		return c, tea.Batch(c.spin.Tick, c.loadDashboardCmd(), dashboardTickCmd())
	case c.kb.GetActionKey("help_requests"):
		if c.view == viewRequests {
			c.view = viewConversations
			return c, nil
		}
		c.view = viewRequests
		c.loading = true
		return c, tea.Batch(c.spin.Tick, c.loadHelpRequestsCmd())
	case c.kb.GetActionKey("search_messages"):
		if c.view == viewSearch {
			c.view = viewConversations
			return c, nil
		}
		c.view = viewSearch
		c.search.input.Focus()
		return c, textinput.Blink
	case c.kb.GetActionKey("plugin_manager"):
		if c.view == viewPlugins {
			c.view = viewConversations
			return c, nil
		}
		c.view = viewPlugins
		c.loading = true
		return c, tea.Batch(c.spin.Tick, c.loadPluginStatusesCmd())
	case c.kb.GetActionKey("settings"):
		if c.view == viewSettings {
			c.view = viewConversations
			return c, nil
		}
		c.view = viewSettings
		c.settings.rows = settingRows(c.cfg)
		c.settings.selected = 0
		c.settings.editing = false
		return c, nil
	}

	switch c.view {
	case viewConversations:
		return c.handleConversationsKey(msg)
	case viewTranscript:
		return c.handleTranscriptKey(msg)
	case viewRequests:
		return c.handleRequestsKey(msg)
	case viewPlugins:
		return c.handlePluginsKey(msg)
	case viewSettings:
		return c.handleSettingsKey(msg)
	case viewDashboard:
		if key == "esc" {
			c.view = viewConversations
		}
		return c, nil
	}

	return c, nil
}

func (c Console) View() string {
	if !c.ready {
		return "Initializing..."
	}

	if c.confirm.Active {
		return RenderConfirmationModal(c.confirm, c.width, c.height)
	}
	if c.showHelp {
		return c.renderHelp()
	}
	if c.showAbout {
		return c.renderAbout()
	}

	var body string
	switch c.view {
	case viewConversations:
		body = c.renderConversations()
	case viewTranscript:
		body = c.renderTranscript()
	case viewRequests:
		body = c.renderRequests()
	case viewDashboard:
		body = c.renderDashboard()
	case viewPlugins:
		body = c.renderPlugins()
	case viewSearch:
		body = c.renderSearch()
	case viewSettings:
		body = c.renderSettings()
	}

	return lipgloss.JoinVertical(lipgloss.Left, c.renderHeader(), body, c.renderFooter())
}

func (c Console) renderHeader() string {
	title := TitleStyle.Render("Outfitter Console")
	view := DimStyle.Render(viewTitle(c.view))
	spin := ""
	if c.loading {
		spin = " " + c.spin.View()
	}
	return fmt.Sprintf(" %s  %s%s", title, view, spin)
}

func (c Console) renderFooter() string {
	if c.flash != "" {
		style := OKStyle
		if c.flashErr {
			style = ErrorStyle
		}
		return " " + style.Render(c.flash)
	}

	hints := c.footerHints()
	return " " + HelpStyle.Render(FormatFooter(hints...))
}

// footerHints returns the key/description pairs for the active view.
func (c Console) footerHints() []string {
	kb := c.kb
	common := []string{
		kb.DisplayActionKey("help"), "Help",
		kb.DisplayActionKey("quit"), "Quit",
	}

	switch c.view {
	case viewConversations:
		return append([]string{
			"j/k", "Navigate",
			"Enter", "Open",
			"/", "Filter",
			kb.DisplayActionKey("toggle_failed"), "Failed only",
			kb.DisplayActionKey("refresh"), "Refresh",
		}, common...)
	case viewTranscript:
		return append([]string{
			"j/k", "Select",
			kb.DisplayActionKey("scroll_down") + "/" + kb.DisplayActionKey("scroll_up"), "Scroll",
			kb.DisplayActionKey("reprocess"), "Reprocess",
			kb.DisplayActionKey("yank_message"), "Yank msg",
			kb.DisplayActionKey("yank_transcript"), "Yank all",
			"Esc", "Back",
		}, common...)
	case viewRequests:
		return append([]string{
			"j/k", "Navigate",
			"Enter", "Open conversation",
			kb.DisplayActionKey("resolve_request"), "Resolve",
			kb.DisplayActionKey("toggle_failed"), "Show resolved",
			"Esc", "Back",
		}, common...)
	case viewDashboard:
		return append([]string{"Esc", "Back"}, common...)
	case viewPlugins:
		return append([]string{
			"j/k", "Navigate",
			"Enter", "Start/Stop",
			kb.DisplayActionKey("plugin_refresh"), "Refresh tools",
			"Esc", "Back",
		}, common...)
	case viewSearch:
		return append([]string{
			"Enter", "Search/Open",
			kb.DisplayActionKey("list_down_filtered") + "/" + kb.DisplayActionKey("list_up_filtered"), "Navigate",
			"Esc", "Back",
		}, common...)
	case viewSettings:
		return append([]string{
			"j/k", "Navigate",
			"Enter", "Edit/Save",
			"Esc", "Back",
		}, common...)
	}
	return common
}

func viewTitle(v consoleView) string {
	switch v {
	case viewConversations:
		return "Conversations"
	case viewTranscript:
		return "Transcript"
	case viewRequests:
		return "Help Requests"
	case viewDashboard:
		return "Dashboard"
	case viewPlugins:
		return "Plugins"
	case viewSearch:
		return "Search"
	case viewSettings:
		return "Settings"
	}
	return ""
}
