package ui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"outfitter/mcp"
)

type pluginViewState struct {
	statuses []mcp.PluginStatus
	runtimes []*mcp.Runtime
	selected int
}

func (c Console) handlePluginsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	p := &c.pluginView

	switch key {
	case "esc":
		c.view = viewConversations
		return c, nil
	case c.kb.GetActionKey("plugin_down"), c.kb.GetActionKey("plugin_down_arrow"):
		if p.selected < len(p.statuses)-1 {
			p.selected++
		}
		return c, nil
	case c.kb.GetActionKey("plugin_up"), c.kb.GetActionKey("plugin_up_arrow"):
		if p.selected > 0 {
			p.selected--
		}
		return c, nil
	case "enter":
		if c.plugins == nil || p.selected >= len(p.statuses) {
			return c, nil
		}
		status := p.statuses[p.selected]
		c.loading = true
		if status.Running {
			return c, tea.Batch(c.spin.Tick, c.stopPluginCmd(status.ID))
		}
		return c, tea.Batch(c.spin.Tick, c.startPluginCmd(status.ID))
	case c.kb.GetActionKey("plugin_refresh"):
		c.loading = true
		if c.plugins != nil && p.selected < len(p.statuses) && p.statuses[p.selected].Running {
			return c, tea.Batch(c.spin.Tick, c.refreshPluginCmd(p.statuses[p.selected].ID))
		}
		return c, tea.Batch(c.spin.Tick, c.loadPluginStatusesCmd())
	}

	return c, nil
}

func (c Console) renderPlugins() string {
	p := c.pluginView
	var b strings.Builder
	b.WriteString("\n")

	if c.plugins == nil || !c.plugins.IsEnabled() {
		b.WriteString(DimStyle.Render("  Plugins are disabled. Enable plugins_enabled in config.toml and restart the worker."))
		return b.String()
	}

	if len(p.statuses) == 0 {
		b.WriteString(DimStyle.Render("  No plugins declared. Add [plugin.<id>] entries to plugins.toml."))
		b.WriteString("\n\n")
		b.WriteString(c.renderRuntimes())
		return b.String()
	}

	for i, status := range p.statuses {
		indicator := "  "
		if i == p.selected {
			indicator = SelectedStyle.Render("▶ ")
		}

		var stateText string
		var stateColor lipgloss.Color
		switch {
		case !status.Enabled:
			stateText = "✗ Disabled"
			stateColor = dimColor
		case status.Err != nil:
			stateText = "✗ Failed"
			stateColor = dangerColor
		case status.Running:
			stateText = "✓ Running"
			stateColor = successColor
		default:
			stateText = "Stopped"
			stateColor = dimColor
		}
		statePadded := stateText + strings.Repeat(" ", max(0, 11-runewidth.StringWidth(stateText)))
		stateStyled := lipgloss.NewStyle().Foreground(stateColor).Render(statePadded)

		kind := "local"
		if status.Remote {
			kind = "remote"
		}

		name := status.Name
		if runewidth.StringWidth(name) > 30 {
			name = runewidth.Truncate(name, 30, "...")
		}
		namePadded := name + strings.Repeat(" ", max(0, 30-runewidth.StringWidth(name)))
		if i == p.selected {
			namePadded = SelectedStyle.Render(namePadded)
		}

		tools := DimStyle.Render(fmt.Sprintf("%d tools", status.Tools))
		if !status.Running {
			tools = ""
		}

		b.WriteString(fmt.Sprintf("%s%s %s %s %s\n", indicator, stateStyled, namePadded, DimStyle.Render(fmt.Sprintf("[%s]", kind)), tools))

		if status.Err != nil && i == p.selected {
			b.WriteString("    " + ErrorStyle.Render(truncate(status.Err.Error(), c.width-8)) + "\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(c.renderRuntimes())
	return b.String()
}

// renderRuntimes lists detected plugin runtimes so a failed local plugin can
// be traced to a missing interpreter at a glance.
func (c Console) renderRuntimes() string {
	if len(c.pluginView.runtimes) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString(" " + TitleStyle.Render("Runtimes") + "\n")
	for _, rt := range c.pluginView.runtimes {
		if rt.Installed {
			b.WriteString(fmt.Sprintf("  %s %s %s\n", OKStyle.Render("✓"), rt.Name, DimStyle.Render(rt.Version)))
		} else {
			b.WriteString(fmt.Sprintf("  %s %s %s\n", DimStyle.Render("✗"), DimStyle.Render(rt.Name), DimStyle.Render("not found")))
		}
	}
	return b.String()
}
