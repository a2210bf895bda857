package ui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

func (c Console) renderHelp() string {
	kb := c.kb

	green := lipgloss.NewStyle().
		Bold(true).
		Foreground(successColor)

	title := green.Render("Outfitter Console - Keyboard Shortcuts")

	blue := lipgloss.NewStyle().Foreground(accentColor)

	views := lipgloss.JoinVertical(
		lipgloss.Left,
		blue.Render("## Views"),
		fmt.Sprintf("• %-13s Dashboard", kb.DisplayActionKey("dashboard")),
		fmt.Sprintf("• %-13s Help requests", kb.DisplayActionKey("help_requests")),
		fmt.Sprintf("• %-13s Search all messages", kb.DisplayActionKey("search_messages")),
		fmt.Sprintf("• %-13s Plugins", kb.DisplayActionKey("plugin_manager")),
		fmt.Sprintf("• %-13s Settings", kb.DisplayActionKey("settings")),
		fmt.Sprintf("• %-13s About", kb.DisplayActionKey("about")),
		fmt.Sprintf("• %-13s Toggle this help", kb.DisplayActionKey("help")),
		fmt.Sprintf("• %-13s Quit", kb.DisplayActionKey("quit")),
	)

	conversations := lipgloss.JoinVertical(
		lipgloss.Left,
		blue.Render("## Conversations"),
		"• j/k           Navigate",
		"• Enter         Open transcript",
		"• /             Filter by key",
		fmt.Sprintf("• %-13s Failed only", kb.DisplayActionKey("toggle_failed")),
		fmt.Sprintf("• %-13s Refresh", kb.DisplayActionKey("refresh")),
	)

	transcript := lipgloss.JoinVertical(
		lipgloss.Left,
		blue.Render("## Transcript"),
		"• j/k           Select message",
		fmt.Sprintf("• %-13s Scroll half page", kb.DisplayActionKey("scroll_down")+"/"+kb.DisplayActionKey("scroll_up")),
		fmt.Sprintf("• %-13s Full page", kb.DisplayActionKey("page_down")+"/"+kb.DisplayActionKey("page_up")),
		fmt.Sprintf("• %-13s Top / bottom", kb.DisplayActionKey("scroll_to_top")+"/"+kb.DisplayActionKey("scroll_to_bottom")),
		fmt.Sprintf("• %-13s Reprocess failed msg", kb.DisplayActionKey("reprocess")),
		fmt.Sprintf("• %-13s Copy message", kb.DisplayActionKey("yank_message")),
		fmt.Sprintf("• %-13s Copy transcript", kb.DisplayActionKey("yank_transcript")),
	)

	requests := lipgloss.JoinVertical(
		lipgloss.Left,
		blue.Render("## Help Requests / Plugins"),
		"• j/k           Navigate",
		"• Enter         Open / Start / Stop",
		fmt.Sprintf("• %-13s Resolve request", kb.DisplayActionKey("resolve_request")),
		fmt.Sprintf("• %-13s Refresh plugin tools", kb.DisplayActionKey("plugin_refresh")),
	)

	column1 := lipgloss.JoinVertical(
		lipgloss.Left,
		views,
		"",
		conversations,
	)

	column2 := lipgloss.JoinVertical(
		lipgloss.Left,
		transcript,
		"",
		requests,
	)

	columnStyle := lipgloss.NewStyle().Width(42).PaddingLeft(8)

	twoColumns := lipgloss.JoinHorizontal(
		lipgloss.Top,
		columnStyle.Render(column1),
		"    ",
		columnStyle.Render(column2),
	)

	footer := lipgloss.NewStyle().
		Foreground(dimColor).
		Render(fmt.Sprintf("      Press %s or Esc to close this help", kb.DisplayActionKey("help")))

	content := lipgloss.JoinVertical(
		lipgloss.Center,
		title,
		"",
		twoColumns,
		"",
		footer,
	)

	helpBox := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("8")).
		Padding(1, 2).
		Width(100)

	return lipgloss.Place(
		c.width,
		c.height,
		lipgloss.Center,
		lipgloss.Center,
		helpBox.Render(content),
	)
}
