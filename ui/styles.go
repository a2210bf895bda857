package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"outfitter/model"
)

var (
	dimColor       = lipgloss.Color("7")
	accentColor    = lipgloss.Color("12")
	successColor   = lipgloss.Color("10")
	warningColor   = lipgloss.Color("11")
	dangerColor    = lipgloss.Color("9")
	highlightColor = lipgloss.Color("13")

	// Guest (incoming) messages. No background set so the terminal
	// theme shows through.
	IncomingStyle = lipgloss.NewStyle().
			Foreground(successColor).
			Bold(true)

	// Outfitter (outgoing) messages.
	OutgoingStyle = lipgloss.NewStyle().
			Foreground(accentColor)

	// Timestamps, metadata, hints.
	DimStyle = lipgloss.NewStyle().
			Foreground(dimColor)

	TitleStyle = lipgloss.NewStyle().
			Bold(true)

	StatusStyle = lipgloss.NewStyle().
			Foreground(dimColor)

	SelectedStyle = lipgloss.NewStyle().
			Foreground(warningColor).
			Bold(true)

	HelpStyle = lipgloss.NewStyle().
			Foreground(dimColor)

	HighlightStyle = lipgloss.NewStyle().
			Foreground(highlightColor).
			Bold(true)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(dangerColor)

	OKStyle = lipgloss.NewStyle().
			Foreground(successColor)
)

// FormatFooter formats a footer string with alternating keys and descriptions.
// Keys remain default color, descriptions are rendered in accent blue+bold.
// Usage: FormatFooter("j/k", "Navigate", "Enter", "Select", "Esc", "Close")
func FormatFooter(parts ...string) string {
	descStyle := lipgloss.NewStyle().Foreground(accentColor).Bold(true)
	var result []string
	for i := 0; i < len(parts); i += 2 {
		if i+1 < len(parts) {
			result = append(result, parts[i]+" "+descStyle.Render(parts[i+1]))
		}
	}
	return strings.Join(result, "  ")
}

// statusGlyph renders a message status as a short colored marker for list
// rows and transcript lines.
func statusGlyph(status model.Status) string {
	switch status {
	case model.StatusPending:
		return DimStyle.Render("·")
	case model.StatusProcessing:
		return HighlightStyle.Render("~")
	case model.StatusWaitingForTool, model.StatusToolComplete:
		return SelectedStyle.Render("⚙")
	case model.StatusCompleted:
		return OKStyle.Render("✓")
	case model.StatusFailed:
		return ErrorStyle.Render("✗")
	default:
		return " "
	}
}
