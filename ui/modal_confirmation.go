package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// ConfirmationState is an armed yes/no prompt. The console stores the
// action to run alongside it; y fires, n or Esc disarms.
type ConfirmationState struct {
	Active  bool
	Title   string
	Message string
}

// RenderConfirmationModal draws the armed prompt centered over the whole
// screen. Narrow terminals shrink the box rather than clipping it.
func RenderConfirmationModal(state ConfirmationState, width, height int) string {
	boxWidth := min(60, width-10)

	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(warningColor).
		Align(lipgloss.Center).
		Width(boxWidth).
		Render(state.Title)

	ruled := lipgloss.NewStyle().
		BorderTop(true).
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(dimColor).
		Width(boxWidth)

	lineStyle := lipgloss.NewStyle().Width(boxWidth).Align(lipgloss.Center)
	body := make([]string, 0, 4)
	body = append(body, "")
	for _, line := range strings.Split(state.Message, "\n") {
		body = append(body, lineStyle.Render(line))
	}
	body = append(body, "")

	footer := ruled.
		Foreground(dimColor).
		Align(lipgloss.Center).
		Render(FormatFooter("y", "Yes", "n", "No"))

	box := lipgloss.JoinVertical(lipgloss.Left,
		title,
		ruled.Render(strings.Join(body, "\n")),
		footer,
	)

	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, box)
}
