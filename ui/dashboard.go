package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"outfitter/model"
)

type dashboardState struct {
	counts        map[model.Status]int
	conversations int
	requests      int
	failures      []model.Message
	loaded        bool
}

// statusOrder fixes the dashboard row order; map iteration would shuffle it
// every refresh.
var statusOrder = []model.Status{
	model.StatusPending,
	model.StatusProcessing,
	model.StatusWaitingForTool,
	model.StatusToolComplete,
	model.StatusCompleted,
	model.StatusFailed,
}

func (c Console) renderDashboard() string {
	d := c.dashboard

	labelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("12")).
		Bold(true)
	valueStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("7"))

	var sb strings.Builder
	sb.WriteString(TitleStyle.Render("Worker Dashboard"))
	sb.WriteString("\n\n")

	if !d.loaded {
		sb.WriteString(DimStyle.Render("Loading..."))
	} else {
		sb.WriteString(labelStyle.Render("Conversations: "))
		sb.WriteString(valueStyle.Render(fmt.Sprintf("%d", d.conversations)))
		sb.WriteString("\n")
		sb.WriteString(labelStyle.Render("Open requests: "))
		sb.WriteString(valueStyle.Render(fmt.Sprintf("%d", d.requests)))
		sb.WriteString("\n\n")

		sb.WriteString(labelStyle.Render("Messages by status"))
		sb.WriteString("\n")
		for _, status := range statusOrder {
			count := d.counts[status]
			row := fmt.Sprintf("  %s %-17s %d", statusGlyph(status), status, count)
			if status == model.StatusFailed && count > 0 {
				sb.WriteString(ErrorStyle.Render(row))
			} else {
				sb.WriteString(valueStyle.Render(row))
			}
			sb.WriteString("\n")
		}

		if len(d.failures) > 0 {
			sb.WriteString("\n")
			sb.WriteString(labelStyle.Render("Recent failures"))
			sb.WriteString("\n")
			for _, msg := range d.failures {
				row := fmt.Sprintf("  %s %s  %s  %s",
					statusGlyph(msg.Status),
					shortID(msg.ID),
					truncate(msg.ConversationKey, 20),
					msg.CreatedAt.Format("Jan 2, 3:04 PM"))
				sb.WriteString(ErrorStyle.Render(row))
				sb.WriteString("\n")
			}
		}

		sb.WriteString("\n")
		sb.WriteString(labelStyle.Render("Active provider: "))
		sb.WriteString(valueStyle.Render(c.cfg.Worker.ActiveProvider))
		sb.WriteString("\n")
		sb.WriteString(labelStyle.Render("Plugins: "))
		if c.cfg.PluginsEnabled {
			sb.WriteString(OKStyle.Render("enabled"))
		} else {
			sb.WriteString(DimStyle.Render("disabled"))
		}
		sb.WriteString("\n\n")
		sb.WriteString(DimStyle.Render("Refreshes every 5 seconds"))
	}

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("8")).
		Padding(1, 2)

	return lipgloss.Place(c.width, c.height-4, lipgloss.Center, lipgloss.Center, boxStyle.Render(sb.String()))
}
