package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const License = "Apache-2.0"

const ASCIIArt = `  ___  _   _ _____ _____ ___ _____ _____ _____ ____
 / _ \| | | |_   _|  ___|_ _|_   _|_   _| ____|  _ \
| | | | | | | | | | |_   | |  | |   | | |  _| | |_) |
| |_| | |_| | | | |  _|  | |  | |   | | | |___|  _ <
 \___/ \___/  |_| |_|   |___| |_|   |_| |_____|_| \_\`

var Features = []string{
	"• Text-message concierge for guest services",
	"• Conversation state rebuilt from the message log",
	"• Tool calls routed through an MCP directory",
	"• Pluggable LLM providers, local or hosted",
	"• This console: transcripts, requests, plugins",
}

func (c Console) renderAbout() string {
	var sb strings.Builder

	asciiStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("10")).
		Bold(true).
		Align(lipgloss.Center)

	sb.WriteString(asciiStyle.Render(" " + ASCIIArt))
	sb.WriteString("\n")

	sb.WriteString("\n\n")

	featureStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("7"))

	for _, feature := range Features {
		sb.WriteString(featureStyle.Render(feature))
		sb.WriteString("\n")
	}

	sb.WriteString("\n\n")

	labelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("12")).
		Bold(true)

	valueStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("7"))

	sb.WriteString(labelStyle.Render("Version: "))
	sb.WriteString(valueStyle.Render(c.version))
	sb.WriteString("\n")
	sb.WriteString(labelStyle.Render("License: "))
	sb.WriteString(valueStyle.Render(License))
	sb.WriteString("\n\n\n")

	sb.WriteString(featureStyle.Render(fmt.Sprintf("Press Esc or %s to close", c.kb.DisplayActionKey("about"))))
	sb.WriteString("\n")

	content := sb.String()

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("8")).
		Padding(1, 2)

	return lipgloss.Place(c.width, c.height, lipgloss.Center, lipgloss.Center, boxStyle.Render(content))
}
