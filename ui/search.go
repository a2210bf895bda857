package ui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"outfitter/model"
	"outfitter/storage"
)

type searchState struct {
	input    textinput.Model
	matches  []storage.ConversationMatch
	selected int
}

// handleSearchKey runs the query against the index on every keystroke. The
// FTS index answers in microseconds at operator scale, so a live search
// keeps the flow simple.
func (c Console) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	s := &c.search

	switch msg.String() {
	case "esc":
		c.view = viewConversations
		s.input.Blur()
		s.input.SetValue("")
		s.matches = nil
		s.selected = 0
		return c, nil
	case "up", c.kb.GetActionKey("list_up_filtered"):
		if s.selected > 0 {
			s.selected--
		}
		return c, nil
	case "down", c.kb.GetActionKey("list_down_filtered"):
		if s.selected < len(s.matches)-1 {
			s.selected++
		}
		return c, nil
	case "enter":
		if s.selected >= 0 && s.selected < len(s.matches) {
			match := s.matches[s.selected]
			c.view = viewTranscript
			c.loading = true
			c.transcript.selected = 0
			s.input.Blur()
			return c, tea.Batch(c.spin.Tick, c.loadTranscriptCmd(match.ConversationKey))
		}
		return c, nil
	case c.kb.GetActionKey("clear_input"):
		s.input.SetValue("")
		s.matches = nil
		s.selected = 0
		return c, nil
	}

	var cmd tea.Cmd
	s.input, cmd = s.input.Update(msg)

	query := s.input.Value()
	if query != "" && c.index != nil {
		ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
		matches, err := c.index.SearchAllConversations(ctx, query, searchLimit)
		cancel()
		if err == nil {
			s.matches = matches
			s.selected = 0
		}
	} else {
		s.matches = nil
		s.selected = 0
	}

	return c, cmd
}

func (c Console) renderSearch() string {
	s := c.search

	modalWidth := c.width - 4
	if modalWidth > 100 {
		modalWidth = 100
	}

	modalStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(dimColor).
		Padding(1, 2)

	title := TitleStyle.Render("🔍 Search All Conversations")
	searchView := s.input.View()

	resultsView := ""
	if len(s.matches) == 0 {
		if s.input.Value() == "" {
			resultsView = DimStyle.Render("Type to search across all conversations...")
		} else {
			resultsView = DimStyle.Render("No matches found")
		}
	} else {
		// Border(2) + Padding(2) + Title(1) + Blank(1) + SearchInput(1) + Blank(1) +
		// "Found X matches:"(1) + Blank(1) + Footer(1) + Blank(1) = 12 lines
		fixedOverhead := 12
		scrollIndicatorSpace := 4

		availableLines := c.height - fixedOverhead - scrollIndicatorSpace
		if availableLines < 3 {
			availableLines = 3
		}

		// Conservative estimate per result to absorb preview wrapping.
		linesPerResult := 6
		maxVisibleResults := availableLines / linesPerResult
		if maxVisibleResults < 1 {
			maxVisibleResults = 1
		}

		startIdx := 0
		if s.selected >= maxVisibleResults {
			startIdx = s.selected - maxVisibleResults + 1
		}
		endIdx := startIdx + maxVisibleResults
		if endIdx > len(s.matches) {
			endIdx = len(s.matches)
		}

		resultsView = fmt.Sprintf("Found %d matches:\n\n", len(s.matches))

		if startIdx > 0 {
			resultsView += DimStyle.Render(fmt.Sprintf("↑ %d more above\n\n", startIdx))
		}

		for i := startIdx; i < endIdx; i++ {
			match := s.matches[i]

			keyStyle := IncomingStyle
			if match.Direction == string(model.DirectionOutgoing) {
				keyStyle = OutgoingStyle
			}

			matchText := fmt.Sprintf("%s [%s] %s\n  %s",
				keyStyle.Render(match.ConversationKey),
				match.Timestamp.Format("Jan 2, 3:04 PM"),
				DimStyle.Render(match.Direction),
				match.Preview,
			)

			if i == s.selected {
				matchText = SelectedStyle.Render("> " + matchText)
			} else {
				matchText = "  " + matchText
			}

			resultsView += matchText + "\n\n"
		}

		if endIdx < len(s.matches) {
			resultsView += DimStyle.Render(fmt.Sprintf("↓ %d more below", len(s.matches)-endIdx))
		}
	}

	footer := FormatFooter("Type", "to search", c.kb.DisplayActionKey("list_down_filtered")+"/"+c.kb.DisplayActionKey("list_up_filtered"), "Navigate", "Enter", "Open", "Esc", "Close")

	content := lipgloss.JoinVertical(
		lipgloss.Left,
		title,
		"",
		searchView,
		"",
		resultsView,
		"",
		footer,
	)

	return lipgloss.Place(c.width, c.height-2, lipgloss.Center, lipgloss.Center,
		modalStyle.Width(modalWidth).Render(content))
}
