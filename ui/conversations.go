package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-runewidth"
	"github.com/sahilm/fuzzy"

	"outfitter/storage"
)

type conversationListState struct {
	all        []storage.ConversationSummary
	visible    []storage.ConversationSummary
	filter     textinput.Model
	selected   int
	failedOnly bool
}

// apply rebuilds the visible list from the full list, the failed-only
// toggle, and the filter text.
func (s *conversationListState) apply() {
	source := s.all
	if s.failedOnly {
		source = nil
		for _, conv := range s.all {
			if conv.FailedCount > 0 {
				source = append(source, conv)
			}
		}
	}

	filterValue := s.filter.Value()
	if filterValue == "" {
		s.visible = source
	} else {
		targets := make([]string, len(source))
		for i, conv := range source {
			targets[i] = conv.Key
		}
		matches := fuzzy.Find(filterValue, targets)
		s.visible = make([]storage.ConversationSummary, len(matches))
		for i, match := range matches {
			s.visible[i] = source[match.Index]
		}
	}

	if s.selected >= len(s.visible) {
		s.selected = len(s.visible) - 1
	}
	if s.selected < 0 {
		s.selected = 0
	}
}

func (c Console) handleConversationsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	list := &c.conversations

	if list.filter.Focused() {
		switch key {
		case "esc":
			list.filter.Blur()
			list.filter.SetValue("")
			list.apply()
			return c, nil
		case "enter":
			list.filter.Blur()
			return c.openSelectedConversation()
		case c.kb.GetActionKey("clear_input"):
			list.filter.SetValue("")
			list.apply()
			return c, nil
		case c.kb.GetActionKey("list_down_filtered"), c.kb.GetActionKey("list_down_arrow_filtered"):
			if list.selected < len(list.visible)-1 {
				list.selected++
			}
			return c, nil
		case c.kb.GetActionKey("list_up_filtered"), c.kb.GetActionKey("list_up_arrow_filtered"):
			if list.selected > 0 {
				list.selected--
			}
			return c, nil
		}

		var cmd tea.Cmd
		list.filter, cmd = list.filter.Update(msg)
		list.apply()
		return c, cmd
	}

	switch key {
	case "/":
		list.filter.Focus()
		list.filter.SetValue("")
		list.apply()
		return c, textinput.Blink
	case "enter":
		return c.openSelectedConversation()
	case c.kb.GetActionKey("list_down"), c.kb.GetActionKey("list_down_arrow"):
		if list.selected < len(list.visible)-1 {
			list.selected++
		}
		return c, nil
	case c.kb.GetActionKey("list_up"), c.kb.GetActionKey("list_up_arrow"):
		if list.selected > 0 {
			list.selected--
		}
		return c, nil
	case c.kb.GetActionKey("toggle_failed"):
		list.failedOnly = !list.failedOnly
		list.apply()
		return c, nil
	case c.kb.GetActionKey("refresh"):
		c.loading = true
		return c, tea.Batch(c.spin.Tick, c.loadConversationsCmd())
	}

	return c, nil
}

func (c Console) openSelectedConversation() (tea.Model, tea.Cmd) {
	list := c.conversations
	if list.selected >= len(list.visible) {
		return c, nil
	}
	conv := list.visible[list.selected]
	c.loading = true
	c.transcript.selected = 0
	return c, tea.Batch(c.spin.Tick, c.loadTranscriptCmd(conv.Key))
}

func (c Console) renderConversations() string {
	list := c.conversations
	var b strings.Builder

	if list.filter.Focused() || list.filter.Value() != "" {
		b.WriteString(" " + list.filter.View() + "\n")
	}
	if list.failedOnly {
		b.WriteString(" " + ErrorStyle.Render("Showing conversations with failures only") + "\n")
	}
	b.WriteString("\n")

	if len(list.visible) == 0 {
		if len(list.all) == 0 {
			b.WriteString(DimStyle.Render("  No conversations yet. The worker records them as guests text in."))
		} else {
			b.WriteString(DimStyle.Render("  No conversations match."))
		}
		return b.String()
	}

	// Two lines per row plus header and footer overhead.
	maxRows := (c.height - 8) / 2
	if maxRows < 1 {
		maxRows = 1
	}
	start := 0
	if list.selected >= maxRows {
		start = list.selected - maxRows + 1
	}
	end := start + maxRows
	if end > len(list.visible) {
		end = len(list.visible)
	}

	if start > 0 {
		b.WriteString(DimStyle.Render(fmt.Sprintf("  ↑ %d more above", start)) + "\n")
	}

	for i := start; i < end; i++ {
		conv := list.visible[i]

		prefix := "  "
		keyStyle := IncomingStyle
		if i == list.selected {
			prefix = SelectedStyle.Render("> ")
			keyStyle = SelectedStyle
		}

		badge := ""
		if conv.FailedCount > 0 {
			badge = " " + ErrorStyle.Render(fmt.Sprintf("[%d failed]", conv.FailedCount))
		}

		meta := DimStyle.Render(fmt.Sprintf("%d messages, %s", conv.MessageCount, conv.LastActivity.Format("Jan 2, 3:04 PM")))
		b.WriteString(fmt.Sprintf("%s%s%s  %s\n", prefix, keyStyle.Render(conv.Key), badge, meta))

		preview := truncate(oneLine(conv.LastContent), c.width-8)
		b.WriteString("    " + DimStyle.Render(preview) + "\n")
	}

	if remaining := len(list.visible) - end; remaining > 0 {
		b.WriteString(DimStyle.Render(fmt.Sprintf("  ↓ %d more below", remaining)) + "\n")
	}

	return b.String()
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// truncate cuts s to max display cells, runewidth-aware so wide glyphs and
// emoji in guest messages don't overflow the row.
func truncate(s string, max int) string {
	if max < 4 {
		max = 4
	}
	if runewidth.StringWidth(s) <= max {
		return s
	}
	return runewidth.Truncate(s, max, "...")
}
