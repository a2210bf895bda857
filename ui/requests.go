package ui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"outfitter/storage"
)

type requestListState struct {
	requests        []storage.HelpRequest
	selected        int
	includeResolved bool
}

func (c Console) handleRequestsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	r := &c.requests

	switch key {
	case "esc":
		c.view = viewConversations
		return c, nil
	case c.kb.GetActionKey("request_down"), c.kb.GetActionKey("request_down_arrow"):
		if r.selected < len(r.requests)-1 {
			r.selected++
		}
		return c, nil
	case c.kb.GetActionKey("request_up"), c.kb.GetActionKey("request_up_arrow"):
		if r.selected > 0 {
			r.selected--
		}
		return c, nil
	case "enter":
		if r.selected < len(r.requests) {
			c.loading = true
			c.transcript.selected = 0
			return c, tea.Batch(c.spin.Tick, c.loadTranscriptCmd(r.requests[r.selected].ConversationKey))
		}
		return c, nil
	case c.kb.GetActionKey("resolve_request"):
		if r.selected < len(r.requests) {
			req := r.requests[r.selected]
			if req.Resolved {
				c.flash = "Request is already resolved"
				c.flashErr = false
				return c, flashClearCmd()
			}
			c.confirm = ConfirmationState{
				Active:  true,
				Title:   "Resolve help request?",
				Message: "Conversation: " + req.ConversationKey + "\nThis cannot be undone from the console.",
			}
			c.confirmCmd = c.resolveRequestCmd(req)
		}
		return c, nil
	case c.kb.GetActionKey("toggle_failed"):
		r.includeResolved = !r.includeResolved
		c.loading = true
		return c, tea.Batch(c.spin.Tick, c.loadHelpRequestsCmd())
	case c.kb.GetActionKey("refresh"):
		c.loading = true
		return c, tea.Batch(c.spin.Tick, c.loadHelpRequestsCmd())
	}

	return c, nil
}

func (c Console) renderRequests() string {
	r := c.requests
	var b strings.Builder

	if r.includeResolved {
		b.WriteString(" " + DimStyle.Render("Showing resolved requests too") + "\n")
	}
	b.WriteString("\n")

	if len(r.requests) == 0 {
		b.WriteString(DimStyle.Render("  No open help requests. Guests are being looked after."))
		return b.String()
	}

	for i, req := range r.requests {
		prefix := "  "
		if i == r.selected {
			prefix = SelectedStyle.Render("> ")
		}

		state := ErrorStyle.Render("OPEN")
		if req.Resolved {
			state = OKStyle.Render("RESOLVED")
		}

		b.WriteString(fmt.Sprintf("%s%s  %s  %s\n",
			prefix,
			state,
			HighlightStyle.Render(req.ConversationKey),
			DimStyle.Render(req.CreatedAt.Format("Jan 2, 3:04 PM")),
		))
		b.WriteString("    " + truncate(oneLine(req.Reason), c.width-8) + "\n\n")
	}

	return b.String()
}
