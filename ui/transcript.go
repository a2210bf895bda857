package ui

import (
	"fmt"
	"strings"

	markdown "github.com/MichaelMure/go-term-markdown"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	gomarkdown "github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/parser"

	"outfitter/model"
)

type transcriptState struct {
	key      string
	messages []model.Message
	selected int
	vp       viewport.Model
}

// lineOffsets[i] is the first viewport line of message i, used to keep the
// selected message in view while scrolling.
type renderedTranscript struct {
	content     string
	lineOffsets []int
}

// refresh re-renders the viewport content for the current window and scrolls
// the selection into view.
func (s *transcriptState) refresh(width int) {
	rendered := renderTranscriptBody(s.messages, s.selected, width)
	s.vp.SetContent(rendered.content)
	if s.selected < len(rendered.lineOffsets) {
		target := rendered.lineOffsets[s.selected]
		if target < s.vp.YOffset || target >= s.vp.YOffset+s.vp.Height {
			s.vp.SetYOffset(target)
		}
	}
}

func (c Console) handleTranscriptKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	t := &c.transcript

	switch key {
	case "esc":
		c.view = viewConversations
		return c, nil
	case "j", "down":
		if t.selected < len(t.messages)-1 {
			t.selected++
			t.refresh(c.width)
		}
		return c, nil
	case "k", "up":
		if t.selected > 0 {
			t.selected--
			t.refresh(c.width)
		}
		return c, nil
	case c.kb.GetActionKey("scroll_down"), c.kb.GetActionKey("scroll_down_arrow"),
		c.kb.GetActionKey("half_page_down"), c.kb.GetActionKey("half_page_down_arrow"):
		t.vp.HalfPageDown()
		return c, nil
	case c.kb.GetActionKey("scroll_up"), c.kb.GetActionKey("scroll_up_arrow"),
		c.kb.GetActionKey("half_page_up"), c.kb.GetActionKey("half_page_up_arrow"):
		t.vp.HalfPageUp()
		return c, nil
	case c.kb.GetActionKey("page_down"):
		t.vp.PageDown()
		return c, nil
	case c.kb.GetActionKey("page_up"):
		t.vp.PageUp()
		return c, nil
	case c.kb.GetActionKey("scroll_to_top"):
		t.vp.GotoTop()
		return c, nil
	case c.kb.GetActionKey("scroll_to_bottom"):
		t.vp.GotoBottom()
		return c, nil
	case c.kb.GetActionKey("refresh"):
		c.loading = true
		return c, tea.Batch(c.spin.Tick, c.loadTranscriptCmd(t.key))
	case c.kb.GetActionKey("reprocess"):
		if t.selected < len(t.messages) {
			target := t.messages[t.selected]
			if target.Status != model.StatusFailed {
				c.flash = "Only failed messages can be reprocessed"
				c.flashErr = false
				return c, flashClearCmd()
			}
			c.confirm = ConfirmationState{
				Active:  true,
				Title:   "Requeue message?",
				Message: fmt.Sprintf("Message %s goes back to pending.\nThe worker will pick it up on its next poll.", shortID(target.ID)),
			}
			c.confirmCmd = c.reprocessCmd(target)
		}
		return c, nil
	case c.kb.GetActionKey("yank_message"):
		if t.selected < len(t.messages) {
			return c, yankCmd(t.messages[t.selected].Content, "Message")
		}
		return c, nil
	case c.kb.GetActionKey("yank_transcript"):
		return c, yankCmd(transcriptText(t.messages), "Transcript")
	}

	return c, nil
}

func (c Console) renderTranscript() string {
	t := c.transcript
	var b strings.Builder

	header := fmt.Sprintf(" %s  %s", HighlightStyle.Render(t.key), DimStyle.Render(fmt.Sprintf("%d messages", len(t.messages))))
	b.WriteString(header + "\n\n")
	b.WriteString(t.vp.View())
	return b.String()
}

func renderTranscriptBody(messages []model.Message, selected, width int) renderedTranscript {
	if width < 20 {
		width = 80
	}

	var b strings.Builder
	offsets := make([]int, len(messages))
	line := 0

	for i, msg := range messages {
		offsets[i] = line

		block := renderMessageBlock(msg, i == selected, width)
		b.WriteString(block)
		b.WriteString("\n")
		line += strings.Count(block, "\n") + 1
	}

	return renderedTranscript{content: b.String(), lineOffsets: offsets}
}

func renderMessageBlock(msg model.Message, selected bool, width int) string {
	var b strings.Builder

	marker := "  "
	if selected {
		marker = SelectedStyle.Render("> ")
	}

	label := IncomingStyle.Render("Guest")
	if msg.Direction == model.DirectionOutgoing {
		label = OutgoingStyle.Render("Outfitter")
	}

	meta := DimStyle.Render(fmt.Sprintf("%s  %s  %s", msg.CreatedAt.Format("Jan 2, 3:04 PM"), shortID(msg.ID), msg.Status))
	b.WriteString(fmt.Sprintf("%s%s %s %s\n", marker, statusGlyph(msg.Status), label, meta))

	switch {
	case msg.IsToolRequest():
		for _, inv := range msg.ToolInvocations {
			b.WriteString("    " + HighlightStyle.Render("⚙ "+inv.Name) + DimStyle.Render(fmt.Sprintf(" (%d args)", len(inv.Arguments))) + "\n")
		}
		if msg.Content != "" {
			b.WriteString(indentBlock(renderBody(msg, width), "    "))
		}
	case msg.IsToolResult():
		b.WriteString("    " + DimStyle.Render("tool result for "+shortID(msg.ToolResultFor)) + "\n")
		b.WriteString(indentBlock(truncate(oneLine(msg.Content), width-8), "    "))
	default:
		b.WriteString(indentBlock(renderBody(msg, width), "    "))
	}

	if msg.Status == model.StatusFailed && msg.ErrorMessage != "" {
		b.WriteString("    " + ErrorStyle.Render("error: "+msg.ErrorMessage) + "\n")
	}

	return b.String()
}

// renderBody formats outgoing (concierge) text as terminal markdown; guest
// text stays verbatim. Autolink is disabled so plain URLs survive for the
// terminal emulator to make clickable.
func renderBody(msg model.Message, width int) string {
	if msg.Direction != model.DirectionOutgoing {
		return msg.Content
	}

	ext := markdown.Extensions() &^ parser.Autolink
	p := parser.NewWithExtensions(ext)
	r := markdown.NewRenderer(width-8, 0)
	doc := p.Parse([]byte(msg.Content))
	return strings.TrimRight(string(gomarkdown.Render(doc, r)), "\n")
}

func indentBlock(text, prefix string) string {
	if text == "" {
		return ""
	}
	lines := strings.Split(text, "\n")
	var b strings.Builder
	for _, line := range lines {
		b.WriteString(prefix + line + "\n")
	}
	return b.String()
}

// transcriptText flattens a conversation into plain text for the clipboard.
func transcriptText(messages []model.Message) string {
	var b strings.Builder
	for _, msg := range messages {
		who := "Guest"
		if msg.Direction == model.DirectionOutgoing {
			who = "Outfitter"
		}
		b.WriteString(fmt.Sprintf("[%s] %s:\n", msg.CreatedAt.Format("2006-01-02 15:04"), who))
		if msg.Content != "" {
			b.WriteString(msg.Content + "\n")
		}
		for _, inv := range msg.ToolInvocations {
			b.WriteString("(tool call: " + inv.Name + ")\n")
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
