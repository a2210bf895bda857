package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"outfitter/config"
)

type settingKey int

const (
	settingActiveProvider settingKey = iota
	settingOllamaHost
	settingOllamaModel
	settingPollSeconds
	settingMorningAt
	settingDataDir
	settingCredentialStore
	settingPluginsEnabled
)

// SettingField is one row of the settings view. Editable rows persist
// through config writers; the rest are shown for orientation.
type SettingField struct {
	Key      settingKey
	Label    string
	Value    string
	Editable bool
	Hint     string
}

type settingsState struct {
	rows     []SettingField
	selected int
	editing  bool
	input    textinput.Model
}

func settingRows(cfg *config.Config) []SettingField {
	morning := cfg.Worker.MorningUpdateAt
	if morning == "" {
		morning = "(off)"
	}

	plugins := "disabled"
	if cfg.PluginsEnabled {
		plugins = "enabled"
	}

	return []SettingField{
		{Key: settingActiveProvider, Label: "Active provider", Value: cfg.Worker.ActiveProvider, Editable: true, Hint: "ollama, openrouter, anthropic, openai"},
		{Key: settingOllamaHost, Label: "Ollama host", Value: cfg.OllamaHost, Editable: true, Hint: "http://host:11434"},
		{Key: settingOllamaModel, Label: "Ollama model", Value: cfg.DefaultModel, Editable: true},
		{Key: settingPollSeconds, Label: "Poll interval (s)", Value: fmt.Sprintf("%d", cfg.Worker.PollSeconds), Editable: true, Hint: "positive integer"},
		{Key: settingMorningAt, Label: "Morning update", Value: morning, Editable: true, Hint: "HH:MM, empty disables"},
		{Key: settingDataDir, Label: "Data directory", Value: cfg.DataDir()},
		{Key: settingCredentialStore, Label: "Credential storage", Value: cfg.Security.CredentialStorage},
		{Key: settingPluginsEnabled, Label: "Plugins", Value: plugins, Hint: "edit config.toml and restart"},
	}
}

func (c Console) handleSettingsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	s := &c.settings

	if s.editing {
		switch key {
		case "esc":
			s.editing = false
			s.input.Blur()
			return c, nil
		case "enter":
			field := s.rows[s.selected]
			value := strings.TrimSpace(s.input.Value())
			s.editing = false
			s.input.Blur()
			return c, c.saveSettingCmd(field, value)
		case c.kb.GetActionKey("clear_input"):
			s.input.SetValue("")
			return c, nil
		}

		var cmd tea.Cmd
		s.input, cmd = s.input.Update(msg)
		return c, cmd
	}

	switch key {
	case "esc":
		c.view = viewConversations
		return c, nil
	case c.kb.GetActionKey("settings_down"), c.kb.GetActionKey("settings_down_arrow"):
		if s.selected < len(s.rows)-1 {
			s.selected++
		}
		return c, nil
	case c.kb.GetActionKey("settings_up"), c.kb.GetActionKey("settings_up_arrow"):
		if s.selected > 0 {
			s.selected--
		}
		return c, nil
	case "enter":
		field := s.rows[s.selected]
		if !field.Editable {
			c.flash = field.Label + " is read-only here"
			if field.Hint != "" {
				c.flash += " (" + field.Hint + ")"
			}
			c.flashErr = false
			return c, flashClearCmd()
		}
		s.editing = true
		value := field.Value
		if value == "(off)" {
			value = ""
		}
		s.input.SetValue(value)
		s.input.CursorEnd()
		s.input.Focus()
		return c, textinput.Blink
	}

	return c, nil
}

func (c Console) renderSettings() string {
	s := c.settings
	var b strings.Builder
	b.WriteString("\n")

	for i, row := range s.rows {
		prefix := "  "
		labelStyle := DimStyle
		if i == s.selected {
			prefix = SelectedStyle.Render("> ")
			labelStyle = SelectedStyle
		}

		if i == s.selected && s.editing {
			b.WriteString(fmt.Sprintf("%s%s %s\n", prefix, labelStyle.Render(fmt.Sprintf("%-20s", row.Label)), s.input.View()))
			if row.Hint != "" {
				b.WriteString("    " + DimStyle.Render(row.Hint) + "\n")
			}
			continue
		}

		value := row.Value
		if !row.Editable {
			value = DimStyle.Render(value)
		}
		b.WriteString(fmt.Sprintf("%s%s %s\n", prefix, labelStyle.Render(fmt.Sprintf("%-20s", row.Label)), value))
	}

	b.WriteString("\n")
	b.WriteString(" " + DimStyle.Render("Changes apply after the worker restarts."))
	return b.String()
}
