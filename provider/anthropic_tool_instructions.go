package provider

import (
	"strings"

	mcptypes "github.com/mark3labs/mcp-go/mcp"
)

// buildAnthropicToolInstructions returns a short system-prompt suffix for
// Claude models. Claude follows tool schemas well but tends to narrate
// before acting, so the nudge is all about acting immediately.
func buildAnthropicToolInstructions(tools []mcptypes.Tool) string {
	names := make([]string, 0, len(tools))
	for _, tool := range tools {
		names = append(names, tool.Name)
	}

	return strings.Join([]string{
		"TOOLS: " + strings.Join(names, ", "),
		"",
		"When a guest request needs a tool, call it in the same turn.",
		"Ask a question only when a required argument is genuinely missing,",
		"and ask for that argument alone.",
		"",
		"Never list your tools, announce that you are about to use one,",
		"or reply with 'what would you like me to do?'.",
		"",
		"Guest: 'What's the weather tomorrow?'",
		"Good: [call weather_forecast(...)]",
		"Bad: 'I can check the weather. What would you like?'",
	}, "\n")
}
