package provider

import (
	"strings"

	mcptypes "github.com/mark3labs/mcp-go/mcp"
)

// buildOpenAIToolInstructions returns a system-prompt suffix for GPT
// models, which do best with short imperative rules.
func buildOpenAIToolInstructions(tools []mcptypes.Tool) string {
	names := make([]string, 0, len(tools))
	for _, tool := range tools {
		names = append(names, tool.Name)
	}

	return strings.Join([]string{
		"TOOLS: " + strings.Join(names, ", "),
		"",
		"Rules:",
		"- A request that maps to a tool gets the tool call, not a description of it.",
		"- Missing a required argument? Ask for that one argument, nothing else.",
		"- Never enumerate tools or ask 'what would you like me to do?'.",
		"",
		"Guest: 'Book the sunset cruise for Friday'",
		"Good: [call booking_create(...)]",
		"Bad: 'I can make bookings. What would you like?'",
	}, "\n")
}
