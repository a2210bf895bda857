package provider

import (
	"strings"

	mcptypes "github.com/mark3labs/mcp-go/mcp"
)

// buildOpenRouterToolInstructions creates tool instructions for OpenRouter models.
// OpenRouter fronts many model families of varying capability, so the guidance
// stays explicit about when to execute versus when to ask.
func buildOpenRouterToolInstructions(tools []mcptypes.Tool) string {
	toolNames := []string{}
	for _, tool := range tools {
		toolNames = append(toolNames, tool.Name)
	}

	return strings.Join([]string{
		"TOOLS: " + strings.Join(toolNames, ", "),
		"",
		"When the user asks you to do something that requires a tool:",
		"1. Determine which tool is needed",
		"2. Check if you have all required parameters",
		"3. If yes: Execute the tool IMMEDIATELY without explanation",
		"4. If no: Ask for the missing parameter ONLY",
		"",
		"DO NOT:",
		"- List available tools",
		"- Explain what you're about to do",
		"- Ask 'what would you like me to do?'",
		"",
		"Example:",
		"User: 'Check availability for the kayak tour'",
		"You: [call octo_availability('kayak-tour')]",
		"NOT: 'I can check availability. What would you like?'",
	}, "\n")
}
