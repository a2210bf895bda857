package testutil

import (
	mcptypes "github.com/mark3labs/mcp-go/mcp"

	"outfitter/model"
)

// TestTurns returns a sample conversation for testing
func TestTurns() []model.Turn {
	return []model.Turn{
		model.NewTextTurn(model.RoleUser, "Hello, how are you?"),
		model.NewTextTurn(model.RoleAssistant, "I'm doing well, thank you!"),
		model.NewTextTurn(model.RoleUser, "Can you help me plan a trip?"),
	}
}

// SingleUserTurn returns a single user turn for simple tests
func SingleUserTurn(content string) []model.Turn {
	return []model.Turn{
		model.NewTextTurn(model.RoleUser, content),
	}
}

// ToolExchangeTurns returns a conversation containing a completed tool round
// trip: user ask, assistant invocation, synthetic result turn.
func ToolExchangeTurns(invocationID string) []model.Turn {
	return []model.Turn{
		model.NewTextTurn(model.RoleUser, "What's the weather in Lisbon?"),
		{
			Role: model.RoleAssistant,
			Blocks: []model.Block{
				model.InvocationBlock(model.ToolInvocation{
					ID:        invocationID,
					Name:      "get_weather",
					Arguments: map[string]any{"location": "Lisbon"},
				}),
			},
		},
		{
			Role: model.RoleUser,
			Blocks: []model.Block{
				model.ResultBlock(model.ToolResult{
					InvocationID: invocationID,
					Content:      "Sunny, 24C",
				}),
			},
		},
	}
}

// TestDirectoryTools returns sample tool descriptors for testing
func TestDirectoryTools() []mcptypes.Tool {
	return []mcptypes.Tool{
		{
			Name:        "get_weather",
			Description: "Get the current weather for a location",
			InputSchema: mcptypes.ToolInputSchema{
				Type: "object",
				Properties: map[string]any{
					"location": map[string]any{
						"type":        "string",
						"description": "The city and state, e.g. San Francisco, CA",
					},
				},
				Required: []string{"location"},
			},
		},
		{
			Name:        "octo_availability",
			Description: "Check availability for a bookable activity",
			InputSchema: mcptypes.ToolInputSchema{
				Type: "object",
				Properties: map[string]any{
					"product_id": map[string]any{
						"type":        "string",
						"description": "The activity product identifier",
					},
					"date": map[string]any{
						"type":        "string",
						"description": "The date to check, YYYY-MM-DD",
					},
				},
				Required: []string{"product_id"},
			},
		},
	}
}

// EmptyTurns returns an empty turn slice for edge case testing
func EmptyTurns() []model.Turn {
	return []model.Turn{}
}
