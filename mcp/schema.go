package mcp

import (
	"fmt"

	mcptypes "github.com/mark3labs/mcp-go/mcp"
)

// ValidateArguments checks an argument map against a tool's declared input
// schema before dispatch: required properties must be present, and provided
// values must match the declared primitive type. Properties the schema does
// not declare pass through untouched; so do properties with no usable type
// declaration. This catches the common LLM failure modes (dropped required
// fields, numbers sent as strings) without reimplementing JSON Schema.
func ValidateArguments(tool mcptypes.Tool, args map[string]any) error {
	for _, required := range tool.InputSchema.Required {
		if _, ok := args[required]; !ok {
			return fmt.Errorf("tool %s: missing required argument %q", tool.Name, required)
		}
	}

	for name, value := range args {
		propValue, ok := tool.InputSchema.Properties[name]
		if !ok {
			continue
		}
		propMap, ok := propValue.(map[string]any)
		if !ok {
			continue
		}
		declared, ok := propMap["type"].(string)
		if !ok {
			continue
		}

		if err := checkType(declared, value); err != nil {
			return fmt.Errorf("tool %s: argument %q: %w", tool.Name, name, err)
		}
	}

	return nil
}

func checkType(declared string, value any) error {
	if value == nil {
		return nil
	}

	switch declared {
	case "string":
		if _, ok := value.(string); !ok {
			return fmt.Errorf("expected string, got %T", value)
		}
	case "number":
		switch value.(type) {
		case float64, float32, int, int64:
		default:
			return fmt.Errorf("expected number, got %T", value)
		}
	case "integer":
		switch v := value.(type) {
		case int, int64:
		case float64:
			if v != float64(int64(v)) {
				return fmt.Errorf("expected integer, got %v", v)
			}
		default:
			return fmt.Errorf("expected integer, got %T", value)
		}
	case "boolean":
		if _, ok := value.(bool); !ok {
			return fmt.Errorf("expected boolean, got %T", value)
		}
	case "array":
		if _, ok := value.([]any); !ok {
			return fmt.Errorf("expected array, got %T", value)
		}
	case "object":
		if _, ok := value.(map[string]any); !ok {
			return fmt.Errorf("expected object, got %T", value)
		}
	}

	return nil
}
