package mcp

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	mcptypes "github.com/mark3labs/mcp-go/mcp"

	"outfitter/storage"
)

// Sender delivers outbound text messages. notify.Notifier satisfies it.
type Sender interface {
	Send(ctx context.Context, to, message string) error
}

// HelpRequestStore persists operator escalations. *storage.MessageStore
// satisfies it.
type HelpRequestStore interface {
	InsertHelpRequest(ctx context.Context, req *storage.HelpRequest) error
}

// LocalToolConfig wires the dependencies of the locally served tools. Tools
// whose dependency is nil are not registered.
type LocalToolConfig struct {
	Notifier    Sender
	HelpStore   HelpRequestStore
	Links       *LinkSigner
	IdentityArg string
}

// RegisterLocalTools adds the built-in concierge tools to a registry:
// sending texts, publishing calendar and form display links, and escalating
// to a human operator.
func RegisterLocalTools(r *Registry, cfg LocalToolConfig) {
	identityArg := cfg.IdentityArg
	if identityArg == "" {
		identityArg = "auth_token"
	}

	if cfg.Notifier != nil {
		r.Register(smsSendTool(), smsSendHandler(cfg.Notifier, identityArg))
	}
	if cfg.Links != nil {
		r.Register(calendarDisplayTool(), calendarDisplayHandler(cfg.Links))
		r.Register(dynamicFormTool(), dynamicFormHandler(cfg.Links))
	}
	if cfg.HelpStore != nil {
		r.Register(helpRequestTool(), helpRequestHandler(cfg.HelpStore, identityArg))
	}
}

func smsSendTool() mcptypes.Tool {
	return mcptypes.Tool{
		Name:        "sms_send",
		Description: "Send a text message to a guest, optionally with a link appended",
		InputSchema: mcptypes.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"message":   map[string]any{"type": "string", "description": "Message text to send"},
				"to":        map[string]any{"type": "string", "description": "Recipient phone number. Defaults to the current guest."},
				"link_url":  map[string]any{"type": "string", "description": "Optional URL appended to the message"},
				"link_text": map[string]any{"type": "string", "description": "Label shown before the appended URL"},
			},
			Required: []string{"message"},
		},
	}
}

func smsSendHandler(notifier Sender, identityArg string) Handler {
	return func(ctx context.Context, args map[string]any) (string, error) {
		message := stringArg(args, "message", "")

		to := stringArg(args, "to", "")
		if to == "" {
			to = stringArg(args, identityArg, "")
		}
		if to == "" {
			return "", fmt.Errorf("no recipient: provide \"to\" or invoke on behalf of a guest")
		}

		if link := stringArg(args, "link_url", ""); link != "" {
			message += "\n\n" + stringArg(args, "link_text", "Click here") + ": " + link
		}

		if err := notifier.Send(ctx, to, message); err != nil {
			return "", err
		}
		return "SMS sent to " + to, nil
	}
}

func calendarDisplayTool() mcptypes.Tool {
	return mcptypes.Tool{
		Name:        "calendar_display",
		Description: "Publish a calendar of events the guest can open in a browser",
		InputSchema: mcptypes.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"title": map[string]any{"type": "string", "description": "Calendar title"},
				"events": map[string]any{
					"type":        "array",
					"description": "Events to show, each with title, date (YYYY-MM-DD), and optional time, description, location",
					"items": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"title":       map[string]any{"type": "string"},
							"date":        map[string]any{"type": "string"},
							"time":        map[string]any{"type": "string"},
							"description": map[string]any{"type": "string"},
							"location":    map[string]any{"type": "string"},
						},
					},
				},
				"view": map[string]any{
					"type":        "string",
					"description": "Initial view",
					"enum":        []any{"month", "week", "agenda"},
				},
			},
			Required: []string{"title", "events"},
		},
	}
}

func calendarDisplayHandler(links *LinkSigner) Handler {
	return func(ctx context.Context, args map[string]any) (string, error) {
		raw, _ := args["events"].([]any)

		events := make([]map[string]any, 0, len(raw))
		for _, item := range raw {
			ev, ok := item.(map[string]any)
			if !ok {
				continue
			}
			start := stringArg(ev, "date", "")
			if t := stringArg(ev, "time", ""); t != "" {
				start += "T" + t
			}
			events = append(events, map[string]any{
				"id":          uuid.New().String(),
				"title":       stringArg(ev, "title", "Event"),
				"start":       start,
				"description": stringArg(ev, "description", ""),
				"location":    stringArg(ev, "location", ""),
			})
		}

		url, err := links.DisplayURL("calendar", map[string]any{
			"id":     uuid.New().String(),
			"title":  stringArg(args, "title", ""),
			"events": events,
			"view":   stringArg(args, "view", "month"),
		})
		if err != nil {
			return "", err
		}
		return "Calendar created! View it at: " + url, nil
	}
}

func dynamicFormTool() mcptypes.Tool {
	return mcptypes.Tool{
		Name:        "dynamic_form",
		Description: "Publish a form the guest can fill out in a browser",
		InputSchema: mcptypes.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"title":       map[string]any{"type": "string", "description": "Form title"},
				"description": map[string]any{"type": "string", "description": "Instructions shown above the fields"},
				"fields": map[string]any{
					"type":        "array",
					"description": "Field definitions with name, label, type (text, email, phone, date, select, checkbox), required, and options for select fields",
					"items": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"name":     map[string]any{"type": "string"},
							"label":    map[string]any{"type": "string"},
							"type":     map[string]any{"type": "string"},
							"required": map[string]any{"type": "boolean"},
							"options":  map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
						},
					},
				},
				"submit_button_text": map[string]any{"type": "string", "description": "Submit button label"},
				"success_message":    map[string]any{"type": "string", "description": "Message shown after submission"},
			},
			Required: []string{"title", "fields"},
		},
	}
}

func dynamicFormHandler(links *LinkSigner) Handler {
	return func(ctx context.Context, args map[string]any) (string, error) {
		raw, _ := args["fields"].([]any)
		properties, required := buildFormSchema(raw)

		url, err := links.DisplayURL("forms", map[string]any{
			"id":          uuid.New().String(),
			"title":       stringArg(args, "title", ""),
			"description": stringArg(args, "description", ""),
			"schema": map[string]any{
				"type":       "object",
				"properties": properties,
				"required":   required,
			},
			"submitButtonText": stringArg(args, "submit_button_text", "Submit"),
			"successMessage":   stringArg(args, "success_message", "Thank you for your submission!"),
		})
		if err != nil {
			return "", err
		}
		return "Form created! Access it at: " + url, nil
	}
}

func buildFormSchema(raw []any) (map[string]any, []string) {
	properties := make(map[string]any)
	required := []string{}

	for _, item := range raw {
		field, ok := item.(map[string]any)
		if !ok {
			continue
		}
		name := stringArg(field, "name", "")
		if name == "" {
			continue
		}

		def := map[string]any{
			"type":  "string",
			"title": stringArg(field, "label", name),
		}
		switch stringArg(field, "type", "text") {
		case "email":
			def["format"] = "email"
		case "date":
			def["format"] = "date"
		case "select":
			if options, ok := field["options"].([]any); ok {
				def["enum"] = options
			}
		case "checkbox":
			def["type"] = "boolean"
		}

		properties[name] = def
		if req, ok := field["required"].(bool); ok && req {
			required = append(required, name)
		}
	}

	return properties, required
}

func helpRequestTool() mcptypes.Tool {
	return mcptypes.Tool{
		Name:        "help_request",
		Description: "Escalate the conversation to a human operator when the guest needs help the assistant cannot provide",
		InputSchema: mcptypes.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"reason": map[string]any{"type": "string", "description": "What the guest needs help with"},
			},
			Required: []string{"reason"},
		},
	}
}

func helpRequestHandler(store HelpRequestStore, identityArg string) Handler {
	return func(ctx context.Context, args map[string]any) (string, error) {
		req := &storage.HelpRequest{
			ConversationKey: stringArg(args, identityArg, ""),
			Reason:          stringArg(args, "reason", ""),
		}
		if err := store.InsertHelpRequest(ctx, req); err != nil {
			return "", err
		}
		return fmt.Sprintf("Help request created (ticket %s). A team member will follow up shortly.", req.ID), nil
	}
}

func stringArg(args map[string]any, key, fallback string) string {
	if v, ok := args[key].(string); ok && v != "" {
		return v
	}
	return fallback
}
