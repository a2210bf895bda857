package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"strings"
	"testing"

	"outfitter/storage"
)

type fakeNotifier struct {
	to      string
	message string
	err     error
}

func (f *fakeNotifier) Send(ctx context.Context, to, message string) error {
	f.to = to
	f.message = message
	return f.err
}

type fakeHelpStore struct {
	req *storage.HelpRequest
}

func (f *fakeHelpStore) InsertHelpRequest(ctx context.Context, req *storage.HelpRequest) error {
	req.ID = "ticket-123"
	f.req = req
	return nil
}

func testLinks() *LinkSigner {
	return NewLinkSigner("https://concierge.example.com/", []byte("signing-secret"))
}

func TestRegisterLocalToolsGatesOnDependencies(t *testing.T) {
	r := NewLocalRegistry()
	RegisterLocalTools(r, LocalToolConfig{Notifier: &fakeNotifier{}})

	if got := toolNames(r.Tools()); len(got) != 1 || got[0] != "sms_send" {
		t.Errorf("notifier-only registry = %v", got)
	}

	r = NewLocalRegistry()
	RegisterLocalTools(r, LocalToolConfig{
		Notifier:  &fakeNotifier{},
		HelpStore: &fakeHelpStore{},
		Links:     testLinks(),
	})

	want := []string{"calendar_display", "dynamic_form", "help_request", "sms_send"}
	if got := toolNames(r.Tools()); strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("full registry = %v, want %v", got, want)
	}
}

func TestSmsSendUsesCallerIdentityAsFallbackRecipient(t *testing.T) {
	notifier := &fakeNotifier{}
	r := NewLocalRegistry()
	RegisterLocalTools(r, LocalToolConfig{Notifier: notifier})

	result, handled, err := r.Dispatch(context.Background(), "sms_send", map[string]any{
		"message":    "Your kayak tour is confirmed",
		"auth_token": "+15550001111",
	})
	if !handled || err != nil {
		t.Fatalf("handled=%v err=%v", handled, err)
	}
	if notifier.to != "+15550001111" {
		t.Errorf("recipient = %q", notifier.to)
	}
	if got := ResultText(result); got != "SMS sent to +15550001111" {
		t.Errorf("confirmation = %q", got)
	}
}

func TestSmsSendAppendsLink(t *testing.T) {
	notifier := &fakeNotifier{}
	r := NewLocalRegistry()
	RegisterLocalTools(r, LocalToolConfig{Notifier: notifier})

	_, _, err := r.Dispatch(context.Background(), "sms_send", map[string]any{
		"message":  "Pick a time that works",
		"to":       "+15559990000",
		"link_url": "https://concierge.example.com/forms/abc",
	})
	if err != nil {
		t.Fatal(err)
	}

	want := "Pick a time that works\n\nClick here: https://concierge.example.com/forms/abc"
	if notifier.message != want {
		t.Errorf("message = %q", notifier.message)
	}
	if notifier.to != "+15559990000" {
		t.Errorf("explicit recipient should win, got %q", notifier.to)
	}
}

func TestSmsSendWithoutRecipientFails(t *testing.T) {
	r := NewLocalRegistry()
	RegisterLocalTools(r, LocalToolConfig{Notifier: &fakeNotifier{}})

	_, handled, err := r.Dispatch(context.Background(), "sms_send", map[string]any{"message": "hi"})
	if !handled {
		t.Fatal("sms_send should be handled locally")
	}
	if err == nil || !strings.Contains(err.Error(), "no recipient") {
		t.Errorf("expected recipient error, got %v", err)
	}
}

func TestSmsSendPropagatesNotifierError(t *testing.T) {
	notifier := &fakeNotifier{err: errors.New("gateway returned 500")}
	r := NewLocalRegistry()
	RegisterLocalTools(r, LocalToolConfig{Notifier: notifier})

	_, _, err := r.Dispatch(context.Background(), "sms_send", map[string]any{
		"message": "hi",
		"to":      "+15550001111",
	})
	if err == nil || !strings.Contains(err.Error(), "gateway returned 500") {
		t.Errorf("expected notifier error, got %v", err)
	}
}

// decodeDisplayURL verifies the signature on a display link and returns its
// payload.
func decodeDisplayURL(t *testing.T, links *LinkSigner, rawURL string) map[string]any {
	t.Helper()

	u, err := url.Parse(rawURL)
	if err != nil {
		t.Fatalf("bad display URL %q: %v", rawURL, err)
	}

	data, err := links.Verify(u.Query().Get("d"), u.Query().Get("sig"))
	if err != nil {
		t.Fatalf("signature check failed: %v", err)
	}

	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	return payload
}

func TestCalendarDisplayBuildsSignedURL(t *testing.T) {
	links := testLinks()
	r := NewLocalRegistry()
	RegisterLocalTools(r, LocalToolConfig{Links: links})

	result, handled, err := r.Dispatch(context.Background(), "calendar_display", map[string]any{
		"title": "Your Adventure Week",
		"events": []any{
			map[string]any{"title": "Kayak Tour", "date": "2026-09-01", "time": "09:00", "location": "North Dock"},
			map[string]any{"title": "Wine Tasting", "date": "2026-09-02"},
		},
	})
	if !handled || err != nil {
		t.Fatalf("handled=%v err=%v", handled, err)
	}

	text := ResultText(result)
	if !strings.HasPrefix(text, "Calendar created! View it at: ") {
		t.Fatalf("confirmation = %q", text)
	}
	rawURL := strings.TrimPrefix(text, "Calendar created! View it at: ")
	if !strings.HasPrefix(rawURL, "https://concierge.example.com/calendar?") {
		t.Errorf("URL = %q", rawURL)
	}

	payload := decodeDisplayURL(t, links, rawURL)
	if payload["title"] != "Your Adventure Week" {
		t.Errorf("title = %v", payload["title"])
	}
	if payload["view"] != "month" {
		t.Errorf("default view = %v", payload["view"])
	}

	events, _ := payload["events"].([]any)
	if len(events) != 2 {
		t.Fatalf("events = %v", payload["events"])
	}
	first, _ := events[0].(map[string]any)
	if first["start"] != "2026-09-01T09:00" {
		t.Errorf("timed event start = %v", first["start"])
	}
	second, _ := events[1].(map[string]any)
	if second["start"] != "2026-09-02" {
		t.Errorf("all-day event start = %v", second["start"])
	}
}

func TestDynamicFormBuildsSchemaFromFields(t *testing.T) {
	links := testLinks()
	r := NewLocalRegistry()
	RegisterLocalTools(r, LocalToolConfig{Links: links})

	result, _, err := r.Dispatch(context.Background(), "dynamic_form", map[string]any{
		"title":       "Trip Preferences",
		"description": "Tell us what you enjoy",
		"fields": []any{
			map[string]any{"name": "email", "label": "Email", "type": "email", "required": true},
			map[string]any{"name": "activity", "type": "select", "options": []any{"hiking", "sailing"}},
			map[string]any{"name": "newsletter", "label": "Subscribe", "type": "checkbox"},
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	text := ResultText(result)
	rawURL := strings.TrimPrefix(text, "Form created! Access it at: ")
	if !strings.HasPrefix(rawURL, "https://concierge.example.com/forms?") {
		t.Fatalf("URL = %q", rawURL)
	}

	payload := decodeDisplayURL(t, links, rawURL)
	schema, _ := payload["schema"].(map[string]any)
	properties, _ := schema["properties"].(map[string]any)

	email, _ := properties["email"].(map[string]any)
	if email["format"] != "email" {
		t.Errorf("email field = %v", email)
	}

	activity, _ := properties["activity"].(map[string]any)
	enum, _ := activity["enum"].([]any)
	if len(enum) != 2 || enum[0] != "hiking" {
		t.Errorf("select options = %v", activity)
	}
	if activity["title"] != "activity" {
		t.Errorf("label should default to field name, got %v", activity["title"])
	}

	newsletter, _ := properties["newsletter"].(map[string]any)
	if newsletter["type"] != "boolean" {
		t.Errorf("checkbox field = %v", newsletter)
	}

	required, _ := schema["required"].([]any)
	if len(required) != 1 || required[0] != "email" {
		t.Errorf("required = %v", schema["required"])
	}

	if payload["submitButtonText"] != "Submit" {
		t.Errorf("submit button = %v", payload["submitButtonText"])
	}
}

func TestHelpRequestPersistsEscalation(t *testing.T) {
	store := &fakeHelpStore{}
	r := NewLocalRegistry()
	RegisterLocalTools(r, LocalToolConfig{HelpStore: store})

	result, handled, err := r.Dispatch(context.Background(), "help_request", map[string]any{
		"reason":     "Guest wants to change a non-refundable booking",
		"auth_token": "+15550001111",
	})
	if !handled || err != nil {
		t.Fatalf("handled=%v err=%v", handled, err)
	}

	if store.req == nil {
		t.Fatal("no help request persisted")
	}
	if store.req.ConversationKey != "+15550001111" {
		t.Errorf("conversation key = %q", store.req.ConversationKey)
	}
	if store.req.Reason != "Guest wants to change a non-refundable booking" {
		t.Errorf("reason = %q", store.req.Reason)
	}
	if got := ResultText(result); !strings.Contains(got, "ticket-123") {
		t.Errorf("confirmation %q should name the ticket", got)
	}
}

func TestLocalDispatchValidatesRequiredArguments(t *testing.T) {
	r := NewLocalRegistry()
	RegisterLocalTools(r, LocalToolConfig{Links: testLinks()})

	_, handled, err := r.Dispatch(context.Background(), "calendar_display", map[string]any{
		"events": []any{},
	})
	if !handled {
		t.Fatal("calendar_display should be handled locally")
	}
	if err == nil || !strings.Contains(err.Error(), "missing required argument") {
		t.Errorf("expected validation error, got %v", err)
	}
}
