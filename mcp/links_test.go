package mcp

import (
	"net/url"
	"strings"
	"testing"
)

func TestLinkSignerRoundTrip(t *testing.T) {
	links := NewLinkSigner("https://concierge.example.com", []byte("secret"))

	signed, err := links.DisplayURL("calendar", map[string]any{"title": "September"})
	if err != nil {
		t.Fatal(err)
	}

	u, err := url.Parse(signed)
	if err != nil {
		t.Fatal(err)
	}

	data, err := links.Verify(u.Query().Get("d"), u.Query().Get("sig"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "September") {
		t.Errorf("payload = %s", data)
	}
}

func TestLinkSignerRejectsTamperedPayload(t *testing.T) {
	links := NewLinkSigner("https://concierge.example.com", []byte("secret"))

	signed, err := links.DisplayURL("forms", map[string]any{"id": "abc"})
	if err != nil {
		t.Fatal(err)
	}

	u, _ := url.Parse(signed)
	if _, err := links.Verify(u.Query().Get("d")+"x", u.Query().Get("sig")); err == nil {
		t.Error("tampered payload should fail verification")
	}
	if _, err := links.Verify(u.Query().Get("d"), "deadbeef"); err == nil {
		t.Error("forged signature should fail verification")
	}
}

func TestLinkSignerKeyedBySecret(t *testing.T) {
	a := NewLinkSigner("https://concierge.example.com", []byte("one"))
	b := NewLinkSigner("https://concierge.example.com", []byte("two"))

	signed, err := a.DisplayURL("calendar", map[string]any{"id": "abc"})
	if err != nil {
		t.Fatal(err)
	}

	u, _ := url.Parse(signed)
	if _, err := b.Verify(u.Query().Get("d"), u.Query().Get("sig")); err == nil {
		t.Error("a different secret should not verify")
	}
}

func TestLinkSignerTrimsTrailingSlash(t *testing.T) {
	links := NewLinkSigner("https://concierge.example.com/", []byte("secret"))

	signed, err := links.DisplayURL("/calendar/", map[string]any{})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(signed, "https://concierge.example.com/calendar?") {
		t.Errorf("URL = %q", signed)
	}
}
