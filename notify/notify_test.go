package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHTTPNotifierPostsStrippedMessage(t *testing.T) {
	var gotAuth, gotContentType string
	var gotBody dispatchRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("bad body: %v", err)
		}
		w.WriteHeader(200)
	}))
	defer server.Close()

	n := NewHTTPNotifier(server.URL, "dispatch-token")
	err := n.Send(context.Background(), "+15550001111", "**Great news!** Your tour is booked.")
	if err != nil {
		t.Fatal(err)
	}

	if gotAuth != "Bearer dispatch-token" {
		t.Errorf("auth header = %q", gotAuth)
	}
	if gotContentType != "application/json" {
		t.Errorf("content type = %q", gotContentType)
	}
	if gotBody.To != "+15550001111" {
		t.Errorf("to = %q", gotBody.To)
	}
	if gotBody.Message != "Great news! Your tour is booked." {
		t.Errorf("message = %q", gotBody.Message)
	}
}

func TestHTTPNotifierReportsErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unknown recipient", 422)
	}))
	defer server.Close()

	n := NewHTTPNotifier(server.URL, "")
	err := n.Send(context.Background(), "+15550001111", "hello")
	if err == nil {
		t.Fatal("expected error for non-200 response")
	}
	if !strings.Contains(err.Error(), "422") || !strings.Contains(err.Error(), "unknown recipient") {
		t.Errorf("error = %v", err)
	}
}

func TestHTTPNotifierOmitsAuthWithoutToken(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(200)
	}))
	defer server.Close()

	n := NewHTTPNotifier(server.URL, "")
	if err := n.Send(context.Background(), "+15550001111", "hi"); err != nil {
		t.Fatal(err)
	}
	if gotAuth != "" {
		t.Errorf("unexpected auth header %q", gotAuth)
	}
}

func TestNoopNotifier(t *testing.T) {
	if err := (NoopNotifier{}).Send(context.Background(), "+15550001111", "hi"); err != nil {
		t.Errorf("noop notifier returned %v", err)
	}
}

func TestStripMarkdown(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "plain text unchanged",
			in:   "Your kayak tour starts at 9am.",
			want: "Your kayak tour starts at 9am.",
		},
		{
			name: "emphasis markers removed",
			in:   "**Great news!** Your booking is *confirmed*.",
			want: "Great news! Your booking is confirmed.",
		},
		{
			name: "link collapses to URL",
			in:   "Pick a slot: [Click here](https://example.com/forms/abc)",
			want: "Pick a slot: https://example.com/forms/abc",
		},
		{
			name: "heading marker removed",
			in:   "# Itinerary\nDay one is the coast walk.",
			want: "Itinerary\nDay one is the coast walk.",
		},
		{
			name: "list keeps simple bullets",
			in:   "Bring:\n\n- sunscreen\n- water",
			want: "Bring:\n- sunscreen\n- water",
		},
		{
			name: "inline code keeps content",
			in:   "Your code is `A1B2`.",
			want: "Your code is A1B2.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripMarkdown(tt.in); got != tt.want {
				t.Errorf("StripMarkdown(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
