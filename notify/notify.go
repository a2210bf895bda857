package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"outfitter/config"
)

// Notifier delivers outbound text messages to guests.
type Notifier interface {
	Send(ctx context.Context, to, message string) error
}

// HTTPNotifier posts messages to an SMS dispatch endpoint.
type HTTPNotifier struct {
	endpoint string
	token    string
	client   *http.Client
}

func NewHTTPNotifier(endpoint, token string) *HTTPNotifier {
	return &HTTPNotifier{
		endpoint: endpoint,
		token:    token,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

type dispatchRequest struct {
	To      string `json:"to"`
	Message string `json:"message"`
}

// Send posts the message to the dispatch endpoint. Markdown is flattened to
// plain text first since handsets render SMS verbatim.
func (n *HTTPNotifier) Send(ctx context.Context, to, message string) error {
	payload, err := json.Marshal(dispatchRequest{To: to, Message: StripMarkdown(message)})
	if err != nil {
		return fmt.Errorf("failed to encode dispatch request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build dispatch request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if n.token != "" {
		req.Header.Set("Authorization", "Bearer "+n.token)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("dispatch request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("dispatch endpoint returned %d: %s", resp.StatusCode, string(body))
	}

	if config.DebugLog != nil {
		config.DebugLog.Printf("[Notify] Sent %d chars to %s", len(message), to)
	}

	return nil
}

// NoopNotifier logs instead of sending, for tests and for running without a
// dispatch endpoint.
type NoopNotifier struct{}

func (NoopNotifier) Send(ctx context.Context, to, message string) error {
	if config.DebugLog != nil {
		config.DebugLog.Printf("[Notify] No dispatch endpoint, dropping %d chars to %s", len(message), to)
	}
	return nil
}
