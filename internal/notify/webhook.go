package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/znetops/netmon/internal/status"
)

// Webhook posts transition events as JSON to a configured URL.
type Webhook struct {
	url    string
	client *http.Client
}

// NewWebhook returns a webhook notifier, or nil if url is empty.
func NewWebhook(url string) *Webhook {
	if url == "" {
		return nil
	}
	return &Webhook{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

type webhookPayload struct {
	Target     string `json:"target"`
	Host       string `json:"host"`
	FromStatus string `json:"from_status"`
	ToStatus   string `json:"to_status"`
	At         string `json:"at"`
	Source     string `json:"source"`
}

func (w *Webhook) Send(ctx context.Context, ev status.AlertEvent) error {
	payload := webhookPayload{
		Target:     ev.Name,
		Host:       ev.Host,
		FromStatus: string(ev.From),
		ToStatus:   string(ev.To),
		At:         ev.Timestamp.UTC().Format(time.RFC3339),
		Source:     "netmon",
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("sending webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
