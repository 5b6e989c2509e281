package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// WebhookConfig configures a WebhookSink.
type WebhookConfig struct {
	URL        string
	MaxRetries int
	Timeout    time.Duration
}

// WebhookSink posts reports as JSON.
type WebhookSink struct {
	url    string
	client *retryablehttp.Client
}

type webhookPayload struct {
	Subject string    `json:"subject"`
	Body    string    `json:"body"`
	SentAt  time.Time `json:"sent_at"`
}

// NewWebhookSink builds a sink that retries 5xx and connection errors up
// to cfg.MaxRetries times.
func NewWebhookSink(cfg WebhookConfig, logger *slog.Logger) *WebhookSink {
	client := retryablehttp.NewClient()
	client.RetryMax = cfg.MaxRetries
	client.RetryWaitMin = 200 * time.Millisecond
	client.RetryWaitMax = 2 * time.Second
	if cfg.Timeout > 0 {
		client.HTTPClient.Timeout = cfg.Timeout
	}
	client.Logger = nil
	if logger != nil {
		client.Logger = logger
	}
	return &WebhookSink{url: cfg.URL, client: client}
}

func (s *WebhookSink) Send(ctx context.Context, subject, body string) error {
	data, err := json.Marshal(webhookPayload{Subject: subject, Body: body, SentAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("webhook encode: %w", err)
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook post: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook post: unexpected status %s", resp.Status)
	}
	return nil
}
