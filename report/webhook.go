package report

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/use-agent/syndicate/models"
)

// webhookEvent is the payload sent to the report webhook endpoint.
type webhookEvent struct {
	Type      string      `json:"type"` // "run.completed"
	Timestamp int64       `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// WebhookSink POSTs each report to an HTTP endpoint. The request body is
// signed with HMAC-SHA256 if a secret is configured.
// Header: X-Syndicate-Signature: sha256=<hex>
type WebhookSink struct {
	url    string
	secret string
	client *http.Client
}

func NewWebhookSink(url, secret string) *WebhookSink {
	return &WebhookSink{
		url:    url,
		secret: secret,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *WebhookSink) Name() string { return "webhook" }

// Deliver sends the report synchronously, retrying on failure.
// Retry intervals: 1s, 5s, 30s.
func (s *WebhookSink) Deliver(ctx context.Context, report *models.RunReport) error {
	event := &webhookEvent{
		Type:      "run.completed",
		Timestamp: time.Now().Unix(),
		Data:      report,
	}

	delays := []time.Duration{0, 1 * time.Second, 5 * time.Second, 30 * time.Second}
	var lastErr error
	for attempt, delay := range delays {
		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if lastErr = s.send(ctx, event); lastErr == nil {
			slog.Info("report webhook delivered", "url", s.url, "attempt", attempt+1)
			return nil
		}
		slog.Warn("report webhook delivery failed",
			"url", s.url,
			"attempt", attempt+1,
			"error", lastErr,
		)
	}
	return fmt.Errorf("report: webhook exhausted all retries: %w", lastErr)
}

func (s *WebhookSink) send(ctx context.Context, event *webhookEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Syndicate-Webhook/1.0")

	if s.secret != "" {
		mac := hmac.New(sha256.New, []byte(s.secret))
		mac.Write(body)
		sig := hex.EncodeToString(mac.Sum(nil))
		req.Header.Set("X-Syndicate-Signature", "sha256="+sig)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("deliver: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("endpoint returned status %d", resp.StatusCode)
	}
	return nil
}
