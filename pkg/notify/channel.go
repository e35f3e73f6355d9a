package notify

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// Channel delivers a single notification event.
type Channel interface {
	Name() string
	Send(ctx context.Context, event *Event) error
}

// LogChannel writes notifications to the structured log. Useful as a
// default channel and in environments without outbound delivery.
type LogChannel struct {
	logger *logrus.Logger
}

// NewLogChannel creates a log channel.
func NewLogChannel(logger *logrus.Logger) *LogChannel {
	return &LogChannel{logger: logger}
}

func (c *LogChannel) Name() string { return "log" }

func (c *LogChannel) Send(ctx context.Context, event *Event) error {
	c.logger.WithFields(logrus.Fields{
		"event_id":       event.ID,
		"event_type":     event.Type,
		"tenant_id":      event.TenantID,
		"metric":         event.Metric,
		"percentage":     event.Percentage,
		"level":          event.Level,
		"days_remaining": event.DaysRemaining,
		"urgent":         event.Urgent,
	}).Warn("quota notification")
	return nil
}

// WebhookChannel POSTs notification events to an external endpoint,
// signing the payload when a secret is configured.
type WebhookChannel struct {
	name   string
	url    string
	secret string
	client *http.Client
}

// NewWebhookChannel creates a webhook channel.
func NewWebhookChannel(name, url, secret string) *WebhookChannel {
	return &WebhookChannel{
		name:   name,
		url:    url,
		secret: secret,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (c *WebhookChannel) Name() string { return c.name }

func (c *WebhookChannel) Send(ctx context.Context, event *Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Meridian-Event", string(event.Type))
	req.Header.Set("X-Meridian-Event-ID", event.ID)
	req.Header.Set("X-Meridian-Delivery", time.Now().UTC().Format(time.RFC3339))
	if c.secret != "" {
		req.Header.Set("X-Meridian-Signature", generateSignature(payload, c.secret))
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned non-2xx status: %d", resp.StatusCode)
	}
	return nil
}

// VerifySignature verifies a webhook payload signature. Exposed for
// receivers.
func VerifySignature(payload []byte, signature, secret string) bool {
	expected := generateSignature(payload, secret)
	return hmac.Equal([]byte(expected), []byte(signature))
}

func generateSignature(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}
