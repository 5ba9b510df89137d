package notify

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"taskgate/internal/config"
	"taskgate/internal/version"

	"go.uber.org/zap"
)

// webhookNotifier posts events to a configured endpoint, signing the
// body with the shared secret when one is set.
type webhookNotifier struct {
	config *config.WebhookConfig
	logger *zap.Logger
	client *http.Client
}

func newWebhookNotifier(cfg *config.WebhookConfig, timeout time.Duration, logger *zap.Logger) *webhookNotifier {
	return &webhookNotifier{
		config: cfg,
		logger: logger,
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:    10,
				IdleConnTimeout: 30 * time.Second,
			},
		},
	}
}

// Send posts the event as JSON.
func (n *webhookNotifier) Send(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, n.config.Method, n.config.URL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "taskgate/"+version.GetInfo().Version)

	for k, v := range n.config.Headers {
		req.Header.Set(k, v)
	}

	if n.config.Secret != "" {
		mac := hmac.New(sha256.New, []byte(n.config.Secret))
		mac.Write(payload)
		req.Header.Set("X-Taskgate-Signature", hex.EncodeToString(mac.Sum(nil)))
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send webhook: %w", err)
	}

	defer func(Body io.ReadCloser) {
		_ = Body.Close()
	}(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("webhook failed: status=%d body=%s", resp.StatusCode, string(body))
	}
	return nil
}
