package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"taskgate/internal/config"

	"go.uber.org/zap"
)

// slackNotifier posts events to a Slack incoming webhook.
type slackNotifier struct {
	config *config.SlackConfig
	logger *zap.Logger
	client *http.Client
}

// slackMessage represents a Slack message
type slackMessage struct {
	Channel     string            `json:"channel,omitempty"`
	Username    string            `json:"username,omitempty"`
	IconEmoji   string            `json:"icon_emoji,omitempty"`
	Text        string            `json:"text,omitempty"`
	Attachments []slackAttachment `json:"attachments,omitempty"`
}

// slackAttachment represents a Slack attachment
type slackAttachment struct {
	Color     string       `json:"color"`
	Title     string       `json:"title"`
	Fields    []slackField `json:"fields,omitempty"`
	Footer    string       `json:"footer"`
	Timestamp int64        `json:"ts"`
}

// slackField represents a Slack field
type slackField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

func newSlackNotifier(cfg *config.SlackConfig, timeout time.Duration, logger *zap.Logger) *slackNotifier {
	return &slackNotifier{
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

// Send posts the event as a Slack attachment.
func (n *slackNotifier) Send(ctx context.Context, event Event) error {
	color := "warning"
	if event.Type == EventActionCancelled {
		color = "good"
	}

	msg := slackMessage{
		Channel:   n.config.Channel,
		Username:  n.config.Username,
		IconEmoji: n.config.IconEmoji,
		Attachments: []slackAttachment{
			{
				Color: color,
				Title: fmt.Sprintf("Taskgate: %s", event.Type),
				Fields: []slackField{
					{Title: "Action", Value: event.Action.Name, Short: true},
					{Title: "Status", Value: string(event.Action.Status), Short: true},
					{Title: "Host", Value: event.Hostname, Short: true},
					{Title: "Fire At", Value: event.Action.FireAt.Format(time.RFC3339), Short: true},
				},
				Footer:    "taskgate",
				Timestamp: event.Timestamp.Unix(),
			},
		},
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal slack message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.config.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send slack message: %w", err)
	}

	defer func(Body io.ReadCloser) {
		_ = Body.Close()
	}(resp.Body)

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("slack webhook failed: status=%d body=%s", resp.StatusCode, string(body))
	}
	return nil
}
