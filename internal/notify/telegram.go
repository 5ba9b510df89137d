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

// telegramNotifier sends events through the Telegram bot API.
type telegramNotifier struct {
	config *config.TelegramConfig
	logger *zap.Logger
	client *http.Client
}

// telegramMessage represents a Telegram message
type telegramMessage struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

func newTelegramNotifier(cfg *config.TelegramConfig, timeout time.Duration, logger *zap.Logger) *telegramNotifier {
	return &telegramNotifier{
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

// Send delivers the event to every configured chat.
func (n *telegramNotifier) Send(ctx context.Context, event Event) error {
	text := fmt.Sprintf(
		"*Taskgate: %s*\n\n"+
			"• Action: `%s`\n"+
			"• Status: `%s`\n"+
			"• Host: `%s`\n"+
			"• Fire At: `%s`",
		event.Type,
		event.Action.Name,
		event.Action.Status,
		event.Hostname,
		event.Action.FireAt.Format(time.RFC3339))

	url := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", n.config.BotToken)

	for _, chatID := range n.config.ChatIDs {
		msg := telegramMessage{
			ChatID:    chatID,
			Text:      text,
			ParseMode: "Markdown",
		}

		payload, err := json.Marshal(msg)
		if err != nil {
			return fmt.Errorf("failed to marshal telegram message: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := n.client.Do(req)
		if err != nil {
			return fmt.Errorf("failed to send telegram message: %w", err)
		}

		func(Body io.ReadCloser) {
			_ = Body.Close()
		}(resp.Body)

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("telegram send failed: status=%d chat=%s", resp.StatusCode, chatID)
		}
	}
	return nil
}
