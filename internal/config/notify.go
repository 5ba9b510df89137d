package config

import (
	"fmt"
	"time"
)

// NotifyConfig represents notification configuration
type NotifyConfig struct {
	Enabled bool `mapstructure:"enabled"`

	// Notification channels
	Webhook  WebhookConfig  `mapstructure:"webhook"`
	Slack    SlackConfig    `mapstructure:"slack"`
	Telegram TelegramConfig `mapstructure:"telegram"`

	// Global notification settings
	Timeout       time.Duration `mapstructure:"timeout"`
	RetryAttempts int           `mapstructure:"retry_attempts"`
	RetryDelay    time.Duration `mapstructure:"retry_delay"`
}

// WebhookConfig represents the webhook notification configuration
type WebhookConfig struct {
	Enabled bool              `mapstructure:"enabled"`
	URL     string            `mapstructure:"url"`
	Secret  string            `mapstructure:"secret"`
	Method  string            `mapstructure:"method"`
	Headers map[string]string `mapstructure:"headers"`
}

// SlackConfig represents the slack notification configuration
type SlackConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	WebhookURL string `mapstructure:"webhook_url"`
	Channel    string `mapstructure:"channel"`
	Username   string `mapstructure:"username"`
	IconEmoji  string `mapstructure:"icon_emoji"`
}

// TelegramConfig represents the telegram notification configuration
type TelegramConfig struct {
	Enabled  bool     `mapstructure:"enabled"`
	BotToken string   `mapstructure:"bot_token"`
	ChatIDs  []string `mapstructure:"chat_ids"`
}

// setNotifyDefaults sets default values for notification configuration
func setNotifyDefaults(cfg *NotifyConfig) {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}

	if cfg.RetryAttempts == 0 {
		cfg.RetryAttempts = 3
	}

	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = time.Second
	}

	if cfg.Webhook.Method == "" {
		cfg.Webhook.Method = "POST"
	}
}

// Validate validates notification configuration
func (cfg *NotifyConfig) Validate() error {
	if !cfg.Enabled {
		return nil
	}

	if cfg.Webhook.Enabled && cfg.Webhook.URL == "" {
		return fmt.Errorf("webhook notifier is enabled but no url is configured")
	}

	if cfg.Slack.Enabled && cfg.Slack.WebhookURL == "" {
		return fmt.Errorf("slack notifier is enabled but no webhook_url is configured")
	}

	if cfg.Telegram.Enabled {
		if cfg.Telegram.BotToken == "" {
			return fmt.Errorf("telegram notifier is enabled but no bot_token is configured")
		}
		if len(cfg.Telegram.ChatIDs) == 0 {
			return fmt.Errorf("telegram notifier is enabled but no chat_ids are configured")
		}
	}

	return nil
}
