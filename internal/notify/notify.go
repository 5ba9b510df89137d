package notify

import (
	"context"
	"os"
	"time"

	"taskgate/internal/config"
	"taskgate/internal/retry"
	"taskgate/internal/types"

	"go.uber.org/zap"
)

// EventType classifies a destructive-action event
type EventType string

const (
	EventActionScheduled EventType = "action.scheduled"
	EventActionFired     EventType = "action.fired"
	EventActionCancelled EventType = "action.cancelled"
)

// Event describes one destructive-action transition.
type Event struct {
	Type      EventType                 `json:"event_type"`
	TaskKind  types.TaskKind            `json:"task_kind,omitempty"`
	Action    types.ScheduledActionInfo `json:"action"`
	Hostname  string                    `json:"hostname,omitempty"`
	Timestamp time.Time                 `json:"timestamp"`
}

// Notifier represents a notification channel
type Notifier interface {
	Send(ctx context.Context, event Event) error
}

// Manager fans destructive-action events out to the enabled channels.
// Delivery happens on a background worker so a slow channel never
// delays a dispatch.
type Manager struct {
	config    *config.NotifyConfig
	logger    *zap.Logger
	notifiers map[string]Notifier
	events    chan Event
	hostname  string
	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewManager creates a notifier manager
func NewManager(cfg *config.NotifyConfig, logger *zap.Logger) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	hostname, _ := os.Hostname()
	ctx, cancel := context.WithCancel(context.Background())

	m := &Manager{
		config:    cfg,
		logger:    logger,
		notifiers: make(map[string]Notifier),
		events:    make(chan Event, 100),
		hostname:  hostname,
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
	}

	if cfg.Enabled {
		if cfg.Webhook.Enabled {
			m.notifiers["webhook"] = newWebhookNotifier(&cfg.Webhook, cfg.Timeout, logger)
		}
		if cfg.Slack.Enabled {
			m.notifiers["slack"] = newSlackNotifier(&cfg.Slack, cfg.Timeout, logger)
		}
		if cfg.Telegram.Enabled {
			m.notifiers["telegram"] = newTelegramNotifier(&cfg.Telegram, cfg.Timeout, logger)
		}
	}

	go m.deliver()

	return m, nil
}

// ActionScheduled reports that a destructive action has been registered.
func (m *Manager) ActionScheduled(kind types.TaskKind, info types.ScheduledActionInfo) {
	m.enqueue(Event{Type: EventActionScheduled, TaskKind: kind, Action: info})
}

// ActionFired reports that a scheduled action has executed.
func (m *Manager) ActionFired(info types.ScheduledActionInfo) {
	m.enqueue(Event{Type: EventActionFired, Action: info})
}

// ActionCancelled reports that a pending action was revoked.
func (m *Manager) ActionCancelled(info types.ScheduledActionInfo) {
	m.enqueue(Event{Type: EventActionCancelled, Action: info})
}

func (m *Manager) enqueue(event Event) {
	if len(m.notifiers) == 0 {
		return
	}

	event.Hostname = m.hostname
	event.Timestamp = time.Now()

	select {
	case m.events <- event:
	default:
		m.logger.Warn("Notification buffer full, dropping event",
			zap.String("event_type", string(event.Type)))
	}
}

// deliver drains the event channel and sends to every channel with
// retries.
func (m *Manager) deliver() {
	defer close(m.done)

	retryCfg := &retry.Config{
		Attempts: m.config.RetryAttempts,
		Delay:    m.config.RetryDelay,
		MaxDelay: 30 * time.Second,
	}

	for {
		select {
		case <-m.ctx.Done():
			return
		case event := <-m.events:
			for name, n := range m.notifiers {
				err := retry.Execute(m.ctx, retryCfg, func(ctx context.Context) error {
					return n.Send(ctx, event)
				})
				if err != nil {
					m.logger.Error("Failed to deliver notification",
						zap.String("channel", name),
						zap.String("event_type", string(event.Type)),
						zap.Error(err))
				}
			}
		}
	}
}

// Stop shuts the delivery worker down.
func (m *Manager) Stop() {
	m.cancel()
	<-m.done
}
