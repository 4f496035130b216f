// Package notify delivers session notifications to the terminal, webhooks,
// Redis subscribers and websocket listeners.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"mcxdesk/internal/config"
	"mcxdesk/internal/models"
)

// Notifier receives session notifications.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// NotificationChannel is one delivery target behind a MultiNotifier.
type NotificationChannel interface {
	Name() string
	Notify(ctx context.Context, n Notification) error
	IsEnabled() bool
}

// Level is the severity of a notification.
type Level string

const (
	LevelInfo     Level = "info"
	LevelWarning  Level = "warning"
	LevelError    Level = "error"
	LevelCritical Level = "critical"
)

// Notification is a user-visible message raised by the session.
type Notification struct {
	Level     Level              `json:"level"`
	Title     string             `json:"title"`
	Message   string             `json:"message"`
	Alert     *models.PriceAlert `json:"alert,omitempty"`
	Sound     bool               `json:"sound,omitempty"`
	Timestamp time.Time          `json:"timestamp"`
}

// Filter selects which notifications a MultiNotifier forwards.
type Filter string

const (
	FilterAll        Filter = "all"
	FilterAlertsOnly Filter = "alerts_only"
	FilterErrorsOnly Filter = "errors_only"
)

// AlertNotification builds the notification for a price alert. Critical
// alerts carry LevelCritical so channels can escalate them.
func AlertNotification(a models.PriceAlert, sound bool) Notification {
	n := Notification{
		Level:     LevelWarning,
		Title:     "Price Alert",
		Message:   a.Summary(),
		Alert:     &a,
		Sound:     sound,
		Timestamp: a.Timestamp,
	}
	if a.Critical {
		n.Level = LevelCritical
		n.Title = "Critical Price Movement"
	}
	return n
}

// ErrorNotification builds an error notification.
func ErrorNotification(title string, err error) Notification {
	return Notification{
		Level:     LevelError,
		Title:     title,
		Message:   err.Error(),
		Timestamp: time.Now(),
	}
}

// InfoNotification builds an informational notification.
func InfoNotification(title, message string) Notification {
	return Notification{
		Level:     LevelInfo,
		Title:     title,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, n Notification) error

// Notify calls f.
func (f NotifierFunc) Notify(ctx context.Context, n Notification) error {
	return f(ctx, n)
}

// Nop discards every notification.
var Nop Notifier = NotifierFunc(func(context.Context, Notification) error { return nil })

// MultiNotifier sends notifications to multiple channels.
type MultiNotifier struct {
	channels []NotificationChannel
	filter   Filter
	logger   zerolog.Logger
	mu       sync.RWMutex
}

// NewMultiNotifier creates a MultiNotifier with the webhook and Redis
// channels enabled in cfg. Other channels are added with AddChannel.
func NewMultiNotifier(cfg *config.NotificationConfig, logger zerolog.Logger) (*MultiNotifier, error) {
	mn := &MultiNotifier{
		channels: make([]NotificationChannel, 0),
		filter:   Filter(cfg.Level),
		logger:   logger.With().Str("component", "notify").Logger(),
	}

	if mn.filter == "" {
		mn.filter = FilterAll
	}

	if cfg.Webhook.Enabled {
		mn.channels = append(mn.channels, NewWebhookNotifier(cfg.Webhook))
	}
	if cfg.Redis.Enabled {
		rn, err := NewRedisNotifier(cfg.Redis)
		if err != nil {
			return nil, err
		}
		mn.channels = append(mn.channels, rn)
	}

	return mn, nil
}

// AddChannel adds a notification channel.
func (mn *MultiNotifier) AddChannel(ch NotificationChannel) {
	mn.mu.Lock()
	defer mn.mu.Unlock()
	mn.channels = append(mn.channels, ch)
}

// Channels returns the names of the registered channels.
func (mn *MultiNotifier) Channels() []string {
	mn.mu.RLock()
	defer mn.mu.RUnlock()
	names := make([]string, 0, len(mn.channels))
	for _, ch := range mn.channels {
		names = append(names, ch.Name())
	}
	return names
}

func (mn *MultiNotifier) shouldSend(n Notification) bool {
	switch mn.filter {
	case FilterAlertsOnly:
		return n.Alert != nil
	case FilterErrorsOnly:
		return n.Level == LevelError || n.Level == LevelCritical
	default:
		return true
	}
}

// Notify sends a notification to all enabled channels. Channel failures are
// collected; one failing channel does not stop the others.
func (mn *MultiNotifier) Notify(ctx context.Context, n Notification) error {
	if !mn.shouldSend(n) {
		return nil
	}

	if n.Timestamp.IsZero() {
		n.Timestamp = time.Now()
	}

	mn.mu.RLock()
	channels := mn.channels
	mn.mu.RUnlock()

	var errs []string
	for _, ch := range channels {
		if !ch.IsEnabled() {
			continue
		}
		if err := ch.Notify(ctx, n); err != nil {
			mn.logger.Warn().Err(err).Str("channel", ch.Name()).Msg("Notification delivery failed")
			errs = append(errs, fmt.Sprintf("%s: %v", ch.Name(), err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("notification errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Close releases channels that hold connections.
func (mn *MultiNotifier) Close() error {
	mn.mu.RLock()
	defer mn.mu.RUnlock()
	var errs []string
	for _, ch := range mn.channels {
		if c, ok := ch.(interface{ Close() error }); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, fmt.Sprintf("%s: %v", ch.Name(), err))
			}
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("closing notifiers: %s", strings.Join(errs, "; "))
	}
	return nil
}

// WebhookNotifier sends notifications via HTTP webhook.
type WebhookNotifier struct {
	url     string
	enabled bool
	client  *http.Client
}

// NewWebhookNotifier creates a new WebhookNotifier.
func NewWebhookNotifier(cfg config.WebhookConfig) *WebhookNotifier {
	return &WebhookNotifier{
		url:     cfg.URL,
		enabled: cfg.Enabled && cfg.URL != "",
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Name returns the name of the notifier.
func (w *WebhookNotifier) Name() string {
	return "webhook"
}

// IsEnabled returns whether the notifier is enabled.
func (w *WebhookNotifier) IsEnabled() bool {
	return w.enabled
}

// Notify posts the notification as JSON.
func (w *WebhookNotifier) Notify(ctx context.Context, n Notification) error {
	if !w.enabled {
		return nil
	}

	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshaling webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating webhook request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "mcxdesk/1.0")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("sending webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	return nil
}
