package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"mcxdesk/internal/config"
	"mcxdesk/internal/models"
)

type recordingChannel struct {
	name    string
	enabled bool
	err     error
	mu      sync.Mutex
	got     []Notification
}

func (r *recordingChannel) Name() string    { return r.name }
func (r *recordingChannel) IsEnabled() bool { return r.enabled }
func (r *recordingChannel) Notify(_ context.Context, n Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, n)
	return r.err
}

func (r *recordingChannel) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.got)
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.String()
}

func sampleAlert(critical bool) models.PriceAlert {
	return models.PriceAlert{
		ID:            "a1",
		Symbol:        "CRUDEOIL PE",
		Side:          models.SidePut,
		Strike:        5600,
		OldPrice:      100,
		NewPrice:      106,
		ChangePercent: 6,
		Critical:      critical,
		Timestamp:     time.Date(2025, 7, 10, 10, 0, 0, 0, time.UTC),
	}
}

func TestAlertNotificationLevels(t *testing.T) {
	n := AlertNotification(sampleAlert(false), true)
	if n.Level != LevelWarning || n.Alert == nil || !n.Sound {
		t.Errorf("routine alert = %+v", n)
	}
	if n.Message != "CRUDEOIL PE 5600: ₹100.00 → ₹106.00 (6.00%)" {
		t.Errorf("Message = %q", n.Message)
	}

	c := AlertNotification(sampleAlert(true), false)
	if c.Level != LevelCritical {
		t.Errorf("critical alert level = %s", c.Level)
	}
}

func TestMultiNotifierFilters(t *testing.T) {
	tests := []struct {
		filter Filter
		want   int
	}{
		{FilterAll, 3},
		{FilterAlertsOnly, 1},
		{FilterErrorsOnly, 1},
	}

	for _, tt := range tests {
		t.Run(string(tt.filter), func(t *testing.T) {
			mn, err := NewMultiNotifier(&config.NotificationConfig{Level: string(tt.filter)}, zerolog.Nop())
			if err != nil {
				t.Fatal(err)
			}
			ch := &recordingChannel{name: "rec", enabled: true}
			mn.AddChannel(ch)

			ctx := context.Background()
			_ = mn.Notify(ctx, AlertNotification(sampleAlert(false), false))
			_ = mn.Notify(ctx, ErrorNotification("Fetch failed", errors.New("boom")))
			_ = mn.Notify(ctx, InfoNotification("Auto Refresh Complete", "ok"))

			if ch.count() != tt.want {
				t.Errorf("delivered = %d, want %d", ch.count(), tt.want)
			}
		})
	}
}

func TestMultiNotifierCollectsErrors(t *testing.T) {
	mn, _ := NewMultiNotifier(&config.NotificationConfig{}, zerolog.Nop())
	bad := &recordingChannel{name: "bad", enabled: true, err: errors.New("down")}
	good := &recordingChannel{name: "good", enabled: true}
	off := &recordingChannel{name: "off", enabled: false}
	mn.AddChannel(bad)
	mn.AddChannel(good)
	mn.AddChannel(off)

	err := mn.Notify(context.Background(), InfoNotification("t", "m"))
	if err == nil || !strings.Contains(err.Error(), "bad: down") {
		t.Errorf("Notify() error = %v", err)
	}
	if good.count() != 1 {
		t.Error("healthy channel should still receive the notification")
	}
	if off.count() != 0 {
		t.Error("disabled channel should be skipped")
	}
}

func TestWebhookNotifier(t *testing.T) {
	var got Notification
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	w := NewWebhookNotifier(config.WebhookConfig{Enabled: true, URL: srv.URL})
	if err := w.Notify(context.Background(), AlertNotification(sampleAlert(true), false)); err != nil {
		t.Fatalf("Notify() error = %v", err)
	}
	if got.Level != LevelCritical || got.Alert == nil || got.Alert.Strike != 5600 {
		t.Errorf("payload = %+v", got)
	}

	if NewWebhookNotifier(config.WebhookConfig{Enabled: true}).IsEnabled() {
		t.Error("webhook without URL should be disabled")
	}
}

func TestRedisNotifierConfig(t *testing.T) {
	rn, err := NewRedisNotifier(config.RedisConfig{URL: "redis://localhost:6379/3"})
	if err != nil {
		t.Fatalf("NewRedisNotifier() error = %v", err)
	}
	defer rn.Close()
	if rn.Channel() != "mcxdesk:alerts" {
		t.Errorf("Channel() = %q", rn.Channel())
	}

	if _, err := NewRedisNotifier(config.RedisConfig{URL: "http://not-redis"}); err == nil {
		t.Error("expected error for non-redis URL")
	}
}

func TestTerminalNotifier(t *testing.T) {
	out := &syncBuffer{}
	tn := NewTerminalNotifier(out, 4)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	tn.Start(ctx)

	_ = tn.Notify(ctx, AlertNotification(sampleAlert(false), true))
	_ = tn.Notify(ctx, AlertNotification(sampleAlert(true), false))

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && !strings.Contains(out.String(), "╚") {
		time.Sleep(10 * time.Millisecond)
	}

	s := out.String()
	if !strings.Contains(s, "\a") {
		t.Error("expected bell for alert with sound")
	}
	if strings.Count(s, "\a") != 1 {
		t.Error("bell should ring only when sound is requested")
	}
	if !strings.Contains(s, "Critical Price Movement") || !strings.Contains(s, "6.00% Change") {
		t.Errorf("missing critical banner:\n%s", s)
	}
}

func TestTerminalNotifierDropsOldest(t *testing.T) {
	tn := NewTerminalNotifier(&syncBuffer{}, 2)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_ = tn.Notify(ctx, InfoNotification("n", strings.Repeat("x", i)))
	}
	if len(tn.notifications) != 2 {
		t.Fatalf("queued = %d, want 2", len(tn.notifications))
	}
	first := <-tn.notifications
	if first.Message != "xxx" {
		t.Errorf("oldest kept = %q, want xxx", first.Message)
	}
}

func TestNotificationOverlay(t *testing.T) {
	now := time.Date(2025, 7, 10, 10, 0, 0, 0, time.UTC)
	o := NewNotificationOverlay(2, time.Minute)
	o.now = func() time.Time { return now }

	o.Add(Notification{Title: "old", Timestamp: now.Add(-2 * time.Minute)})
	o.Add(Notification{Title: "a", Timestamp: now})
	o.Add(Notification{Title: "b", Timestamp: now})
	o.Add(Notification{Title: "c", Timestamp: now})

	v := o.Visible()
	if len(v) != 2 || v[0].Title != "b" || v[1].Title != "c" {
		t.Errorf("Visible() = %+v", v)
	}

	o.Clear()
	if o.Render() != "" {
		t.Error("Render() after Clear should be empty")
	}
}
