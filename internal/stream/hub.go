// Package stream fans session events out to live listeners such as
// websocket clients.
package stream

import (
	"context"
	"sync"
	"time"

	"mcxdesk/internal/models"
	"mcxdesk/internal/notify"
)

// EventType identifies the payload carried by an Event.
type EventType string

const (
	EventSnapshot     EventType = "snapshot"
	EventAlert        EventType = "alert"
	EventExport       EventType = "export"
	EventNotification EventType = "notification"
)

// Event is one message distributed by the hub. An empty Topic reaches every
// subscriber; otherwise only subscribers of that instrument receive it.
type Event struct {
	Type      EventType   `json:"type"`
	Topic     string      `json:"topic,omitempty"`
	Payload   interface{} `json:"payload"`
	Timestamp time.Time   `json:"timestamp"`
}

// SnapshotPayload is the payload of an EventSnapshot.
type SnapshotPayload struct {
	Snapshot  *models.Snapshot         `json:"snapshot"`
	Analytics *models.AnalyticsSummary `json:"analytics"`
}

// HubConfig holds configuration for the Hub.
type HubConfig struct {
	// BufferSize is the size of the internal event channel buffer.
	BufferSize int
	// SubscriberBufferSize is the size of each subscriber's channel buffer.
	SubscriberBufferSize int
}

// DefaultHubConfig returns the default hub configuration.
func DefaultHubConfig() HubConfig {
	return HubConfig{
		BufferSize:           256,
		SubscriberBufferSize: 64,
	}
}

// Hub distributes events from the session to any number of subscribers.
// Slow subscribers lose events instead of blocking the publisher.
type Hub struct {
	config      HubConfig
	mu          sync.RWMutex
	subscribers map[string][]*Subscriber
	events      chan Event
	done        chan struct{}
	started     bool

	received  uint64
	delivered uint64
	dropped   uint64
	metricsMu sync.RWMutex
}

// Subscriber represents a channel subscriber with metadata.
type Subscriber struct {
	ID           string
	Channel      chan Event
	DroppedCount int
	CreatedAt    time.Time
}

// HubMetrics contains hub counters.
type HubMetrics struct {
	EventsReceived  uint64 `json:"eventsReceived"`
	EventsDelivered uint64 `json:"eventsDelivered"`
	EventsDropped   uint64 `json:"eventsDropped"`
	Subscribers     int    `json:"subscribers"`
}

// NewHub creates a new hub with default configuration.
func NewHub() *Hub {
	return NewHubWithConfig(DefaultHubConfig())
}

// NewHubWithConfig creates a new hub with custom configuration.
func NewHubWithConfig(config HubConfig) *Hub {
	if config.BufferSize <= 0 {
		config.BufferSize = DefaultHubConfig().BufferSize
	}
	if config.SubscriberBufferSize <= 0 {
		config.SubscriberBufferSize = DefaultHubConfig().SubscriberBufferSize
	}
	return &Hub{
		config:      config,
		subscribers: make(map[string][]*Subscriber),
		events:      make(chan Event, config.BufferSize),
		done:        make(chan struct{}),
	}
}

// Start begins the distribution loop.
func (h *Hub) Start(ctx context.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.started {
		return
	}
	h.started = true
	go h.loop(ctx, h.done)
}

func (h *Hub) loop(ctx context.Context, done <-chan struct{}) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-done:
			return
		case e := <-h.events:
			h.metricsMu.Lock()
			h.received++
			h.metricsMu.Unlock()
			h.broadcast(e)
		}
	}
}

// Stop stops the hub and closes all subscriber channels.
func (h *Hub) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.started {
		return
	}

	close(h.done)
	h.done = make(chan struct{})
	h.started = false

	for topic, subs := range h.subscribers {
		for _, sub := range subs {
			close(sub.Channel)
		}
		delete(h.subscribers, topic)
	}
}

// IsStarted returns whether the hub is running.
func (h *Hub) IsStarted() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.started
}

// Subscribe registers a subscriber for topic. An empty topic receives
// every event.
func (h *Hub) Subscribe(topic string) <-chan Event {
	return h.SubscribeWithID(topic, "")
}

// SubscribeWithID registers a subscriber with an identifier.
func (h *Hub) SubscribeWithID(topic, id string) <-chan Event {
	ch := make(chan Event, h.config.SubscriberBufferSize)
	sub := &Subscriber{
		ID:        id,
		Channel:   ch,
		CreatedAt: time.Now(),
	}

	h.mu.Lock()
	h.subscribers[topic] = append(h.subscribers[topic], sub)
	h.mu.Unlock()

	return ch
}

// Unsubscribe removes and closes a subscriber channel. It is a no-op for
// channels already closed by Stop.
func (h *Hub) Unsubscribe(topic string, ch <-chan Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs := h.subscribers[topic]
	for i, sub := range subs {
		if sub.Channel == ch {
			close(sub.Channel)
			h.subscribers[topic] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	if len(h.subscribers[topic]) == 0 {
		delete(h.subscribers, topic)
	}
}

// Publish queues an event. If the internal buffer is full the event is
// dropped.
func (h *Hub) Publish(e Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	select {
	case h.events <- e:
	default:
		h.metricsMu.Lock()
		h.dropped++
		h.metricsMu.Unlock()
	}
}

func (h *Hub) broadcast(e Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var targets []*Subscriber
	if e.Topic == "" {
		for _, subs := range h.subscribers {
			targets = append(targets, subs...)
		}
	} else {
		targets = append(targets, h.subscribers[e.Topic]...)
		targets = append(targets, h.subscribers[""]...)
	}

	for _, sub := range targets {
		select {
		case sub.Channel <- e:
			h.metricsMu.Lock()
			h.delivered++
			h.metricsMu.Unlock()
		default:
			sub.DroppedCount++
			h.metricsMu.Lock()
			h.dropped++
			h.metricsMu.Unlock()
		}
	}
}

// SubscriberCount returns the number of subscribers across all topics.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	count := 0
	for _, subs := range h.subscribers {
		count += len(subs)
	}
	return count
}

// Metrics returns hub counters.
func (h *Hub) Metrics() HubMetrics {
	h.metricsMu.RLock()
	defer h.metricsMu.RUnlock()

	return HubMetrics{
		EventsReceived:  h.received,
		EventsDelivered: h.delivered,
		EventsDropped:   h.dropped,
		Subscribers:     h.SubscriberCount(),
	}
}

// Name returns the notification channel name.
func (h *Hub) Name() string {
	return "stream"
}

// IsEnabled reports whether the hub is distributing events.
func (h *Hub) IsEnabled() bool {
	return h.IsStarted()
}

// Notify publishes a notification to every subscriber.
func (h *Hub) Notify(_ context.Context, n notify.Notification) error {
	h.Publish(Event{Type: EventNotification, Payload: n, Timestamp: n.Timestamp})
	return nil
}

// RecordSnapshot publishes a new snapshot and its analytics to the
// instrument's subscribers.
func (h *Hub) RecordSnapshot(_ context.Context, snap *models.Snapshot, summary *models.AnalyticsSummary) error {
	h.Publish(Event{
		Type:      EventSnapshot,
		Topic:     snap.Instrument,
		Payload:   SnapshotPayload{Snapshot: snap, Analytics: summary},
		Timestamp: snap.FetchedAt,
	})
	return nil
}

// RecordAlert publishes a price alert.
func (h *Hub) RecordAlert(_ context.Context, alert models.PriceAlert) error {
	h.Publish(Event{Type: EventAlert, Payload: alert, Timestamp: alert.Timestamp})
	return nil
}

// RecordExport publishes a completed export.
func (h *Hub) RecordExport(_ context.Context, rec models.ExportRecord) error {
	h.Publish(Event{Type: EventExport, Topic: rec.Instrument, Payload: rec, Timestamp: rec.CreatedAt})
	return nil
}
