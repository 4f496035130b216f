package stream

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"mcxdesk/internal/models"
	"mcxdesk/internal/notify"
)

var instruments = []string{"CRUDEOIL", "GOLD", "SILVER", "COPPER", "ZINC"}

// Property: every fast subscriber of a topic receives every event published
// to that topic.
func TestProperty_SubscribersReceiveAllEvents(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 20

	properties := gopter.NewProperties(parameters)

	properties.Property("fast subscribers receive every event", prop.ForAll(
		func(subscriberCount int, eventCount int, idx int) bool {
			topic := instruments[idx]

			hub := NewHubWithConfig(HubConfig{BufferSize: 1000, SubscriberBufferSize: 100})
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			hub.Start(ctx)
			defer hub.Stop()

			received := make([]int64, subscriberCount)
			var wg sync.WaitGroup
			for i := 0; i < subscriberCount; i++ {
				ch := hub.Subscribe(topic)
				wg.Add(1)
				go func(idx int, ch <-chan Event) {
					defer wg.Done()
					timeout := time.After(5 * time.Second)
					for {
						select {
						case _, ok := <-ch:
							if !ok {
								return
							}
							if atomic.AddInt64(&received[idx], 1) >= int64(eventCount) {
								return
							}
						case <-timeout:
							return
						}
					}
				}(i, ch)
			}

			for i := 0; i < eventCount; i++ {
				hub.Publish(Event{Type: EventSnapshot, Topic: topic, Payload: i})
			}

			wg.Wait()

			for i := range received {
				if atomic.LoadInt64(&received[i]) != int64(eventCount) {
					return false
				}
			}
			return true
		},
		gen.IntRange(1, 5),
		gen.IntRange(1, 30),
		gen.IntRange(0, len(instruments)-1),
	))

	properties.TestingRun(t)
}

// Property: topic subscribers only see their own instrument; the catch-all
// subscriber sees everything.
func TestProperty_TopicRouting(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 30

	properties := gopter.NewProperties(parameters)

	properties.Property("events reach topic and catch-all subscribers only", prop.ForAll(
		func(subIdx, pubIdx int) bool {
			subTopic := instruments[subIdx]
			pubTopic := instruments[pubIdx]

			hub := NewHub()
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			hub.Start(ctx)
			defer hub.Stop()

			topicCh := hub.Subscribe(subTopic)
			allCh := hub.Subscribe("")

			hub.Publish(Event{Type: EventExport, Topic: pubTopic})

			select {
			case e := <-allCh:
				if e.Topic != pubTopic {
					return false
				}
			case <-time.After(time.Second):
				return false
			}

			select {
			case e := <-topicCh:
				return subTopic == pubTopic && e.Topic == subTopic
			case <-time.After(50 * time.Millisecond):
				return subTopic != pubTopic
			}
		},
		gen.IntRange(0, len(instruments)-1),
		gen.IntRange(0, len(instruments)-1),
	))

	properties.TestingRun(t)
}

func TestSlowSubscriberDoesNotBlock(t *testing.T) {
	hub := NewHubWithConfig(HubConfig{BufferSize: 100, SubscriberBufferSize: 2})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub.Start(ctx)
	defer hub.Stop()

	_ = hub.Subscribe("GOLD") // never read
	fast := hub.Subscribe("GOLD")

	var got int64
	done := make(chan struct{})
	go func() {
		defer close(done)
		timeout := time.After(2 * time.Second)
		for {
			select {
			case <-fast:
				if atomic.AddInt64(&got, 1) == 10 {
					return
				}
			case <-timeout:
				return
			}
		}
	}()

	for i := 0; i < 10; i++ {
		hub.Publish(Event{Type: EventSnapshot, Topic: "GOLD"})
		time.Sleep(time.Millisecond)
	}
	<-done

	if atomic.LoadInt64(&got) == 0 {
		t.Fatal("fast subscriber received nothing")
	}
	if hub.Metrics().EventsDropped == 0 {
		t.Error("expected drops for the slow subscriber")
	}
}

func TestHubAsSessionSink(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub.Start(ctx)

	ch := hub.Subscribe("CRUDEOIL")

	snap := &models.Snapshot{Instrument: "CRUDEOIL", FetchedAt: time.Now()}
	_ = hub.RecordSnapshot(ctx, snap, nil)
	_ = hub.RecordAlert(ctx, models.PriceAlert{Symbol: "CRUDEOIL PE"})
	_ = hub.Notify(ctx, notify.InfoNotification("Auto Refresh Complete", "data updated"))

	want := []EventType{EventSnapshot, EventAlert, EventNotification}
	for _, w := range want {
		select {
		case e := <-ch:
			if e.Type != w {
				t.Errorf("event type = %s, want %s", e.Type, w)
			}
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for %s", w)
		}
	}

	hub.Stop()
	if _, ok := <-ch; ok {
		t.Error("Stop should close subscriber channels")
	}
	hub.Unsubscribe("CRUDEOIL", ch)
	if hub.IsEnabled() {
		t.Error("stopped hub should report disabled")
	}
}
