package events

import (
	"testing"
	"time"

	metrics "github.com/banton/medical-patients-sub001/engine/telemetry/metrics"
)

func TestBusBasicPublishSubscribe(t *testing.T) {
	bus := NewBus(metrics.NewNoopProvider())
	sub, err := bus.Subscribe(10)
	if err != nil {
		t.Fatalf("subscribe err: %v", err)
	}
	defer func() { _ = sub.Close() }()

	ev := Event{Category: CategoryCasualty, Type: "event_emitted"}
	if err := bus.Publish(ev); err != nil {
		t.Fatalf("publish err: %v", err)
	}

	select {
	case got := <-sub.C():
		if got.Type != ev.Type || got.Category != ev.Category {
			t.Fatalf("unexpected event %+v", got)
		}
		if got.Time.IsZero() {
			t.Fatal("publish should stamp the event time")
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatal("timeout waiting for event")
	}
}

func TestBusRejectsMissingCategory(t *testing.T) {
	bus := NewBus(nil)
	if err := bus.Publish(Event{Type: "no_category"}); err == nil {
		t.Fatal("expected error for missing category")
	}
}

func TestBusDropBehavior(t *testing.T) {
	bus := NewBus(nil)
	sub, err := bus.Subscribe(1)
	if err != nil {
		t.Fatalf("subscribe err: %v", err)
	}
	// Don't consume from sub to force drops.
	defer func() { _ = sub.Close() }()

	for i := 0; i < 5; i++ {
		_ = bus.Publish(Event{Category: CategoryJobs, Type: "tick"})
	}
	stats := bus.Stats()
	if stats.Published != 5 {
		t.Fatalf("expected 5 published, got %d", stats.Published)
	}
	if stats.Dropped == 0 {
		t.Fatalf("expected drops, got %#v", stats)
	}
	if stats.PerSubscriberDrops[sub.ID()] == 0 {
		t.Fatal("per-subscriber drop accounting missing")
	}
}

func TestMultipleSubscribers(t *testing.T) {
	bus := NewBus(nil)
	sub1, _ := bus.Subscribe(2)
	sub2, _ := bus.Subscribe(2)
	defer func() { _ = sub1.Close() }()
	defer func() { _ = sub2.Close() }()

	_ = bus.Publish(Event{Category: CategoryTransport, Type: "mission_completed"})

	recv := func(ch <-chan Event) bool {
		select {
		case <-ch:
			return true
		case <-time.After(200 * time.Millisecond):
			return false
		}
	}
	if !recv(sub1.C()) || !recv(sub2.C()) {
		t.Fatal("both subscribers should receive the event")
	}
}

func TestUnsubscribe(t *testing.T) {
	bus := NewBus(nil)
	sub, _ := bus.Subscribe(2)
	if err := bus.Unsubscribe(sub); err != nil {
		t.Fatalf("unsubscribe err: %v", err)
	}
	if got := bus.Stats().Subscribers; got != 0 {
		t.Fatalf("expected 0 subscribers, got %d", got)
	}
	// Closing twice is safe.
	if err := sub.Close(); err != nil {
		t.Fatalf("double close err: %v", err)
	}
}
