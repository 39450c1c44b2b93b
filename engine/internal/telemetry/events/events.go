package events

// Internal telemetry event bus. External observers receive events through the
// engine facade bridge, never by subscribing here directly.

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	metrics "github.com/banton/medical-patients-sub001/engine/telemetry/metrics"
)

const (
	CategoryCasualty  = "casualty"
	CategoryFacility  = "facility"
	CategoryTransport = "transport"
	CategoryDeaths    = "deaths"
	CategoryJobs      = "jobs"
	CategoryHealth    = "health"
	CategoryConfig    = "config_change"
	CategoryError     = "error"
)

// Event is one telemetry notification.
type Event struct {
	Time     time.Time         `json:"time"`
	Category string            `json:"category"`
	Type     string            `json:"type"`
	Severity string            `json:"severity,omitempty"`
	Labels   map[string]string `json:"labels,omitempty"`
	Fields   map[string]any    `json:"fields,omitempty"`
}

// Subscription is a live feed of events.
type Subscription interface {
	C() <-chan Event
	Close() error
	ID() int64
}

// BusStats summarizes publish/drop accounting.
type BusStats struct {
	Subscribers        int64
	Published          uint64
	Dropped            uint64
	PerSubscriberDrops map[int64]uint64
}

// Bus fan-outs events to subscribers with per-subscriber buffers; slow
// subscribers drop rather than block publishers.
type Bus interface {
	Publish(ev Event) error
	PublishCtx(ctx context.Context, ev Event) error
	Subscribe(buffer int) (Subscription, error)
	Unsubscribe(sub Subscription) error
	Stats() BusStats
}

// NewBus creates a bus instrumented against the given provider (nil allowed).
func NewBus(provider metrics.Provider) Bus {
	b := &eventBus{subs: make(map[int64]*subscriber)}
	if provider != nil {
		b.mPublished = provider.NewCounter(metrics.CounterOpts{CommonOpts: metrics.CommonOpts{Namespace: "medgen", Subsystem: "events", Name: "published_total", Help: "Total events published"}})
		b.mDropped = provider.NewCounter(metrics.CounterOpts{CommonOpts: metrics.CommonOpts{Namespace: "medgen", Subsystem: "events", Name: "dropped_total", Help: "Total events dropped due to backpressure"}})
	}
	return b
}

type subscriber struct {
	id    int64
	ch    chan Event
	drops atomic.Uint64
	once  sync.Once
	bus   *eventBus
}

func (s *subscriber) C() <-chan Event { return s.ch }
func (s *subscriber) ID() int64       { return s.id }

func (s *subscriber) Close() error {
	s.once.Do(func() {
		s.bus.mu.Lock()
		delete(s.bus.subs, s.id)
		s.bus.mu.Unlock()
		close(s.ch)
	})
	return nil
}

type eventBus struct {
	mu        sync.RWMutex
	subs      map[int64]*subscriber
	nextID    int64
	published atomic.Uint64
	dropped   atomic.Uint64

	mPublished metrics.Counter
	mDropped   metrics.Counter
}

func (b *eventBus) Publish(ev Event) error {
	return b.PublishCtx(context.Background(), ev)
}

func (b *eventBus) PublishCtx(ctx context.Context, ev Event) error {
	if ev.Category == "" {
		return errors.New("event missing category")
	}
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}
	b.published.Add(1)
	if b.mPublished != nil {
		b.mPublished.Inc(1)
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subs {
		select {
		case sub.ch <- ev:
		default:
			sub.drops.Add(1)
			b.dropped.Add(1)
			if b.mDropped != nil {
				b.mDropped.Inc(1)
			}
		}
	}
	return nil
}

func (b *eventBus) Subscribe(buffer int) (Subscription, error) {
	if buffer <= 0 {
		buffer = 16
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	sub := &subscriber{id: b.nextID, ch: make(chan Event, buffer), bus: b}
	b.subs[sub.id] = sub
	return sub, nil
}

func (b *eventBus) Unsubscribe(sub Subscription) error {
	if sub == nil {
		return errors.New("nil subscription")
	}
	return sub.Close()
}

func (b *eventBus) Stats() BusStats {
	b.mu.RLock()
	defer b.mu.RUnlock()
	stats := BusStats{
		Subscribers:        int64(len(b.subs)),
		Published:          b.published.Load(),
		Dropped:            b.dropped.Load(),
		PerSubscriberDrops: make(map[int64]uint64, len(b.subs)),
	}
	for id, sub := range b.subs {
		stats.PerSubscriberDrops[id] = sub.drops.Load()
	}
	return stats
}
