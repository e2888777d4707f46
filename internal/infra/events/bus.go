// Package events is the in-process publish/subscribe bus for job and entity
// events. Each subscriber owns a bounded queue; a full queue drops the event
// for that subscriber instead of blocking the publisher.
package events

import (
	"context"
	"sync"
	"sync/atomic"

	"content-studio/internal/domain/model"
	"content-studio/internal/domain/ports/adapter"
	"content-studio/internal/infra/metrics"

	"github.com/rs/zerolog"
)

const DefaultBufferSize = 64

var _ adapter.EventPublisher = (*Bus)(nil)

// Filter decides whether a subscriber receives an event.
type Filter func(model.Event) bool

type Bus struct {
	mu         sync.RWMutex
	subs       map[string]*Subscription
	bufferSize int
	log        *zerolog.Logger

	published atomic.Int64
	dropped   atomic.Int64
}

func NewBus(bufferSize int, logger *zerolog.Logger) *Bus {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	l := logger.With().Str("component", "EventBus").Logger()
	return &Bus{subs: map[string]*Subscription{}, bufferSize: bufferSize, log: &l}
}

// Subscription is one consumer's view of the bus.
type Subscription struct {
	id      string
	ch      chan model.Event
	filter  Filter
	dropped atomic.Int64
}

func (s *Subscription) ID() string { return s.id }

// C is closed when the subscription is removed.
func (s *Subscription) C() <-chan model.Event { return s.ch }

func (s *Subscription) Dropped() int64 { return s.dropped.Load() }

// Subscribe registers a consumer. Re-using an id replaces (and closes) the
// previous subscription.
func (b *Bus) Subscribe(id string, filter Filter) *Subscription {
	sub := &Subscription{id: id, ch: make(chan model.Event, b.bufferSize), filter: filter}
	b.mu.Lock()
	if old, ok := b.subs[id]; ok {
		close(old.ch)
	}
	b.subs[id] = sub
	n := len(b.subs)
	b.mu.Unlock()
	metrics.SetEventSubscribers(n)
	return sub
}

func (b *Bus) Unsubscribe(id string) {
	b.mu.Lock()
	sub, ok := b.subs[id]
	if ok {
		delete(b.subs, id)
		close(sub.ch)
	}
	n := len(b.subs)
	b.mu.Unlock()
	if ok {
		metrics.SetEventSubscribers(n)
	}
}

// Publish delivers ev to every matching subscriber without blocking.
func (b *Bus) Publish(_ context.Context, ev model.Event) {
	b.published.Add(1)
	metrics.IncEventPublished(string(ev.Kind))

	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subs {
		if sub.filter != nil && !sub.filter(ev) {
			continue
		}
		select {
		case sub.ch <- ev:
		default:
			sub.dropped.Add(1)
			b.dropped.Add(1)
			metrics.IncEventDropped()
			b.log.Warn().Str("subscriber", sub.id).Str("kind", string(ev.Kind)).Msg("subscriber queue full, event dropped")
		}
	}
}

type Stats struct {
	Subscribers int   `json:"subscribers"`
	Published   int64 `json:"published"`
	Dropped     int64 `json:"dropped"`
}

func (b *Bus) Stats() Stats {
	b.mu.RLock()
	n := len(b.subs)
	b.mu.RUnlock()
	return Stats{Subscribers: n, Published: b.published.Load(), Dropped: b.dropped.Load()}
}

// Close removes every subscriber.
func (b *Bus) Close() {
	b.mu.Lock()
	for id, sub := range b.subs {
		close(sub.ch)
		delete(b.subs, id)
	}
	b.mu.Unlock()
	metrics.SetEventSubscribers(0)
}
