package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"content-studio/internal/domain/model"
	"content-studio/internal/domain/ports/adapter"
	"content-studio/internal/infra/metrics"
)

var _ adapter.EventPublisher = (*Relay)(nil)

// Transport moves encoded events between service instances
// (Redis pub/sub, NATS).
type Transport interface {
	Name() string
	Publish(ctx context.Context, data []byte) error
	// Messages streams received payloads until ctx is done.
	Messages(ctx context.Context) (<-chan []byte, error)
}

// Relay publishes through a Transport and feeds received events into the
// local Bus, so every instance's subscribers see every event. Delivery is at
// least once and unordered across instances.
type Relay struct {
	transport Transport
	bus       *Bus
	queue     chan model.Event
	timeout   time.Duration
	log       *zerolog.Logger
}

const (
	relayQueueSize   = 256
	relaySendTimeout = 2 * time.Second
)

func NewRelay(t Transport, bus *Bus, logger *zerolog.Logger) *Relay {
	l := logger.With().Str("component", "EventRelay").Str("transport", t.Name()).Logger()
	return &Relay{
		transport: t,
		bus:       bus,
		queue:     make(chan model.Event, relayQueueSize),
		timeout:   relaySendTimeout,
		log:       &l,
	}
}

// Publish only queues the event; the sender started by Run does the network
// call. A full queue delivers to local subscribers instead, so a degraded
// transport never holds up the job that produced the event.
func (r *Relay) Publish(ctx context.Context, ev model.Event) {
	select {
	case r.queue <- ev:
	default:
		metrics.IncRelayError(r.transport.Name(), "overflow")
		r.log.Warn().Str("kind", string(ev.Kind)).Msg("relay queue full, delivering locally")
		r.bus.Publish(ctx, ev)
	}
}

func (r *Relay) send(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-r.queue:
			r.sendOne(ctx, ev)
		}
	}
}

func (r *Relay) sendOne(ctx context.Context, ev model.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		r.log.Error().Err(err).Str("kind", string(ev.Kind)).Msg("encode event")
		r.bus.Publish(ctx, ev)
		return
	}
	pctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	if err := r.transport.Publish(pctx, data); err != nil {
		metrics.IncRelayError(r.transport.Name(), "publish")
		r.log.Warn().Err(err).Str("kind", string(ev.Kind)).Msg("relay publish failed, delivering locally")
		r.bus.Publish(ctx, ev)
	}
}

// Run sends queued events and forwards transport messages into the bus,
// resubscribing after transport errors, until ctx is done.
func (r *Relay) Run(ctx context.Context) {
	go r.send(ctx)
	backoff := 500 * time.Millisecond
	for {
		msgs, err := r.transport.Messages(ctx)
		if err == nil {
			r.log.Info().Msg("relay subscribed")
			backoff = 500 * time.Millisecond
			r.forward(ctx, msgs)
		} else {
			metrics.IncRelayError(r.transport.Name(), "subscribe")
			r.log.Error().Err(err).Msg("relay subscribe failed")
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		if backoff < 10*time.Second {
			backoff *= 2
		}
	}
}

func (r *Relay) forward(ctx context.Context, msgs <-chan []byte) {
	for {
		select {
		case <-ctx.Done():
			return
		case data, ok := <-msgs:
			if !ok {
				return
			}
			var ev model.Event
			if err := json.Unmarshal(data, &ev); err != nil {
				r.log.Warn().Err(err).Msg("discarding malformed event")
				continue
			}
			r.bus.Publish(ctx, ev)
		}
	}
}
