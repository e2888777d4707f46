package cachesync

import (
	"context"

	"content-studio/internal/domain/model"

	"github.com/rs/zerolog"
)

// Consumer drains an event stream and applies the routed invalidations.
// It holds no state beyond its collaborators.
type Consumer struct {
	inv Invalidator
	log *zerolog.Logger
}

func NewConsumer(inv Invalidator, logger *zerolog.Logger) *Consumer {
	l := logger.With().Str("component", "CacheConsumer").Logger()
	return &Consumer{inv: inv, log: &l}
}

// Run blocks until ctx is done or events is closed.
func (c *Consumer) Run(ctx context.Context, events <-chan model.Event) {
	c.log.Info().Msg("cache consumer started")
	for {
		select {
		case <-ctx.Done():
			c.log.Info().Msg("cache consumer stopping")
			return
		case ev, ok := <-events:
			if !ok {
				c.log.Info().Msg("event stream closed")
				return
			}
			c.Handle(ctx, ev)
		}
	}
}

func (c *Consumer) Handle(ctx context.Context, ev model.Event) {
	inv := Route(ev)
	if inv.Empty() {
		return
	}
	if err := c.inv.Invalidate(ctx, inv); err != nil {
		c.log.Warn().Err(err).Str("kind", string(ev.Kind)).Strs("keys", inv.KeyStrings()).Msg("invalidation failed")
		return
	}
	c.log.Debug().Str("kind", string(ev.Kind)).Strs("keys", inv.KeyStrings()).Strs("prefixes", inv.Prefixes).Msg("caches invalidated")
}
