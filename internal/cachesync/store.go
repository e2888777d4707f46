package cachesync

import (
	"context"
	"errors"
	"time"

	"content-studio/internal/infra/metrics"

	"github.com/rs/zerolog"
)

// ErrMiss is returned by Store.Get for absent or expired keys.
var ErrMiss = errors.New("cache miss")

// Store is a server-side cache for query results.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	// DelPrefix deletes every key starting with prefix and returns how many
	// were removed.
	DelPrefix(ctx context.Context, prefix string) (int, error)
}

type Invalidator interface {
	Invalidate(ctx context.Context, inv Invalidation) error
}

// StoreInvalidator applies invalidations to a Store. Deleting a key also
// deletes its owner variants ("podcast-list:u1"). Deleting twice is a no-op.
type StoreInvalidator struct {
	store Store
	log   *zerolog.Logger
}

func NewStoreInvalidator(store Store, logger *zerolog.Logger) *StoreInvalidator {
	l := logger.With().Str("component", "StoreInvalidator").Logger()
	return &StoreInvalidator{store: store, log: &l}
}

func (s *StoreInvalidator) Invalidate(ctx context.Context, inv Invalidation) error {
	var errs []error
	if keys := inv.KeyStrings(); len(keys) > 0 {
		if err := s.store.Del(ctx, keys...); err != nil {
			errs = append(errs, err)
		}
		for _, k := range keys {
			if _, err := s.store.DelPrefix(ctx, k+":"); err != nil {
				errs = append(errs, err)
			}
		}
	}
	for _, p := range inv.Prefixes {
		n, err := s.store.DelPrefix(ctx, p)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		s.log.Debug().Str("prefix", p).Int("deleted", n).Msg("prefix invalidated")
	}
	metrics.AddCacheInvalidations(len(inv.Keys), len(inv.Prefixes))
	return errors.Join(errs...)
}
