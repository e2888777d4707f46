package cached

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"content-studio/internal/cachesync"
	"content-studio/internal/domain/model"
	"content-studio/internal/domain/ports/repository"
	"content-studio/internal/infra/metrics"
)

var _ repository.EntityRepository = (*EntityRepo)(nil)

// EntityRepo caches entity details and owner listings under the same keys
// the event router invalidates ("podcast-detail(pod_1)", "podcast-list:u1#50").
type EntityRepo struct {
	inner repository.EntityRepository
	cache cachesync.Store
	ttl   time.Duration
}

func NewEntityRepo(inner repository.EntityRepository, cache cachesync.Store, ttl time.Duration) *EntityRepo {
	return &EntityRepo{inner: inner, cache: cache, ttl: ttl}
}

func listVariant(t model.EntityType, ownerID string, limit int) string {
	if ownerID == "" {
		ownerID = "*"
	}
	return cachesync.ListKey(t).OwnerVariant(fmt.Sprintf("%s#%d", ownerID, limit))
}

func (d *EntityRepo) FindByID(ctx context.Context, tx repository.Tx, t model.EntityType, id string) (*model.Entity, error) {
	if tx != nil {
		return d.inner.FindByID(ctx, tx, t, id)
	}
	key := cachesync.DetailKey(t, id).String()
	if raw, err := d.cache.Get(ctx, key); err == nil {
		var e model.Entity
		if json.Unmarshal(raw, &e) == nil {
			metrics.IncCacheRequest("entity", "hit")
			return &e, nil
		}
	}
	metrics.IncCacheRequest("entity", "miss")

	e, err := d.inner.FindByID(ctx, tx, t, id)
	if err != nil {
		return nil, err
	}
	if raw, err := json.Marshal(e); err == nil {
		_ = d.cache.Set(ctx, key, raw, d.ttl)
	}
	return e, nil
}

func (d *EntityRepo) ListByOwner(ctx context.Context, tx repository.Tx, t model.EntityType, ownerID string, limit int) ([]*model.Entity, error) {
	if tx != nil {
		return d.inner.ListByOwner(ctx, tx, t, ownerID, limit)
	}
	key := listVariant(t, ownerID, limit)
	if raw, err := d.cache.Get(ctx, key); err == nil {
		var out []*model.Entity
		if json.Unmarshal(raw, &out) == nil {
			metrics.IncCacheRequest("entity_list", "hit")
			return out, nil
		}
	}
	metrics.IncCacheRequest("entity_list", "miss")

	out, err := d.inner.ListByOwner(ctx, tx, t, ownerID, limit)
	if err != nil {
		return nil, err
	}
	if raw, err := json.Marshal(out); err == nil {
		_ = d.cache.Set(ctx, key, raw, d.ttl)
	}
	return out, nil
}

// Save and Delete drop this instance's entries right away. Inside a
// transaction that eviction can precede the commit, so a concurrent read may
// cache the old row; the entity-change event published after commit clears
// it again on every instance.
func (d *EntityRepo) Save(ctx context.Context, tx repository.Tx, e *model.Entity) error {
	if err := d.inner.Save(ctx, tx, e); err != nil {
		return err
	}
	d.evict(ctx, e.Type, e.ID)
	return nil
}

func (d *EntityRepo) Delete(ctx context.Context, tx repository.Tx, t model.EntityType, id string) error {
	if err := d.inner.Delete(ctx, tx, t, id); err != nil {
		return err
	}
	d.evict(ctx, t, id)
	return nil
}

func (d *EntityRepo) CountByType(ctx context.Context, tx repository.Tx) (map[model.EntityType]int, error) {
	return d.inner.CountByType(ctx, tx)
}

func (d *EntityRepo) evict(ctx context.Context, t model.EntityType, id string) {
	_ = d.cache.Del(ctx, cachesync.DetailKey(t, id).String())
	_, _ = d.cache.DelPrefix(ctx, cachesync.ListKey(t).String()+":")
}
