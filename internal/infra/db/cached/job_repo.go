// Package cached decorates repositories with a cachesync.Store. Keys follow
// the cachesync naming so event-driven invalidation reaches them.
package cached

import (
	"context"
	"encoding/json"
	"time"

	"content-studio/internal/cachesync"
	"content-studio/internal/domain/model"
	"content-studio/internal/domain/ports/repository"
	"content-studio/internal/infra/metrics"
)

var _ repository.JobRepository = (*JobRepo)(nil)

// JobRepo caches terminal jobs only. Completed and failed jobs never change,
// so their entries need no invalidation.
type JobRepo struct {
	repository.JobRepository
	cache cachesync.Store
	ttl   time.Duration
}

func NewJobRepo(inner repository.JobRepository, cache cachesync.Store, ttl time.Duration) *JobRepo {
	return &JobRepo{JobRepository: inner, cache: cache, ttl: ttl}
}

func jobKey(id string) string { return "job:" + id }

func (d *JobRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Job, error) {
	// reads inside a transaction must see the transaction's own writes
	if tx != nil {
		return d.JobRepository.FindByID(ctx, tx, id)
	}
	if raw, err := d.cache.Get(ctx, jobKey(id)); err == nil {
		var j model.Job
		if json.Unmarshal(raw, &j) == nil {
			metrics.IncCacheRequest("job", "hit")
			return &j, nil
		}
	}
	metrics.IncCacheRequest("job", "miss")

	j, err := d.JobRepository.FindByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if j.Status.IsTerminal() {
		if raw, err := json.Marshal(j); err == nil {
			_ = d.cache.Set(ctx, jobKey(id), raw, d.ttl)
		}
	}
	return j, nil
}
