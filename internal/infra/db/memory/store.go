// Package memory holds mutex-guarded in-memory repositories. Safe for
// concurrent access. Intended for development mode and unit tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"content-studio/internal/domain"
	"content-studio/internal/domain/model"
	"content-studio/internal/domain/ports/repository"

	"github.com/jackc/pgx/v4"
)

var (
	_ repository.JobRepository      = (*JobRepo)(nil)
	_ repository.EntityRepository   = (*EntityRepo)(nil)
	_ repository.ActivityRepository = (*ActivityRepo)(nil)
	_ repository.TransactionManager = (*TxManager)(nil)
)

// TxManager serializes transactions. Repositories ignore the tx handle.
type TxManager struct {
	mu sync.Mutex
}

func NewTxManager() *TxManager { return &TxManager{} }

func (m *TxManager) WithTx(ctx context.Context, _ pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(ctx, repository.NoTX)
}

// ──────────────────────────────────────────────────
// Jobs
// ──────────────────────────────────────────────────

type activeKey struct {
	scope  model.EntityType
	target string
}

type JobRepo struct {
	mu     sync.RWMutex
	jobs   map[string]*model.Job
	active map[activeKey]string // non-terminal job id per target
}

func NewJobRepo() *JobRepo {
	return &JobRepo{jobs: map[string]*model.Job{}, active: map[activeKey]string{}}
}

func (r *JobRepo) CreateIfAbsent(_ context.Context, _ repository.Tx, job *model.Job) (*model.Job, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := activeKey{job.Scope(), job.TargetID()}
	if id, ok := r.active[key]; ok {
		return r.jobs[id].Clone(), false, nil
	}
	if _, exists := r.jobs[job.ID]; exists {
		return nil, false, domain.ErrAlreadyExists
	}
	r.jobs[job.ID] = job.Clone()
	if !job.Status.IsTerminal() {
		r.active[key] = job.ID
	}
	return job.Clone(), true, nil
}

func (r *JobRepo) FindByID(_ context.Context, _ repository.Tx, id string) (*model.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	j, ok := r.jobs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return j.Clone(), nil
}

func (r *JobRepo) FindActive(_ context.Context, _ repository.Tx, scope model.EntityType, targetID string) (*model.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.active[activeKey{scope, targetID}]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return r.jobs[id].Clone(), nil
}

func (r *JobRepo) UpdateIf(_ context.Context, _ repository.Tx, job *model.Job, from model.JobStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.jobs[job.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if cur.Status != from {
		return domain.ErrInvalidTransition
	}
	r.jobs[job.ID] = job.Clone()
	if job.Status.IsTerminal() {
		delete(r.active, activeKey{job.Scope(), job.TargetID()})
	}
	return nil
}

func (r *JobRepo) ListPendingIDs(_ context.Context, _ repository.Tx, limit int) ([]string, error) {
	return r.listIDs(limit, func(j *model.Job) bool { return j.Status == model.JobStatusPending }), nil
}

func (r *JobRepo) ListStaleRunning(_ context.Context, _ repository.Tx, startedBefore time.Time, limit int) ([]string, error) {
	return r.listIDs(limit, func(j *model.Job) bool {
		return j.Status == model.JobStatusRunning && j.StartedAt != nil && j.StartedAt.Before(startedBefore)
	}), nil
}

// listIDs returns matching ids oldest first.
func (r *JobRepo) listIDs(limit int, match func(*model.Job) bool) []string {
	r.mu.RLock()
	var hits []*model.Job
	for _, j := range r.jobs {
		if match(j) {
			hits = append(hits, j)
		}
	}
	r.mu.RUnlock()
	sort.Slice(hits, func(i, k int) bool { return hits[i].CreatedAt.Before(hits[k].CreatedAt) })
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	ids := make([]string, len(hits))
	for i, j := range hits {
		ids[i] = j.ID
	}
	return ids
}

func (r *JobRepo) ListByTarget(_ context.Context, _ repository.Tx, scope model.EntityType, targetID string, limit int) ([]*model.Job, error) {
	r.mu.RLock()
	var out []*model.Job
	for _, j := range r.jobs {
		if j.Scope() == scope && j.TargetID() == targetID {
			out = append(out, j.Clone())
		}
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, k int) bool { return out[i].CreatedAt.After(out[k].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *JobRepo) CountByStatus(_ context.Context, _ repository.Tx) (map[model.JobStatus]int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := map[model.JobStatus]int{}
	for _, j := range r.jobs {
		out[j.Status]++
	}
	return out, nil
}

// ──────────────────────────────────────────────────
// Entities
// ──────────────────────────────────────────────────

type EntityRepo struct {
	mu    sync.RWMutex
	items map[string]*model.Entity // key: type/id
}

func NewEntityRepo() *EntityRepo {
	return &EntityRepo{items: map[string]*model.Entity{}}
}

func entityKey(t model.EntityType, id string) string { return string(t) + "/" + id }

func (r *EntityRepo) FindByID(_ context.Context, _ repository.Tx, t model.EntityType, id string) (*model.Entity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.items[entityKey(t, id)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (r *EntityRepo) ListByOwner(_ context.Context, _ repository.Tx, t model.EntityType, ownerID string, limit int) ([]*model.Entity, error) {
	r.mu.RLock()
	var out []*model.Entity
	for _, e := range r.items {
		if e.Type == t && (ownerID == "" || e.OwnerID == ownerID) {
			cp := *e
			out = append(out, &cp)
		}
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, k int) bool { return out[i].CreatedAt.After(out[k].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *EntityRepo) Save(_ context.Context, _ repository.Tx, e *model.Entity) error {
	if e == nil || !e.Type.Valid() || e.ID == "" {
		return domain.ErrInvalidArgument
	}
	cp := *e
	r.mu.Lock()
	r.items[entityKey(e.Type, e.ID)] = &cp
	r.mu.Unlock()
	return nil
}

func (r *EntityRepo) Delete(_ context.Context, _ repository.Tx, t model.EntityType, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := entityKey(t, id)
	if _, ok := r.items[k]; !ok {
		return domain.ErrNotFound
	}
	delete(r.items, k)
	return nil
}

func (r *EntityRepo) CountByType(_ context.Context, _ repository.Tx) (map[model.EntityType]int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := map[model.EntityType]int{}
	for _, e := range r.items {
		out[e.Type]++
	}
	return out, nil
}

// ──────────────────────────────────────────────────
// Activity
// ──────────────────────────────────────────────────

type ActivityRepo struct {
	mu      sync.RWMutex
	entries []*model.Activity
}

func NewActivityRepo() *ActivityRepo { return &ActivityRepo{} }

func (r *ActivityRepo) Save(_ context.Context, _ repository.Tx, a *model.Activity) error {
	if a == nil {
		return domain.ErrInvalidArgument
	}
	cp := *a
	r.mu.Lock()
	r.entries = append(r.entries, &cp)
	r.mu.Unlock()
	return nil
}

// ListRecent returns newest first.
func (r *ActivityRepo) ListRecent(_ context.Context, _ repository.Tx, limit int) ([]*model.Activity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*model.Activity, 0, len(r.entries))
	for i := len(r.entries) - 1; i >= 0; i-- {
		cp := *r.entries[i]
		out = append(out, &cp)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}
