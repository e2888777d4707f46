package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"content-studio/internal/domain"
	"content-studio/internal/domain/model"
	"content-studio/internal/domain/ports/repository"
)

var _ repository.JobRepository = (*JobRepo)(nil)

// JobRepo stores jobs in the jobs table. At most one pending or running job
// per (scope, target_id) is enforced by the jobs_one_active partial index.
type JobRepo struct {
	pool *pgxpool.Pool
}

func NewJobRepo(pool *pgxpool.Pool) *JobRepo {
	return &JobRepo{pool: pool}
}

const jobColumns = `id, type, payload, status, result, error, created_by, created_at, updated_at, started_at, completed_at`

func (r *JobRepo) CreateIfAbsent(ctx context.Context, tx repository.Tx, job *model.Job) (*model.Job, bool, error) {
	payload, err := model.EncodePayload(job.Payload)
	if err != nil {
		return nil, false, fmt.Errorf("encode payload: %w", err)
	}
	const q = `
INSERT INTO jobs (id, type, scope, target_id, payload, status, error, created_by, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (scope, target_id) WHERE status IN ('pending', 'running') DO NOTHING
RETURNING id;`

	// A competing active job can finish between our insert and lookup;
	// retrying then inserts against a free slot.
	for attempt := 0; attempt < 3; attempt++ {
		var id string
		err := pickRow(ctx, r.pool, tx, q,
			job.ID, string(job.Type), string(job.Scope()), job.TargetID(), payload, string(job.Status), job.Error,
			job.CreatedBy, job.CreatedAt, job.UpdatedAt,
		).Scan(&id)
		switch {
		case err == nil:
			return job.Clone(), true, nil
		case isUniqueViolation(err):
			return nil, false, domain.ErrAlreadyExists
		case !errors.Is(err, pgx.ErrNoRows):
			return nil, false, fmt.Errorf("insert job: %w", err)
		}

		existing, err := r.FindActive(ctx, tx, job.Scope(), job.TargetID())
		if err == nil {
			return existing, false, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, false, err
		}
	}
	return nil, false, fmt.Errorf("insert job: active slot for %s/%s kept changing", job.Scope(), job.TargetID())
}

func (r *JobRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Job, error) {
	row := pickRow(ctx, r.pool, tx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1;`, id)
	return scanJob(row)
}

func (r *JobRepo) FindActive(ctx context.Context, tx repository.Tx, scope model.EntityType, targetID string) (*model.Job, error) {
	const q = `SELECT ` + jobColumns + ` FROM jobs
WHERE scope = $1 AND target_id = $2 AND status IN ('pending', 'running')
LIMIT 1;`
	return scanJob(pickRow(ctx, r.pool, tx, q, string(scope), targetID))
}

func (r *JobRepo) UpdateIf(ctx context.Context, tx repository.Tx, job *model.Job, from model.JobStatus) error {
	result, err := model.EncodeResult(job.Result)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	const q = `
UPDATE jobs SET
  status = $3, result = $4, error = $5, updated_at = $6, started_at = $7, completed_at = $8
WHERE id = $1 AND status = $2;`

	tag, err := execSQL(ctx, r.pool, tx, q,
		job.ID, string(from), string(job.Status), result, job.Error, job.UpdatedAt, job.StartedAt, job.CompletedAt)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}
	var status string
	if err := pickRow(ctx, r.pool, tx, `SELECT status FROM jobs WHERE id = $1;`, job.ID).Scan(&status); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrNotFound
		}
		return err
	}
	return fmt.Errorf("%w: job %s is %s, expected %s", domain.ErrInvalidTransition, job.ID, status, from)
}

func (r *JobRepo) ListPendingIDs(ctx context.Context, tx repository.Tx, limit int) ([]string, error) {
	rows, err := queryRows(ctx, r.pool, tx,
		`SELECT id FROM jobs WHERE status = 'pending' ORDER BY created_at LIMIT $1;`, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending jobs: %w", err)
	}
	return scanIDs(rows)
}

func (r *JobRepo) ListStaleRunning(ctx context.Context, tx repository.Tx, startedBefore time.Time, limit int) ([]string, error) {
	rows, err := queryRows(ctx, r.pool, tx,
		`SELECT id FROM jobs WHERE status = 'running' AND started_at < $1 ORDER BY started_at LIMIT $2;`,
		startedBefore, limit)
	if err != nil {
		return nil, fmt.Errorf("list stale jobs: %w", err)
	}
	return scanIDs(rows)
}

func (r *JobRepo) ListByTarget(ctx context.Context, tx repository.Tx, scope model.EntityType, targetID string, limit int) ([]*model.Job, error) {
	const q = `SELECT ` + jobColumns + ` FROM jobs
WHERE scope = $1 AND target_id = $2
ORDER BY created_at DESC
LIMIT $3;`
	rows, err := queryRows(ctx, r.pool, tx, q, string(scope), targetID, limit)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var out []*model.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

func (r *JobRepo) CountByStatus(ctx context.Context, tx repository.Tx) (map[model.JobStatus]int, error) {
	rows, err := queryRows(ctx, r.pool, tx, `SELECT status, COUNT(*) FROM jobs GROUP BY status;`)
	if err != nil {
		return nil, fmt.Errorf("count jobs: %w", err)
	}
	defer rows.Close()

	out := map[model.JobStatus]int{}
	for rows.Next() {
		var (
			s string
			n int
		)
		if err := rows.Scan(&s, &n); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out[model.JobStatus(s)] = n
	}
	return out, rows.Err()
}

func scanJob(row pgx.Row) (*model.Job, error) {
	var (
		j                  model.Job
		typ, status        string
		payload, result    []byte
		startedAt, complAt *time.Time
	)
	err := row.Scan(&j.ID, &typ, &payload, &status, &result, &j.Error,
		&j.CreatedBy, &j.CreatedAt, &j.UpdatedAt, &startedAt, &complAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	j.Type = model.JobType(typ)
	j.Status = model.JobStatus(status)
	if j.Payload, err = model.DecodePayload(j.Type, payload); err != nil {
		return nil, err
	}
	if j.Result, err = model.DecodeResult(j.Type, result); err != nil {
		return nil, err
	}
	j.StartedAt, j.CompletedAt = startedAt, complAt
	return &j, nil
}
