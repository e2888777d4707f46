package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"content-studio/internal/domain"
	"content-studio/internal/domain/model"
	"content-studio/internal/domain/ports/repository"
)

var _ repository.ActivityRepository = (*ActivityRepo)(nil)

type ActivityRepo struct {
	pool *pgxpool.Pool
}

func NewActivityRepo(pool *pgxpool.Pool) *ActivityRepo {
	return &ActivityRepo{pool: pool}
}

func (r *ActivityRepo) Save(ctx context.Context, tx repository.Tx, a *model.Activity) error {
	const q = `
INSERT INTO activity_log (id, actor_id, action, entity_type, entity_id, job_id, detail, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8);`
	_, err := execSQL(ctx, r.pool, tx, q,
		a.ID, a.ActorID, a.Action, string(a.EntityType), a.EntityID, a.JobID, a.Detail, a.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("save activity: %w", err)
	}
	return nil
}

func (r *ActivityRepo) ListRecent(ctx context.Context, tx repository.Tx, limit int) ([]*model.Activity, error) {
	const q = `
SELECT id, actor_id, action, entity_type, entity_id, job_id, detail, created_at
FROM activity_log
ORDER BY created_at DESC
LIMIT $1;`
	rows, err := queryRows(ctx, r.pool, tx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("list activity: %w", err)
	}
	defer rows.Close()

	var out []*model.Activity
	for rows.Next() {
		var (
			a  model.Activity
			et string
		)
		if err := rows.Scan(&a.ID, &a.ActorID, &a.Action, &et, &a.EntityID, &a.JobID, &a.Detail, &a.CreatedAt); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		a.EntityType = model.EntityType(et)
		out = append(out, &a)
	}
	return out, rows.Err()
}
