package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"content-studio/internal/domain"
	"content-studio/internal/domain/model"
	"content-studio/internal/domain/ports/repository"
)

var _ repository.EntityRepository = (*EntityRepo)(nil)

type EntityRepo struct {
	pool *pgxpool.Pool
}

func NewEntityRepo(pool *pgxpool.Pool) *EntityRepo {
	return &EntityRepo{pool: pool}
}

const entityColumns = `id, type, owner_id, title, content, media_url, status, created_at, updated_at`

func (r *EntityRepo) FindByID(ctx context.Context, tx repository.Tx, t model.EntityType, id string) (*model.Entity, error) {
	row := pickRow(ctx, r.pool, tx, `SELECT `+entityColumns+` FROM entities WHERE id = $1 AND type = $2;`, id, string(t))
	return scanEntity(row)
}

func (r *EntityRepo) ListByOwner(ctx context.Context, tx repository.Tx, t model.EntityType, ownerID string, limit int) ([]*model.Entity, error) {
	const q = `SELECT ` + entityColumns + ` FROM entities
WHERE type = $1 AND ($2 = '' OR owner_id = $2)
ORDER BY created_at DESC
LIMIT $3;`
	rows, err := queryRows(ctx, r.pool, tx, q, string(t), ownerID, limit)
	if err != nil {
		return nil, fmt.Errorf("list entities: %w", err)
	}
	defer rows.Close()

	var out []*model.Entity
	for rows.Next() {
		e, err := scanEntity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *EntityRepo) Save(ctx context.Context, tx repository.Tx, e *model.Entity) error {
	if e == nil || !e.Type.Valid() || e.ID == "" {
		return domain.ErrInvalidArgument
	}
	const q = `
INSERT INTO entities (id, type, owner_id, title, content, media_url, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (id) DO UPDATE SET
  title = EXCLUDED.title,
  content = EXCLUDED.content,
  media_url = EXCLUDED.media_url,
  status = EXCLUDED.status,
  updated_at = EXCLUDED.updated_at;`

	_, err := execSQL(ctx, r.pool, tx, q,
		e.ID, string(e.Type), e.OwnerID, e.Title, e.Content, e.MediaURL, string(e.Status), e.CreatedAt, e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save entity: %w", err)
	}
	return nil
}

func (r *EntityRepo) Delete(ctx context.Context, tx repository.Tx, t model.EntityType, id string) error {
	tag, err := execSQL(ctx, r.pool, tx, `DELETE FROM entities WHERE id = $1 AND type = $2;`, id, string(t))
	if err != nil {
		return fmt.Errorf("delete entity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *EntityRepo) CountByType(ctx context.Context, tx repository.Tx) (map[model.EntityType]int, error) {
	rows, err := queryRows(ctx, r.pool, tx, `SELECT type, COUNT(*) FROM entities GROUP BY type;`)
	if err != nil {
		return nil, fmt.Errorf("count entities: %w", err)
	}
	defer rows.Close()

	out := map[model.EntityType]int{}
	for rows.Next() {
		var (
			t string
			n int
		)
		if err := rows.Scan(&t, &n); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out[model.EntityType(t)] = n
	}
	return out, rows.Err()
}

func scanEntity(row pgx.Row) (*model.Entity, error) {
	var (
		e         model.Entity
		t, status string
	)
	if err := row.Scan(&e.ID, &t, &e.OwnerID, &e.Title, &e.Content, &e.MediaURL, &status, &e.CreatedAt, &e.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	e.Type, e.Status = model.EntityType(t), model.EntityStatus(status)
	return &e, nil
}
