package repository

import (
	"context"
	"time"

	"content-studio/internal/domain/model"
)

type JobRepository interface {
	// CreateIfAbsent inserts job unless a non-terminal job already exists for
	// the same (scope, target). It returns the stored job and whether this call
	// created it. Concurrent identical calls resolve to one job.
	CreateIfAbsent(ctx context.Context, tx Tx, job *model.Job) (*model.Job, bool, error)
	FindByID(ctx context.Context, tx Tx, id string) (*model.Job, error)
	// FindActive returns the pending or running job for the target, or ErrNotFound.
	FindActive(ctx context.Context, tx Tx, scope model.EntityType, targetID string) (*model.Job, error)
	// UpdateIf persists job only while the stored status still equals from.
	// A lost race returns domain.ErrInvalidTransition.
	UpdateIf(ctx context.Context, tx Tx, job *model.Job, from model.JobStatus) error
	ListPendingIDs(ctx context.Context, tx Tx, limit int) ([]string, error)
	ListStaleRunning(ctx context.Context, tx Tx, startedBefore time.Time, limit int) ([]string, error)
	ListByTarget(ctx context.Context, tx Tx, scope model.EntityType, targetID string, limit int) ([]*model.Job, error)
	CountByStatus(ctx context.Context, tx Tx) (map[model.JobStatus]int, error)
}
