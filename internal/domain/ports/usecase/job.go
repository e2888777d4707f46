package usecase

import (
	"context"

	"content-studio/internal/domain/model"
)

// JobLifecycle is the state-machine surface background workers drive.
type JobLifecycle interface {
	Start(ctx context.Context, jobID string) (*model.Job, error)
	Complete(ctx context.Context, jobID string, result model.Result) (*model.Job, error)
	Fail(ctx context.Context, jobID string, reason string) (*model.Job, error)
	GetStatus(ctx context.Context, jobID string) (*model.Job, error)
}

// ActivityRecorder appends to the admin audit trail and announces the entry.
type ActivityRecorder interface {
	Record(ctx context.Context, a *model.Activity) error
}
