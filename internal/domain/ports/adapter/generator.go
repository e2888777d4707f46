package adapter

import (
	"context"

	"content-studio/internal/domain/model"
)

// Generator performs the long-running generation work for one job type.
// It must honor ctx cancellation; the dispatcher treats a deadline as failure.
type Generator interface {
	Generate(ctx context.Context, job *model.Job) (model.Result, error)
}

type GeneratorFunc func(ctx context.Context, job *model.Job) (model.Result, error)

func (f GeneratorFunc) Generate(ctx context.Context, job *model.Job) (model.Result, error) {
	return f(ctx, job)
}
