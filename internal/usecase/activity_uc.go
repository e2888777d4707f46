package usecase

import (
	"context"

	"github.com/rs/zerolog"

	"content-studio/internal/domain"
	"content-studio/internal/domain/model"
	"content-studio/internal/domain/ports/adapter"
	"content-studio/internal/domain/ports/repository"
	ucport "content-studio/internal/domain/ports/usecase"
)

// Compile-time checks
var (
	_ ActivityUseCase         = (*activityUC)(nil)
	_ ucport.ActivityRecorder = (*activityUC)(nil)
)

type ActivityUseCase interface {
	Record(ctx context.Context, a *model.Activity) error
	Recent(ctx context.Context, limit int) ([]*model.Activity, error)
}

type activityUC struct {
	repo   repository.ActivityRepository
	events adapter.EventPublisher
	log    *zerolog.Logger
}

func NewActivityUseCase(repo repository.ActivityRepository, events adapter.EventPublisher, logger *zerolog.Logger) *activityUC {
	l := logger.With().Str("component", "ActivityUseCase").Logger()
	return &activityUC{repo: repo, events: events, log: &l}
}

// Record persists the entry, then announces it with activity-logged.
func (u *activityUC) Record(ctx context.Context, a *model.Activity) error {
	if a == nil || a.Action == "" {
		return domain.ErrInvalidArgument
	}
	if err := u.repo.Save(ctx, repository.NoTX, a); err != nil {
		return err
	}
	u.events.Publish(ctx, model.ActivityLoggedEvent(a))
	return nil
}

func (u *activityUC) Recent(ctx context.Context, limit int) ([]*model.Activity, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return u.repo.ListRecent(ctx, repository.NoTX, limit)
}
