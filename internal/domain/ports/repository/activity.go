package repository

import (
	"context"

	"content-studio/internal/domain/model"
)

type ActivityRepository interface {
	Save(ctx context.Context, tx Tx, a *model.Activity) error
	ListRecent(ctx context.Context, tx Tx, limit int) ([]*model.Activity, error)
}
