package repository

import (
	"context"

	"content-studio/internal/domain/model"
)

type EntityRepository interface {
	FindByID(ctx context.Context, tx Tx, t model.EntityType, id string) (*model.Entity, error)
	// ListByOwner lists newest first. An empty ownerID lists every owner.
	ListByOwner(ctx context.Context, tx Tx, t model.EntityType, ownerID string, limit int) ([]*model.Entity, error)
	Save(ctx context.Context, tx Tx, e *model.Entity) error
	Delete(ctx context.Context, tx Tx, t model.EntityType, id string) error
	CountByType(ctx context.Context, tx Tx) (map[model.EntityType]int, error)
}
