package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"content-studio/internal/domain"
	"content-studio/internal/domain/model"
	"content-studio/internal/domain/ports/adapter"
	"content-studio/internal/domain/ports/repository"
	ucport "content-studio/internal/domain/ports/usecase"
)

// Compile-time check
var _ EntityUseCase = (*entityUC)(nil)

// EntityPatch carries optional direct edits.
type EntityPatch struct {
	Title   *string
	Content *string
}

// EntityUseCase is direct CRUD outside the job flow. Every write emits an
// entity-change event.
type EntityUseCase interface {
	Create(ctx context.Context, caller Caller, t model.EntityType, title string) (*model.Entity, error)
	Get(ctx context.Context, caller Caller, t model.EntityType, id string) (*model.Entity, error)
	List(ctx context.Context, caller Caller, t model.EntityType, limit int) ([]*model.Entity, error)
	Update(ctx context.Context, caller Caller, t model.EntityType, id string, patch EntityPatch) (*model.Entity, error)
	Delete(ctx context.Context, caller Caller, t model.EntityType, id string) error
}

type entityUC struct {
	entities repository.EntityRepository
	events   adapter.EventPublisher
	activity ucport.ActivityRecorder
	now      func() time.Time
	log      *zerolog.Logger
}

func NewEntityUseCase(entities repository.EntityRepository, events adapter.EventPublisher, activity ucport.ActivityRecorder, logger *zerolog.Logger) *entityUC {
	l := logger.With().Str("component", "EntityUseCase").Logger()
	return &entityUC{entities: entities, events: events, activity: activity, now: time.Now, log: &l}
}

func (u *entityUC) Create(ctx context.Context, caller Caller, t model.EntityType, title string) (*model.Entity, error) {
	if caller.UserID == "" {
		return nil, domain.ErrUnauthorized
	}
	e, err := model.NewEntity(t, caller.UserID, title, u.now())
	if err != nil {
		return nil, err
	}
	if err := u.entities.Save(ctx, repository.NoTX, e); err != nil {
		return nil, err
	}
	u.changed(ctx, caller, e, model.ChangeInsert, model.ActionEntityCreated)
	return e, nil
}

func (u *entityUC) Get(ctx context.Context, caller Caller, t model.EntityType, id string) (*model.Entity, error) {
	e, err := u.entities.FindByID(ctx, repository.NoTX, t, id)
	if err != nil {
		return nil, err
	}
	if !e.CanAccess(caller.UserID, caller.Admin) {
		return nil, domain.ErrForbidden
	}
	return e, nil
}

// List returns the caller's entities; admins see every owner.
func (u *entityUC) List(ctx context.Context, caller Caller, t model.EntityType, limit int) ([]*model.Entity, error) {
	if caller.UserID == "" {
		return nil, domain.ErrUnauthorized
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	owner := caller.UserID
	if caller.Admin {
		owner = ""
	}
	return u.entities.ListByOwner(ctx, repository.NoTX, t, owner, limit)
}

func (u *entityUC) Update(ctx context.Context, caller Caller, t model.EntityType, id string, patch EntityPatch) (*model.Entity, error) {
	e, err := u.Get(ctx, caller, t, id)
	if err != nil {
		return nil, err
	}
	if patch.Title == nil && patch.Content == nil {
		return nil, domain.ErrInvalidArgument
	}
	if patch.Title != nil {
		e.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.Content != nil {
		e.Content = *patch.Content
	}
	e.UpdatedAt = u.now().UTC()
	if err := u.entities.Save(ctx, repository.NoTX, e); err != nil {
		return nil, err
	}
	u.changed(ctx, caller, e, model.ChangeUpdate, model.ActionEntityUpdated)
	return e, nil
}

func (u *entityUC) Delete(ctx context.Context, caller Caller, t model.EntityType, id string) error {
	e, err := u.Get(ctx, caller, t, id)
	if err != nil {
		return err
	}
	if err := u.entities.Delete(ctx, repository.NoTX, t, id); err != nil {
		return err
	}
	u.changed(ctx, caller, e, model.ChangeDelete, model.ActionEntityDeleted)
	return nil
}

func (u *entityUC) changed(ctx context.Context, caller Caller, e *model.Entity, change model.ChangeType, action string) {
	now := u.now()
	u.events.Publish(ctx, model.EntityChangeEvent(e, change, now))
	if u.activity == nil {
		return
	}
	if err := u.activity.Record(ctx, model.NewActivity(caller.UserID, action, e.Type, e.ID, "", e.Title, now)); err != nil {
		u.log.Warn().Err(err).Str("entity_id", e.ID).Str("action", action).Msg("activity not recorded")
	}
}
