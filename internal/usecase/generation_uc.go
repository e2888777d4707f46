package usecase

import (
	"context"

	"github.com/rs/zerolog"

	"content-studio/internal/domain"
	"content-studio/internal/domain/model"
	"content-studio/internal/domain/ports/repository"
)

// Compile-time check
var _ GenerationUseCase = (*generationUC)(nil)

// Caller is an already-authenticated identity.
type Caller struct {
	UserID string
	Admin  bool
}

// GenerationUseCase applies the ownership policy in front of JobUseCase.
type GenerationUseCase interface {
	Request(ctx context.Context, caller Caller, payload model.Payload) (*model.Job, bool, error)
	Status(ctx context.Context, caller Caller, jobID string) (*model.Job, error)
}

type generationUC struct {
	jobs     JobUseCase
	entities repository.EntityRepository
	log      *zerolog.Logger
}

func NewGenerationUseCase(jobs JobUseCase, entities repository.EntityRepository, logger *zerolog.Logger) *generationUC {
	l := logger.With().Str("component", "GenerationUseCase").Logger()
	return &generationUC{jobs: jobs, entities: entities, log: &l}
}

func (g *generationUC) Request(ctx context.Context, caller Caller, payload model.Payload) (*model.Job, bool, error) {
	if caller.UserID == "" {
		return nil, false, domain.ErrUnauthorized
	}
	if payload == nil {
		return nil, false, domain.ErrInvalidArgument
	}
	ent, err := g.entities.FindByID(ctx, repository.NoTX, payload.JobType().Scope(), payload.TargetID())
	if err != nil {
		return nil, false, err
	}
	if !ent.CanAccess(caller.UserID, caller.Admin) {
		g.log.Warn().Str("user_id", caller.UserID).Str("entity_id", ent.ID).Msg("generation denied")
		return nil, false, domain.ErrForbidden
	}
	return g.jobs.Enqueue(ctx, payload, caller.UserID)
}

// Status returns the job when the caller created it, owns its target, or is
// an admin. Other callers get NotFound so job ids cannot be probed.
func (g *generationUC) Status(ctx context.Context, caller Caller, jobID string) (*model.Job, error) {
	job, err := g.jobs.GetStatus(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if caller.Admin || job.CreatedBy == caller.UserID {
		return job, nil
	}
	ent, err := g.entities.FindByID(ctx, repository.NoTX, job.Scope(), job.TargetID())
	if err == nil && ent.CanAccess(caller.UserID, false) {
		return job, nil
	}
	return nil, domain.ErrNotFound
}
