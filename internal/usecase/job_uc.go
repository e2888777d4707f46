package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"content-studio/internal/domain"
	"content-studio/internal/domain/model"
	"content-studio/internal/domain/ports/adapter"
	"content-studio/internal/domain/ports/repository"
	ucport "content-studio/internal/domain/ports/usecase"
	"content-studio/internal/infra/metrics"
)

// Compile-time checks
var (
	_ JobUseCase          = (*jobUC)(nil)
	_ ucport.JobLifecycle = (*jobUC)(nil)
)

// JobUseCase is the job lifecycle manager: idempotent enqueue plus the
// pending -> running -> completed|failed state machine.
type JobUseCase interface {
	// Enqueue returns the in-flight job for the payload's target when one
	// exists, otherwise a new pending job. created reports which happened.
	Enqueue(ctx context.Context, payload model.Payload, requesterID string) (job *model.Job, created bool, err error)
	Start(ctx context.Context, jobID string) (*model.Job, error)
	Complete(ctx context.Context, jobID string, result model.Result) (*model.Job, error)
	Fail(ctx context.Context, jobID string, reason string) (*model.Job, error)
	GetStatus(ctx context.Context, jobID string) (*model.Job, error)
	ListForTarget(ctx context.Context, t model.EntityType, targetID string, limit int) ([]*model.Job, error)
	CountByStatus(ctx context.Context) (map[model.JobStatus]int, error)
}

type jobUC struct {
	jobs     repository.JobRepository
	entities repository.EntityRepository
	tm       repository.TransactionManager
	events   adapter.EventPublisher
	activity ucport.ActivityRecorder

	now func() time.Time
	log *zerolog.Logger
}

// NewJobUseCase wires the lifecycle manager. activity may be nil.
func NewJobUseCase(
	jobs repository.JobRepository,
	entities repository.EntityRepository,
	tm repository.TransactionManager,
	events adapter.EventPublisher,
	activity ucport.ActivityRecorder,
	logger *zerolog.Logger,
) *jobUC {
	l := logger.With().Str("component", "JobUseCase").Logger()
	return &jobUC{
		jobs:     jobs,
		entities: entities,
		tm:       tm,
		events:   events,
		activity: activity,
		now:      time.Now,
		log:      &l,
	}
}

func (u *jobUC) Enqueue(ctx context.Context, payload model.Payload, requesterID string) (*model.Job, bool, error) {
	fresh, err := model.NewJob(payload, requesterID, u.now())
	if err != nil {
		return nil, false, err
	}

	var (
		job     *model.Job
		ent     *model.Entity
		created bool
	)
	err = u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		var err error
		ent, err = u.entities.FindByID(ctx, tx, fresh.Scope(), fresh.TargetID())
		if err != nil {
			return err
		}
		job, created, err = u.jobs.CreateIfAbsent(ctx, tx, fresh)
		if err != nil {
			return err
		}
		if !created {
			return nil
		}
		ent.ApplyJobOutcome(job, job.CreatedAt)
		return u.entities.Save(ctx, tx, ent)
	})
	if err != nil {
		return nil, false, err
	}

	metrics.IncJobEnqueued(string(job.Type), created)
	if created {
		// Published after commit so cache entries evicted inside the
		// transaction cannot be refilled with the pre-enqueue row for long.
		u.events.Publish(ctx, model.EntityChangeEvent(ent, model.ChangeUpdate, job.CreatedAt))
		u.log.Info().Str("job_id", job.ID).Str("type", string(job.Type)).Str("target", job.TargetID()).Msg("job enqueued")
		u.record(ctx, model.NewActivity(requesterID, model.ActionJobCreated, job.Scope(), job.TargetID(), job.ID, string(job.Type), job.CreatedAt))
	} else {
		u.log.Debug().Str("job_id", job.ID).Str("requester", requesterID).Msg("joined in-flight job")
	}
	return job, created, nil
}

func (u *jobUC) Start(ctx context.Context, jobID string) (*model.Job, error) {
	return u.transition(ctx, jobID, model.JobStatusRunning, func(j *model.Job, now time.Time) error {
		return j.Start(now)
	})
}

func (u *jobUC) Complete(ctx context.Context, jobID string, result model.Result) (*model.Job, error) {
	return u.transition(ctx, jobID, model.JobStatusCompleted, func(j *model.Job, now time.Time) error {
		return j.Complete(result, now)
	})
}

func (u *jobUC) Fail(ctx context.Context, jobID string, reason string) (*model.Job, error) {
	return u.transition(ctx, jobID, model.JobStatusFailed, func(j *model.Job, now time.Time) error {
		return j.Fail(reason, now)
	})
}

// transition applies one state-machine step under a transaction. The store's
// conditional update makes concurrent callers race safely: exactly one wins,
// the rest get ErrInvalidTransition. Terminal steps also update the target
// entity and publish exactly one completion event.
func (u *jobUC) transition(ctx context.Context, jobID string, to model.JobStatus, apply func(*model.Job, time.Time) error) (*model.Job, error) {
	var (
		job   *model.Job
		from  model.JobStatus
		owner string
	)
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		j, err := u.jobs.FindByID(ctx, tx, jobID)
		if err != nil {
			return err
		}
		from = j.Status
		if err := apply(j, u.now()); err != nil {
			return err
		}
		if err := u.jobs.UpdateIf(ctx, tx, j, from); err != nil {
			return err
		}
		job = j
		if !j.Status.IsTerminal() {
			return nil
		}

		ent, err := u.entities.FindByID(ctx, tx, j.Scope(), j.TargetID())
		switch {
		case errors.Is(err, domain.ErrNotFound):
			u.log.Warn().Str("job_id", j.ID).Str("target", j.TargetID()).Msg("target entity gone, job outcome not applied")
			return nil
		case err != nil:
			return err
		}
		owner = ent.OwnerID
		ent.ApplyJobOutcome(j, j.UpdatedAt)
		return u.entities.Save(ctx, tx, ent)
	})
	if err != nil {
		u.logTransitionErr(jobID, from, to, err)
		return nil, err
	}

	metrics.IncJobTransition(string(job.Type), string(job.Status))
	if !job.Status.IsTerminal() {
		return job, nil
	}

	u.events.Publish(ctx, model.CompletionEvent(job, owner))

	action, detail := model.ActionJobCompleted, string(job.Type)
	if job.Status == model.JobStatusFailed {
		action, detail = model.ActionJobFailed, job.Error
	}
	u.record(ctx, model.NewActivity(job.CreatedBy, action, job.Scope(), job.TargetID(), job.ID, detail, job.UpdatedAt))

	lvl := zerolog.InfoLevel
	if job.Status == model.JobStatusFailed {
		lvl = zerolog.WarnLevel
	}
	u.log.WithLevel(lvl).Str("job_id", job.ID).Str("type", string(job.Type)).
		Str("status", string(job.Status)).Str("error", job.Error).Msg("job finished")
	return job, nil
}

func (u *jobUC) logTransitionErr(jobID string, from, to model.JobStatus, err error) {
	if !errors.Is(err, domain.ErrInvalidTransition) {
		return
	}
	// Losing the pending -> running race to another worker is normal.
	if to == model.JobStatusRunning {
		u.log.Debug().Str("job_id", jobID).Msg("start lost to another worker")
		return
	}
	u.log.Error().Err(err).Str("job_id", jobID).Str("from", string(from)).Str("to", string(to)).Msg("invalid job transition")
}

func (u *jobUC) GetStatus(ctx context.Context, jobID string) (*model.Job, error) {
	if jobID == "" {
		return nil, domain.ErrNotFound
	}
	return u.jobs.FindByID(ctx, repository.NoTX, jobID)
}

func (u *jobUC) ListForTarget(ctx context.Context, t model.EntityType, targetID string, limit int) ([]*model.Job, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: entity type %q", domain.ErrInvalidArgument, t)
	}
	return u.jobs.ListByTarget(ctx, repository.NoTX, t, targetID, limit)
}

func (u *jobUC) CountByStatus(ctx context.Context) (map[model.JobStatus]int, error) {
	return u.jobs.CountByStatus(ctx, repository.NoTX)
}

// record is best effort: the audit trail never fails a job operation.
func (u *jobUC) record(ctx context.Context, a *model.Activity) {
	if u.activity == nil {
		return
	}
	if err := u.activity.Record(ctx, a); err != nil {
		u.log.Warn().Err(err).Str("action", a.Action).Str("job_id", a.JobID).Msg("activity not recorded")
	}
}
