package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"content-studio/internal/domain"
	"content-studio/internal/domain/model"
	"content-studio/internal/domain/ports/adapter"
	"content-studio/internal/domain/ports/repository"
	"content-studio/internal/domain/ports/usecase"
	"content-studio/internal/infra/logging"
	"content-studio/internal/infra/metrics"
)

// Generators resolves the collaborator for a job type.
type Generators interface {
	For(t model.JobType) (adapter.Generator, bool)
}

type DispatcherConfig struct {
	PollInterval      time.Duration
	BatchSize         int
	GenerationTimeout time.Duration
}

// Dispatcher pulls pending jobs and drives each through
// Start -> generate -> Complete|Fail. Generator errors never escape; they
// become the job's failed state.
type Dispatcher struct {
	jobs       repository.JobRepository
	lifecycle  usecase.JobLifecycle
	generators Generators
	cfg        DispatcherConfig
	log        *zerolog.Logger

	mu       sync.Mutex
	inflight map[string]struct{}
}

func NewDispatcher(
	jobs repository.JobRepository,
	lifecycle usecase.JobLifecycle,
	generators Generators,
	cfg DispatcherConfig,
	logger *zerolog.Logger,
) *Dispatcher {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 500 * time.Millisecond
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 8
	}
	if cfg.GenerationTimeout <= 0 {
		cfg.GenerationTimeout = 10 * time.Minute
	}
	l := logger.With().Str("component", "Dispatcher").Logger()
	return &Dispatcher{
		jobs:       jobs,
		lifecycle:  lifecycle,
		generators: generators,
		cfg:        cfg,
		log:        &l,
		inflight:   map[string]struct{}{},
	}
}

// Start polls for pending jobs until ctx is done. Run it in a goroutine.
func (d *Dispatcher) Start(ctx context.Context, pool *Pool) {
	d.log.Info().Dur("poll_interval", d.cfg.PollInterval).Msg("dispatcher started")
	ticker := time.NewTicker(d.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.log.Info().Msg("dispatcher stopping")
			return
		case <-ticker.C:
			d.Tick(ctx, pool)
		}
	}
}

// Tick submits one batch of pending jobs. Jobs already queued or running on
// this instance are skipped; other instances are arbitrated by Start.
func (d *Dispatcher) Tick(ctx context.Context, pool *Pool) int {
	ids, err := d.jobs.ListPendingIDs(ctx, repository.NoTX, d.cfg.BatchSize)
	if err != nil {
		d.log.Error().Err(err).Msg("list pending jobs")
		return 0
	}
	submitted := 0
	for _, id := range ids {
		if !d.claim(id) {
			continue
		}
		jobID := id
		if err := pool.Submit(func(ctx context.Context) error {
			defer d.release(jobID)
			d.Process(ctx, jobID)
			return nil
		}); err != nil {
			d.release(jobID)
			if errors.Is(err, ErrQueueFull) {
				d.log.Debug().Msg("pool saturated, deferring remaining jobs")
				break
			}
			d.log.Error().Err(err).Str("job_id", jobID).Msg("submit")
			continue
		}
		submitted++
	}
	return submitted
}

func (d *Dispatcher) claim(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.inflight[id]; ok {
		return false
	}
	d.inflight[id] = struct{}{}
	return true
}

func (d *Dispatcher) release(id string) {
	d.mu.Lock()
	delete(d.inflight, id)
	d.mu.Unlock()
}

// Process runs a single job to a terminal state. It is a no-op when another
// worker already started the job.
func (d *Dispatcher) Process(ctx context.Context, jobID string) {
	ctx = logging.WithJobID(ctx, jobID)
	job, err := d.lifecycle.Start(ctx, jobID)
	if err != nil {
		if !errors.Is(err, domain.ErrInvalidTransition) {
			d.log.Error().Err(err).Str("job_id", jobID).Msg("start job")
		}
		return
	}

	// Final transitions must land even when ctx is cancelled by shutdown.
	finishCtx := context.WithoutCancel(ctx)

	gen, ok := d.generators.For(job.Type)
	if !ok {
		d.fail(finishCtx, job, fmt.Sprintf("%s: %s", domain.ErrNoGenerator, job.Type))
		return
	}

	d.log.Info().Str("job_id", job.ID).Str("type", string(job.Type)).Str("target", job.TargetID()).Msg("generating")
	began := time.Now()
	result, err := d.generate(ctx, gen, job)
	metrics.ObserveGeneration(string(job.Type), time.Since(began), err == nil)
	if err != nil {
		d.fail(finishCtx, job, err.Error())
		return
	}

	if _, err := d.lifecycle.Complete(finishCtx, job.ID, result); err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidTransition):
			// the reaper or another path already finished it
		case errors.Is(err, domain.ErrInvalidArgument):
			d.fail(finishCtx, job, fmt.Sprintf("%s: %v", domain.ErrGenerationFailed, err))
		default:
			d.log.Error().Err(err).Str("job_id", job.ID).Msg("complete job")
		}
	}
}

// generate calls the collaborator under the generation deadline and turns
// timeouts, cancellation and panics into errors.
func (d *Dispatcher) generate(ctx context.Context, gen adapter.Generator, job *model.Job) (res model.Result, err error) {
	gctx, cancel := context.WithTimeout(ctx, d.cfg.GenerationTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			d.log.Error().Interface("panic", r).Str("job_id", job.ID).Msg("generator panicked")
			res, err = nil, fmt.Errorf("%w: generator panic: %v", domain.ErrGenerationFailed, r)
		}
	}()

	res, err = gen.Generate(gctx, job)
	switch {
	case errors.Is(gctx.Err(), context.DeadlineExceeded) && ctx.Err() == nil:
		return nil, fmt.Errorf("%w after %s", domain.ErrGenerationTimeout, d.cfg.GenerationTimeout)
	case ctx.Err() != nil:
		return nil, fmt.Errorf("%w: interrupted by shutdown", domain.ErrGenerationFailed)
	case err != nil:
		return nil, err
	case res == nil:
		return nil, fmt.Errorf("%w: empty result", domain.ErrGenerationFailed)
	}
	return res, nil
}

func (d *Dispatcher) fail(ctx context.Context, job *model.Job, reason string) {
	if _, err := d.lifecycle.Fail(ctx, job.ID, reason); err != nil && !errors.Is(err, domain.ErrInvalidTransition) {
		d.log.Error().Err(err).Str("job_id", job.ID).Msg("fail job")
	}
}
