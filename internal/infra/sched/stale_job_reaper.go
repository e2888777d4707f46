package sched

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"content-studio/internal/domain"
	"content-studio/internal/domain/ports/repository"
	"content-studio/internal/domain/ports/usecase"
	"content-studio/internal/infra/metrics"
)

// Locker serializes reaper ticks across instances. Optional.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, err error)
	Unlock(ctx context.Context, key, token string) error
}

const reaperLockKey = "lock:stale-job-reaper"

// StaleJobReaper fails jobs stuck in running longer than staleAfter, so a
// crashed worker never leaves an entity blocked for new enqueues.
type StaleJobReaper struct {
	jobs       repository.JobRepository
	lifecycle  usecase.JobLifecycle
	locker     Locker
	interval   time.Duration
	staleAfter time.Duration
	now        func() time.Time
	log        *zerolog.Logger
}

func NewStaleJobReaper(jobs repository.JobRepository, lifecycle usecase.JobLifecycle, locker Locker, interval, staleAfter time.Duration, logger *zerolog.Logger) *StaleJobReaper {
	if interval <= 0 {
		interval = time.Minute
	}
	if staleAfter <= 0 {
		staleAfter = 15 * time.Minute
	}
	l := logger.With().Str("component", "StaleJobReaper").Logger()
	return &StaleJobReaper{
		jobs:       jobs,
		lifecycle:  lifecycle,
		locker:     locker,
		interval:   interval,
		staleAfter: staleAfter,
		now:        time.Now,
		log:        &l,
	}
}

func (w *StaleJobReaper) Run(ctx context.Context) error {
	w.log.Info().Dur("stale_after", w.staleAfter).Msg("Starting stale job reaper")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping stale job reaper")
			return ctx.Err()
		case <-ticker.C:
			if _, err := w.Tick(ctx); err != nil {
				w.log.Error().Err(err).Msg("reaper tick")
			}
		}
	}
}

// Tick fails every stale running job and returns how many it reaped.
func (w *StaleJobReaper) Tick(ctx context.Context) (int, error) {
	if w.locker != nil {
		token, err := w.locker.TryLock(ctx, reaperLockKey, w.interval)
		if err != nil {
			w.log.Debug().Err(err).Msg("reaper lock not acquired, skipping tick")
			return 0, nil
		}
		defer func() { _ = w.locker.Unlock(context.WithoutCancel(ctx), reaperLockKey, token) }()
	}

	cutoff := w.now().Add(-w.staleAfter)
	ids, err := w.jobs.ListStaleRunning(ctx, repository.NoTX, cutoff, 200)
	if err != nil {
		return 0, err
	}
	reaped := 0
	reason := fmt.Sprintf("%s: no result within %s", domain.ErrGenerationTimeout, w.staleAfter)
	for _, id := range ids {
		if _, err := w.lifecycle.Fail(ctx, id, reason); err != nil {
			// the dispatcher may have finished it in the meantime
			w.log.Warn().Err(err).Str("job_id", id).Msg("could not reap job")
			continue
		}
		reaped++
	}
	if reaped > 0 {
		metrics.IncJobsReaped(reaped)
		w.log.Info().Int("count", reaped).Msg("stale jobs failed")
	}
	return reaped, nil
}
