package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// TaskFunc is one periodic unit of work.
type TaskFunc func(ctx context.Context) error

// Scheduler periodically runs a task with a bounded timeout per run.
type Scheduler struct {
	name     string
	interval time.Duration
	timeout  time.Duration
	task     TaskFunc
	log      *zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewScheduler runs task every interval. If interval <= 0 it defaults to 1 minute.
func NewScheduler(name string, interval time.Duration, task TaskFunc, logger *zerolog.Logger) *Scheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	timeout := 30 * time.Second
	if interval < timeout {
		timeout = interval
	}
	l := logger.With().Str("component", "Scheduler").Str("task", name).Logger()
	return &Scheduler{
		name:     name,
		interval: interval,
		timeout:  timeout,
		task:     task,
		log:      &l,
		done:     make(chan struct{}),
	}
}

// Start begins the loop in a background goroutine; calling Start again has no effect.
func (s *Scheduler) Start(parentCtx context.Context) {
	if s.ctx != nil {
		return
	}
	s.ctx, s.cancel = context.WithCancel(parentCtx)
	go s.loop()
}

func (s *Scheduler) loop() {
	ticker := time.NewTicker(s.interval)
	defer func() {
		ticker.Stop()
		close(s.done)
	}()

	s.log.Info().Dur("interval", s.interval).Msg("scheduler started")
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.runOnce()
		}
	}
}

func (s *Scheduler) runOnce() {
	runCtx, cancel := context.WithTimeout(s.ctx, s.timeout)
	defer cancel()
	if err := s.task(runCtx); err != nil {
		s.log.Error().Err(err).Msg("scheduled task failed")
	}
}

// Stop cancels the loop and waits for it to finish. It is idempotent.
func (s *Scheduler) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	s.ctx = nil
	s.cancel = nil
	s.done = make(chan struct{})
	s.log.Info().Msg("scheduler stopped")
}
