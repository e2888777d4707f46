//go:build !integration

package worker_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"content-studio/internal/domain/model"
	"content-studio/internal/domain/ports/adapter"
	"content-studio/internal/domain/ports/repository"
	"content-studio/internal/infra/db/memory"
	"content-studio/internal/infra/events"
	"content-studio/internal/infra/worker"
	"content-studio/internal/usecase"
)

func nopLogger() *zerolog.Logger { l := zerolog.Nop(); return &l }

type generatorMap map[model.JobType]adapter.Generator

func (m generatorMap) For(t model.JobType) (adapter.Generator, bool) {
	g, ok := m[t]
	return g, ok
}

type harness struct {
	jobs     *memory.JobRepo
	entities *memory.EntityRepo
	uc       usecase.JobUseCase
	bus      *events.Bus
	sub      *events.Subscription
}

func newHarness() *harness {
	h := &harness{jobs: memory.NewJobRepo(), entities: memory.NewEntityRepo(), bus: events.NewBus(16, nopLogger())}
	h.sub = h.bus.Subscribe("test", func(ev model.Event) bool { return ev.Kind.IsCompletion() })
	h.uc = usecase.NewJobUseCase(h.jobs, h.entities, memory.NewTxManager(), h.bus, nil, nopLogger())
	return h
}

func (h *harness) enqueueDocument(t *testing.T) *model.Job {
	t.Helper()
	e, _ := model.NewEntity(model.EntityDocument, "u1", "doc", time.Now())
	_ = h.entities.Save(context.Background(), repository.NoTX, e)
	job, _, err := h.uc.Enqueue(context.Background(), model.DocumentPayload{DocumentID: e.ID, UserID: "u1"}, "u1")
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	return job
}

func TestDispatcher_Process(t *testing.T) {
	ctx := context.Background()

	cases := []struct {
		name       string
		gen        adapter.Generator
		timeout    time.Duration
		wantStatus model.JobStatus
		wantErr    string
	}{
		{
			name: "success completes with result",
			gen: adapter.GeneratorFunc(func(context.Context, *model.Job) (model.Result, error) {
				return model.DocumentResult{Content: "hello world", WordCount: 2}, nil
			}),
			wantStatus: model.JobStatusCompleted,
		},
		{
			name: "generator error fails the job",
			gen: adapter.GeneratorFunc(func(context.Context, *model.Job) (model.Result, error) {
				return nil, errors.New("llm unavailable")
			}),
			wantStatus: model.JobStatusFailed,
			wantErr:    "llm unavailable",
		},
		{
			name: "timeout fails the job",
			gen: adapter.GeneratorFunc(func(ctx context.Context, _ *model.Job) (model.Result, error) {
				<-ctx.Done()
				return nil, ctx.Err()
			}),
			timeout:    20 * time.Millisecond,
			wantStatus: model.JobStatusFailed,
			wantErr:    "timed out",
		},
		{
			name: "wrong result type fails the job",
			gen: adapter.GeneratorFunc(func(context.Context, *model.Job) (model.Result, error) {
				return model.InfographicResult{ImageURL: "x"}, nil
			}),
			wantStatus: model.JobStatusFailed,
			wantErr:    "generation failed",
		},
		{
			name: "panic fails the job",
			gen: adapter.GeneratorFunc(func(context.Context, *model.Job) (model.Result, error) {
				panic("nil map")
			}),
			wantStatus: model.JobStatusFailed,
			wantErr:    "panic",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness()
			job := h.enqueueDocument(t)
			d := worker.NewDispatcher(h.jobs, h.uc, generatorMap{model.JobGenerateDocument: tc.gen},
				worker.DispatcherConfig{GenerationTimeout: tc.timeout}, nopLogger())

			d.Process(ctx, job.ID)

			got, _ := h.uc.GetStatus(ctx, job.ID)
			if got.Status != tc.wantStatus {
				t.Fatalf("status: got %s, want %s (error %q)", got.Status, tc.wantStatus, got.Error)
			}
			if tc.wantErr != "" && !strings.Contains(got.Error, tc.wantErr) {
				t.Errorf("error %q does not mention %q", got.Error, tc.wantErr)
			}
			if (got.Result != nil) != (got.Status == model.JobStatusCompleted) {
				t.Errorf("result present iff completed violated: %+v", got)
			}

			select {
			case ev := <-h.sub.C():
				if ev.Kind != model.EventDocumentJobCompletion || ev.JobID != job.ID {
					t.Errorf("unexpected event %+v", ev)
				}
			default:
				t.Error("no completion event published")
			}
		})
	}
}

func TestDispatcher_MissingGeneratorFailsJob(t *testing.T) {
	h := newHarness()
	job := h.enqueueDocument(t)
	d := worker.NewDispatcher(h.jobs, h.uc, generatorMap{}, worker.DispatcherConfig{}, nopLogger())

	d.Process(context.Background(), job.ID)

	got, _ := h.uc.GetStatus(context.Background(), job.ID)
	if got.Status != model.JobStatusFailed || !strings.Contains(got.Error, "no generator") {
		t.Fatalf("unexpected job %+v", got)
	}
}

func TestDispatcher_TickRunsEachJobOnce(t *testing.T) {
	h := newHarness()
	var (
		mu    sync.Mutex
		calls = map[string]int{}
	)
	gen := adapter.GeneratorFunc(func(_ context.Context, j *model.Job) (model.Result, error) {
		mu.Lock()
		calls[j.ID]++
		mu.Unlock()
		return model.DocumentResult{Content: "ok", WordCount: 1}, nil
	})
	d := worker.NewDispatcher(h.jobs, h.uc, generatorMap{model.JobGenerateDocument: gen}, worker.DispatcherConfig{BatchSize: 10}, nopLogger())

	var ids []string
	for i := 0; i < 3; i++ {
		ids = append(ids, h.enqueueDocument(t).ID)
	}

	ctx, cancel := context.WithCancel(context.Background())
	pool := worker.NewPool(4, nopLogger())
	pool.Start(ctx)
	// two ticks back to back must not double-dispatch
	d.Tick(ctx, pool)
	d.Tick(ctx, pool)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		counts, _ := h.jobs.CountByStatus(ctx, repository.NoTX)
		if counts[model.JobStatusCompleted] == len(ids) {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	pool.Stop()

	for _, id := range ids {
		got, _ := h.uc.GetStatus(context.Background(), id)
		if got.Status != model.JobStatusCompleted {
			t.Errorf("job %s: status %s", id, got.Status)
		}
		mu.Lock()
		n := calls[id]
		mu.Unlock()
		if n != 1 {
			t.Errorf("job %s generated %d times", id, n)
		}
	}
}

func TestPool_SubmitWhenSaturated(t *testing.T) {
	pool := worker.NewPool(1, nopLogger())
	// not started: the queue only holds workers*4 tasks
	var err error
	for i := 0; i < 5 && err == nil; i++ {
		err = pool.Submit(func(context.Context) error { return nil })
	}
	if !errors.Is(err, worker.ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
	if err := pool.Submit(nil); err == nil {
		t.Fatal("nil task must be rejected")
	}
	pool.Stop()
	pool.Stop()
}
