//go:build integration

package postgres

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v4"

	"content-studio/internal/domain"
	"content-studio/internal/domain/model"
	"content-studio/internal/domain/ports/repository"
)

func newPodcastJob(t *testing.T, podcastID string) *model.Job {
	t.Helper()
	j, err := model.NewJob(model.PodcastPayload{PodcastID: podcastID, UserID: "u1"}, "u1", time.Now())
	if err != nil {
		t.Fatalf("NewJob: %v", err)
	}
	return j
}

func TestJobRepo_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode.")
	}
	ctx := context.Background()
	repo := NewJobRepo(testPool)

	t.Run("should create once per active target", func(t *testing.T) {
		cleanup(t)
		first := newPodcastJob(t, "pod_a")
		got, created, err := repo.CreateIfAbsent(ctx, repository.NoTX, first)
		if err != nil || !created || got.ID != first.ID {
			t.Fatalf("first create: got=%v created=%v err=%v", got, created, err)
		}

		// a script job shares the podcast scope
		second, _ := model.NewJob(model.ScriptPayload{PodcastID: "pod_a", UserID: "u2"}, "u2", time.Now())
		got, created, err = repo.CreateIfAbsent(ctx, repository.NoTX, second)
		if err != nil || created || got.ID != first.ID {
			t.Fatalf("second create should join %s: got=%v created=%v err=%v", first.ID, got, created, err)
		}
		if _, ok := got.Payload.(model.PodcastPayload); !ok {
			t.Errorf("payload decoded as %T", got.Payload)
		}
	})

	t.Run("should resolve concurrent enqueues to one row", func(t *testing.T) {
		cleanup(t)
		var (
			wg      sync.WaitGroup
			mu      sync.Mutex
			ids     = map[string]int{}
			creates int
		)
		for i := 0; i < 8; i++ {
			candidate := newPodcastJob(t, "pod_race")
			wg.Add(1)
			go func() {
				defer wg.Done()
				j, created, err := repo.CreateIfAbsent(ctx, repository.NoTX, candidate)
				if err != nil {
					t.Errorf("CreateIfAbsent: %v", err)
					return
				}
				mu.Lock()
				ids[j.ID]++
				if created {
					creates++
				}
				mu.Unlock()
			}()
		}
		wg.Wait()
		if len(ids) != 1 || creates != 1 {
			t.Fatalf("expected one job and one creator, got ids=%v creates=%d", ids, creates)
		}
	})

	t.Run("should update only from the expected status", func(t *testing.T) {
		cleanup(t)
		job := newPodcastJob(t, "pod_b")
		if _, _, err := repo.CreateIfAbsent(ctx, repository.NoTX, job); err != nil {
			t.Fatal(err)
		}
		if err := job.Start(time.Now()); err != nil {
			t.Fatal(err)
		}
		if err := repo.UpdateIf(ctx, repository.NoTX, job, model.JobStatusPending); err != nil {
			t.Fatalf("start: %v", err)
		}
		if err := repo.UpdateIf(ctx, repository.NoTX, job, model.JobStatusPending); !errors.Is(err, domain.ErrInvalidTransition) {
			t.Fatalf("stale update: expected ErrInvalidTransition, got %v", err)
		}

		if err := job.Complete(model.PodcastResult{Script: "s", AudioURL: "https://cdn/a.mp3", Duration: 60}, time.Now()); err != nil {
			t.Fatal(err)
		}
		if err := repo.UpdateIf(ctx, repository.NoTX, job, model.JobStatusRunning); err != nil {
			t.Fatalf("complete: %v", err)
		}

		got, err := repo.FindByID(ctx, repository.NoTX, job.ID)
		if err != nil {
			t.Fatal(err)
		}
		res, ok := got.Result.(model.PodcastResult)
		if got.Status != model.JobStatusCompleted || !ok || res.Duration != 60 || got.CompletedAt == nil {
			t.Fatalf("unexpected stored job %+v", got)
		}

		// the slot is free again
		if _, created, err := repo.CreateIfAbsent(ctx, repository.NoTX, newPodcastJob(t, "pod_b")); err != nil || !created {
			t.Fatalf("re-enqueue after completion: created=%v err=%v", created, err)
		}
	})

	t.Run("should report missing jobs", func(t *testing.T) {
		cleanup(t)
		if _, err := repo.FindByID(ctx, repository.NoTX, "job_missing"); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
		ghost := newPodcastJob(t, "pod_ghost")
		if err := repo.UpdateIf(ctx, repository.NoTX, ghost, model.JobStatusPending); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("should list pending, stale and per-target jobs", func(t *testing.T) {
		cleanup(t)
		a, b := newPodcastJob(t, "pod_1"), newPodcastJob(t, "pod_2")
		for _, j := range []*model.Job{a, b} {
			if _, _, err := repo.CreateIfAbsent(ctx, repository.NoTX, j); err != nil {
				t.Fatal(err)
			}
		}
		_ = b.Start(time.Now().Add(-time.Hour))
		if err := repo.UpdateIf(ctx, repository.NoTX, b, model.JobStatusPending); err != nil {
			t.Fatal(err)
		}

		pending, _ := repo.ListPendingIDs(ctx, repository.NoTX, 10)
		if len(pending) != 1 || pending[0] != a.ID {
			t.Errorf("pending: %v", pending)
		}
		stale, _ := repo.ListStaleRunning(ctx, repository.NoTX, time.Now().Add(-30*time.Minute), 10)
		if len(stale) != 1 || stale[0] != b.ID {
			t.Errorf("stale: %v", stale)
		}
		byTarget, _ := repo.ListByTarget(ctx, repository.NoTX, model.EntityPodcast, "pod_2", 5)
		if len(byTarget) != 1 || byTarget[0].ID != b.ID {
			t.Errorf("by target: %v", byTarget)
		}
		counts, _ := repo.CountByStatus(ctx, repository.NoTX)
		if counts[model.JobStatusPending] != 1 || counts[model.JobStatusRunning] != 1 {
			t.Errorf("counts: %v", counts)
		}
	})

	t.Run("should roll back with the transaction", func(t *testing.T) {
		cleanup(t)
		tm := NewTxManager(testPool)
		job := newPodcastJob(t, "pod_tx")
		boom := errors.New("boom")
		err := tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
			if _, _, err := repo.CreateIfAbsent(ctx, tx, job); err != nil {
				return err
			}
			return boom
		})
		if !errors.Is(err, boom) {
			t.Fatalf("expected boom, got %v", err)
		}
		if _, err := repo.FindByID(ctx, repository.NoTX, job.ID); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("job survived rollback: %v", err)
		}
	})
}
