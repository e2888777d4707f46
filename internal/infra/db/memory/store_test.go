//go:build !integration

package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"content-studio/internal/domain"
	"content-studio/internal/domain/model"
)

func newPodcastJob(t *testing.T, target string) *model.Job {
	t.Helper()
	j, err := model.NewJob(model.PodcastPayload{PodcastID: target, UserID: "u1"}, "u1", time.Now())
	if err != nil {
		t.Fatalf("NewJob: %v", err)
	}
	return j
}

func TestJobRepo_CreateIfAbsent(t *testing.T) {
	ctx := context.Background()

	t.Run("concurrent creates collapse to one job", func(t *testing.T) {
		repo := NewJobRepo()
		const n = 16
		ids := make([]string, n)
		created := make([]bool, n)
		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				got, ok, err := repo.CreateIfAbsent(ctx, nil, newPodcastJob(t, "pod_1"))
				if err != nil {
					t.Errorf("CreateIfAbsent: %v", err)
					return
				}
				ids[i], created[i] = got.ID, ok
			}(i)
		}
		wg.Wait()

		creators := 0
		for i := range ids {
			if ids[i] != ids[0] {
				t.Fatalf("expected one job id, got %s and %s", ids[0], ids[i])
			}
			if created[i] {
				creators++
			}
		}
		if creators != 1 {
			t.Errorf("expected exactly one creator, got %d", creators)
		}
	})

	t.Run("terminal job frees the slot", func(t *testing.T) {
		repo := NewJobRepo()
		first, _, _ := repo.CreateIfAbsent(ctx, nil, newPodcastJob(t, "pod_2"))
		_ = first.Start(time.Now())
		if err := repo.UpdateIf(ctx, nil, first, model.JobStatusPending); err != nil {
			t.Fatalf("start: %v", err)
		}
		_ = first.Fail("boom", time.Now())
		if err := repo.UpdateIf(ctx, nil, first, model.JobStatusRunning); err != nil {
			t.Fatalf("fail: %v", err)
		}

		second, created, err := repo.CreateIfAbsent(ctx, nil, newPodcastJob(t, "pod_2"))
		if err != nil || !created || second.ID == first.ID {
			t.Fatalf("expected a new job after failure, got %v created=%v err=%v", second, created, err)
		}
		if _, err := repo.FindActive(ctx, nil, model.EntityPodcast, "pod_2"); err != nil {
			t.Errorf("FindActive: %v", err)
		}
	})
}

func TestJobRepo_UpdateIfRejectsStaleStatus(t *testing.T) {
	ctx := context.Background()
	repo := NewJobRepo()
	j, _, _ := repo.CreateIfAbsent(ctx, nil, newPodcastJob(t, "pod_3"))

	a, b := j.Clone(), j.Clone()
	_ = a.Start(time.Now())
	_ = b.Start(time.Now())
	if err := repo.UpdateIf(ctx, nil, a, model.JobStatusPending); err != nil {
		t.Fatalf("first start: %v", err)
	}
	if err := repo.UpdateIf(ctx, nil, b, model.JobStatusPending); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("second start should lose, got %v", err)
	}
	if err := repo.UpdateIf(ctx, nil, newPodcastJob(t, "x"), model.JobStatusPending); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("unknown job: expected ErrNotFound, got %v", err)
	}
}

func TestJobRepo_Listings(t *testing.T) {
	ctx := context.Background()
	repo := NewJobRepo()
	old := newPodcastJob(t, "pod_a")
	old.CreatedAt = time.Now().Add(-time.Hour)
	_, _, _ = repo.CreateIfAbsent(ctx, nil, old)
	_, _, _ = repo.CreateIfAbsent(ctx, nil, newPodcastJob(t, "pod_b"))

	ids, _ := repo.ListPendingIDs(ctx, nil, 1)
	if len(ids) != 1 || ids[0] != old.ID {
		t.Fatalf("expected oldest pending first, got %v", ids)
	}

	running := old.Clone()
	_ = running.Start(time.Now().Add(-30 * time.Minute))
	_ = repo.UpdateIf(ctx, nil, running, model.JobStatusPending)
	stale, _ := repo.ListStaleRunning(ctx, nil, time.Now().Add(-10*time.Minute), 10)
	if len(stale) != 1 || stale[0] != old.ID {
		t.Fatalf("expected stale running job, got %v", stale)
	}

	counts, _ := repo.CountByStatus(ctx, nil)
	if counts[model.JobStatusPending] != 1 || counts[model.JobStatusRunning] != 1 {
		t.Errorf("unexpected counts %v", counts)
	}
}

func TestEntityRepo(t *testing.T) {
	ctx := context.Background()
	repo := NewEntityRepo()
	e, _ := model.NewEntity(model.EntityVoiceover, "u1", "intro", time.Now())
	if err := repo.Save(ctx, nil, e); err != nil {
		t.Fatalf("Save: %v", err)
	}
	other, _ := model.NewEntity(model.EntityVoiceover, "u2", "outro", time.Now())
	_ = repo.Save(ctx, nil, other)

	mine, _ := repo.ListByOwner(ctx, nil, model.EntityVoiceover, "u1", 10)
	if len(mine) != 1 || mine[0].ID != e.ID {
		t.Errorf("unexpected owner list %v", mine)
	}
	all, _ := repo.ListByOwner(ctx, nil, model.EntityVoiceover, "", 10)
	if len(all) != 2 {
		t.Errorf("expected 2 entities, got %d", len(all))
	}
	if _, err := repo.FindByID(ctx, nil, model.EntityPodcast, e.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("type mismatch must be NotFound, got %v", err)
	}
	if err := repo.Delete(ctx, nil, model.EntityVoiceover, e.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := repo.Delete(ctx, nil, model.EntityVoiceover, e.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("double delete: expected NotFound, got %v", err)
	}
}

func TestActivityRepo_NewestFirst(t *testing.T) {
	ctx := context.Background()
	repo := NewActivityRepo()
	for _, action := range []string{"a", "b", "c"} {
		_ = repo.Save(ctx, nil, model.NewActivity("u1", action, "", "", "", "", time.Now()))
	}
	got, _ := repo.ListRecent(ctx, nil, 2)
	if len(got) != 2 || got[0].Action != "c" || got[1].Action != "b" {
		t.Errorf("unexpected order %v", got)
	}
}
