//go:build !integration

package cached

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"content-studio/internal/cachesync"
	"content-studio/internal/domain/model"
	"content-studio/internal/domain/ports/repository"
	"content-studio/internal/infra/db/memory"
)

type countingJobs struct {
	*memory.JobRepo
	finds int
}

func (c *countingJobs) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Job, error) {
	c.finds++
	return c.JobRepo.FindByID(ctx, tx, id)
}

func TestJobRepo_CachesTerminalJobsOnly(t *testing.T) {
	ctx := context.Background()
	inner := &countingJobs{JobRepo: memory.NewJobRepo()}
	store := cachesync.NewMemoryStore()
	repo := NewJobRepo(inner, store, time.Minute)

	job, _ := model.NewJob(model.InfographicPayload{InfographicID: "inf_1", UserID: "u1"}, "u1", time.Now())
	if _, _, err := inner.CreateIfAbsent(ctx, repository.NoTX, job); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 2; i++ {
		if _, err := repo.FindByID(ctx, repository.NoTX, job.ID); err != nil {
			t.Fatal(err)
		}
	}
	if inner.finds != 2 {
		t.Fatalf("pending job must not be cached, inner finds=%d", inner.finds)
	}

	_ = job.Start(time.Now())
	_ = inner.UpdateIf(ctx, repository.NoTX, job, model.JobStatusPending)
	_ = job.Complete(model.InfographicResult{ImageURL: "https://cdn/i.png"}, time.Now())
	_ = inner.UpdateIf(ctx, repository.NoTX, job, model.JobStatusRunning)

	inner.finds = 0
	for i := 0; i < 3; i++ {
		got, err := repo.FindByID(ctx, repository.NoTX, job.ID)
		if err != nil {
			t.Fatal(err)
		}
		if r, ok := got.Result.(model.InfographicResult); !ok || r.ImageURL != "https://cdn/i.png" {
			t.Fatalf("cached result lost: %+v", got.Result)
		}
	}
	if inner.finds != 1 {
		t.Fatalf("terminal job should be read once, got %d", inner.finds)
	}
}

func TestEntityRepo_InvalidatedByRoutedEvents(t *testing.T) {
	ctx := context.Background()
	inner := memory.NewEntityRepo()
	store := cachesync.NewMemoryStore()
	repo := NewEntityRepo(inner, store, time.Minute)
	log := zerolog.Nop()
	inv := cachesync.NewStoreInvalidator(store, &log)

	e, _ := model.NewEntity(model.EntityPodcast, "u1", "ep 1", time.Now())
	if err := repo.Save(ctx, repository.NoTX, e); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.FindByID(ctx, repository.NoTX, model.EntityPodcast, e.ID); err != nil {
		t.Fatal(err)
	}
	if list, _ := repo.ListByOwner(ctx, repository.NoTX, model.EntityPodcast, "u1", 50); len(list) != 1 {
		t.Fatalf("expected one listed podcast, got %d", len(list))
	}

	// another instance changes the entity behind our back
	changed := *e
	changed.Status = model.EntityStatusReady
	_ = inner.Save(ctx, repository.NoTX, &changed)

	if got, _ := repo.FindByID(ctx, repository.NoTX, model.EntityPodcast, e.ID); got.Status != model.EntityStatusDraft {
		t.Fatalf("expected stale cached status before invalidation, got %s", got.Status)
	}

	ev := model.Event{Kind: model.EventJobCompletion, JobType: model.JobGeneratePodcast, PodcastID: e.ID, JobID: "job_1"}
	if err := inv.Invalidate(ctx, cachesync.Route(ev)); err != nil {
		t.Fatal(err)
	}

	if got, _ := repo.FindByID(ctx, repository.NoTX, model.EntityPodcast, e.ID); got.Status != model.EntityStatusReady {
		t.Errorf("detail not invalidated, status %s", got.Status)
	}
	if len(store.Keys()) != 1 {
		t.Errorf("list variant should have been dropped, keys=%v", store.Keys())
	}
}

func TestEntityRepo_SaveEvictsLocally(t *testing.T) {
	ctx := context.Background()
	store := cachesync.NewMemoryStore()
	repo := NewEntityRepo(memory.NewEntityRepo(), store, time.Minute)

	e, _ := model.NewEntity(model.EntityDocument, "u1", "draft", time.Now())
	_ = repo.Save(ctx, repository.NoTX, e)
	_, _ = repo.ListByOwner(ctx, repository.NoTX, model.EntityDocument, "", 10)
	_, _ = repo.FindByID(ctx, repository.NoTX, model.EntityDocument, e.ID)

	e.Title = "final"
	if err := repo.Save(ctx, repository.NoTX, e); err != nil {
		t.Fatal(err)
	}
	if n := len(store.Keys()); n != 0 {
		t.Fatalf("save should evict detail and lists, %d keys left", n)
	}
	got, _ := repo.FindByID(ctx, repository.NoTX, model.EntityDocument, e.ID)
	if got.Title != "final" {
		t.Errorf("title %q", got.Title)
	}
}
