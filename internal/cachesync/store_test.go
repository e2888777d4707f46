//go:build !integration

package cachesync

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"content-studio/internal/domain/model"

	"github.com/rs/zerolog"
)

func nopLogger() *zerolog.Logger { l := zerolog.Nop(); return &l }

func seed(t *testing.T, s *MemoryStore, keys ...string) {
	t.Helper()
	for _, k := range keys {
		if err := s.Set(context.Background(), k, []byte("v"), time.Minute); err != nil {
			t.Fatalf("seed %s: %v", k, err)
		}
	}
}

func remaining(s *MemoryStore) []string {
	keys := s.Keys()
	sort.Strings(keys)
	return keys
}

func TestStoreInvalidator(t *testing.T) {
	ctx := context.Background()

	t.Run("insert removes detail, list and owner variants", func(t *testing.T) {
		store := NewMemoryStore()
		seed(t, store, "podcast-detail(pod_1)", "podcast-list:u1", "podcast-list:*", "podcast-detail(pod_2)", "admin-job-stats")
		inv := NewStoreInvalidator(store, nopLogger())

		ev := model.Event{Kind: model.EventEntityChange, EntityType: model.EntityPodcast, EntityID: "pod_1", ChangeType: model.ChangeInsert}
		if err := inv.Invalidate(ctx, Route(ev)); err != nil {
			t.Fatalf("Invalidate: %v", err)
		}
		got := remaining(store)
		want := []string{"admin-job-stats", "podcast-detail(pod_2)"}
		if !sameStrings(got, want) {
			t.Errorf("remaining keys: got %v, want %v", got, want)
		}
	})

	t.Run("activity clears the admin family and nothing else", func(t *testing.T) {
		store := NewMemoryStore()
		seed(t, store, "admin-job-stats", "admin-activity", "podcast-list:u1")
		inv := NewStoreInvalidator(store, nopLogger())

		if err := inv.Invalidate(ctx, Route(model.Event{Kind: model.EventActivityLogged})); err != nil {
			t.Fatalf("Invalidate: %v", err)
		}
		if got := remaining(store); !sameStrings(got, []string{"podcast-list:u1"}) {
			t.Errorf("remaining keys: %v", got)
		}
	})

	t.Run("duplicate delivery is harmless", func(t *testing.T) {
		store := NewMemoryStore()
		seed(t, store, "voiceover-detail(voc_7)", "voiceover-list:u1", "document-list:u1")
		inv := NewStoreInvalidator(store, nopLogger())
		route := Route(model.Event{Kind: model.EventVoiceoverJobCompletion, VoiceoverID: "voc_7"})

		for i := 0; i < 2; i++ {
			if err := inv.Invalidate(ctx, route); err != nil {
				t.Fatalf("Invalidate #%d: %v", i+1, err)
			}
			if got := remaining(store); !sameStrings(got, []string{"document-list:u1"}) {
				t.Errorf("after delivery #%d: %v", i+1, got)
			}
		}
	})
}

type failingStore struct{ *MemoryStore }

func (failingStore) DelPrefix(context.Context, string) (int, error) {
	return 0, errors.New("scan failed")
}

func TestStoreInvalidator_ReportsStoreErrors(t *testing.T) {
	inv := NewStoreInvalidator(failingStore{NewMemoryStore()}, nopLogger())
	if err := inv.Invalidate(context.Background(), Invalidation{Prefixes: []string{AdminPrefix}}); err == nil {
		t.Fatal("expected store error to be returned")
	}
}

func TestMemoryStoreExpiry(t *testing.T) {
	store := NewMemoryStore()
	base := time.Now()
	store.now = func() time.Time { return base }
	_ = store.Set(context.Background(), "k", []byte("v"), time.Second)

	if _, err := store.Get(context.Background(), "k"); err != nil {
		t.Fatalf("expected hit, got %v", err)
	}
	store.now = func() time.Time { return base.Add(2 * time.Second) }
	if _, err := store.Get(context.Background(), "k"); !errors.Is(err, ErrMiss) {
		t.Fatalf("expected ErrMiss after ttl, got %v", err)
	}
}

type recordingInvalidator struct {
	got []Invalidation
}

func (r *recordingInvalidator) Invalidate(_ context.Context, inv Invalidation) error {
	r.got = append(r.got, inv)
	return nil
}

func TestConsumer_SkipsEventsWithoutKeys(t *testing.T) {
	rec := &recordingInvalidator{}
	c := NewConsumer(rec, nopLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch := make(chan model.Event, 3)
	ch <- model.Event{Kind: "unknown"}
	ch <- model.Event{Kind: model.EventDocumentJobCompletion, DocumentID: "doc_1"}
	ch <- model.Event{Kind: model.EventActivityLogged}
	close(ch)

	c.Run(ctx, ch)

	if len(rec.got) != 2 {
		t.Fatalf("expected 2 invalidations, got %d", len(rec.got))
	}
	if keys := rec.got[0].KeyStrings(); !sameStrings(keys, []string{"document-detail(doc_1)", "document-list"}) {
		t.Errorf("unexpected first invalidation %v", keys)
	}
}
