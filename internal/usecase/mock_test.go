//go:build !integration

package usecase_test

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"content-studio/internal/domain/model"
	"content-studio/internal/domain/ports/adapter"
	"content-studio/internal/domain/ports/repository"
	ucport "content-studio/internal/domain/ports/usecase"
	"content-studio/internal/infra/db/memory"
)

// -----------------------------
// Utilities: tiny helpers
// -----------------------------

func now() time.Time { return time.Now().Truncate(time.Millisecond) }

func nopLogger() *zerolog.Logger { l := zerolog.Nop(); return &l }

// =============================
// Adapters
// =============================

// ---- Mock EventPublisher ----

type MockPublisher struct {
	mu     sync.Mutex
	Events []model.Event

	PublishFunc func(ctx context.Context, ev model.Event)
}

var _ adapter.EventPublisher = (*MockPublisher)(nil)

func (m *MockPublisher) Publish(ctx context.Context, ev model.Event) {
	if m.PublishFunc != nil {
		m.PublishFunc(ctx, ev)
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, ev)
}

func (m *MockPublisher) Kinds() []model.EventKind {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.EventKind, len(m.Events))
	for i, ev := range m.Events {
		out[i] = ev.Kind
	}
	return out
}

// Count returns how many published events have the given kind.
func (m *MockPublisher) Count(kind model.EventKind) int {
	n := 0
	for _, k := range m.Kinds() {
		if k == kind {
			n++
		}
	}
	return n
}

// Last returns the most recent event of the given kind.
func (m *MockPublisher) Last(kind model.EventKind) model.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.Events) - 1; i >= 0; i-- {
		if m.Events[i].Kind == kind {
			return m.Events[i]
		}
	}
	return model.Event{}
}

// ---- Mock ActivityRecorder ----

type MockActivity struct {
	mu      sync.Mutex
	Entries []*model.Activity

	RecordFunc func(ctx context.Context, a *model.Activity) error
}

var _ ucport.ActivityRecorder = (*MockActivity)(nil)

func (m *MockActivity) Record(ctx context.Context, a *model.Activity) error {
	if m.RecordFunc != nil {
		return m.RecordFunc(ctx, a)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Entries = append(m.Entries, a)
	return nil
}

func (m *MockActivity) Actions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.Entries))
	for i, a := range m.Entries {
		out[i] = a.Action
	}
	return out
}

// =============================
// Repositories
// =============================

// ---- Mock EntityRepository ----
// Delegates to the in-memory repo unless a Func override is set.

type MockEntityRepo struct {
	*memory.EntityRepo

	FindByIDFunc func(ctx context.Context, tx repository.Tx, t model.EntityType, id string) (*model.Entity, error)
	SaveFunc     func(ctx context.Context, tx repository.Tx, e *model.Entity) error
}

var _ repository.EntityRepository = (*MockEntityRepo)(nil)

func NewMockEntityRepo() *MockEntityRepo {
	return &MockEntityRepo{EntityRepo: memory.NewEntityRepo()}
}

func (m *MockEntityRepo) FindByID(ctx context.Context, tx repository.Tx, t model.EntityType, id string) (*model.Entity, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, tx, t, id)
	}
	return m.EntityRepo.FindByID(ctx, tx, t, id)
}

func (m *MockEntityRepo) Save(ctx context.Context, tx repository.Tx, e *model.Entity) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, tx, e)
	}
	return m.EntityRepo.Save(ctx, tx, e)
}

// =============================
// Fixture
// =============================

type fixture struct {
	jobs     *memory.JobRepo
	entities *MockEntityRepo
	tm       *memory.TxManager
	events   *MockPublisher
	activity *MockActivity
}

func newFixture() *fixture {
	return &fixture{
		jobs:     memory.NewJobRepo(),
		entities: NewMockEntityRepo(),
		tm:       memory.NewTxManager(),
		events:   &MockPublisher{},
		activity: &MockActivity{},
	}
}

// entity stores a fresh entity of type t owned by owner.
func (f *fixture) entity(t model.EntityType, owner string) *model.Entity {
	e, err := model.NewEntity(t, owner, "fixture", now())
	if err != nil {
		panic(err)
	}
	if err := f.entities.EntityRepo.Save(context.Background(), repository.NoTX, e); err != nil {
		panic(err)
	}
	return e
}
