package mocks

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/nudge-api/internal/domain"
	"github.com/phrazzld/nudge-api/internal/store"
)

// MockTaskStore is an in-memory store.TaskStore with compare-and-set
// semantics matching the Postgres implementation. Any ...Fn field that is
// set replaces the default behavior of that method.
type MockTaskStore struct {
	mu    sync.Mutex
	tasks map[uuid.UUID]*domain.Task

	InsertFn            func(ctx context.Context, task *domain.Task) error
	FindDueFn           func(ctx context.Context, now time.Time, limit int) ([]*domain.Task, error)
	ConditionalUpdateFn func(ctx context.Context, id uuid.UUID, expected domain.Status, patch domain.TaskPatch) (bool, error)

	writes int
}

// NewMockTaskStore creates an empty store seeded with tasks.
func NewMockTaskStore(tasks ...*domain.Task) *MockTaskStore {
	m := &MockTaskStore{tasks: make(map[uuid.UUID]*domain.Task)}
	for _, t := range tasks {
		cp := *t
		m.tasks[t.ID] = &cp
	}
	return m
}

// Insert implements store.TaskStore.
func (m *MockTaskStore) Insert(ctx context.Context, task *domain.Task) error {
	if m.InsertFn != nil {
		return m.InsertFn(ctx, task)
	}
	if err := task.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tasks[task.ID]; ok {
		return store.ErrDuplicate
	}
	cp := *task
	m.tasks[task.ID] = &cp
	return nil
}

// Get implements store.TaskStore.
func (m *MockTaskStore) Get(ctx context.Context, owner, id uuid.UUID) (*domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok || t.Owner != owner {
		return nil, store.ErrTaskNotFound
	}
	cp := *t
	return &cp, nil
}

// ListByOwner implements store.TaskStore, newest first.
func (m *MockTaskStore) ListByOwner(ctx context.Context, owner uuid.UUID) ([]*domain.Task, error) {
	out := m.filter(func(t *domain.Task) bool { return t.Owner == owner })
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID.String() > out[j].ID.String()
	})
	return out, nil
}

// FindDue implements store.TaskStore.
func (m *MockTaskStore) FindDue(ctx context.Context, now time.Time, limit int) ([]*domain.Task, error) {
	if m.FindDueFn != nil {
		return m.FindDueFn(ctx, now, limit)
	}
	out := m.filter(func(t *domain.Task) bool { return t.IsDue(now) })
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		switch {
		case a.ScheduledFor == nil && b.ScheduledFor != nil:
			return true
		case a.ScheduledFor != nil && b.ScheduledFor == nil:
			return false
		case a.ScheduledFor != nil && !a.ScheduledFor.Equal(*b.ScheduledFor):
			return a.ScheduledFor.Before(*b.ScheduledFor)
		case !a.CreatedAt.Equal(b.CreatedAt):
			return a.CreatedAt.Before(b.CreatedAt)
		default:
			return a.ID.String() < b.ID.String()
		}
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// FindStale implements store.TaskStore.
func (m *MockTaskStore) FindStale(ctx context.Context, owner uuid.UUID, cutoff time.Time) ([]*domain.Task, error) {
	return m.filter(func(t *domain.Task) bool {
		return t.Owner == owner && t.Status == domain.StatusRunning && t.StartedAt != nil && t.StartedAt.Before(cutoff)
	}), nil
}

// ConditionalUpdate implements store.TaskStore. The check and the write
// happen under one lock.
func (m *MockTaskStore) ConditionalUpdate(
	ctx context.Context,
	id uuid.UUID,
	expected domain.Status,
	patch domain.TaskPatch,
) (bool, error) {
	if m.ConditionalUpdateFn != nil {
		return m.ConditionalUpdateFn(ctx, id, expected, patch)
	}
	if !domain.CanTransition(expected, patch.Status) {
		return false, fmt.Errorf("%w: %s -> %s", domain.ErrIllegalTransition, expected, patch.Status)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok || t.Status != expected {
		return false, nil
	}
	next, err := t.Apply(patch)
	if err != nil {
		return false, err
	}
	m.tasks[id] = next
	m.writes++
	return true, nil
}

// Task returns a copy of the stored task, or nil.
func (m *MockTaskStore) Task(id uuid.UUID) *domain.Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return nil
	}
	cp := *t
	return &cp
}

// WriteCount returns the number of applied conditional updates.
func (m *MockTaskStore) WriteCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

func (m *MockTaskStore) filter(keep func(*domain.Task) bool) []*domain.Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.Task, 0)
	for _, t := range m.tasks {
		if keep(t) {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out
}

var _ store.TaskStore = (*MockTaskStore)(nil)
