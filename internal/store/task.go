package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/nudge-api/internal/domain"
)

// TaskStore defines the interface for task persistence.
//
// Every status change goes through ConditionalUpdate, which must be a single
// atomic compare-and-set against the expected prior status.
type TaskStore interface {
	// Insert saves a new task. The task must be pending and valid.
	Insert(ctx context.Context, task *domain.Task) error

	// Get retrieves one task scoped to owner.
	// Returns ErrTaskNotFound if the task does not exist or belongs to someone else.
	Get(ctx context.Context, owner, id uuid.UUID) (*domain.Task, error)

	// ListByOwner returns all tasks of owner, newest-created first.
	ListByOwner(ctx context.Context, owner uuid.UUID) ([]*domain.Task, error)

	// FindDue returns pending tasks whose scheduledFor is unset or <= now,
	// ordered by scheduledFor ascending (unset first), then createdAt, then id.
	// A limit <= 0 means no limit.
	FindDue(ctx context.Context, now time.Time, limit int) ([]*domain.Task, error)

	// ConditionalUpdate applies patch to the task only if its current status
	// equals expected. It reports whether the update was applied.
	ConditionalUpdate(
		ctx context.Context,
		id uuid.UUID,
		expected domain.Status,
		patch domain.TaskPatch,
	) (bool, error)

	// FindStale returns owner's running tasks whose startedAt is before cutoff.
	FindStale(ctx context.Context, owner uuid.UUID, cutoff time.Time) ([]*domain.Task, error)
}
