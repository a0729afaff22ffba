package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/nudge-api/internal/domain"
)

// TaskOutcomeEvent is emitted once a task reaches a terminal status through
// the dispatch executor or a cancellation.
type TaskOutcomeEvent struct {
	// ID is a unique identifier for this event
	ID uuid.UUID `json:"id"`

	TaskID       uuid.UUID     `json:"taskId"`
	Owner        uuid.UUID     `json:"owner"`
	Kind         domain.Kind   `json:"kind"`
	Status       domain.Status `json:"status"`
	ErrorMessage *string       `json:"errorMessage,omitempty"`
	StartedAt    *time.Time    `json:"startedAt,omitempty"`
	CompletedAt  *time.Time    `json:"completedAt,omitempty"`

	// OccurredAt is the timestamp when the event was created
	OccurredAt time.Time `json:"occurredAt"`
}

// NewTaskOutcomeEvent builds an event from a task in a terminal status.
func NewTaskOutcomeEvent(task *domain.Task) *TaskOutcomeEvent {
	return &TaskOutcomeEvent{
		ID:           uuid.New(),
		TaskID:       task.ID,
		Owner:        task.Owner,
		Kind:         task.Kind,
		Status:       task.Status,
		ErrorMessage: task.ErrorMessage,
		StartedAt:    task.StartedAt,
		CompletedAt:  task.CompletedAt,
		OccurredAt:   time.Now().UTC(),
	}
}

// EventHandler defines an interface for components that can handle events.
type EventHandler interface {
	// HandleEvent processes the given event within the provided context.
	// Returns an error if the event cannot be handled successfully.
	HandleEvent(ctx context.Context, event *TaskOutcomeEvent) error
}

// EventEmitter defines an interface for components that can emit events.
// This allows the executor to publish outcomes without direct knowledge of handlers.
type EventEmitter interface {
	// EmitEvent publishes the given event to all registered handlers.
	EmitEvent(ctx context.Context, event *TaskOutcomeEvent) error
}

// HandlerFunc adapts a function to the EventHandler interface.
type HandlerFunc func(ctx context.Context, event *TaskOutcomeEvent) error

// HandleEvent calls f(ctx, event).
func (f HandlerFunc) HandleEvent(ctx context.Context, event *TaskOutcomeEvent) error {
	return f(ctx, event)
}
