package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/nudge-api/internal/domain"
	"github.com/phrazzld/nudge-api/internal/events"
	"github.com/phrazzld/nudge-api/internal/platform/logger"
	"github.com/phrazzld/nudge-api/internal/store"
)

// PayloadValidator checks a payload against the strategy for its kind.
// *task.Registry satisfies it.
type PayloadValidator interface {
	ValidatePayload(kind domain.Kind, payload json.RawMessage) error
}

// CreateTaskRequest describes a new task.
type CreateTaskRequest struct {
	Kind         domain.Kind
	Payload      json.RawMessage
	ScheduledFor *time.Time
}

// TaskService provides the task lifecycle operations for one owner at a time.
type TaskService interface {
	// CreateTask validates and stores a new pending task.
	CreateTask(ctx context.Context, owner uuid.UUID, req CreateTaskRequest) (*domain.Task, error)

	// GetTask returns one of the owner's tasks.
	GetTask(ctx context.Context, owner, id uuid.UUID) (*domain.Task, error)

	// ListTasks returns the owner's tasks, newest first.
	ListTasks(ctx context.Context, owner uuid.UUID) ([]*domain.Task, error)

	// CancelTask moves a pending task to cancelled. Returns
	// ErrTaskNotCancellable once the task has been claimed or finished.
	CancelTask(ctx context.Context, owner, id uuid.UUID) (*domain.Task, error)
}

type taskServiceImpl struct {
	store     store.TaskStore
	validator PayloadValidator
	emitter   events.EventEmitter
	now       func() time.Time
	logger    *slog.Logger
}

var _ TaskService = (*taskServiceImpl)(nil)

// NewTaskService creates a TaskService. emitter may be nil.
func NewTaskService(
	taskStore store.TaskStore,
	validator PayloadValidator,
	emitter events.EventEmitter,
	logger *slog.Logger,
) (TaskService, error) {
	if taskStore == nil {
		return nil, &TaskServiceError{Operation: "create_service", Message: "taskStore cannot be nil"}
	}
	if validator == nil {
		return nil, &TaskServiceError{Operation: "create_service", Message: "validator cannot be nil"}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &taskServiceImpl{
		store:     taskStore,
		validator: validator,
		emitter:   emitter,
		now:       time.Now,
		logger:    logger.With(slog.String("component", "task_service")),
	}, nil
}

// CreateTask implements TaskService.
func (s *taskServiceImpl) CreateTask(ctx context.Context, owner uuid.UUID, req CreateTaskRequest) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	t, err := domain.NewTask(owner, req.Kind, req.Payload, req.ScheduledFor)
	if err != nil {
		return nil, NewTaskServiceError("create_task", "invalid task", err)
	}
	if err := s.validator.ValidatePayload(t.Kind, t.Payload); err != nil {
		return nil, NewTaskServiceError("create_task", "invalid payload", err)
	}

	if err := s.store.Insert(ctx, t); err != nil {
		log.ErrorContext(ctx, "failed to insert task",
			slog.String("error", err.Error()),
			slog.String("owner", owner.String()))
		return nil, NewTaskServiceError("create_task", "failed to save task", err)
	}

	log.InfoContext(ctx, "task created",
		slog.String("task_id", t.ID.String()),
		slog.String("kind", string(t.Kind)))
	return t, nil
}

// GetTask implements TaskService.
func (s *taskServiceImpl) GetTask(ctx context.Context, owner, id uuid.UUID) (*domain.Task, error) {
	t, err := s.store.Get(ctx, owner, id)
	if err != nil {
		return nil, NewTaskServiceError("get_task", "failed to load task", err)
	}
	return t, nil
}

// ListTasks implements TaskService.
func (s *taskServiceImpl) ListTasks(ctx context.Context, owner uuid.UUID) ([]*domain.Task, error) {
	tasks, err := s.store.ListByOwner(ctx, owner)
	if err != nil {
		return nil, NewTaskServiceError("list_tasks", "failed to list tasks", err)
	}
	return tasks, nil
}

// CancelTask implements TaskService. The transition is a single
// compare-and-set, so a concurrent claim wins or loses atomically.
func (s *taskServiceImpl) CancelTask(ctx context.Context, owner, id uuid.UUID) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	t, err := s.store.Get(ctx, owner, id)
	if err != nil {
		return nil, NewTaskServiceError("cancel_task", "failed to load task", err)
	}
	if t.Status != domain.StatusPending {
		return nil, ErrTaskNotCancellable
	}

	patch := domain.CancelPatch(s.now().UTC())
	applied, err := s.store.ConditionalUpdate(ctx, id, domain.StatusPending, patch)
	if err != nil {
		return nil, NewTaskServiceError("cancel_task", "failed to cancel task", err)
	}
	if !applied {
		log.InfoContext(ctx, "cancel lost to a concurrent transition", slog.String("task_id", id.String()))
		return nil, ErrTaskNotCancellable
	}

	cancelled, err := t.Apply(patch)
	if err != nil {
		return nil, NewTaskServiceError("cancel_task", "inconsistent task state", err)
	}
	log.InfoContext(ctx, "task cancelled", slog.String("task_id", id.String()))

	if s.emitter != nil {
		if err := s.emitter.EmitEvent(ctx, events.NewTaskOutcomeEvent(cancelled)); err != nil {
			log.WarnContext(ctx, "failed to emit cancel event", slog.String("error", err.Error()))
		}
	}
	return cancelled, nil
}

