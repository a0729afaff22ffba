package service

import (
	"errors"
	"fmt"

	"github.com/phrazzld/nudge-api/internal/domain"
	"github.com/phrazzld/nudge-api/internal/store"
	"github.com/phrazzld/nudge-api/internal/task"
)

// Service sentinels. The API layer maps each to a status code.
var (
	// ErrTaskNotFound indicates the task does not exist for the owner.
	// API layer should map this to HTTP 404 Not Found.
	ErrTaskNotFound = errors.New("task not found")

	// ErrTaskNotCancellable indicates the task has left pending.
	// API layer should map this to HTTP 409 Conflict.
	ErrTaskNotCancellable = errors.New("task is not pending and cannot be cancelled")

	// ErrInvalidTask indicates the create request failed validation.
	// API layer should map this to HTTP 400 Bad Request.
	ErrInvalidTask = errors.New("invalid task")
)

// TaskServiceError wraps unexpected errors from the task service with context.
type TaskServiceError struct {
	// Operation is the operation that failed (e.g. "create_task")
	Operation string
	Message   string
	Err       error
}

// Error implements the error interface.
func (e *TaskServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("task service %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("task service %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *TaskServiceError) Unwrap() error {
	return e.Err
}

// NewTaskServiceError maps known store and domain errors to service
// sentinels and wraps everything else.
func NewTaskServiceError(operation, message string, err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, ErrTaskNotFound), errors.Is(err, store.ErrTaskNotFound), errors.Is(err, store.ErrNotFound):
		return ErrTaskNotFound
	case errors.Is(err, ErrTaskNotCancellable):
		return ErrTaskNotCancellable
	case errors.Is(err, ErrInvalidTask):
		return err
	case errors.Is(err, task.ErrInvalidPayload), errors.Is(err, task.ErrUnknownKind),
		errors.Is(err, domain.ErrInvalidTaskKind), errors.Is(err, domain.ErrInvalidPayload),
		errors.Is(err, domain.ErrEmptyTaskOwner):
		return fmt.Errorf("%w: %w", ErrInvalidTask, err)
	}

	return &TaskServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}
