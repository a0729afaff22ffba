package domain

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Kind identifies which execution strategy a task runs under.
type Kind string

// The closed set of task kinds.
const (
	KindPeriodicReminder Kind = "periodic-reminder"
	KindContentAnalysis  Kind = "content-analysis"
	KindMediaProcessing  Kind = "media-processing"
)

// Kinds lists every task kind. The strategy registry is checked against it at startup.
var Kinds = []Kind{KindPeriodicReminder, KindContentAnalysis, KindMediaProcessing}

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindPeriodicReminder, KindContentAnalysis, KindMediaProcessing:
		return true
	default:
		return false
	}
}

// Status is the lifecycle state of a task.
type Status string

// Possible task status values
const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusRunning, StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// Terminal reports whether s is a final state. Terminal tasks are immutable.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// transitions is the complete set of allowed status changes.
var transitions = map[Status][]Status{
	StatusPending: {StatusRunning, StatusCancelled},
	StatusRunning: {StatusCompleted, StatusFailed},
}

// CanTransition reports whether a task may move from one status to another.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Common validation errors for Task
var (
	ErrEmptyTaskID       = errors.New("task ID cannot be empty")
	ErrEmptyTaskOwner    = errors.New("task owner cannot be empty")
	ErrInvalidTaskKind   = errors.New("invalid task kind")
	ErrInvalidStatus     = errors.New("invalid task status")
	ErrInvalidPayload    = errors.New("task payload must be a JSON object")
	ErrResultMismatch    = errors.New("result must be present exactly when the task is completed")
	ErrErrorMismatch     = errors.New("error message must be present exactly when the task failed")
	ErrTimestampOrder    = errors.New("startedAt must not be after completedAt")
	ErrIllegalTransition = errors.New("illegal task status transition")
)

// Task is the unit of orchestration. It is created pending and moves through
// the state machine by conditional updates only.
type Task struct {
	ID           uuid.UUID       `json:"id"`
	Owner        uuid.UUID       `json:"owner"`
	Kind         Kind            `json:"kind"`
	Status       Status          `json:"status"`
	Payload      json.RawMessage `json:"payload"`
	Result       json.RawMessage `json:"result,omitempty"`
	ScheduledFor *time.Time      `json:"scheduledFor,omitempty"`
	StartedAt    *time.Time      `json:"startedAt,omitempty"`
	CompletedAt  *time.Time      `json:"completedAt,omitempty"`
	ErrorMessage *string         `json:"errorMessage,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
}

// NewTask creates a pending task owned by owner. scheduledFor may be nil,
// meaning the task is due immediately.
func NewTask(owner uuid.UUID, kind Kind, payload json.RawMessage, scheduledFor *time.Time) (*Task, error) {
	if len(payload) == 0 {
		payload = json.RawMessage(`{}`)
	}

	t := &Task{
		ID:           uuid.New(),
		Owner:        owner,
		Kind:         kind,
		Status:       StatusPending,
		Payload:      payload,
		ScheduledFor: utcPtr(scheduledFor),
		CreatedAt:    time.Now().UTC(),
	}

	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// Validate checks the field-level invariants of a task.
func (t *Task) Validate() error {
	if t.ID == uuid.Nil {
		return ErrEmptyTaskID
	}
	if t.Owner == uuid.Nil {
		return ErrEmptyTaskOwner
	}
	if !t.Kind.Valid() {
		return ErrInvalidTaskKind
	}
	if !t.Status.Valid() {
		return ErrInvalidStatus
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(t.Payload, &obj); err != nil {
		return ErrInvalidPayload
	}

	if (t.Status == StatusCompleted) != (len(t.Result) > 0) {
		return ErrResultMismatch
	}
	if (t.Status == StatusFailed) != (t.ErrorMessage != nil) {
		return ErrErrorMismatch
	}
	if t.StartedAt != nil && t.CompletedAt != nil && t.StartedAt.After(*t.CompletedAt) {
		return ErrTimestampOrder
	}
	return nil
}

// DueAt returns the earliest time the task may run.
func (t *Task) DueAt() time.Time {
	if t.ScheduledFor != nil {
		return *t.ScheduledFor
	}
	return t.CreatedAt
}

// IsDue reports whether the task is pending and eligible to run at now.
func (t *Task) IsDue(now time.Time) bool {
	if t.Status != StatusPending {
		return false
	}
	return t.ScheduledFor == nil || !t.ScheduledFor.After(now)
}

// TaskPatch describes the fields written by a conditional status update.
// Nil fields are left untouched.
type TaskPatch struct {
	Status       Status
	StartedAt    *time.Time
	CompletedAt  *time.Time
	Result       json.RawMessage
	ErrorMessage *string
}

// ClaimPatch moves a pending task to running.
func ClaimPatch(now time.Time) TaskPatch {
	return TaskPatch{Status: StatusRunning, StartedAt: utcPtr(&now)}
}

// CompletePatch moves a running task to completed with result.
func CompletePatch(now time.Time, result json.RawMessage) TaskPatch {
	return TaskPatch{Status: StatusCompleted, CompletedAt: utcPtr(&now), Result: result}
}

// FailPatch moves a running task to failed with an error message.
func FailPatch(now time.Time, cause string) TaskPatch {
	return TaskPatch{Status: StatusFailed, CompletedAt: utcPtr(&now), ErrorMessage: &cause}
}

// CancelPatch moves a pending task to cancelled.
func CancelPatch(now time.Time) TaskPatch {
	return TaskPatch{Status: StatusCancelled, CompletedAt: utcPtr(&now)}
}

// Apply returns a copy of t with the patch applied, or ErrIllegalTransition
// when the state machine forbids the change.
func (t Task) Apply(p TaskPatch) (*Task, error) {
	if !CanTransition(t.Status, p.Status) {
		return nil, ErrIllegalTransition
	}
	t.Status = p.Status
	if p.StartedAt != nil && t.StartedAt == nil {
		t.StartedAt = utcPtr(p.StartedAt)
	}
	if p.CompletedAt != nil && t.CompletedAt == nil {
		t.CompletedAt = utcPtr(p.CompletedAt)
	}
	if len(p.Result) > 0 {
		t.Result = append(json.RawMessage(nil), p.Result...)
	}
	if p.ErrorMessage != nil {
		msg := *p.ErrorMessage
		t.ErrorMessage = &msg
	}
	return &t, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
