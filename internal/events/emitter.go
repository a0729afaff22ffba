package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/phrazzld/nudge-api/internal/domain"
)

// ErrNotTerminal is returned when an outcome event carries a status a task
// can still leave. No handler sees such an event.
var ErrNotTerminal = errors.New("outcome event status is not terminal")

type subscription struct {
	handler  EventHandler
	statuses []domain.Status
}

func (s subscription) wants(status domain.Status) bool {
	return len(s.statuses) == 0 || slices.Contains(s.statuses, status)
}

// OutcomeEmitter fans task outcome events out to in-process handlers,
// synchronously and in registration order.
type OutcomeEmitter struct {
	mu     sync.RWMutex
	subs   []subscription
	logger *slog.Logger
}

// NewOutcomeEmitter creates an emitter with no handlers.
func NewOutcomeEmitter(logger *slog.Logger) *OutcomeEmitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &OutcomeEmitter{logger: logger.With(slog.String("component", "outcome_emitter"))}
}

// RegisterHandler subscribes handler to outcomes with one of statuses, or to
// every terminal outcome when statuses is empty.
func (e *OutcomeEmitter) RegisterHandler(handler EventHandler, statuses ...domain.Status) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.subs = append(e.subs, subscription{handler: handler, statuses: statuses})
}

// EmitEvent hands event to every subscribed handler. A failing handler does
// not stop the others; their errors are joined.
func (e *OutcomeEmitter) EmitEvent(ctx context.Context, event *TaskOutcomeEvent) error {
	if !event.Status.Terminal() {
		e.logger.WarnContext(ctx, "dropping outcome event for non-terminal task",
			slog.String("task_id", event.TaskID.String()),
			slog.String("status", string(event.Status)))
		return fmt.Errorf("%w: %s", ErrNotTerminal, event.Status)
	}

	e.mu.RLock()
	subs := slices.Clone(e.subs)
	e.mu.RUnlock()

	var errs []error
	for _, sub := range subs {
		if !sub.wants(event.Status) {
			continue
		}
		if err := sub.handler.HandleEvent(ctx, event); err != nil {
			e.logger.ErrorContext(ctx, "outcome handler failed",
				slog.String("event_id", event.ID.String()),
				slog.String("task_id", event.TaskID.String()),
				slog.String("status", string(event.Status)),
				slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var _ EventEmitter = (*OutcomeEmitter)(nil)
