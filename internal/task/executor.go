package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/nudge-api/internal/domain"
	"github.com/phrazzld/nudge-api/internal/events"
	"github.com/phrazzld/nudge-api/internal/gateway"
	"github.com/phrazzld/nudge-api/internal/metrics"
	"github.com/phrazzld/nudge-api/internal/platform/logger"
	"github.com/phrazzld/nudge-api/internal/redact"
	"github.com/phrazzld/nudge-api/internal/store"
	"github.com/phrazzld/nudge-api/internal/tracing"
	"go.opentelemetry.io/otel/attribute"
)

// Outcome describes what the executor did with one claimed task.
type Outcome struct {
	Task *domain.Task

	// Applied is false when the terminal write lost its compare-and-set,
	// i.e. the task was no longer running.
	Applied bool
}

// Completed reports whether the task was written as completed.
func (o Outcome) Completed() bool { return o.Applied && o.Task.Status == domain.StatusCompleted }

// Failed reports whether the task was written as failed.
func (o Outcome) Failed() bool { return o.Applied && o.Task.Status == domain.StatusFailed }

// Executor runs claimed tasks through their strategy and writes exactly one
// terminal status for each.
type Executor struct {
	store    store.TaskStore
	registry *Registry
	emitter  events.EventEmitter
	now      func() time.Time
	logger   *slog.Logger
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithEmitter publishes an outcome event after every applied terminal write.
func WithEmitter(e events.EventEmitter) ExecutorOption {
	return func(x *Executor) { x.emitter = e }
}

// WithClock overrides the executor's clock.
func WithClock(now func() time.Time) ExecutorOption {
	return func(x *Executor) { x.now = now }
}

// NewExecutor creates an Executor.
func NewExecutor(s store.TaskStore, registry *Registry, log *slog.Logger, opts ...ExecutorOption) *Executor {
	if log == nil {
		log = slog.Default()
	}
	e := &Executor{
		store:    s,
		registry: registry,
		now:      time.Now,
		logger:   log.With(slog.String("component", "executor")),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs a task that is already running (claimed). Strategy failures
// fail the task. The returned error is non-nil when the terminal write could
// not be performed, or when a strategy hit an unavailable store; in that
// case no status is written and the task stays running.
//
// The strategy runs detached from ctx cancellation: a claimed task always
// runs to completion or failure, bounded by the strategies' per-call timeouts.
func (e *Executor) Execute(ctx context.Context, sess *gateway.Session, task *domain.Task) (Outcome, error) {
	log := logger.FromContextOrDefault(ctx, e.logger).With(
		slog.String("task_id", task.ID.String()),
		slog.String("kind", string(task.Kind)))

	ctx, span := tracing.StartSpan(ctx, "task.execute",
		attribute.String("task.id", task.ID.String()),
		attribute.String("task.kind", string(task.Kind)))
	defer span.End()

	started := e.now()
	result, runErr := e.run(logger.WithLogger(context.WithoutCancel(ctx), log), sess, task)
	elapsed := e.now().Sub(started)

	if errors.Is(runErr, store.ErrUnavailable) {
		tracing.SetSpanError(ctx, runErr)
		log.ErrorContext(ctx, "store unavailable during task, leaving it running",
			slog.String("error", redact.Error(runErr)))
		return Outcome{Task: task}, storeErr("run strategy", runErr)
	}

	// completedAt never precedes startedAt, even if the claiming clock ran ahead.
	finishedAt := e.now().UTC()
	if task.StartedAt != nil && finishedAt.Before(*task.StartedAt) {
		finishedAt = *task.StartedAt
	}

	var patch domain.TaskPatch
	if runErr != nil {
		tracing.SetSpanError(ctx, runErr)
		log.WarnContext(ctx, "task failed", slog.String("error", redact.Error(runErr)))
		patch = domain.FailPatch(finishedAt, runErr.Error())
	} else {
		patch = domain.CompletePatch(finishedAt, result)
	}

	// The terminal write outlives a cancelled run context.
	writeCtx := context.WithoutCancel(ctx)
	applied, err := e.store.ConditionalUpdate(writeCtx, task.ID, domain.StatusRunning, patch)
	if err != nil {
		log.ErrorContext(ctx, "failed to write terminal status", slog.String("error", redact.Error(err)))
		return Outcome{Task: task}, storeErr("finalize task", err)
	}
	if !applied {
		log.WarnContext(ctx, "terminal write lost, task no longer running",
			slog.String("target", string(patch.Status)))
		tracing.AddSpanEvent(ctx, "task.finalize_lost")
		return Outcome{Task: task}, nil
	}

	final, err := task.Apply(patch)
	if err != nil {
		// The store accepted the write, so the in-memory copy must agree.
		return Outcome{Task: task, Applied: true}, fmt.Errorf("apply terminal patch: %w", err)
	}
	metrics.RecordOutcome(string(task.Kind), string(final.Status), elapsed)
	log.InfoContext(ctx, "task finished",
		slog.String("status", string(final.Status)),
		slog.Duration("elapsed", elapsed))

	if e.emitter != nil {
		if err := e.emitter.EmitEvent(writeCtx, events.NewTaskOutcomeEvent(final)); err != nil {
			log.WarnContext(ctx, "failed to emit outcome event", slog.String("error", err.Error()))
		}
	}
	return Outcome{Task: final, Applied: true}, nil
}

// run dispatches to the task's strategy. Panics become strategy failures.
func (e *Executor) run(ctx context.Context, sess *gateway.Session, task *domain.Task) (result json.RawMessage, err error) {
	strategy, ok := e.registry.Get(task.Kind)
	if !ok {
		return nil, &StrategyError{Kind: string(task.Kind), Err: ErrUnknownKind}
	}

	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = &StrategyError{Kind: string(task.Kind), Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	result, err = strategy.Run(ctx, sess, task)
	if err != nil {
		return nil, &StrategyError{Kind: string(task.Kind), Err: err}
	}
	if len(result) == 0 || !json.Valid(result) {
		return nil, &StrategyError{Kind: string(task.Kind), Err: fmt.Errorf("strategy returned invalid result")}
	}
	return result, nil
}
