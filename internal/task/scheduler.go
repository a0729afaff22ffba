package task

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/phrazzld/nudge-api/internal/domain"
	"github.com/phrazzld/nudge-api/internal/gateway"
	"github.com/phrazzld/nudge-api/internal/metrics"
	"github.com/phrazzld/nudge-api/internal/platform/logger"
	"github.com/phrazzld/nudge-api/internal/redact"
	"github.com/phrazzld/nudge-api/internal/store"
	"github.com/phrazzld/nudge-api/internal/tracing"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

// RunSummary counts what happened to the due tasks of one run.
type RunSummary struct {
	Claimed   int `json:"claimed"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
}

// SchedulerConfig holds configuration for the scheduler
type SchedulerConfig struct {
	// Concurrency bounds how many claimed tasks execute at once.
	Concurrency int

	// BatchSize caps how many due tasks one run considers. Zero means no cap.
	BatchSize int
}

// Scheduler claims due tasks and hands them to the executor.
type Scheduler struct {
	store    store.TaskStore
	executor *Executor
	config   SchedulerConfig
	logger   *slog.Logger
}

// NewScheduler creates a Scheduler.
func NewScheduler(s store.TaskStore, executor *Executor, cfg SchedulerConfig, log *slog.Logger) *Scheduler {
	if log == nil {
		log = slog.Default()
	}
	if cfg.Concurrency <= 0 {
		log.Warn("invalid scheduler concurrency, using 1", "specified", cfg.Concurrency)
		cfg.Concurrency = 1
	}
	return &Scheduler{
		store:    s,
		executor: executor,
		config:   cfg,
		logger:   log.With(slog.String("component", "scheduler")),
	}
}

// RunDueTasks claims every task due at now and executes the claimed ones
// with bounded parallelism. Tasks claimed by a concurrent run are skipped.
//
// If the store becomes unavailable while finding, claiming or inside a
// strategy, the run stops claiming, waits for in-flight executions and
// returns the partial summary with an error wrapping ErrStoreUnavailable.
// Tasks whose strategy hit the outage are left running.
func (s *Scheduler) RunDueTasks(ctx context.Context, now time.Time) (summary RunSummary, err error) {
	begin := time.Now()
	now = now.UTC()

	ctx, span := tracing.StartSpan(ctx, "scheduler.run_due")
	defer span.End()
	log := logger.FromContextOrDefault(ctx, s.logger).With(slog.String("trace_id", tracing.GetTraceID(ctx)))
	ctx = logger.WithLogger(ctx, log)

	sess := gateway.Acquire()
	defer sess.Release()

	defer func() {
		metrics.RecordRun(err, time.Since(begin))
		span.SetAttributes(
			attribute.Int("run.claimed", summary.Claimed),
			attribute.Int("run.completed", summary.Completed),
			attribute.Int("run.failed", summary.Failed),
			attribute.Int("run.skipped", summary.Skipped))
		tracing.SetSpanError(ctx, err)
	}()

	due, err := s.store.FindDue(ctx, now, s.config.BatchSize)
	if err != nil {
		log.ErrorContext(ctx, "failed to find due tasks", slog.String("error", redact.Error(err)))
		return summary, storeErr("find due tasks", err)
	}
	if len(due) == 0 {
		log.DebugContext(ctx, "no due tasks")
		return summary, nil
	}

	var (
		mu       sync.Mutex
		firstErr error
		g        errgroup.Group
	)
	g.SetLimit(s.config.Concurrency)
	record := func(fn func()) {
		mu.Lock()
		defer mu.Unlock()
		fn()
	}

	for _, t := range due {
		if ctx.Err() != nil {
			break
		}
		var storeDown bool
		record(func() { storeDown = errors.Is(firstErr, ErrStoreUnavailable) })
		if storeDown {
			break
		}

		claimed, claimErr := s.claim(ctx, t, now)
		if claimErr != nil {
			if errors.Is(claimErr, ErrStoreUnavailable) {
				record(func() { firstErr = claimErr })
				break
			}
			log.WarnContext(ctx, "claim failed", slog.String("task_id", t.ID.String()),
				slog.String("error", redact.Error(claimErr)))
			record(func() { summary.Skipped++ })
			continue
		}
		if claimed == nil {
			log.DebugContext(ctx, "claim lost", slog.String("task_id", t.ID.String()))
			record(func() { summary.Skipped++ })
			continue
		}
		record(func() { summary.Claimed++ })

		g.Go(func() error {
			outcome, execErr := s.executor.Execute(ctx, sess, claimed)
			record(func() {
				switch {
				case outcome.Completed():
					summary.Completed++
				case outcome.Failed():
					summary.Failed++
				}
				if execErr != nil && firstErr == nil {
					firstErr = execErr
				}
			})
			return nil
		})
	}
	_ = g.Wait()

	log.InfoContext(ctx, "due task run finished",
		slog.Int("due", len(due)),
		slog.Int("claimed", summary.Claimed),
		slog.Int("completed", summary.Completed),
		slog.Int("failed", summary.Failed),
		slog.Int("skipped", summary.Skipped))

	if firstErr == nil && ctx.Err() != nil {
		firstErr = ctx.Err()
	}
	return summary, firstErr
}

// claim moves t from pending to running. It returns nil, nil when another
// runner won the race.
func (s *Scheduler) claim(ctx context.Context, t *domain.Task, now time.Time) (*domain.Task, error) {
	patch := domain.ClaimPatch(now)
	applied, err := s.store.ConditionalUpdate(ctx, t.ID, domain.StatusPending, patch)
	if err != nil {
		return nil, storeErr("claim task", err)
	}
	metrics.RecordClaim(applied)
	if !applied {
		return nil, nil
	}
	claimed, err := t.Apply(patch)
	if err != nil {
		return nil, err
	}
	return claimed, nil
}
