package stats

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/nudge-api/internal/domain"
	"github.com/phrazzld/nudge-api/internal/platform/logger"
	"github.com/phrazzld/nudge-api/internal/store"
	"github.com/phrazzld/nudge-api/internal/tracing"
	"go.opentelemetry.io/otel/attribute"
)

// ErrUnknownRecordType is returned for a record type with no aggregate.
var ErrUnknownRecordType = errors.New("unknown record type")

// TaskStats is the task aggregate plus running tasks older than the
// staleness threshold.
type TaskStats struct {
	Summary[*domain.Task]
	Stale []*domain.Task `json:"stale"`
}

// Aggregator builds owner-scoped statistics from the task and record stores.
type Aggregator struct {
	tasks      store.TaskStore
	records    store.RecordStore
	staleAfter time.Duration
	now        func() time.Time
	logger     *slog.Logger
}

// NewAggregator creates an Aggregator. Running tasks started more than
// staleAfter ago are reported as stale; zero disables the check.
func NewAggregator(tasks store.TaskStore, records store.RecordStore, staleAfter time.Duration, log *slog.Logger) *Aggregator {
	if log == nil {
		log = slog.Default()
	}
	return &Aggregator{
		tasks:      tasks,
		records:    records,
		staleAfter: staleAfter,
		now:        time.Now,
		logger:     log.With(slog.String("component", "aggregator")),
	}
}

// TaskStats aggregates the owner's tasks by status.
func (a *Aggregator) TaskStats(ctx context.Context, owner uuid.UUID) (*TaskStats, error) {
	ctx, span := tracing.StartSpan(ctx, "stats.tasks", attribute.String("owner", owner.String()))
	defer span.End()

	tasks, err := a.tasks.ListByOwner(ctx, owner)
	if err != nil {
		tracing.SetSpanError(ctx, err)
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}

	out := &TaskStats{
		Summary: Aggregate(tasks, func(t *domain.Task) (string, bool) {
			return string(t.Status), t.Status != ""
		}),
		Stale: make([]*domain.Task, 0),
	}

	if a.staleAfter > 0 {
		stale, err := a.tasks.FindStale(ctx, owner, a.now().Add(-a.staleAfter))
		if err != nil {
			tracing.SetSpanError(ctx, err)
			return nil, fmt.Errorf("failed to find stale tasks: %w", err)
		}
		if len(stale) > 0 {
			logger.FromContextOrDefault(ctx, a.logger).WarnContext(ctx, "stale running tasks",
				slog.String("owner", owner.String()),
				slog.Int("count", len(stale)),
				slog.Duration("stale_after", a.staleAfter))
			out.Stale = stale
		}
	}
	span.SetAttributes(attribute.Int("stats.total", out.Total), attribute.Int("stats.stale", len(out.Stale)))
	return out, nil
}

// SentimentStats aggregates the owner's sentiment records by category.
func (a *Aggregator) SentimentStats(ctx context.Context, owner uuid.UUID) (Summary[*domain.SentimentRecord], error) {
	recs, err := a.records.ListSentiment(ctx, owner)
	if err != nil {
		return Summary[*domain.SentimentRecord]{}, fmt.Errorf("failed to list sentiment records: %w", err)
	}
	return Aggregate(recs, func(r *domain.SentimentRecord) (string, bool) { return optional(r.Sentiment) }), nil
}

// ImageStats aggregates the owner's image records by processing status.
func (a *Aggregator) ImageStats(ctx context.Context, owner uuid.UUID) (Summary[*domain.ImageRecord], error) {
	recs, err := a.records.ListImages(ctx, owner)
	if err != nil {
		return Summary[*domain.ImageRecord]{}, fmt.Errorf("failed to list image records: %w", err)
	}
	return Aggregate(recs, func(r *domain.ImageRecord) (string, bool) { return optional(r.ProcessingStatus) }), nil
}

// RecordStats dispatches to the aggregate for recordType.
func (a *Aggregator) RecordStats(ctx context.Context, owner uuid.UUID, recordType domain.RecordType) (any, error) {
	ctx, span := tracing.StartSpan(ctx, "stats.records", attribute.String("record_type", string(recordType)))
	defer span.End()

	switch recordType {
	case domain.RecordTypeSentiment:
		return a.SentimentStats(ctx, owner)
	case domain.RecordTypeImage:
		return a.ImageStats(ctx, owner)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownRecordType, recordType)
	}
}
