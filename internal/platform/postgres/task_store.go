package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/nudge-api/internal/domain"
	"github.com/phrazzld/nudge-api/internal/platform/logger"
	"github.com/phrazzld/nudge-api/internal/store"
)

const taskColumns = `id, owner_id, kind, status, payload, result, scheduled_for,
	started_at, completed_at, error_message, created_at`

// PostgresTaskStore implements store.TaskStore using PostgreSQL.
type PostgresTaskStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresTaskStore creates a new PostgresTaskStore.
// If logger is nil, a default logger will be used.
func NewPostgresTaskStore(db store.DBTX, logger *slog.Logger) *PostgresTaskStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresTaskStore{
		db:     db,
		logger: logger.With(slog.String("component", "task_store")),
	}
}

// Ensure PostgresTaskStore implements store.TaskStore interface
var _ store.TaskStore = (*PostgresTaskStore)(nil)

// Insert implements store.TaskStore.Insert.
func (s *PostgresTaskStore) Insert(ctx context.Context, task *domain.Task) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := task.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}
	if task.Status != domain.StatusPending {
		return fmt.Errorf("%w: tasks are created pending", store.ErrInvalidEntity)
	}

	query := `
		INSERT INTO tasks (id, owner_id, kind, status, payload, scheduled_for, created_at)
		VALUES ($1, $2, $3, $4, $5::jsonb, $6, $7)
	`
	_, err := s.db.ExecContext(ctx, query,
		task.ID,
		task.Owner,
		string(task.Kind),
		string(task.Status),
		string(task.Payload),
		task.ScheduledFor,
		task.CreatedAt,
	)
	if err != nil {
		log.Error("failed to insert task",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()))
		return store.NewStoreError("task", "insert", MapError(err))
	}

	log.Debug("task inserted",
		slog.String("task_id", task.ID.String()),
		slog.String("kind", string(task.Kind)))
	return nil
}

// Get implements store.TaskStore.Get.
func (s *PostgresTaskStore) Get(ctx context.Context, owner, id uuid.UUID) (*domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1 AND owner_id = $2`

	task, err := scanTask(s.db.QueryRowContext(ctx, query, id, owner))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrTaskNotFound
		}
		return nil, store.NewStoreError("task", "get", MapError(err))
	}
	return task, nil
}

// ListByOwner implements store.TaskStore.ListByOwner.
func (s *PostgresTaskStore) ListByOwner(ctx context.Context, owner uuid.UUID) ([]*domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks
		WHERE owner_id = $1
		ORDER BY created_at DESC, id DESC`
	return s.queryTasks(ctx, "list", query, owner)
}

// FindDue implements store.TaskStore.FindDue.
// This is the only query not scoped by owner: the scheduler works across owners.
func (s *PostgresTaskStore) FindDue(ctx context.Context, now time.Time, limit int) ([]*domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks
		WHERE status = 'pending' AND (scheduled_for IS NULL OR scheduled_for <= $1)
		ORDER BY scheduled_for ASC NULLS FIRST, created_at ASC, id ASC`
	args := []any{now.UTC()}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}
	return s.queryTasks(ctx, "find due", query, args...)
}

// FindStale implements store.TaskStore.FindStale.
func (s *PostgresTaskStore) FindStale(ctx context.Context, owner uuid.UUID, cutoff time.Time) ([]*domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks
		WHERE owner_id = $1 AND status = 'running' AND started_at < $2
		ORDER BY started_at ASC`
	return s.queryTasks(ctx, "find stale", query, owner, cutoff.UTC())
}

// ConditionalUpdate implements store.TaskStore.ConditionalUpdate as one
// UPDATE ... WHERE status = expected statement. Timestamps already set are
// never overwritten.
func (s *PostgresTaskStore) ConditionalUpdate(
	ctx context.Context,
	id uuid.UUID,
	expected domain.Status,
	patch domain.TaskPatch,
) (bool, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if !domain.CanTransition(expected, patch.Status) {
		return false, fmt.Errorf("%w: %s -> %s", domain.ErrIllegalTransition, expected, patch.Status)
	}

	query := `
		UPDATE tasks
		SET status        = $3,
		    started_at    = COALESCE(started_at, $4),
		    completed_at  = COALESCE(completed_at, $5),
		    result        = COALESCE($6::jsonb, result),
		    error_message = COALESCE($7, error_message)
		WHERE id = $1 AND status = $2
	`
	result, err := s.db.ExecContext(ctx, query,
		id,
		string(expected),
		string(patch.Status),
		patch.StartedAt,
		patch.CompletedAt,
		nullableJSON(patch.Result),
		patch.ErrorMessage,
	)
	if err != nil {
		log.Error("conditional task update failed",
			slog.String("error", err.Error()),
			slog.String("task_id", id.String()),
			slog.String("expected", string(expected)),
			slog.String("target", string(patch.Status)))
		return false, store.NewStoreError("task", "conditional update", MapError(err))
	}

	n, err := RowsAffected(result)
	if err != nil {
		return false, store.NewStoreError("task", "conditional update", MapError(err))
	}
	return n == 1, nil
}

func (s *PostgresTaskStore) queryTasks(ctx context.Context, op, query string, args ...any) ([]*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query tasks", slog.String("op", op), slog.String("error", err.Error()))
		return nil, store.NewStoreError("task", op, MapError(err))
	}
	defer func() { _ = rows.Close() }()

	tasks := make([]*domain.Task, 0)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, store.NewStoreError("task", op, MapError(err))
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("task", op, MapError(err))
	}
	return tasks, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*domain.Task, error) {
	var (
		t            domain.Task
		kind, status string
		payload      []byte
		result       []byte
		scheduledFor sql.NullTime
		startedAt    sql.NullTime
		completedAt  sql.NullTime
		errorMessage sql.NullString
	)

	if err := row.Scan(
		&t.ID,
		&t.Owner,
		&kind,
		&status,
		&payload,
		&result,
		&scheduledFor,
		&startedAt,
		&completedAt,
		&errorMessage,
		&t.CreatedAt,
	); err != nil {
		return nil, err
	}

	t.Kind = domain.Kind(kind)
	t.Status = domain.Status(status)
	t.Payload = json.RawMessage(payload)
	if len(result) > 0 {
		t.Result = json.RawMessage(result)
	}
	t.ScheduledFor = nullTimePtr(scheduledFor)
	t.StartedAt = nullTimePtr(startedAt)
	t.CompletedAt = nullTimePtr(completedAt)
	if errorMessage.Valid {
		msg := errorMessage.String
		t.ErrorMessage = &msg
	}
	t.CreatedAt = t.CreatedAt.UTC()
	return &t, nil
}

func nullTimePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time.UTC()
	return &t
}

func nullableJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}
