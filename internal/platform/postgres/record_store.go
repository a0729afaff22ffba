package postgres

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/nudge-api/internal/domain"
	"github.com/phrazzld/nudge-api/internal/platform/logger"
	"github.com/phrazzld/nudge-api/internal/store"
)

// PostgresRecordStore implements store.RecordStore using PostgreSQL.
type PostgresRecordStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresRecordStore creates a new PostgresRecordStore.
func NewPostgresRecordStore(db store.DBTX, logger *slog.Logger) *PostgresRecordStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresRecordStore{
		db:     db,
		logger: logger.With(slog.String("component", "record_store")),
	}
}

var _ store.RecordStore = (*PostgresRecordStore)(nil)

// InsertSentiment implements store.RecordStore.InsertSentiment.
func (s *PostgresRecordStore) InsertSentiment(ctx context.Context, rec *domain.SentimentRecord) error {
	query := `
		INSERT INTO sentiment_records (id, owner_id, task_id, text, sentiment, confidence, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.db.ExecContext(ctx, query,
		rec.ID, rec.Owner, rec.TaskID, rec.Text, rec.Sentiment, rec.Confidence, rec.CreatedAt)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to insert sentiment record",
			slog.String("error", err.Error()),
			slog.String("record_id", rec.ID.String()))
		return store.NewStoreError("sentiment record", "insert", MapError(err))
	}
	return nil
}

// InsertImage implements store.RecordStore.InsertImage.
func (s *PostgresRecordStore) InsertImage(ctx context.Context, rec *domain.ImageRecord) error {
	query := `
		INSERT INTO image_records (id, owner_id, task_id, file_id, processing_status, category, confidence, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := s.db.ExecContext(ctx, query,
		rec.ID, rec.Owner, rec.TaskID, rec.FileID, rec.ProcessingStatus, rec.Category, rec.Confidence, rec.CreatedAt)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to insert image record",
			slog.String("error", err.Error()),
			slog.String("record_id", rec.ID.String()))
		return store.NewStoreError("image record", "insert", MapError(err))
	}
	return nil
}

// ListSentiment implements store.RecordStore.ListSentiment.
func (s *PostgresRecordStore) ListSentiment(ctx context.Context, owner uuid.UUID) ([]*domain.SentimentRecord, error) {
	query := `
		SELECT id, owner_id, task_id, text, sentiment, confidence, created_at
		FROM sentiment_records
		WHERE owner_id = $1
		ORDER BY created_at DESC, id DESC
	`
	rows, err := s.db.QueryContext(ctx, query, owner)
	if err != nil {
		return nil, store.NewStoreError("sentiment record", "list", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	records := make([]*domain.SentimentRecord, 0)
	for rows.Next() {
		var (
			r          domain.SentimentRecord
			taskID     uuid.NullUUID
			sentiment  sql.NullString
			confidence sql.NullFloat64
		)
		if err := rows.Scan(&r.ID, &r.Owner, &taskID, &r.Text, &sentiment, &confidence, &r.CreatedAt); err != nil {
			return nil, store.NewStoreError("sentiment record", "list", MapError(err))
		}
		r.TaskID = nullUUIDPtr(taskID)
		r.Sentiment = nullStringPtr(sentiment)
		r.Confidence = nullFloatPtr(confidence)
		records = append(records, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("sentiment record", "list", MapError(err))
	}
	return records, nil
}

// ListImages implements store.RecordStore.ListImages.
func (s *PostgresRecordStore) ListImages(ctx context.Context, owner uuid.UUID) ([]*domain.ImageRecord, error) {
	query := `
		SELECT id, owner_id, task_id, file_id, processing_status, category, confidence, created_at
		FROM image_records
		WHERE owner_id = $1
		ORDER BY created_at DESC, id DESC
	`
	rows, err := s.db.QueryContext(ctx, query, owner)
	if err != nil {
		return nil, store.NewStoreError("image record", "list", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	records := make([]*domain.ImageRecord, 0)
	for rows.Next() {
		var (
			r          domain.ImageRecord
			taskID     uuid.NullUUID
			status     sql.NullString
			category   sql.NullString
			confidence sql.NullFloat64
		)
		if err := rows.Scan(&r.ID, &r.Owner, &taskID, &r.FileID, &status, &category, &confidence, &r.CreatedAt); err != nil {
			return nil, store.NewStoreError("image record", "list", MapError(err))
		}
		r.TaskID = nullUUIDPtr(taskID)
		r.ProcessingStatus = nullStringPtr(status)
		r.Category = nullStringPtr(category)
		r.Confidence = nullFloatPtr(confidence)
		records = append(records, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("image record", "list", MapError(err))
	}
	return records, nil
}

func nullUUIDPtr(n uuid.NullUUID) *uuid.UUID {
	if !n.Valid {
		return nil
	}
	id := n.UUID
	return &id
}

func nullStringPtr(n sql.NullString) *string {
	if !n.Valid {
		return nil
	}
	s := n.String
	return &s
}

func nullFloatPtr(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	f := n.Float64
	return &f
}
