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

// PostgresTargetStore implements store.TargetStore using PostgreSQL.
type PostgresTargetStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresTargetStore creates a new PostgresTargetStore.
func NewPostgresTargetStore(db store.DBTX, logger *slog.Logger) *PostgresTargetStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresTargetStore{
		db:     db,
		logger: logger.With(slog.String("component", "target_store")),
	}
}

var _ store.TargetStore = (*PostgresTargetStore)(nil)

// FindBySource implements store.TargetStore.FindBySource.
func (s *PostgresTargetStore) FindBySource(
	ctx context.Context,
	owner, sourceRecordID uuid.UUID,
) ([]*domain.NotificationTarget, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, owner_id, source_record_id, source_label, event_date,
		       recipient_name, email, phone, channel
		FROM notification_targets
		WHERE owner_id = $1 AND source_record_id = $2
		ORDER BY created_at ASC, id ASC
	`
	rows, err := s.db.QueryContext(ctx, query, owner, sourceRecordID)
	if err != nil {
		log.Error("failed to query notification targets",
			slog.String("error", err.Error()),
			slog.String("source_record_id", sourceRecordID.String()))
		return nil, store.NewStoreError("notification target", "find", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	targets := make([]*domain.NotificationTarget, 0)
	for rows.Next() {
		var (
			t         domain.NotificationTarget
			eventDate sql.NullTime
			email     sql.NullString
			phone     sql.NullString
			channel   string
		)
		if err := rows.Scan(
			&t.ID,
			&t.Owner,
			&t.SourceRecordID,
			&t.SourceLabel,
			&eventDate,
			&t.RecipientName,
			&email,
			&phone,
			&channel,
		); err != nil {
			return nil, store.NewStoreError("notification target", "find", MapError(err))
		}
		t.EventDate = nullTimePtr(eventDate)
		t.Email = email.String
		t.Phone = phone.String
		t.Channel = domain.ChannelPreference(channel)
		targets = append(targets, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("notification target", "find", MapError(err))
	}
	return targets, nil
}
