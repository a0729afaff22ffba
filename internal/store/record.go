package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/nudge-api/internal/domain"
)

// RecordStore persists the outputs of analysis tasks.
type RecordStore interface {
	InsertSentiment(ctx context.Context, rec *domain.SentimentRecord) error
	InsertImage(ctx context.Context, rec *domain.ImageRecord) error

	// ListSentiment returns owner's sentiment records, newest-created first.
	ListSentiment(ctx context.Context, owner uuid.UUID) ([]*domain.SentimentRecord, error)

	// ListImages returns owner's image records, newest-created first.
	ListImages(ctx context.Context, owner uuid.UUID) ([]*domain.ImageRecord, error)
}
