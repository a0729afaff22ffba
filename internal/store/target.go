package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/nudge-api/internal/domain"
)

// TargetStore provides read access to notification targets. Targets are
// owned by the surrounding application.
type TargetStore interface {
	// FindBySource returns the targets attached to a source record of owner.
	// An empty slice is not an error.
	FindBySource(ctx context.Context, owner, sourceRecordID uuid.UUID) ([]*domain.NotificationTarget, error)
}
