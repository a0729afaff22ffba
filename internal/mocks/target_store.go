package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/nudge-api/internal/domain"
	"github.com/phrazzld/nudge-api/internal/store"
)

// MockTargetStore implements store.TargetStore for testing
type MockTargetStore struct {
	FindBySourceFn func(ctx context.Context, owner, sourceRecordID uuid.UUID) ([]*domain.NotificationTarget, error)

	// Targets is the default data set, filtered by owner and source.
	Targets []*domain.NotificationTarget
	Err     error
}

// FindBySource implements store.TargetStore.
func (m *MockTargetStore) FindBySource(ctx context.Context, owner, sourceRecordID uuid.UUID) ([]*domain.NotificationTarget, error) {
	if m.FindBySourceFn != nil {
		return m.FindBySourceFn(ctx, owner, sourceRecordID)
	}
	if m.Err != nil {
		return nil, m.Err
	}
	var out []*domain.NotificationTarget
	for _, t := range m.Targets {
		if t.Owner == owner && t.SourceRecordID == sourceRecordID {
			out = append(out, t)
		}
	}
	return out, nil
}

var _ store.TargetStore = (*MockTargetStore)(nil)
