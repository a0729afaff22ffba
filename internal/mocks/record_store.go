package mocks

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/phrazzld/nudge-api/internal/domain"
	"github.com/phrazzld/nudge-api/internal/store"
)

// MockRecordStore is an in-memory store.RecordStore. Lists return records
// newest first, i.e. in reverse insertion order.
type MockRecordStore struct {
	mu         sync.Mutex
	Sentiments []*domain.SentimentRecord
	Images     []*domain.ImageRecord

	InsertSentimentFn func(ctx context.Context, rec *domain.SentimentRecord) error
	InsertImageFn     func(ctx context.Context, rec *domain.ImageRecord) error
}

// InsertSentiment implements store.RecordStore.
func (m *MockRecordStore) InsertSentiment(ctx context.Context, rec *domain.SentimentRecord) error {
	if m.InsertSentimentFn != nil {
		return m.InsertSentimentFn(ctx, rec)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sentiments = append(m.Sentiments, rec)
	return nil
}

// InsertImage implements store.RecordStore.
func (m *MockRecordStore) InsertImage(ctx context.Context, rec *domain.ImageRecord) error {
	if m.InsertImageFn != nil {
		return m.InsertImageFn(ctx, rec)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Images = append(m.Images, rec)
	return nil
}

// ListSentiment implements store.RecordStore.
func (m *MockRecordStore) ListSentiment(ctx context.Context, owner uuid.UUID) ([]*domain.SentimentRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.SentimentRecord, 0)
	for i := len(m.Sentiments) - 1; i >= 0; i-- {
		if m.Sentiments[i].Owner == owner {
			out = append(out, m.Sentiments[i])
		}
	}
	return out, nil
}

// ListImages implements store.RecordStore.
func (m *MockRecordStore) ListImages(ctx context.Context, owner uuid.UUID) ([]*domain.ImageRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.ImageRecord, 0)
	for i := len(m.Images) - 1; i >= 0; i-- {
		if m.Images[i].Owner == owner {
			out = append(out, m.Images[i])
		}
	}
	return out, nil
}

var _ store.RecordStore = (*MockRecordStore)(nil)
