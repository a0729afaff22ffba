package domain

import (
	"time"

	"github.com/google/uuid"
)

// RecordType names the record shapes that can be aggregated for an owner.
type RecordType string

// Aggregatable record types
const (
	RecordTypeSentiment RecordType = "sentiment"
	RecordTypeImage     RecordType = "image"
)

// Valid reports whether r is a known record type.
func (r RecordType) Valid() bool {
	return r == RecordTypeSentiment || r == RecordTypeImage
}

// Sentiment categories produced by content analysis
const (
	SentimentPositive = "positive"
	SentimentNegative = "negative"
	SentimentNeutral  = "neutral"
)

// Image processing statuses
const (
	ImageProcessed = "processed"
	ImageFailed    = "failed"
)

// SentimentRecord is the persisted output of a content-analysis task.
// Sentiment is nil for records that were never classified.
type SentimentRecord struct {
	ID         uuid.UUID  `json:"id"`
	Owner      uuid.UUID  `json:"owner"`
	TaskID     *uuid.UUID `json:"taskId,omitempty"`
	Text       string     `json:"text"`
	Sentiment  *string    `json:"sentiment,omitempty"`
	Confidence *float64   `json:"confidence,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
}

// ImageRecord is the persisted output of a media-processing task.
type ImageRecord struct {
	ID               uuid.UUID  `json:"id"`
	Owner            uuid.UUID  `json:"owner"`
	TaskID           *uuid.UUID `json:"taskId,omitempty"`
	FileID           string     `json:"fileId"`
	ProcessingStatus *string    `json:"processingStatus,omitempty"`
	Category         *string    `json:"category,omitempty"`
	Confidence       *float64   `json:"confidence,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
}

// NewSentimentRecord builds a classified sentiment record for a task.
func NewSentimentRecord(owner, taskID uuid.UUID, text string, c Classification) *SentimentRecord {
	return &SentimentRecord{
		ID:         uuid.New(),
		Owner:      owner,
		TaskID:     &taskID,
		Text:       text,
		Sentiment:  &c.Category,
		Confidence: &c.Confidence,
		CreatedAt:  time.Now().UTC(),
	}
}

// NewImageRecord builds an image record in the given processing status.
// c may be nil when processing failed.
func NewImageRecord(owner, taskID uuid.UUID, fileID, status string, c *Classification) *ImageRecord {
	rec := &ImageRecord{
		ID:               uuid.New(),
		Owner:            owner,
		TaskID:           &taskID,
		FileID:           fileID,
		ProcessingStatus: &status,
		CreatedAt:        time.Now().UTC(),
	}
	if c != nil {
		rec.Category = &c.Category
		rec.Confidence = &c.Confidence
	}
	return rec
}
