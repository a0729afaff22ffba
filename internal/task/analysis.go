package task

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/nudge-api/internal/domain"
	"github.com/phrazzld/nudge-api/internal/gateway"
	"github.com/phrazzld/nudge-api/internal/platform/logger"
	"github.com/phrazzld/nudge-api/internal/store"
)

// TextAnalyzer classifies the sentiment of a text.
type TextAnalyzer interface {
	AnalyzeText(ctx context.Context, text string) (domain.Classification, error)
}

// ImageClassifier assigns a category to an image.
type ImageClassifier interface {
	ClassifyImage(ctx context.Context, data []byte, mimeType string) (domain.Classification, error)
}

// FileFetcher downloads file content on behalf of an owner.
type FileFetcher interface {
	Fetch(ctx context.Context, sess *gateway.Session, owner uuid.UUID, fileID string) (*gateway.File, error)
}

// ContentAnalysisPayload is the payload of a content-analysis task.
type ContentAnalysisPayload struct {
	Text string `json:"text" validate:"required,max=20000"`
}

// ContentAnalysisStrategy classifies text sentiment and records the result.
type ContentAnalysisStrategy struct {
	analyzer TextAnalyzer
	records  store.RecordStore
	timeout  time.Duration
	logger   *slog.Logger
}

// NewContentAnalysisStrategy creates a ContentAnalysisStrategy. Each analyzer
// call is bounded by timeout.
func NewContentAnalysisStrategy(
	analyzer TextAnalyzer,
	records store.RecordStore,
	timeout time.Duration,
	log *slog.Logger,
) *ContentAnalysisStrategy {
	if log == nil {
		log = slog.Default()
	}
	return &ContentAnalysisStrategy{
		analyzer: analyzer,
		records:  records,
		timeout:  timeout,
		logger:   log.With(slog.String("component", "content_analysis_strategy")),
	}
}

// Kind implements Strategy.
func (s *ContentAnalysisStrategy) Kind() domain.Kind { return domain.KindContentAnalysis }

// Validate implements Strategy.
func (s *ContentAnalysisStrategy) Validate(payload json.RawMessage) error {
	var p ContentAnalysisPayload
	return decodePayload(payload, &p)
}

// Run implements Strategy.
func (s *ContentAnalysisStrategy) Run(ctx context.Context, _ *gateway.Session, task *domain.Task) (json.RawMessage, error) {
	var p ContentAnalysisPayload
	if err := decodePayload(task.Payload, &p); err != nil {
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	c, err := s.analyzer.AnalyzeText(callCtx, p.Text)
	if err != nil {
		return nil, fmt.Errorf("sentiment analysis failed: %w", err)
	}

	if err := s.records.InsertSentiment(ctx, domain.NewSentimentRecord(task.Owner, task.ID, p.Text, c)); err != nil {
		return nil, fmt.Errorf("failed to record sentiment: %w", err)
	}

	logger.FromContextOrDefault(ctx, s.logger).DebugContext(ctx, "text classified",
		slog.String("task_id", task.ID.String()),
		slog.String("category", c.Category))
	return json.Marshal(c)
}

// MediaPayload is the payload of a media-processing task.
type MediaPayload struct {
	FileID   string `json:"fileId" validate:"required"`
	MIMEType string `json:"mimeType,omitempty"`
}

// MediaStrategy downloads an image, classifies it and records the result.
type MediaStrategy struct {
	files      FileFetcher
	classifier ImageClassifier
	records    store.RecordStore
	timeout    time.Duration
	logger     *slog.Logger
}

// NewMediaStrategy creates a MediaStrategy. Each classifier call is bounded by timeout.
func NewMediaStrategy(
	files FileFetcher,
	classifier ImageClassifier,
	records store.RecordStore,
	timeout time.Duration,
	log *slog.Logger,
) *MediaStrategy {
	if log == nil {
		log = slog.Default()
	}
	return &MediaStrategy{
		files:      files,
		classifier: classifier,
		records:    records,
		timeout:    timeout,
		logger:     log.With(slog.String("component", "media_strategy")),
	}
}

// Kind implements Strategy.
func (s *MediaStrategy) Kind() domain.Kind { return domain.KindMediaProcessing }

// Validate implements Strategy.
func (s *MediaStrategy) Validate(payload json.RawMessage) error {
	var p MediaPayload
	return decodePayload(payload, &p)
}

// Run implements Strategy. A classification failure is recorded as a failed
// image record on a best-effort basis before the task fails.
func (s *MediaStrategy) Run(ctx context.Context, sess *gateway.Session, task *domain.Task) (json.RawMessage, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var p MediaPayload
	if err := decodePayload(task.Payload, &p); err != nil {
		return nil, err
	}

	file, err := s.files.Fetch(ctx, sess, task.Owner, p.FileID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch file: %w", err)
	}
	mimeType := p.MIMEType
	if mimeType == "" {
		mimeType = file.MIMEType
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	c, err := s.classifier.ClassifyImage(callCtx, file.Data, mimeType)
	if err != nil {
		rec := domain.NewImageRecord(task.Owner, task.ID, p.FileID, domain.ImageFailed, nil)
		if recErr := s.records.InsertImage(ctx, rec); recErr != nil {
			log.WarnContext(ctx, "failed to record image failure",
				slog.String("task_id", task.ID.String()),
				slog.String("error", recErr.Error()))
		}
		return nil, fmt.Errorf("image classification failed: %w", err)
	}

	rec := domain.NewImageRecord(task.Owner, task.ID, p.FileID, domain.ImageProcessed, &c)
	if err := s.records.InsertImage(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to record image classification: %w", err)
	}
	return json.Marshal(c)
}

var (
	_ Strategy = (*ContentAnalysisStrategy)(nil)
	_ Strategy = (*MediaStrategy)(nil)
)
