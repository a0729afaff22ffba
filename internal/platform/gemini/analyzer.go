package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"slices"
	"strings"
	"time"

	"github.com/phrazzld/nudge-api/internal/config"
	"github.com/phrazzld/nudge-api/internal/domain"
	"github.com/phrazzld/nudge-api/internal/platform/logger"
	"google.golang.org/genai"
)

// Analyzer classifies text sentiment and image content with a Gemini model.
type Analyzer struct {
	logger     *slog.Logger
	models     contentGenerator
	model      string
	maxRetries int
	retryDelay time.Duration
}

// NewAnalyzer creates an Analyzer backed by the Gemini API.
func NewAnalyzer(ctx context.Context, log *slog.Logger, cfg config.LLMConfig) (*Analyzer, error) {
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", ErrInvalidConfig)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v", ErrInvalidConfig, err)
	}

	return newAnalyzer(log, client.Models, cfg)
}

func newAnalyzer(log *slog.Logger, models contentGenerator, cfg config.LLMConfig) (*Analyzer, error) {
	if models == nil {
		return nil, fmt.Errorf("%w: content generator cannot be nil", ErrInvalidConfig)
	}
	if cfg.ModelName == "" {
		return nil, fmt.Errorf("%w: model name cannot be empty", ErrInvalidConfig)
	}
	if log == nil {
		log = slog.Default()
	}
	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	retryDelay := cfg.RetryDelay
	if retryDelay <= 0 {
		retryDelay = time.Second
	}

	return &Analyzer{
		logger:     log.With(slog.String("component", "gemini_analyzer")),
		models:     models,
		model:      cfg.ModelName,
		maxRetries: maxRetries,
		retryDelay: retryDelay,
	}, nil
}

// AnalyzeText returns the sentiment of text as one of positive, negative or neutral.
func (a *Analyzer) AnalyzeText(ctx context.Context, text string) (domain.Classification, error) {
	if strings.TrimSpace(text) == "" {
		return domain.Classification{}, ErrEmptyInput
	}

	prompt, err := render(sentimentTemplate, promptData{Text: text, Labels: sentimentLabels})
	if err != nil {
		return domain.Classification{}, err
	}

	c, err := a.classify(ctx, []*genai.Part{{Text: prompt}})
	if err != nil {
		return domain.Classification{}, err
	}
	c.Category = strings.ToLower(c.Category)
	if !slices.Contains(sentimentLabels, c.Category) {
		return domain.Classification{}, fmt.Errorf("%w: unknown sentiment %q", ErrInvalidResponse, c.Category)
	}
	return c, nil
}

// ClassifyImage returns a category label for an image.
func (a *Analyzer) ClassifyImage(ctx context.Context, data []byte, mimeType string) (domain.Classification, error) {
	if len(data) == 0 {
		return domain.Classification{}, ErrEmptyInput
	}
	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	prompt, err := render(imageTemplate, promptData{})
	if err != nil {
		return domain.Classification{}, err
	}

	return a.classify(ctx, []*genai.Part{
		{Text: prompt},
		{InlineData: &genai.Blob{MIMEType: mimeType, Data: data}},
	})
}

// classify calls the model with exponential backoff and jitter between
// attempts. Blocked and malformed responses are not retried.
func (a *Analyzer) classify(ctx context.Context, parts []*genai.Part) (domain.Classification, error) {
	log := logger.FromContextOrDefault(ctx, a.logger)
	contents := []*genai.Content{{Role: "user", Parts: parts}}
	cfg := &genai.GenerateContentConfig{ResponseMIMEType: "application/json"}

	for attempt := 0; ; attempt++ {
		resp, err := a.models.GenerateContent(ctx, a.model, contents, cfg)
		if err == nil {
			c, perr := parseResponse(resp)
			if perr != nil {
				log.WarnContext(ctx, "gemini returned an unusable response",
					slog.String("error", perr.Error()),
					slog.Int("attempt", attempt+1))
			}
			return c, perr
		}

		if ctx.Err() != nil {
			return domain.Classification{}, fmt.Errorf("%w: %v", ErrTransientFailure, ctx.Err())
		}
		log.WarnContext(ctx, "gemini API call failed",
			slog.String("error", err.Error()),
			slog.Int("attempt", attempt+1),
			slog.Int("max_attempts", a.maxRetries+1))

		if attempt >= a.maxRetries {
			return domain.Classification{}, fmt.Errorf("%w: exceeded maximum retry attempts (%d): %v",
				ErrTransientFailure, a.maxRetries, err)
		}

		// delay = base * 2^attempt * [0.5, 1.0)
		delay := time.Duration(float64(a.retryDelay) * math.Pow(2, float64(attempt)) * (0.5 + rand.Float64()*0.5))
		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return domain.Classification{}, fmt.Errorf("%w: %v", ErrTransientFailure, ctx.Err())
		}
	}
}

func parseResponse(resp *genai.GenerateContentResponse) (domain.Classification, error) {
	switch {
	case resp == nil:
		return domain.Classification{}, fmt.Errorf("%w: nil response", ErrInvalidResponse)
	case resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "":
		return domain.Classification{}, fmt.Errorf("%w: %s", ErrContentBlocked, resp.PromptFeedback.BlockReason)
	case len(resp.Candidates) == 0 || resp.Candidates[0] == nil:
		return domain.Classification{}, fmt.Errorf("%w: no candidates", ErrInvalidResponse)
	case resp.Candidates[0].FinishReason == genai.FinishReasonSafety:
		return domain.Classification{}, ErrContentBlocked
	case resp.Candidates[0].Content == nil:
		return domain.Classification{}, fmt.Errorf("%w: empty content", ErrInvalidResponse)
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil {
			text.WriteString(part.Text)
		}
	}

	var parsed responseSchema
	if err := json.Unmarshal([]byte(stripFence(text.String())), &parsed); err != nil {
		return domain.Classification{}, fmt.Errorf("%w: failed to parse JSON: %v", ErrInvalidResponse, err)
	}
	if strings.TrimSpace(parsed.Category) == "" {
		return domain.Classification{}, fmt.Errorf("%w: missing category", ErrInvalidResponse)
	}
	if parsed.Confidence == nil {
		return domain.Classification{}, fmt.Errorf("%w: missing confidence", ErrInvalidResponse)
	}
	if *parsed.Confidence < 0 || *parsed.Confidence > 1 {
		return domain.Classification{}, fmt.Errorf("%w: confidence %v out of range", ErrInvalidResponse, *parsed.Confidence)
	}

	return domain.Classification{
		Category:   strings.TrimSpace(parsed.Category),
		Confidence: *parsed.Confidence,
	}, nil
}

// stripFence removes a markdown code fence some models wrap JSON in.
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	return strings.TrimSpace(strings.TrimSuffix(s, "```"))
}
