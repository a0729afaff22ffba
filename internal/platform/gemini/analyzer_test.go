package gemini

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/phrazzld/nudge-api/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

// fakeModels returns queued responses in order and records the requests.
type fakeModels struct {
	responses []*genai.GenerateContentResponse
	errs      []error
	calls     int
	lastParts []*genai.Part
}

func (f *fakeModels) GenerateContent(
	ctx context.Context,
	model string,
	contents []*genai.Content,
	cfg *genai.GenerateContentConfig,
) (*genai.GenerateContentResponse, error) {
	i := f.calls
	f.calls++
	f.lastParts = contents[0].Parts
	var err error
	if i < len(f.errs) {
		err = f.errs[i]
	}
	if err != nil {
		return nil, err
	}
	if i < len(f.responses) {
		return f.responses[i], nil
	}
	return f.responses[len(f.responses)-1], nil
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{Text: text}}},
		}},
	}
}

func newTestAnalyzer(t *testing.T, models contentGenerator) *Analyzer {
	t.Helper()
	a, err := newAnalyzer(nil, models, config.LLMConfig{
		ModelName:  "test-model",
		MaxRetries: 2,
		RetryDelay: time.Millisecond,
	})
	require.NoError(t, err)
	return a
}

func TestAnalyzeText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		response string
		wantCat  string
		wantErr  error
	}{
		{name: "plain json", response: `{"category":"Positive","confidence":0.92}`, wantCat: "positive"},
		{name: "fenced json", response: "```json\n{\"category\":\"neutral\",\"confidence\":0.5}\n```", wantCat: "neutral"},
		{name: "unknown label", response: `{"category":"ecstatic","confidence":0.9}`, wantErr: ErrInvalidResponse},
		{name: "missing confidence", response: `{"category":"negative"}`, wantErr: ErrInvalidResponse},
		{name: "confidence out of range", response: `{"category":"negative","confidence":3}`, wantErr: ErrInvalidResponse},
		{name: "not json", response: `I think it is positive`, wantErr: ErrInvalidResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			models := &fakeModels{responses: []*genai.GenerateContentResponse{textResponse(tt.response)}}
			a := newTestAnalyzer(t, models)

			got, err := a.AnalyzeText(context.Background(), "what a lovely day")
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, 1, models.calls, "parse failures are not retried")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantCat, got.Category)
			assert.Contains(t, models.lastParts[0].Text, "what a lovely day")
		})
	}
}

func TestAnalyzeTextEmptyInput(t *testing.T) {
	t.Parallel()

	models := &fakeModels{}
	a := newTestAnalyzer(t, models)

	_, err := a.AnalyzeText(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyInput)
	assert.Zero(t, models.calls)
}

func TestClassifyRetries(t *testing.T) {
	t.Parallel()

	t.Run("recovers after transient error", func(t *testing.T) {
		models := &fakeModels{
			errs:      []error{errors.New("503 unavailable"), nil},
			responses: []*genai.GenerateContentResponse{nil, textResponse(`{"category":"dog","confidence":0.7}`)},
		}
		a := newTestAnalyzer(t, models)

		got, err := a.ClassifyImage(context.Background(), []byte{0xff, 0xd8}, "image/jpeg")
		require.NoError(t, err)
		assert.Equal(t, "dog", got.Category)
		assert.Equal(t, 2, models.calls)
		require.Len(t, models.lastParts, 2)
		assert.Equal(t, "image/jpeg", models.lastParts[1].InlineData.MIMEType)
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		boom := errors.New("503 unavailable")
		models := &fakeModels{errs: []error{boom, boom, boom, boom}}
		a := newTestAnalyzer(t, models)

		_, err := a.ClassifyImage(context.Background(), []byte{1}, "")
		assert.ErrorIs(t, err, ErrTransientFailure)
		assert.Equal(t, 3, models.calls)
	})

	t.Run("safety block is permanent", func(t *testing.T) {
		models := &fakeModels{responses: []*genai.GenerateContentResponse{{
			Candidates: []*genai.Candidate{{FinishReason: genai.FinishReasonSafety}},
		}}}
		a := newTestAnalyzer(t, models)

		_, err := a.ClassifyImage(context.Background(), []byte{1}, "image/png")
		assert.ErrorIs(t, err, ErrContentBlocked)
		assert.Equal(t, 1, models.calls)
	})

	t.Run("cancelled context stops retrying", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		models := &fakeModels{errs: []error{context.Canceled}}
		a := newTestAnalyzer(t, models)

		_, err := a.ClassifyImage(ctx, []byte{1}, "image/png")
		assert.ErrorIs(t, err, ErrTransientFailure)
		assert.Equal(t, 1, models.calls)
	})
}

func TestNewAnalyzerValidation(t *testing.T) {
	t.Parallel()

	_, err := NewAnalyzer(context.Background(), nil, config.LLMConfig{ModelName: "m"})
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = newAnalyzer(nil, &fakeModels{}, config.LLMConfig{})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
