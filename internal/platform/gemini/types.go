package gemini

import (
	"context"

	"google.golang.org/genai"
)

// contentGenerator is the subset of *genai.Models the analyzer uses.
type contentGenerator interface {
	GenerateContent(
		ctx context.Context,
		model string,
		contents []*genai.Content,
		config *genai.GenerateContentConfig,
	) (*genai.GenerateContentResponse, error)
}

// responseSchema is the JSON object the prompts ask the model to return.
type responseSchema struct {
	Category   string   `json:"category"`
	Confidence *float64 `json:"confidence"`
}
