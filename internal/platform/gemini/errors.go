package gemini

import "errors"

// Error definitions for the gemini package.
var (
	// ErrInvalidConfig is returned when the analyzer cannot be constructed.
	ErrInvalidConfig = errors.New("invalid gemini configuration")

	// ErrEmptyInput is returned for empty text or image payloads.
	ErrEmptyInput = errors.New("analysis input cannot be empty")

	// ErrInvalidResponse is returned when the model output cannot be parsed.
	ErrInvalidResponse = errors.New("invalid response from model")

	// ErrContentBlocked is returned when safety filters block the request.
	ErrContentBlocked = errors.New("content blocked by safety filters")

	// ErrTransientFailure is returned after the retry budget is exhausted.
	ErrTransientFailure = errors.New("transient model failure")
)
