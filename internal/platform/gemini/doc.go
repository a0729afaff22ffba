// Package gemini adapts Google's Gemini API to the analysis routines used by
// the content-analysis and media-processing task strategies.
//
// The Analyzer renders a prompt, asks the model for a JSON classification,
// and validates the response before handing a domain.Classification back to
// the caller. Transient API failures are retried with exponential backoff and
// jitter; blocked or malformed responses are returned immediately.
package gemini
