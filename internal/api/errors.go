package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/phrazzld/nudge-api/internal/api/shared"
	"github.com/phrazzld/nudge-api/internal/service"
	"github.com/phrazzld/nudge-api/internal/service/auth"
	"github.com/phrazzld/nudge-api/internal/stats"
	"github.com/phrazzld/nudge-api/internal/store"
	"github.com/phrazzld/nudge-api/internal/task"
)

// Request errors raised by the handlers themselves.
var (
	// ErrUnauthenticated means no owner was found in the request context.
	ErrUnauthenticated = errors.New("owner not authenticated")

	// ErrInvalidPathParam means a path parameter is missing or malformed.
	ErrInvalidPathParam = errors.New("invalid path parameter")
)

// MapErrorToStatusCode maps internal errors to HTTP status codes without
// leaking error types to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	case errors.Is(err, ErrUnauthenticated),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrWrongTokenType):
		return http.StatusUnauthorized

	case errors.Is(err, service.ErrTaskNotFound),
		errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound

	case errors.Is(err, service.ErrTaskNotCancellable):
		return http.StatusConflict

	case errors.Is(err, ErrInvalidPathParam),
		errors.Is(err, service.ErrInvalidTask),
		errors.Is(err, stats.ErrUnknownRecordType),
		errors.Is(err, store.ErrInvalidEntity):
		return http.StatusBadRequest

	case errors.Is(err, task.ErrStoreUnavailable),
		errors.Is(err, store.ErrUnavailable):
		return http.StatusServiceUnavailable

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a client-facing message for err.
func GetSafeErrorMessage(err error) string {
	switch {
	case err == nil:
		return "An unexpected error occurred"
	case errors.Is(err, ErrUnauthenticated):
		return "Owner not found or invalid"
	case errors.Is(err, auth.ErrExpiredToken):
		return "Token expired"
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrWrongTokenType):
		return "Invalid token"
	case errors.Is(err, service.ErrTaskNotFound), errors.Is(err, store.ErrNotFound):
		return "Task not found"
	case errors.Is(err, service.ErrTaskNotCancellable):
		return "Task is no longer pending"
	case errors.Is(err, ErrInvalidPathParam):
		return "Invalid path parameter"
	case errors.Is(err, stats.ErrUnknownRecordType):
		return "Unknown record type"
	case errors.Is(err, task.ErrUnknownKind):
		return "Unknown task kind"
	case errors.Is(err, task.ErrInvalidPayload):
		return "Invalid task payload"
	case errors.Is(err, service.ErrInvalidTask), errors.Is(err, store.ErrInvalidEntity):
		return "Invalid task"
	case errors.Is(err, task.ErrStoreUnavailable), errors.Is(err, store.ErrUnavailable):
		return "Task store unavailable"
	default:
		return "An unexpected error occurred"
	}
}

// HandleAPIError writes the mapped status and safe message for err and logs
// the redacted error. message overrides the safe message when non-empty.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, message string) {
	if message == "" {
		message = GetSafeErrorMessage(err)
	}
	shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), message, err)
}

// SanitizeValidationError turns validator errors into a short message naming
// the first offending field.
func SanitizeValidationError(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "Validation error"
	}
	fe := verrs[0]
	return fmt.Sprintf("Invalid %s: %s", fe.Field(), validationTagMessage(fe.Tag()))
}

func validationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "min":
		return "too short"
	case "max":
		return "too long"
	case "oneof":
		return "invalid value"
	default:
		return "validation failed"
	}
}
