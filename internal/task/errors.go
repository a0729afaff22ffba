package task

import (
	"errors"
	"fmt"

	"github.com/phrazzld/nudge-api/internal/store"
)

// Error taxonomy of the orchestration core.
var (
	// ErrStoreUnavailable is returned when the task store cannot be reached.
	// No task status is written for the affected operation.
	ErrStoreUnavailable = errors.New("task store unavailable")

	// ErrClaimLost means another runner claimed or finalized the task first.
	ErrClaimLost = errors.New("task claim lost")

	// ErrUnknownKind is returned when no strategy is registered for a kind.
	ErrUnknownKind = errors.New("no strategy registered for task kind")

	// ErrInvalidPayload is returned when a payload does not match its kind.
	ErrInvalidPayload = errors.New("invalid task payload")

	// ErrNoTargets is returned when a reminder has nobody to notify.
	ErrNoTargets = errors.New("no notification targets for source record")

	// ErrUndelivered is returned when a reminder target received nothing on any channel.
	ErrUndelivered = errors.New("notification not delivered")
)

// StrategyError wraps the cause of a failed strategy run. Its message is
// stored as the task's errorMessage.
type StrategyError struct {
	Kind string
	Err  error
}

func (e *StrategyError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *StrategyError) Unwrap() error { return e.Err }

// storeErr maps store failures onto ErrStoreUnavailable where applicable.
func storeErr(op string, err error) error {
	if errors.Is(err, store.ErrUnavailable) {
		return fmt.Errorf("%w: %s: %v", ErrStoreUnavailable, op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
