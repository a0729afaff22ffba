package task

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/go-playground/validator/v10"
	"github.com/phrazzld/nudge-api/internal/domain"
	"github.com/phrazzld/nudge-api/internal/gateway"
)

// Strategy runs one kind of task.
type Strategy interface {
	// Kind returns the task kind handled by the strategy.
	Kind() domain.Kind

	// Validate checks a payload before a task is created.
	Validate(payload json.RawMessage) error

	// Run executes the task and returns the result to store on completion.
	// A returned error fails the task with the error's message.
	Run(ctx context.Context, sess *gateway.Session, task *domain.Task) (json.RawMessage, error)
}

// Registry maps task kinds to strategies. It is built once at startup and
// read-only afterwards.
type Registry struct {
	strategies map[domain.Kind]Strategy
}

// NewRegistry builds a registry from strategies.
func NewRegistry(strategies ...Strategy) (*Registry, error) {
	r := &Registry{strategies: make(map[domain.Kind]Strategy, len(strategies))}
	for _, s := range strategies {
		if !s.Kind().Valid() {
			return nil, fmt.Errorf("%w: %q", domain.ErrInvalidTaskKind, s.Kind())
		}
		if _, dup := r.strategies[s.Kind()]; dup {
			return nil, fmt.Errorf("duplicate strategy for kind %s", s.Kind())
		}
		r.strategies[s.Kind()] = s
	}
	return r, nil
}

// Get returns the strategy for kind.
func (r *Registry) Get(kind domain.Kind) (Strategy, bool) {
	s, ok := r.strategies[kind]
	return s, ok
}

// Validate reports every known kind that has no strategy.
func (r *Registry) Validate() error {
	var missing []string
	for _, k := range domain.Kinds {
		if _, ok := r.strategies[k]; !ok {
			missing = append(missing, string(k))
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("%w: %v", ErrUnknownKind, missing)
	}
	return nil
}

// ValidatePayload checks payload against the strategy for kind.
func (r *Registry) ValidatePayload(kind domain.Kind, payload json.RawMessage) error {
	s, ok := r.Get(kind)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}
	if err := s.Validate(payload); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return nil
}

var validate = validator.New()

// decodePayload unmarshals a payload into v and checks its validate tags.
func decodePayload(payload json.RawMessage, v any) error {
	if len(payload) == 0 {
		payload = json.RawMessage(`{}`)
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return nil
}
