package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/phrazzld/nudge-api/internal/domain"
	"github.com/phrazzld/nudge-api/internal/gateway"
)

// Message is a rendered notification.
type Message struct {
	Subject string
	Body    string
}

// Sender delivers a message to a target on one channel.
type Sender interface {
	Channel() domain.Channel
	Send(ctx context.Context, sess *gateway.Session, target *domain.NotificationTarget, msg Message) domain.DeliveryReceipt
}

// Registry maps channels to senders.
type Registry struct {
	senders map[domain.Channel]Sender
}

// NewRegistry builds a registry. A later sender for the same channel replaces an earlier one.
func NewRegistry(senders ...Sender) *Registry {
	r := &Registry{senders: make(map[domain.Channel]Sender, len(senders))}
	for _, s := range senders {
		r.senders[s.Channel()] = s
	}
	return r
}

// Get returns the sender for ch.
func (r *Registry) Get(ch domain.Channel) (Sender, bool) {
	s, ok := r.senders[ch]
	return s, ok
}

// FailureReason converts a send error into the reason recorded on a receipt.
func FailureReason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "cancelled"
	case errors.Is(err, gateway.ErrUnauthenticated):
		return "unauthenticated"
	case errors.Is(err, domain.ErrMissingContact):
		return "missing contact"
	default:
		return err.Error()
	}
}

// providerError is returned for non-2xx provider responses.
type providerError struct {
	provider string
	status   int
}

func (e *providerError) Error() string {
	return fmt.Sprintf("%s returned status %d", e.provider, e.status)
}
