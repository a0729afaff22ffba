package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Channel is a notification delivery mechanism.
type Channel string

// Supported delivery channels
const (
	ChannelEmail     Channel = "email"
	ChannelMessaging Channel = "messaging"
)

// ChannelPreference is a target's choice of delivery channel(s).
type ChannelPreference string

// Possible channel preferences
const (
	PreferEmail     ChannelPreference = "email"
	PreferMessaging ChannelPreference = "messaging"
	PreferBoth      ChannelPreference = "both"
)

// ErrInvalidChannelPreference is returned for an unknown preference value.
var ErrInvalidChannelPreference = errors.New("invalid channel preference")

// Channels expands a preference into the channels to deliver on, in a fixed order.
func (p ChannelPreference) Channels() ([]Channel, error) {
	switch p {
	case PreferEmail:
		return []Channel{ChannelEmail}, nil
	case PreferMessaging:
		return []Channel{ChannelMessaging}, nil
	case PreferBoth:
		return []Channel{ChannelEmail, ChannelMessaging}, nil
	default:
		return nil, ErrInvalidChannelPreference
	}
}

// NotificationTarget is a recipient of a periodic reminder. It is owned by the
// surrounding application; the orchestration core only reads it.
type NotificationTarget struct {
	ID             uuid.UUID         `json:"id"`
	Owner          uuid.UUID         `json:"owner"`
	SourceRecordID uuid.UUID         `json:"sourceRecordId"`
	SourceLabel    string            `json:"sourceLabel"`
	EventDate      *time.Time        `json:"eventDate,omitempty"`
	RecipientName  string            `json:"recipientName"`
	Email          string            `json:"email,omitempty"`
	Phone          string            `json:"phone,omitempty"`
	Channel        ChannelPreference `json:"channel"`
}

// AddressFor returns the target's address on ch, or ErrMissingContact.
func (t *NotificationTarget) AddressFor(ch Channel) (string, error) {
	var addr string
	switch ch {
	case ChannelEmail:
		addr = t.Email
	case ChannelMessaging:
		addr = t.Phone
	}
	if addr == "" {
		return "", fmt.Errorf("%w: %s", ErrMissingContact, ch)
	}
	return addr, nil
}

// DeliveryReceipt records the outcome of one send attempt. Receipts are
// never mutated after creation.
type DeliveryReceipt struct {
	Channel           Channel   `json:"channel"`
	TargetID          uuid.UUID `json:"targetId"`
	Success           bool      `json:"success"`
	ProviderMessageID string    `json:"providerMessageId,omitempty"`
	FailureReason     string    `json:"failureReason,omitempty"`
	AttemptedAt       time.Time `json:"attemptedAt"`
}

// DeliverySucceeded builds a successful receipt.
func DeliverySucceeded(ch Channel, targetID uuid.UUID, providerID string, at time.Time) DeliveryReceipt {
	return DeliveryReceipt{
		Channel:           ch,
		TargetID:          targetID,
		Success:           true,
		ProviderMessageID: providerID,
		AttemptedAt:       at.UTC(),
	}
}

// DeliveryFailed builds a failed receipt.
func DeliveryFailed(ch Channel, targetID uuid.UUID, reason string, at time.Time) DeliveryReceipt {
	if reason == "" {
		reason = "unknown failure"
	}
	return DeliveryReceipt{
		Channel:       ch,
		TargetID:      targetID,
		Success:       false,
		FailureReason: reason,
		AttemptedAt:   at.UTC(),
	}
}

// ReminderResult is stored as the result of a completed periodic-reminder task.
// Receipts holds successful deliveries only; failed channels become notes.
type ReminderResult struct {
	Receipts []DeliveryReceipt `json:"receipts"`
	Notes    []string          `json:"notes,omitempty"`
}

// Classification is the output of a content or media analysis routine.
type Classification struct {
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
}
