package task

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/nudge-api/internal/domain"
	"github.com/phrazzld/nudge-api/internal/gateway"
	"github.com/phrazzld/nudge-api/internal/metrics"
	"github.com/phrazzld/nudge-api/internal/notify"
	"github.com/phrazzld/nudge-api/internal/platform/logger"
	"github.com/phrazzld/nudge-api/internal/store"
	"golang.org/x/sync/errgroup"
)

// ReminderPayload is the payload of a periodic-reminder task.
type ReminderPayload struct {
	SourceRecordID uuid.UUID `json:"sourceRecordId" validate:"required"`
	Note           string    `json:"note,omitempty" validate:"max=1000"`
}

// ReminderStrategy notifies every target attached to a source record on the
// channels the target prefers.
type ReminderStrategy struct {
	targets     store.TargetStore
	senders     *notify.Registry
	renderer    *notify.Renderer
	sendTimeout time.Duration
	now         func() time.Time
	logger      *slog.Logger
}

// NewReminderStrategy creates a ReminderStrategy. Each send is bounded by sendTimeout.
func NewReminderStrategy(
	targets store.TargetStore,
	senders *notify.Registry,
	renderer *notify.Renderer,
	sendTimeout time.Duration,
	log *slog.Logger,
) *ReminderStrategy {
	if renderer == nil {
		renderer = notify.DefaultRenderer()
	}
	if log == nil {
		log = slog.Default()
	}
	return &ReminderStrategy{
		targets:     targets,
		senders:     senders,
		renderer:    renderer,
		sendTimeout: sendTimeout,
		now:         time.Now,
		logger:      log.With(slog.String("component", "reminder_strategy")),
	}
}

// Kind implements Strategy.
func (s *ReminderStrategy) Kind() domain.Kind { return domain.KindPeriodicReminder }

// Validate implements Strategy.
func (s *ReminderStrategy) Validate(payload json.RawMessage) error {
	var p ReminderPayload
	return decodePayload(payload, &p)
}

// Run implements Strategy. The task completes when every target received the
// reminder on at least one channel. Failed channels are reported as notes.
func (s *ReminderStrategy) Run(ctx context.Context, sess *gateway.Session, task *domain.Task) (json.RawMessage, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var p ReminderPayload
	if err := decodePayload(task.Payload, &p); err != nil {
		return nil, err
	}

	targets, err := s.targets.FindBySource(ctx, task.Owner, p.SourceRecordID)
	if err != nil {
		return nil, fmt.Errorf("failed to load notification targets: %w", err)
	}
	if len(targets) == 0 {
		return nil, ErrNoTargets
	}

	result := domain.ReminderResult{Receipts: make([]domain.DeliveryReceipt, 0)}
	var undelivered []string
	for _, target := range targets {
		receipts := s.deliver(ctx, sess, target, p.Note)

		delivered := false
		for _, r := range receipts {
			metrics.RecordDelivery(string(r.Channel), r.Success)
			if r.Success {
				delivered = true
				result.Receipts = append(result.Receipts, r)
				continue
			}
			result.Notes = append(result.Notes, fmt.Sprintf("%s: %s", r.Channel, r.FailureReason))
		}
		if !delivered {
			undelivered = append(undelivered, target.ID.String())
		}
	}

	log.DebugContext(ctx, "reminder delivered",
		slog.String("task_id", task.ID.String()),
		slog.Int("targets", len(targets)),
		slog.Int("receipts", len(result.Receipts)),
		slog.Int("notes", len(result.Notes)))

	if len(undelivered) > 0 {
		return nil, fmt.Errorf("%w to target(s) %s: %s",
			ErrUndelivered, strings.Join(undelivered, ", "), strings.Join(result.Notes, "; "))
	}

	raw, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("failed to encode reminder result: %w", err)
	}
	return raw, nil
}

// deliver sends to every preferred channel of target concurrently and returns
// one receipt per channel, in channel order.
func (s *ReminderStrategy) deliver(
	ctx context.Context,
	sess *gateway.Session,
	target *domain.NotificationTarget,
	note string,
) []domain.DeliveryReceipt {
	channels, err := target.Channel.Channels()
	if err != nil {
		// An unusable preference still produces a receipt so it shows up as a note.
		return []domain.DeliveryReceipt{domain.DeliveryFailed(domain.Channel(target.Channel), target.ID, err.Error(), s.now())}
	}

	msg, err := s.renderer.Render(target, note)
	if err != nil {
		receipts := make([]domain.DeliveryReceipt, len(channels))
		for i, ch := range channels {
			receipts[i] = domain.DeliveryFailed(ch, target.ID, err.Error(), s.now())
		}
		return receipts
	}

	receipts := make([]domain.DeliveryReceipt, len(channels))
	var g errgroup.Group
	for i, ch := range channels {
		g.Go(func() error {
			sender, ok := s.senders.Get(ch)
			if !ok {
				receipts[i] = domain.DeliveryFailed(ch, target.ID, "channel not configured", s.now())
				return nil
			}
			sendCtx, cancel := context.WithTimeout(ctx, s.sendTimeout)
			defer cancel()

			// The deadline holds even for a sender that ignores its context.
			done := make(chan domain.DeliveryReceipt, 1)
			go func() { done <- sender.Send(sendCtx, sess, target, msg) }()
			select {
			case r := <-done:
				receipts[i] = r
			case <-sendCtx.Done():
				receipts[i] = domain.DeliveryFailed(ch, target.ID, notify.FailureReason(sendCtx.Err()), s.now())
			}
			return nil
		})
	}
	_ = g.Wait()
	return receipts
}

var _ Strategy = (*ReminderStrategy)(nil)
