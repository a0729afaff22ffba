package notify

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"strings"
	"time"

	"github.com/phrazzld/nudge-api/internal/domain"
	"github.com/phrazzld/nudge-api/internal/gateway"
	"github.com/phrazzld/nudge-api/internal/platform/logger"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// EmailSender sends email with the Gmail v1 API as the target's owner.
type EmailSender struct {
	gw     *gateway.TokenGateway
	from   string
	now    func() time.Time
	logger *slog.Logger
}

// NewEmailSender creates an EmailSender. gw must be configured for Gmail.
func NewEmailSender(gw *gateway.TokenGateway, from string, log *slog.Logger) *EmailSender {
	if log == nil {
		log = slog.Default()
	}
	return &EmailSender{
		gw:     gw,
		from:   from,
		now:    time.Now,
		logger: log.With(slog.String("component", "email_sender")),
	}
}

// Channel implements Sender.
func (s *EmailSender) Channel() domain.Channel { return domain.ChannelEmail }

// Send implements Sender.
func (s *EmailSender) Send(
	ctx context.Context,
	sess *gateway.Session,
	target *domain.NotificationTarget,
	msg Message,
) domain.DeliveryReceipt {
	log := logger.FromContextOrDefault(ctx, s.logger)

	id, err := s.send(ctx, sess, target, msg)
	if err != nil {
		reason := FailureReason(err)
		log.WarnContext(ctx, "email delivery failed",
			slog.String("target_id", target.ID.String()),
			slog.String("reason", reason))
		return domain.DeliveryFailed(domain.ChannelEmail, target.ID, reason, s.now())
	}
	return domain.DeliverySucceeded(domain.ChannelEmail, target.ID, id, s.now())
}

func (s *EmailSender) send(
	ctx context.Context,
	sess *gateway.Session,
	target *domain.NotificationTarget,
	msg Message,
) (string, error) {
	to, err := target.AddressFor(domain.ChannelEmail)
	if err != nil {
		return "", err
	}

	client, err := s.gw.Client(ctx, sess, target.Owner)
	if err != nil {
		return "", err
	}
	svc, err := gmail.NewService(ctx, option.WithHTTPClient(client), option.WithEndpoint(s.gw.Endpoint("")))
	if err != nil {
		return "", fmt.Errorf("failed to create gmail client: %w", err)
	}

	raw := base64.RawURLEncoding.EncodeToString(buildRFC822(s.from, to, msg))
	sent, err := svc.Users.Messages.Send("me", &gmail.Message{Raw: raw}).Context(ctx).Do()
	if err != nil {
		err = s.gw.CheckError(ctx, sess, target.Owner, err)
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) {
			return "", &providerError{provider: "gmail", status: apiErr.Code}
		}
		return "", err
	}
	if sent.Id == "" {
		return "", fmt.Errorf("gmail response missing message id")
	}
	return sent.Id, nil
}

// buildRFC822 renders a plain-text message with an encoded subject header.
func buildRFC822(from, to string, msg Message) []byte {
	var b strings.Builder
	if from != "" {
		fmt.Fprintf(&b, "From: %s\r\n", from)
	}
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", msg.Subject))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(msg.Body, "\n", "\r\n"))
	return []byte(b.String())
}

var _ Sender = (*EmailSender)(nil)
