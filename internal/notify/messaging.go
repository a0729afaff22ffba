package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/phrazzld/nudge-api/internal/config"
	"github.com/phrazzld/nudge-api/internal/domain"
	"github.com/phrazzld/nudge-api/internal/gateway"
	"github.com/phrazzld/nudge-api/internal/platform/logger"
	"golang.org/x/oauth2"
)

// MessagingSender sends text messages through the WhatsApp Cloud API using a
// business access token.
type MessagingSender struct {
	client        *http.Client
	baseURL       string
	phoneNumberID string
	now           func() time.Time
	logger        *slog.Logger
}

// NewMessagingSender creates a MessagingSender. base, when non-nil, is used as
// the underlying transport client.
func NewMessagingSender(cfg config.MessagingConfig, base *http.Client, log *slog.Logger) *MessagingSender {
	if log == nil {
		log = slog.Default()
	}
	if base == nil {
		base = &http.Client{Timeout: 30 * time.Second}
	}
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.AccessToken, TokenType: "Bearer"})

	return &MessagingSender{
		client:        oauth2.NewClient(ctx, ts),
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		phoneNumberID: cfg.PhoneNumberID,
		now:           time.Now,
		logger:        log.With(slog.String("component", "messaging_sender")),
	}
}

// Channel implements Sender.
func (s *MessagingSender) Channel() domain.Channel { return domain.ChannelMessaging }

// Send implements Sender. The session is unused: the business token is not per owner.
func (s *MessagingSender) Send(
	ctx context.Context,
	_ *gateway.Session,
	target *domain.NotificationTarget,
	msg Message,
) domain.DeliveryReceipt {
	log := logger.FromContextOrDefault(ctx, s.logger)

	id, err := s.send(ctx, target, msg)
	if err != nil {
		reason := FailureReason(err)
		log.WarnContext(ctx, "messaging delivery failed",
			slog.String("target_id", target.ID.String()),
			slog.String("reason", reason))
		return domain.DeliveryFailed(domain.ChannelMessaging, target.ID, reason, s.now())
	}
	return domain.DeliverySucceeded(domain.ChannelMessaging, target.ID, id, s.now())
}

type whatsAppText struct {
	Body string `json:"body"`
}

type whatsAppRequest struct {
	MessagingProduct string       `json:"messaging_product"`
	To               string       `json:"to"`
	Type             string       `json:"type"`
	Text             whatsAppText `json:"text"`
}

type whatsAppResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

func (s *MessagingSender) send(ctx context.Context, target *domain.NotificationTarget, msg Message) (string, error) {
	to, err := target.AddressFor(domain.ChannelMessaging)
	if err != nil {
		return "", err
	}

	body := msg.Body
	if msg.Subject != "" {
		body = "*" + msg.Subject + "*\n\n" + msg.Body
	}
	payload, err := json.Marshal(whatsAppRequest{
		MessagingProduct: "whatsapp",
		To:               strings.TrimPrefix(to, "+"),
		Type:             "text",
		Text:             whatsAppText{Body: body},
	})
	if err != nil {
		return "", err
	}

	url := s.baseURL + "/" + s.phoneNumberID + "/messages"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusUnauthorized {
		_, _ = io.Copy(io.Discard, resp.Body)
		return "", gateway.ErrUnauthenticated
	}
	if resp.StatusCode/100 != 2 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return "", &providerError{provider: "whatsapp", status: resp.StatusCode}
	}

	var out whatsAppResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode whatsapp response: %w", err)
	}
	if len(out.Messages) == 0 || out.Messages[0].ID == "" {
		return "", fmt.Errorf("whatsapp response missing message id")
	}
	return out.Messages[0].ID, nil
}

var _ Sender = (*MessagingSender)(nil)
