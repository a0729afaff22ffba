package notify

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/nudge-api/internal/config"
	"github.com/phrazzld/nudge-api/internal/domain"
	"github.com/phrazzld/nudge-api/internal/gateway"
	"github.com/phrazzld/nudge-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

// staticTokens serves a single token for every owner, or none.
type staticTokens struct {
	tok *oauth2.Token
}

func (s staticTokens) Get(ctx context.Context, owner uuid.UUID, provider string) (*oauth2.Token, error) {
	if s.tok == nil {
		return nil, store.ErrTokenNotFound
	}
	cp := *s.tok
	return &cp, nil
}

func (s staticTokens) Save(ctx context.Context, owner uuid.UUID, provider string, tok *oauth2.Token) error {
	return nil
}

func newTarget() *domain.NotificationTarget {
	event := time.Date(2026, 5, 4, 0, 0, 0, 0, time.UTC)
	return &domain.NotificationTarget{
		ID:            uuid.New(),
		Owner:         uuid.New(),
		SourceLabel:   "Ana's birthday",
		EventDate:     &event,
		RecipientName: "Ana",
		Email:         "ana@example.com",
		Phone:         "+15550100",
		Channel:       domain.PreferBoth,
	}
}

func TestRendererRender(t *testing.T) {
	t.Parallel()

	msg, err := DefaultRenderer().Render(newTarget(), "Bring cake.")
	require.NoError(t, err)
	assert.Equal(t, "Reminder: Ana's birthday", msg.Subject)
	assert.Contains(t, msg.Body, "Hi Ana,")
	assert.Contains(t, msg.Body, "on 2026-05-04")
	assert.Contains(t, msg.Body, "Bring cake.")

	target := newTarget()
	target.EventDate = nil
	target.RecipientName = ""
	msg, err = DefaultRenderer().Render(target, "")
	require.NoError(t, err)
	assert.Contains(t, msg.Body, "Hi there,")
	assert.NotContains(t, msg.Body, " on ")

	_, err = NewRenderer("{{.Missing", "")
	assert.Error(t, err)
}

func TestFailureReason(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		want string
	}{
		{err: context.DeadlineExceeded, want: "timeout"},
		{err: fmt.Errorf("post: %w", context.DeadlineExceeded), want: "timeout"},
		{err: fmt.Errorf("%w: provider returned 401", gateway.ErrUnauthenticated), want: "unauthenticated"},
		{err: fmt.Errorf("%w: email", domain.ErrMissingContact), want: "missing contact"},
		{err: &providerError{provider: "gmail", status: 500}, want: "gmail returned status 500"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FailureReason(tt.err))
	}
}

func TestEmailSender(t *testing.T) {
	t.Parallel()

	var (
		mu     sync.Mutex
		gotRaw string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/gmail/v1/users/me/messages/send" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		switch r.Header.Get("Authorization") {
		case "Bearer good":
		case "Bearer overloaded":
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":{"code":500,"message":"backend error"}}`))
			return
		default:
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		mu.Lock()
		gotRaw = body["raw"]
		mu.Unlock()
		_, _ = w.Write([]byte(`{"id":"gmail-123","threadId":"t"}`))
	}))
	defer srv.Close()

	newSender := func(tok *oauth2.Token) *EmailSender {
		gw := gateway.NewTokenGateway(gateway.ProviderGmail, srv.URL, config.OAuthClientConfig{TokenURL: srv.URL + "/token"},
			staticTokens{tok: tok}, nil, gateway.WithHTTPClient(srv.Client()))
		return NewEmailSender(gw, "nudge@example.com", nil)
	}
	msg := Message{Subject: "Reminder: Ana's birthday", Body: "Hi Ana,\nsoon"}

	t.Run("success", func(t *testing.T) {
		sess := gateway.Acquire()
		defer sess.Release()
		target := newTarget()

		receipt := newSender(&oauth2.Token{AccessToken: "good", Expiry: time.Now().Add(time.Hour)}).
			Send(context.Background(), sess, target, msg)

		assert.True(t, receipt.Success)
		assert.Equal(t, "gmail-123", receipt.ProviderMessageID)
		assert.Equal(t, domain.ChannelEmail, receipt.Channel)
		assert.Equal(t, target.ID, receipt.TargetID)

		mu.Lock()
		defer mu.Unlock()
		raw, err := base64.RawURLEncoding.DecodeString(gotRaw)
		require.NoError(t, err)
		assert.Contains(t, string(raw), "To: ana@example.com\r\n")
		assert.Contains(t, string(raw), "From: nudge@example.com\r\n")
		assert.True(t, strings.HasSuffix(string(raw), "Hi Ana,\r\nsoon"))
	})

	tests := []struct {
		name   string
		tok    *oauth2.Token
		target func() *domain.NotificationTarget
		want   string
	}{
		{name: "no token", target: newTarget, want: "unauthenticated"},
		{name: "rejected token", tok: &oauth2.Token{AccessToken: "bad", Expiry: time.Now().Add(time.Hour)}, target: newTarget, want: "unauthenticated"},
		{name: "gmail server error", tok: &oauth2.Token{AccessToken: "overloaded", Expiry: time.Now().Add(time.Hour)}, target: newTarget, want: "gmail returned status 500"},
		{name: "no email address", tok: &oauth2.Token{AccessToken: "good", Expiry: time.Now().Add(time.Hour)}, target: func() *domain.NotificationTarget {
			tg := newTarget()
			tg.Email = ""
			return tg
		}, want: "missing contact"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sess := gateway.Acquire()
			defer sess.Release()

			receipt := newSender(tt.tok).Send(context.Background(), sess, tt.target(), msg)
			assert.False(t, receipt.Success)
			assert.Empty(t, receipt.ProviderMessageID)
			assert.Equal(t, tt.want, receipt.FailureReason)
		})
	}
}

func TestMessagingSender(t *testing.T) {
	t.Parallel()

	var (
		mu             sync.Mutex
		gotTo, gotBody string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Header.Get("Authorization") != "Bearer wa-token":
			w.WriteHeader(http.StatusUnauthorized)
		case r.URL.Path == "/12345/messages":
			var req whatsAppRequest
			_ = json.NewDecoder(r.Body).Decode(&req)
			mu.Lock()
			gotTo, gotBody = req.To, req.Text.Body
			mu.Unlock()
			_, _ = w.Write([]byte(`{"messaging_product":"whatsapp","messages":[{"id":"wamid.abc"}]}`))
		case r.URL.Path == "/slow/messages":
			time.Sleep(200 * time.Millisecond)
			_, _ = w.Write([]byte(`{"messages":[{"id":"late"}]}`))
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	}))
	defer srv.Close()

	newSender := func(phoneID, token string) *MessagingSender {
		return NewMessagingSender(config.MessagingConfig{
			BaseURL:       srv.URL,
			PhoneNumberID: phoneID,
			AccessToken:   token,
		}, srv.Client(), nil)
	}
	msg := Message{Subject: "Reminder", Body: "Hi"}

	t.Run("success", func(t *testing.T) {
		receipt := newSender("12345", "wa-token").Send(context.Background(), nil, newTarget(), msg)
		assert.True(t, receipt.Success)
		assert.Equal(t, "wamid.abc", receipt.ProviderMessageID)
		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, "15550100", gotTo)
		assert.Equal(t, "*Reminder*\n\nHi", gotBody)
	})

	t.Run("provider error", func(t *testing.T) {
		receipt := newSender("bogus", "wa-token").Send(context.Background(), nil, newTarget(), msg)
		assert.False(t, receipt.Success)
		assert.Equal(t, "whatsapp returned status 400", receipt.FailureReason)
	})

	t.Run("bad token", func(t *testing.T) {
		receipt := newSender("12345", "nope").Send(context.Background(), nil, newTarget(), msg)
		assert.Equal(t, "unauthenticated", receipt.FailureReason)
	})

	t.Run("timeout", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		receipt := newSender("slow", "wa-token").Send(ctx, nil, newTarget(), msg)
		assert.False(t, receipt.Success)
		assert.Equal(t, "timeout", receipt.FailureReason)
	})
}

func TestRegistry(t *testing.T) {
	t.Parallel()

	email := NewEmailSender(nil, "", nil)
	reg := NewRegistry(email)

	s, ok := reg.Get(domain.ChannelEmail)
	require.True(t, ok)
	assert.Same(t, email, s)

	_, ok = reg.Get(domain.ChannelMessaging)
	assert.False(t, ok)
}
