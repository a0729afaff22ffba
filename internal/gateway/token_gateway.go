package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/nudge-api/internal/config"
	"github.com/phrazzld/nudge-api/internal/platform/logger"
	"github.com/phrazzld/nudge-api/internal/store"
	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
)

// ErrUnauthenticated is returned when an owner has no usable token for a
// provider or the provider rejected the token.
var ErrUnauthenticated = errors.New("gateway: not authenticated")

// Provider names used as keys in the token store.
const (
	ProviderGmail = "gmail"
	ProviderDrive = "drive"
)

// TokenGateway hands out per-owner OAuth clients for one provider and maps
// the provider's auth failures to ErrUnauthenticated.
type TokenGateway struct {
	provider string
	baseURL  string
	oauth    *oauth2.Config
	tokens   store.TokenStore
	http     *http.Client
	logger   *slog.Logger
}

// Option configures a TokenGateway.
type Option func(*TokenGateway)

// WithHTTPClient sets the base client used for API calls and token refreshes.
func WithHTTPClient(c *http.Client) Option {
	return func(g *TokenGateway) { g.http = c }
}

// NewTokenGateway creates a gateway for provider rooted at baseURL.
func NewTokenGateway(
	provider, baseURL string,
	client config.OAuthClientConfig,
	tokens store.TokenStore,
	log *slog.Logger,
	opts ...Option,
) *TokenGateway {
	if log == nil {
		log = slog.Default()
	}
	g := &TokenGateway{
		provider: provider,
		baseURL:  strings.TrimRight(baseURL, "/"),
		oauth: &oauth2.Config{
			ClientID:     client.ClientID,
			ClientSecret: client.ClientSecret,
			Endpoint:     oauth2.Endpoint{TokenURL: client.TokenURL},
		},
		tokens: tokens,
		http:   &http.Client{Timeout: 30 * time.Second},
		logger: log.With(slog.String("component", "gateway"), slog.String("provider", provider)),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Provider returns the provider name.
func (g *TokenGateway) Provider() string { return g.provider }

// IsAuthenticated reports whether owner has a token that is valid or can be refreshed.
func (g *TokenGateway) IsAuthenticated(ctx context.Context, owner uuid.UUID) bool {
	tok, err := g.tokens.Get(ctx, owner, g.provider)
	if err != nil {
		return false
	}
	return tok.Valid() || tok.RefreshToken != ""
}

// Endpoint returns the base URL joined with apiRoot, with the trailing slash
// the generated Google API clients expect of a base path.
func (g *TokenGateway) Endpoint(apiRoot string) string {
	root := strings.Trim(apiRoot, "/")
	if root == "" {
		return g.baseURL + "/"
	}
	return g.baseURL + "/" + root + "/"
}

// Client returns owner's authenticated client, cached in sess for the rest
// of the run. It refreshes expired tokens and saves the refreshed token.
// A missing or unrefreshable token yields ErrUnauthenticated.
func (g *TokenGateway) Client(ctx context.Context, sess *Session, owner uuid.UUID) (*http.Client, error) {
	return sess.client(g.key(owner), func() (*http.Client, error) { return g.buildClient(ctx, owner) })
}

// CheckError classifies an error from a call made with owner's client. A
// rejected refresh or an HTTP 401 becomes ErrUnauthenticated and evicts the
// client from sess. Other errors are returned unchanged.
func (g *TokenGateway) CheckError(ctx context.Context, sess *Session, owner uuid.UUID, err error) error {
	if err == nil {
		return nil
	}
	log := logger.FromContextOrDefault(ctx, g.logger)

	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		sess.forget(g.key(owner))
		status := 0
		if retrieveErr.Response != nil {
			status = retrieveErr.Response.StatusCode
		}
		log.WarnContext(ctx, "token refresh rejected",
			slog.String("owner_id", owner.String()),
			slog.Int("status", status))
		return fmt.Errorf("%w: token refresh failed", ErrUnauthenticated)
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusUnauthorized {
		sess.forget(g.key(owner))
		log.WarnContext(ctx, "provider rejected token", slog.String("owner_id", owner.String()))
		return fmt.Errorf("%w: provider returned 401", ErrUnauthenticated)
	}
	return err
}

func (g *TokenGateway) key(owner uuid.UUID) clientKey {
	return clientKey{provider: g.provider, owner: owner}
}

func (g *TokenGateway) buildClient(ctx context.Context, owner uuid.UUID) (*http.Client, error) {
	tok, err := g.tokens.Get(ctx, owner, g.provider)
	if err != nil {
		if store.IsNotFoundError(err) {
			return nil, fmt.Errorf("%w: no %s token for owner", ErrUnauthenticated, g.provider)
		}
		return nil, err
	}
	if !tok.Valid() && tok.RefreshToken == "" {
		return nil, fmt.Errorf("%w: %s token expired", ErrUnauthenticated, g.provider)
	}

	// Refreshes may happen after ctx is done, so they use a detached context.
	base := context.WithValue(context.Background(), oauth2.HTTPClient, g.http)
	src := &persistingSource{
		base:    g.oauth.TokenSource(base, tok),
		last:    tok.AccessToken,
		owner:   owner,
		gateway: g,
	}
	return oauth2.NewClient(base, oauth2.ReuseTokenSource(tok, src)), nil
}

// persistingSource saves every newly issued token back to the store.
type persistingSource struct {
	base    oauth2.TokenSource
	owner   uuid.UUID
	gateway *TokenGateway

	mu   sync.Mutex
	last string
}

func (s *persistingSource) Token() (*oauth2.Token, error) {
	tok, err := s.base.Token()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if tok.AccessToken == s.last {
		return tok, nil
	}
	s.last = tok.AccessToken

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.gateway.tokens.Save(ctx, s.owner, s.gateway.provider, tok); err != nil {
		s.gateway.logger.Error("failed to persist refreshed token",
			slog.String("owner_id", s.owner.String()),
			slog.String("error", err.Error()))
	}
	return tok, nil
}
