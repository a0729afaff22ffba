package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/nudge-api/internal/store"
	"golang.org/x/oauth2"
)

// PostgresTokenStore implements store.TokenStore using PostgreSQL.
type PostgresTokenStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresTokenStore creates a new PostgresTokenStore.
func NewPostgresTokenStore(db store.DBTX, logger *slog.Logger) *PostgresTokenStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresTokenStore{
		db:     db,
		logger: logger.With(slog.String("component", "token_store")),
	}
}

var _ store.TokenStore = (*PostgresTokenStore)(nil)

// Get implements store.TokenStore.Get.
func (s *PostgresTokenStore) Get(ctx context.Context, owner uuid.UUID, provider string) (*oauth2.Token, error) {
	query := `
		SELECT access_token, refresh_token, token_type, expiry
		FROM oauth_tokens
		WHERE owner_id = $1 AND provider = $2
	`
	var (
		tok     oauth2.Token
		refresh sql.NullString
		expiry  sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, query, owner, provider).
		Scan(&tok.AccessToken, &refresh, &tok.TokenType, &expiry)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrTokenNotFound
		}
		return nil, store.NewStoreError("oauth token", "get", MapError(err))
	}
	tok.RefreshToken = refresh.String
	if expiry.Valid {
		tok.Expiry = expiry.Time
	}
	return &tok, nil
}

// Save implements store.TokenStore.Save. An empty refresh token in tok keeps
// the stored one, since providers only return it on first consent.
func (s *PostgresTokenStore) Save(ctx context.Context, owner uuid.UUID, provider string, tok *oauth2.Token) error {
	query := `
		INSERT INTO oauth_tokens (owner_id, provider, access_token, refresh_token, token_type, expiry, updated_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7)
		ON CONFLICT (owner_id, provider) DO UPDATE
		SET access_token  = EXCLUDED.access_token,
		    refresh_token = COALESCE(EXCLUDED.refresh_token, oauth_tokens.refresh_token),
		    token_type    = EXCLUDED.token_type,
		    expiry        = EXCLUDED.expiry,
		    updated_at    = EXCLUDED.updated_at
	`
	var expiry *time.Time
	if !tok.Expiry.IsZero() {
		e := tok.Expiry.UTC()
		expiry = &e
	}
	tokenType := tok.TokenType
	if tokenType == "" {
		tokenType = "Bearer"
	}

	_, err := s.db.ExecContext(ctx, query,
		owner, provider, tok.AccessToken, tok.RefreshToken, tokenType, expiry, time.Now().UTC())
	if err != nil {
		s.logger.Error("failed to save oauth token",
			slog.String("provider", provider),
			slog.String("owner", owner.String()))
		return store.NewStoreError("oauth token", "save", MapError(err))
	}
	return nil
}
