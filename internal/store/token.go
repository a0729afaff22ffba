package store

import (
	"context"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

// TokenStore holds per-owner OAuth tokens for external providers.
type TokenStore interface {
	// Get returns the stored token. Returns ErrTokenNotFound when none exists.
	Get(ctx context.Context, owner uuid.UUID, provider string) (*oauth2.Token, error)

	// Save inserts or replaces the token for owner and provider.
	Save(ctx context.Context, owner uuid.UUID, provider string, tok *oauth2.Token) error
}
