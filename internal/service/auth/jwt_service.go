// Package auth issues and validates the bearer tokens that scope API calls
// to a task owner.
package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// JWTService issues and validates owner access tokens.
type JWTService interface {
	// GenerateToken creates a signed access token for owner.
	GenerateToken(ctx context.Context, owner uuid.UUID) (string, error)

	// ValidateToken checks signature, expiry and token type and returns the claims.
	ValidateToken(ctx context.Context, tokenString string) (*Claims, error)
}

// Claims is the validated content of an access token.
type Claims struct {
	// OwnerID scopes every task and record query made with the token.
	OwnerID uuid.UUID `json:"oid,omitempty"`

	TokenType string    `json:"type,omitempty"`
	Subject   string    `json:"sub,omitempty"`
	IssuedAt  time.Time `json:"iat,omitempty"`
	ExpiresAt time.Time `json:"exp,omitempty"`
	ID        string    `json:"jti,omitempty"`
}
