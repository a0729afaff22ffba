package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/nudge-api/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-that-is-long-enough-for-testing"

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

func TestNewJWTService(t *testing.T) {
	t.Parallel()

	_, err := NewJWTService(config.AuthConfig{JWTSecret: "short", TokenLifetimeMinutes: 60})
	assert.Error(t, err)

	svc, err := NewJWTService(config.AuthConfig{JWTSecret: testSecret, TokenLifetimeMinutes: 60})
	require.NoError(t, err)
	assert.NotNil(t, svc)
}

func TestGenerateToken(t *testing.T) {
	t.Parallel()

	issued := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	owner := uuid.New()
	svc := newService(testSecret, time.Hour, fixedClock(issued))

	token, err := svc.GenerateToken(context.Background(), owner)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, owner, claims.OwnerID)
	assert.Equal(t, owner.String(), claims.Subject)
	assert.Equal(t, accessTokenType, claims.TokenType)
	assert.Equal(t, issued.Unix(), claims.IssuedAt.Unix())
	assert.Equal(t, issued.Add(time.Hour).Unix(), claims.ExpiresAt.Unix())
	assert.NotEmpty(t, claims.ID)
}

func TestValidateToken(t *testing.T) {
	t.Parallel()

	issued := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	owner := uuid.New()
	gen := newService(testSecret, time.Hour, fixedClock(issued))
	good, err := gen.GenerateToken(context.Background(), owner)
	require.NoError(t, err)

	foreign := jwt.NewWithClaims(jwt.SigningMethodHS256, jwtCustomClaims{
		OwnerID:   owner,
		TokenType: "refresh",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(issued.Add(time.Hour)),
		},
	})
	wrongType, err := foreign.SignedString([]byte(testSecret))
	require.NoError(t, err)

	tests := []struct {
		name    string
		svc     *hmacJWTService
		token   string
		wantErr error
	}{
		{name: "valid", svc: gen, token: good},
		{name: "within clock skew", svc: newService(testSecret, time.Hour, fixedClock(issued.Add(time.Hour+time.Minute))), token: good},
		{name: "expired", svc: newService(testSecret, time.Hour, fixedClock(issued.Add(2*time.Hour))), token: good, wantErr: ErrExpiredToken},
		{name: "wrong secret", svc: newService("another-secret-that-is-long-enough-too", time.Hour, fixedClock(issued)), token: good, wantErr: ErrInvalidToken},
		{name: "malformed", svc: gen, token: "not.a.jwt", wantErr: ErrInvalidToken},
		{name: "empty", svc: gen, token: "", wantErr: ErrMissingToken},
		{name: "wrong token type", svc: gen, token: wrongType, wantErr: ErrWrongTokenType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := tt.svc.ValidateToken(context.Background(), tt.token)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, claims)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, owner, claims.OwnerID)
		})
	}
}
