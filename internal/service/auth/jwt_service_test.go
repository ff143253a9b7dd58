package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/taskboard-api/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-that-is-long-enough-for-testing"

func TestGenerateAndValidateToken(t *testing.T) {
	t.Parallel()

	fixedTime := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	svc := NewJWTServiceWithClock(testSecret, time.Hour, func() time.Time { return fixedTime })
	principal := Principal{UserID: uuid.New(), Email: "ada@example.com", Name: "Ada"}

	token, err := svc.GenerateToken(context.Background(), principal)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.ValidateToken(context.Background(), token)
	require.NoError(t, err)

	assert.Equal(t, principal, claims.Principal())
	assert.Equal(t, principal.UserID.String(), claims.Subject)
	assert.Equal(t, fixedTime.Unix(), claims.IssuedAt.Unix())
	assert.Equal(t, fixedTime.Add(time.Hour).Unix(), claims.ExpiresAt.Unix())
	assert.NotEmpty(t, claims.ID)
}

func TestValidateTokenFailures(t *testing.T) {
	t.Parallel()

	issued := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	issuer := NewJWTServiceWithClock(testSecret, time.Hour, func() time.Time { return issued })
	token, err := issuer.GenerateToken(context.Background(), Principal{UserID: uuid.New()})
	require.NoError(t, err)

	wrongType := jwt.NewWithClaims(jwt.SigningMethodHS256, jwtCustomClaims{
		UserID:    uuid.New(),
		TokenType: "refresh",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(issued.Add(time.Hour)),
		},
	})
	wrongTypeToken, err := wrongType.SignedString([]byte(testSecret))
	require.NoError(t, err)

	tests := []struct {
		name    string
		secret  string
		now     time.Time
		token   string
		wantErr error
	}{
		{"expired", testSecret, issued.Add(3 * time.Hour), token, ErrExpiredToken},
		{"wrong secret", "wrong-secret-that-is-long-enough-for-testing", issued, token, ErrInvalidToken},
		{"malformed", testSecret, issued, "not-a-token", ErrInvalidToken},
		{"empty", testSecret, issued, "", ErrMissingToken},
		{"wrong type", testSecret, issued, wrongTypeToken, ErrWrongTokenType},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			now := tc.now
			svc := NewJWTServiceWithClock(tc.secret, time.Hour, func() time.Time { return now })
			claims, err := svc.ValidateToken(context.Background(), tc.token)
			assert.ErrorIs(t, err, tc.wantErr)
			assert.Nil(t, claims)
		})
	}
}

func TestValidateTokenWithinClockSkew(t *testing.T) {
	t.Parallel()

	issued := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	issuer := NewJWTServiceWithClock(testSecret, time.Hour, func() time.Time { return issued })
	token, err := issuer.GenerateToken(context.Background(), Principal{UserID: uuid.New()})
	require.NoError(t, err)

	later := issued.Add(time.Hour + time.Minute)
	validator := NewJWTServiceWithClock(testSecret, time.Hour, func() time.Time { return later })
	_, err = validator.ValidateToken(context.Background(), token)
	assert.NoError(t, err)
}

func TestNewJWTServiceRejectsShortSecret(t *testing.T) {
	t.Parallel()

	_, err := NewJWTService(config.AuthConfig{JWTSecret: "short", TokenLifetimeMinutes: 10})
	assert.Error(t, err)

	svc, err := NewJWTService(config.AuthConfig{JWTSecret: testSecret, TokenLifetimeMinutes: 10})
	require.NoError(t, err)
	assert.NotNil(t, svc)
}

func TestPrincipalDisplayName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Ada", Principal{Name: "Ada", Email: "ada@example.com"}.DisplayName())
	assert.Equal(t, "ada@example.com", Principal{Email: "ada@example.com"}.DisplayName())
}
