package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Principal is the authenticated identity behind a request or a realtime connection.
type Principal struct {
	UserID uuid.UUID
	Email  string
	Name   string
}

// DisplayName returns the name to attribute actions to.
func (p Principal) DisplayName() string {
	if p.Name != "" {
		return p.Name
	}
	return p.Email
}

// JWTService defines operations for access tokens.
type JWTService interface {
	// GenerateToken creates a signed access token for the principal.
	GenerateToken(ctx context.Context, principal Principal) (string, error)

	// ValidateToken validates the provided access token string and extracts the claims.
	// Returns ErrExpiredToken, ErrTokenNotYetValid, ErrWrongTokenType or
	// ErrInvalidToken when validation fails.
	ValidateToken(ctx context.Context, tokenString string) (*Claims, error)
}

// Claims represents the validated contents of an access token.
type Claims struct {
	UserID    uuid.UUID `json:"uid,omitempty"`
	Email     string    `json:"email,omitempty"`
	Name      string    `json:"name,omitempty"`
	TokenType string    `json:"type,omitempty"`

	Subject   string    `json:"sub,omitempty"`
	IssuedAt  time.Time `json:"iat,omitempty"`
	ExpiresAt time.Time `json:"exp,omitempty"`
	ID        string    `json:"jti,omitempty"`
}

// Principal returns the identity carried by the claims.
func (c *Claims) Principal() Principal {
	return Principal{UserID: c.UserID, Email: c.Email, Name: c.Name}
}
