package service

import (
	"time"

	"cms/internal/domain/entity"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims defines the custom claims carried by issued JWTs. Claims never
// contain the password hash or any other credential material.
type Claims struct {
	UserID    uuid.UUID `json:"uid"`
	Email     string    `json:"email"`
	RoleID    uuid.UUID `json:"rid"`
	TokenType string    `json:"type"` // access_token or refresh_token
	jwt.RegisteredClaims
}

// TokenService defines the interface for signing and verifying JWTs.
// Access and refresh tokens use independent signing secrets so that
// compromise of one class does not compromise the other, and a token of one
// class can never verify as the other.
type TokenService interface {
	// SignAccess mints a short-lived access token for the user.
	SignAccess(user *entity.User) (string, error)

	// SignRefresh mints a longer-lived refresh token for the user.
	SignRefresh(user *entity.User) (string, error)

	// Verify checks signature, expiry and token class. tokenType selects the
	// signing secret and the expected "type" claim.
	Verify(tokenString string, tokenType entity.TokenType) (*Claims, error)

	// HashToken returns the SHA-256 hex digest used as the ledger lookup key.
	HashToken(tokenString string) string

	// AccessTokenTTL returns the configured access token lifetime.
	AccessTokenTTL() time.Duration

	// RefreshTokenTTL returns the configured refresh token lifetime.
	RefreshTokenTTL() time.Duration
}
