package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"cms/config"
	"cms/internal/domain/entity"
	domainerrors "cms/internal/domain/errors"
	"cms/internal/domain/service"
)

// jwtService is a concrete implementation of the TokenService interface using the JWT standard.
type jwtService struct {
	accessSecret  string        // Secret key for signing access tokens.
	refreshSecret string        // Secret key for signing refresh tokens.
	accessTTL     time.Duration // Time-to-live for access tokens.
	refreshTTL    time.Duration // Time-to-live for refresh tokens.
}

// NewJWTService is the constructor for jwtService.
// It takes configuration values to create a new token service instance.
func NewJWTService(cfg *config.Config) (service.TokenService, error) {
	if cfg.SecretKey.Access == "" || cfg.SecretKey.Refresh == "" {
		return nil, errors.New("jwt secrets must be provided")
	}
	if cfg.SecretKey.Access == cfg.SecretKey.Refresh {
		return nil, errors.New("access and refresh secrets must differ")
	}
	return &jwtService{
		accessSecret:  cfg.SecretKey.Access,
		refreshSecret: cfg.SecretKey.Refresh,
		accessTTL:     cfg.Auth.AccessTokenTTL,
		refreshTTL:    cfg.Auth.RefreshTokenTTL,
	}, nil
}

// SignAccess mints a short-lived access token carrying the user's identity and role.
func (s *jwtService) SignAccess(user *entity.User) (string, error) {
	return s.sign(user, entity.TokenTypeAccess, s.accessTTL, s.accessSecret)
}

// SignRefresh mints a refresh token. It carries the same identity claims but is
// signed with an independent secret so it can never pass access verification.
func (s *jwtService) SignRefresh(user *entity.User) (string, error) {
	return s.sign(user, entity.TokenTypeRefresh, s.refreshTTL, s.refreshSecret)
}

// Verify checks signature, expiry and token class. The secret is selected by
// the expected class, so a token of the wrong class fails signature
// verification before the "type" claim is even inspected.
func (s *jwtService) Verify(tokenString string, tokenType entity.TokenType) (*service.Claims, error) {
	secret, err := s.secretFor(tokenType)
	if err != nil {
		return nil, err
	}

	claims := &service.Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		// Ensure the signing method is what we expect.
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "parse token")
	}
	if !token.Valid || claims.TokenType != string(tokenType) {
		return nil, errors.WithStack(domainerrors.ErrInvalidToken)
	}

	return claims, nil
}

// HashToken returns the SHA-256 hex digest of a token string. Only digests are
// stored server-side, so a leaked ledger row cannot be replayed as a token.
func (s *jwtService) HashToken(tokenString string) string {
	sum := sha256.Sum256([]byte(tokenString))
	return hex.EncodeToString(sum[:])
}

// AccessTokenTTL returns the configured duration for access tokens.
func (s *jwtService) AccessTokenTTL() time.Duration {
	return s.accessTTL
}

// RefreshTokenTTL returns the configured duration for refresh tokens.
func (s *jwtService) RefreshTokenTTL() time.Duration {
	return s.refreshTTL
}

func (s *jwtService) secretFor(tokenType entity.TokenType) (string, error) {
	switch tokenType {
	case entity.TokenTypeAccess:
		return s.accessSecret, nil
	case entity.TokenTypeRefresh:
		return s.refreshSecret, nil
	default:
		return "", errors.Errorf("token type %q is not signable", tokenType)
	}
}

// sign is a private helper to create a JWT with the standard claim set.
func (s *jwtService) sign(user *entity.User, tokenType entity.TokenType, ttl time.Duration, secret string) (string, error) {
	now := time.Now()
	claims := &service.Claims{
		UserID:    user.ID,
		Email:     user.Email,
		RoleID:    user.RoleID,
		TokenType: string(tokenType),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", errors.Wrap(err, "sign token")
	}
	return signed, nil
}
