package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cms/config"
	"cms/internal/domain/entity"
)

func testJWTConfig() *config.Config {
	return &config.Config{
		SecretKey: config.SecretKey{
			Access:  "test-access-secret",
			Refresh: "test-refresh-secret",
		},
		Auth: &config.AuthConfig{
			AccessTokenTTL:  15 * time.Minute,
			RefreshTokenTTL: 24 * time.Hour,
		},
	}
}

func testUser() *entity.User {
	return &entity.User{
		ID:     uuid.New(),
		Email:  "editor@example.com",
		RoleID: uuid.New(),
		Status: entity.UserStatusActive,
	}
}

func TestJWTService_RequiresSecrets(t *testing.T) {
	cfg := testJWTConfig()
	cfg.SecretKey.Refresh = ""
	_, err := NewJWTService(cfg)
	assert.Error(t, err)

	cfg = testJWTConfig()
	cfg.SecretKey.Refresh = cfg.SecretKey.Access
	_, err = NewJWTService(cfg)
	assert.Error(t, err)
}

func TestJWTService_AccessRoundTrip(t *testing.T) {
	svc, err := NewJWTService(testJWTConfig())
	require.NoError(t, err)

	user := testUser()
	tokenString, err := svc.SignAccess(user)
	require.NoError(t, err)
	assert.NotEmpty(t, tokenString)

	claims, err := svc.Verify(tokenString, entity.TokenTypeAccess)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, user.Email, claims.Email)
	assert.Equal(t, user.RoleID, claims.RoleID)
	assert.Equal(t, string(entity.TokenTypeAccess), claims.TokenType)
	assert.NotEmpty(t, claims.ID)
}

func TestJWTService_RefreshRoundTrip(t *testing.T) {
	svc, err := NewJWTService(testJWTConfig())
	require.NoError(t, err)

	user := testUser()
	tokenString, err := svc.SignRefresh(user)
	require.NoError(t, err)

	claims, err := svc.Verify(tokenString, entity.TokenTypeRefresh)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, string(entity.TokenTypeRefresh), claims.TokenType)
}

func TestJWTService_RejectsWrongClass(t *testing.T) {
	svc, err := NewJWTService(testJWTConfig())
	require.NoError(t, err)

	user := testUser()
	accessToken, err := svc.SignAccess(user)
	require.NoError(t, err)
	refreshToken, err := svc.SignRefresh(user)
	require.NoError(t, err)

	// An access token must never verify as a refresh token, and vice versa.
	_, err = svc.Verify(accessToken, entity.TokenTypeRefresh)
	assert.Error(t, err)
	_, err = svc.Verify(refreshToken, entity.TokenTypeAccess)
	assert.Error(t, err)
}

func TestJWTService_RejectsExpiredToken(t *testing.T) {
	cfg := testJWTConfig()
	cfg.Auth.AccessTokenTTL = -time.Minute
	svc, err := NewJWTService(cfg)
	require.NoError(t, err)

	tokenString, err := svc.SignAccess(testUser())
	require.NoError(t, err)

	_, err = svc.Verify(tokenString, entity.TokenTypeAccess)
	assert.Error(t, err)
}

func TestJWTService_RejectsTamperedToken(t *testing.T) {
	svc, err := NewJWTService(testJWTConfig())
	require.NoError(t, err)

	tokenString, err := svc.SignAccess(testUser())
	require.NoError(t, err)

	tampered := tokenString[:len(tokenString)-2] + "xx"
	_, err = svc.Verify(tampered, entity.TokenTypeAccess)
	assert.Error(t, err)
}

func TestJWTService_RejectsUnsignableType(t *testing.T) {
	svc, err := NewJWTService(testJWTConfig())
	require.NoError(t, err)

	// Reset tokens are opaque random values, never JWTs.
	_, err = svc.Verify("anything", entity.TokenTypeResetPassword)
	assert.Error(t, err)
}

func TestJWTService_HashToken(t *testing.T) {
	svc, err := NewJWTService(testJWTConfig())
	require.NoError(t, err)

	hash := svc.HashToken("some-token")
	assert.Len(t, hash, 64) // hex-encoded SHA-256
	assert.Equal(t, hash, svc.HashToken("some-token"))
	assert.NotEqual(t, hash, svc.HashToken("other-token"))
}
