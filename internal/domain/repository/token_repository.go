// Package repository defines the interfaces for the persistence layer.
package repository

import (
	"context"
	"time"

	"cms/internal/domain/entity"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Domain-specific errors for token ledger persistence.
var (
	// ErrTokenNotFound is returned when no usable ledger entry matches.
	ErrTokenNotFound = errors.New("token not found")
	// ErrTokenConsumed is returned when a single-use token was already
	// consumed or revoked by the time the conditional update ran.
	ErrTokenConsumed = errors.New("token already consumed")
)

// TokenRepository is the persistent ledger of issued credentials. A token is
// authorized only while its ledger entry is not revoked, not consumed and not
// expired; signature validity alone is never sufficient.
type TokenRepository interface {
	// Create persists a ledger entry for a freshly issued token.
	Create(ctx context.Context, token *entity.Token) error

	// FindActive retrieves the entry for a token hash and type, restricted to
	// usable entries (not revoked, unused for single-use types, unexpired).
	// Returns ErrTokenNotFound otherwise.
	FindActive(ctx context.Context, tokenHash string, tokenType entity.TokenType) (*entity.Token, error)

	// FindActiveByUserID lists usable entries of one type for a user, newest
	// first. Backs the session-introspection endpoints.
	FindActiveByUserID(ctx context.Context, userID uuid.UUID, tokenType entity.TokenType) ([]*entity.Token, error)

	// RevokeAllForUser bulk-revokes every usable entry of the given types for
	// a user in one statement. Used on logout and on password reset.
	RevokeAllForUser(ctx context.Context, userID uuid.UUID, types ...entity.TokenType) error

	// RevokeAccessTokens revokes every usable access token for a user. Used
	// during refresh rotation so at most one access lineage stays live per
	// refresh token.
	RevokeAccessTokens(ctx context.Context, userID uuid.UUID) error

	// ConsumeSingleUse atomically marks a single-use entry as used and
	// revoked via a conditional update. Of two concurrent consumers exactly
	// one succeeds; the loser gets ErrTokenConsumed.
	ConsumeSingleUse(ctx context.Context, tokenHash string) error

	// DeleteExpired removes expired entries and revoked entries stale beyond
	// the retention window. Housekeeping only, not a correctness dependency.
	DeleteExpired(ctx context.Context, retention time.Duration) (int64, error)
}
