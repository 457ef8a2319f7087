// Package entity contains the core business objects of the project.
package entity

import (
	"time"

	"github.com/google/uuid"
)

// TokenType classifies a ledger entry.
type TokenType string

const (
	// TokenTypeAccess is the short-lived credential authorizing API requests.
	TokenTypeAccess TokenType = "access_token"
	// TokenTypeRefresh is the longer-lived credential used to mint new access tokens.
	TokenTypeRefresh TokenType = "refresh_token"
	// TokenTypeResetPassword is the single-use credential for the reset flow.
	TokenTypeResetPassword TokenType = "reset_password"
)

// String returns the string representation of the TokenType.
func (t TokenType) String() string {
	return string(t)
}

// SingleUse reports whether tokens of this type are invalidated on first use.
func (t TokenType) SingleUse() bool {
	return t == TokenTypeResetPassword
}

// SessionTypes are the token types that make up a login session. Logout and
// password reset revoke all of them.
func SessionTypes() []TokenType {
	return []TokenType{TokenTypeAccess, TokenTypeRefresh}
}

// Token is one ledger entry for an issued credential. Signature validity
// alone never authorizes a request; the ledger is the server-side source of
// truth for revocation.
type Token struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	TokenHash string // SHA-256 hash of the issued token string, used for lookup.
	Type      TokenType
	ExpiresAt time.Time
	IsRevoked bool
	UsedAt    *time.Time // Set when a single-use token is consumed.
	IPAddress string     // Forensic, optional.
	UserAgent string     // Forensic, optional.
	CreatedAt time.Time
}

// Usable reports whether the ledger entry still authorizes its credential:
// not revoked, not consumed (for single-use types) and not expired.
func (t *Token) Usable(now time.Time) bool {
	if t.IsRevoked {
		return false
	}
	if t.Type.SingleUse() && t.UsedAt != nil {
		return false
	}

	return t.ExpiresAt.After(now)
}
