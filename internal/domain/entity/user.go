// Package entity contains the core business objects of the project,
// each representing a unique, identifiable concept within the domain.
package entity

import (
	"time"

	"github.com/google/uuid"
)

// UserStatus represents the activation state of an account.
type UserStatus string

const (
	// UserStatusActive marks an account that is allowed to authenticate.
	UserStatusActive UserStatus = "ACTIVE"
	// UserStatusInactive marks an account that has been disabled by an administrator.
	UserStatusInactive UserStatus = "INACTIVE"
)

// User is the admin-backend account entity. Accounts are created and managed
// by the user-management module; the auth core only mutates LastLoginAt,
// LastForgotAt and PasswordHash (on reset).
type User struct {
	ID           uuid.UUID  // The unique identifier for the account.
	Email        string     // Login identifier, unique across accounts.
	PasswordHash string     // Stores the bcrypt-hashed password, never the plaintext.
	Status       UserStatus // Only ACTIVE accounts may authenticate.
	RoleID       uuid.UUID  // Links the account to its permission bundle.
	RoleName     string     // Denormalized role name, loaded alongside the user.
	LastLoginAt  *time.Time // Timestamp of the most recent successful login.
	LastForgotAt *time.Time // Anchor for the forgot-password cooldown window.
	CreatedAt    time.Time
	UpdatedAt    time.Time
	DeletedAt    *time.Time // Non-nil marks the account as soft-deleted.
}

// CanAuthenticate reports whether the account is eligible for any
// authentication flow: it must be ACTIVE and not soft-deleted.
func (u *User) CanAuthenticate() bool {
	return u.Status == UserStatusActive && u.DeletedAt == nil
}

// Identity builds the per-request projection attached to authenticated
// requests. It carries no credential material and is never persisted.
func (u *User) Identity() *AuthenticatedIdentity {
	return &AuthenticatedIdentity{
		ID:       u.ID,
		Email:    u.Email,
		RoleID:   u.RoleID,
		RoleName: u.RoleName,
	}
}

// AuthenticatedIdentity is the request-scoped projection of a validated
// access token. It is rebuilt on every request and never cached beyond one.
type AuthenticatedIdentity struct {
	ID       uuid.UUID `json:"id"`
	Email    string    `json:"email"`
	RoleID   uuid.UUID `json:"roleId"`
	RoleName string    `json:"roleName"`
}
