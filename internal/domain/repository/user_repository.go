// Package repository defines the interfaces for the persistence layer.
// These interfaces act as a contract between the domain/application layers and the infrastructure layer.
package repository

import (
	"context"
	"errors"
	"time"

	"cms/internal/domain/entity"

	"github.com/google/uuid"
)

// ErrUserNotFound is a domain-specific error returned when a user is not found.
var ErrUserNotFound = errors.New("user not found")

// UserRepository defines the user lookups and narrow mutations the auth core
// needs. Account creation and management belong to the user-management module.
type UserRepository interface {
	// FindActiveByEmail retrieves a user by email, restricted to ACTIVE,
	// non-soft-deleted accounts. The associated role name is loaded as well.
	FindActiveByEmail(ctx context.Context, email string) (*entity.User, error)

	// FindActiveByID retrieves a user by ID under the same active filters.
	FindActiveByID(ctx context.Context, id uuid.UUID) (*entity.User, error)

	// UpdateLastLogin stamps the most recent successful login.
	UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error

	// UpdateLastForgot stamps the forgot-password cooldown anchor.
	UpdateLastForgot(ctx context.Context, id uuid.UUID, at time.Time) error

	// UpdatePassword replaces the stored password hash.
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
}
