// Package usecase defines the application's use case interfaces and their
// input/output data structures (DTOs). It is the boundary between the
// delivery layer and the business logic.
package usecase

import (
	"context"
	"time"

	"cms/internal/domain/entity"

	"github.com/google/uuid"
)

// LoginInput carries the credentials for an email/password login attempt.
// IPAddress and UserAgent are forensic metadata filled by the delivery layer.
type LoginInput struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required"`
	IPAddress string `json:"-"`
	UserAgent string `json:"-"`
}

// LoginOutput carries the issued token pair and the user projection.
type LoginOutput struct {
	AccessToken  string                        `json:"accessToken"`
	RefreshToken string                        `json:"refreshToken"`
	User         *entity.AuthenticatedIdentity `json:"user"`
}

// RefreshInput carries the refresh token presented for rotation.
type RefreshInput struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
	IPAddress    string `json:"-"`
	UserAgent    string `json:"-"`
}

// RefreshOutput carries the replacement access token. The refresh token
// itself is not rotated.
type RefreshOutput struct {
	AccessToken string `json:"accessToken"`
}

// LogoutInput carries the refresh token identifying the session to end.
type LogoutInput struct {
	RefreshToken string `json:"refreshToken"`
	IPAddress    string `json:"-"`
	UserAgent    string `json:"-"`
}

// ForgotPasswordInput carries the address requesting a reset link.
type ForgotPasswordInput struct {
	Email     string `json:"email" validate:"required,email"`
	IPAddress string `json:"-"`
	UserAgent string `json:"-"`
}

// ForgotPasswordOutput is the uniform response of the forgot-password flow.
// Active reports whether the per-account cooldown is currently throttling the
// request, and ActiveDate is the moment that window ends. An unknown email
// and a fresh issuance share the same inactive shape.
type ForgotPasswordOutput struct {
	Active     bool       `json:"active"`
	ActiveDate *time.Time `json:"activeDate,omitempty"`
}

// ResetPasswordInput carries a single-use reset token and the new password.
type ResetPasswordInput struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=6"`
	IPAddress   string `json:"-"`
	UserAgent   string `json:"-"`
}

// SessionInfo is one active session row for the introspection endpoints.
type SessionInfo struct {
	ID        uuid.UUID `json:"id"`
	IPAddress string    `json:"ipAddress,omitempty"`
	UserAgent string    `json:"userAgent,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// AuthUsecase defines the authentication operations offered to the delivery
// layer. Every failure that reaches a client collapses into one of the
// uniform domain errors; the distinguishing detail stays in the logs.
type AuthUsecase interface {
	// Login verifies credentials and issues an access/refresh token pair.
	Login(ctx context.Context, input *LoginInput) (*LoginOutput, error)

	// ValidateAccessToken runs the full access-token pipeline: signature and
	// expiry, ledger lookup, then user status.
	ValidateAccessToken(ctx context.Context, tokenString string) (*entity.AuthenticatedIdentity, error)

	// RefreshAccessToken rotates the access token under a valid refresh token.
	RefreshAccessToken(ctx context.Context, input *RefreshInput) (*RefreshOutput, error)

	// Logout revokes the session identified by the refresh token.
	Logout(ctx context.Context, input *LogoutInput) error

	// LogoutAllDevices revokes every session of the user.
	LogoutAllDevices(ctx context.Context, userID uuid.UUID) error

	// ForgotPassword starts the reset flow with a uniform, non-revealing response.
	ForgotPassword(ctx context.Context, input *ForgotPasswordInput) (*ForgotPasswordOutput, error)

	// ResetPassword consumes a single-use reset token and replaces the password.
	ResetPassword(ctx context.Context, input *ResetPasswordInput) error

	// ActiveSessions lists the user's live refresh-token sessions.
	ActiveSessions(ctx context.Context, userID uuid.UUID) ([]*SessionInfo, error)

	// SweepExpiredTokens removes stale ledger rows. Returns rows removed.
	SweepExpiredTokens(ctx context.Context) (int64, error)
}
