package service

import (
	"context"
	"time"
)

// ResetMailer dispatches password-reset links. Template rendering and SMTP
// mechanics live outside this core; the orchestrator treats dispatch as
// best-effort and never fails the forgot-password flow on a mail error.
type ResetMailer interface {
	// SendResetLink delivers the reset token to the given address.
	SendResetLink(ctx context.Context, email, token string, expiresAt time.Time) error
}
