// Package mail provides the outbound mail implementation for reset links.
package mail

import (
	"context"
	"log/slog"
	"time"

	"cms/internal/domain/service"
)

// logMailer writes reset links to the structured log instead of sending mail.
// It stands in for an SMTP sender in environments without a mail relay.
// TODO: add an SMTP-backed implementation once the relay host is provisioned.
type logMailer struct {
	logger *slog.Logger
}

// NewLogMailer is the constructor for logMailer.
func NewLogMailer(logger *slog.Logger) service.ResetMailer {
	return &logMailer{logger: logger}
}

// SendResetLink logs the reset token for the operator to relay manually.
func (m *logMailer) SendResetLink(ctx context.Context, email, token string, expiresAt time.Time) error {
	m.logger.InfoContext(ctx, "password reset link issued",
		slog.String("email", email),
		slog.String("token", token),
		slog.Time("expiresAt", expiresAt),
	)
	return nil
}
