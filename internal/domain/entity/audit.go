// Package entity contains the core business objects of the project.
package entity

import (
	"time"

	"github.com/google/uuid"
)

// Audit actions emitted by the auth core.
const (
	AuditActionLogin          = "LOGIN"
	AuditActionLogout         = "LOGOUT"
	AuditActionForgotPassword = "FORGOT_PASSWORD"
	AuditActionResetPassword  = "RESET_PASSWORD"
)

// AuditEntry records a security-relevant event. Writing an entry is
// fire-and-forget: a failed audit write never fails the primary operation.
type AuditEntry struct {
	ID        uuid.UUID
	UserID    *uuid.UUID // Nil for events without a resolved account (e.g. unknown email).
	Action    string
	TableName string
	RecordID  *uuid.UUID
	Details   string
	IPAddress string
	UserAgent string
	CreatedAt time.Time
}
