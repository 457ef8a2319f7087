// Package repository defines the interfaces for the persistence layer.
package repository

import (
	"context"

	"cms/internal/domain/entity"
)

// AuditRepository persists security events. Callers treat writes as
// fire-and-forget: errors are logged, never propagated to the primary flow.
type AuditRepository interface {
	// Create persists one audit entry.
	Create(ctx context.Context, entry *entity.AuditEntry) error

	// List returns entries newest first, for the admin audit view.
	List(ctx context.Context, limit, offset int) ([]*entity.AuditEntry, error)
}
