// Package repository defines the interfaces for the persistence layer.
package repository

import (
	"context"

	"cms/internal/domain/entity"

	"github.com/google/uuid"
)

// PermissionRepository answers existence queries against the role-permission
// table. Permission management (create/assign) lives in role management.
type PermissionRepository interface {
	// Exists reports whether a permission row grants the exact
	// (role, resource, action) triple. Wildcard expansion is the resolver's
	// job, not the repository's.
	Exists(ctx context.Context, roleID uuid.UUID, resource entity.Resource, action entity.Action) (bool, error)
}
