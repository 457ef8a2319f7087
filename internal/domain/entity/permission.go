// Package entity contains the core business objects of the project.
package entity

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Role is a named permission bundle assigned to users.
type Role struct {
	ID        uuid.UUID
	Name      string // Unique display name, e.g. "editor".
	IsSystem  bool   // Built-in roles are protected from mutation by role management.
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Resource identifies a protected area of the admin backend.
type Resource string

const (
	ResourceUser     Resource = "user"
	ResourceRole     Resource = "role"
	ResourceProduct  Resource = "product"
	ResourceBrand    Resource = "brand"
	ResourceCategory Resource = "category"
	ResourceBlog     Resource = "blog"
	ResourceCatalog  Resource = "catalog"
	ResourceGallery  Resource = "gallery"
	ResourceClient   Resource = "client"
	ResourceAuditLog Resource = "audit_log"
)

// String returns the string representation of the Resource.
func (r Resource) String() string {
	return string(r)
}

// IsValid checks if the Resource is a known value. Route wiring validates
// resources against this closed set; the resolver itself stays string-keyed.
func (r Resource) IsValid() bool {
	switch r {
	case ResourceUser, ResourceRole, ResourceProduct, ResourceBrand,
		ResourceCategory, ResourceBlog, ResourceCatalog, ResourceGallery,
		ResourceClient, ResourceAuditLog:
		return true
	default:
		return false
	}
}

// Action identifies an operation on a resource.
type Action string

const (
	ActionRead   Action = "read"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	// ActionManage is a wildcard: a role holding "manage" on a resource is
	// granted every action on that resource.
	ActionManage Action = "manage"
)

// String returns the string representation of the Action.
func (a Action) String() string {
	return string(a)
}

// IsValid checks if the Action is a known value.
func (a Action) IsValid() bool {
	switch a {
	case ActionRead, ActionCreate, ActionUpdate, ActionDelete, ActionManage:
		return true
	default:
		return false
	}
}

// Permission grants one action on one resource to one role.
type Permission struct {
	ID        uuid.UUID
	RoleID    uuid.UUID
	Resource  Resource
	Action    Action
	CreatedAt time.Time
}

// PermissionCacheKey builds the request-scoped memoization key for a
// permission check.
func PermissionCacheKey(resource Resource, action Action, roleID uuid.UUID) string {
	return fmt.Sprintf("%s:%s:%s", resource, action, roleID)
}
