package usecase

import (
	"context"

	"cms/internal/domain/entity"

	"github.com/google/uuid"
)

// PermissionUsecase answers authorization questions for authenticated requests.
type PermissionUsecase interface {
	// HasPermission reports whether the role may perform the action on the
	// resource. The manage action on a resource subsumes every other action
	// on that resource.
	HasPermission(ctx context.Context, roleID uuid.UUID, resource entity.Resource, action entity.Action) (bool, error)
}
