package impl

import (
	"context"
	"log/slog"

	deliverycontext "cms/internal/delivery/context"
	"cms/internal/domain/entity"
	"cms/internal/domain/repository"
	"cms/internal/usecase"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/fx"
)

// permissionService implements the PermissionUsecase interface.
type permissionService struct {
	permissionRepo repository.PermissionRepository
	logger         *slog.Logger
}

// PermissionServiceParams holds dependencies for permissionService, injected by Fx.
type PermissionServiceParams struct {
	fx.In

	PermissionRepo repository.PermissionRepository
	Logger         *slog.Logger
}

// NewPermissionService is the constructor for permissionService.
func NewPermissionService(params PermissionServiceParams) usecase.PermissionUsecase {
	return &permissionService{
		permissionRepo: params.PermissionRepo,
		logger:         params.Logger,
	}
}

func (srv *permissionService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

// HasPermission reports whether the role may perform the action on the
// resource. The manage wildcard is consulted first: a role holding manage on
// a resource is granted every action on it without a second lookup.
func (srv *permissionService) HasPermission(ctx context.Context, roleID uuid.UUID, resource entity.Resource, action entity.Action) (bool, error) {
	granted, err := srv.permissionRepo.Exists(ctx, roleID, resource, entity.ActionManage)
	if err != nil {
		return false, errors.Wrap(err, "failed to check manage permission")
	}
	if granted {
		return true, nil
	}

	if action == entity.ActionManage {
		// Manage itself was just checked; no exact lookup left to do.
		return false, nil
	}

	granted, err = srv.permissionRepo.Exists(ctx, roleID, resource, action)
	if err != nil {
		return false, errors.Wrap(err, "failed to check permission")
	}

	if !granted {
		srv.log(ctx).Debug("Permission denied",
			slog.Any("roleID", roleID),
			slog.String("resource", resource.String()),
			slog.String("action", action.String()),
		)
	}

	return granted, nil
}
