package middleware

import (
	"fmt"

	deliverycontext "cms/internal/delivery/context"
	"cms/internal/delivery/http/response"
	"cms/internal/domain/entity"
	domainerrors "cms/internal/domain/errors"
	"cms/internal/usecase"

	"github.com/labstack/echo/v4"
)

// PermissionMiddleware authorizes authenticated requests against the
// role-permission table. It must be used AFTER AuthMiddleware.Authenticate.
type PermissionMiddleware struct {
	permissionUsecase usecase.PermissionUsecase
}

// NewPermissionMiddleware is the constructor for PermissionMiddleware.
func NewPermissionMiddleware(permissionUsecase usecase.PermissionUsecase) *PermissionMiddleware {
	return &PermissionMiddleware{permissionUsecase: permissionUsecase}
}

// Require is a middleware factory guarding a route group with one
// (resource, action) pair. Unknown pairs are wiring bugs, so they panic at
// startup rather than failing requests at runtime.
//
// Verdicts are memoized in the request-scoped cache: a chain that checks the
// same pair twice hits the resolver once. The cache dies with the request.
func (m *PermissionMiddleware) Require(resource entity.Resource, action entity.Action) echo.MiddlewareFunc {
	if !resource.IsValid() {
		panic(fmt.Sprintf("permission middleware: unknown resource %q", resource))
	}
	if !action.IsValid() {
		panic(fmt.Sprintf("permission middleware: unknown action %q", action))
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			identity := deliverycontext.GetIdentity(c)
			if identity == nil {
				return response.Unauthorized(c, domainerrors.ErrInvalidToken.ErrorCode(), domainerrors.ErrInvalidToken.Message())
			}

			cache := deliverycontext.PermissionCache(c)
			cacheKey := entity.PermissionCacheKey(resource, action, identity.RoleID)

			granted, cached := cache[cacheKey]
			if !cached {
				var err error
				granted, err = m.permissionUsecase.HasPermission(c.Request().Context(), identity.RoleID, resource, action)
				if err != nil {
					return err
				}
				cache[cacheKey] = granted
			}

			if !granted {
				// The body never names the missing permission.
				return response.Forbidden(c, domainerrors.ErrInsufficientPermissions.ErrorCode(), domainerrors.ErrInsufficientPermissions.Message())
			}

			return next(c)
		}
	}
}
