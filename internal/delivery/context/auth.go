package context

import (
	"github.com/labstack/echo/v4"

	"cms/internal/domain/entity"
)

const (
	// KeyIdentity is the key for storing the authenticated identity in echo.Context.
	KeyIdentity ContextKey = "identity"

	// KeyPermissionCache is the key for the per-request permission cache.
	KeyPermissionCache ContextKey = "permission_cache"
)

// SetIdentity stores the authenticated identity on the request context.
func SetIdentity(c echo.Context, identity *entity.AuthenticatedIdentity) {
	c.Set(string(KeyIdentity), identity)
}

// GetIdentity retrieves the authenticated identity from the request context.
// Returns nil when the request is unauthenticated.
func GetIdentity(c echo.Context) *entity.AuthenticatedIdentity {
	if identity, ok := c.Get(string(KeyIdentity)).(*entity.AuthenticatedIdentity); ok {
		return identity
	}

	return nil
}

// InitPermissionCache attaches a fresh permission cache to the request. Each
// request starts empty; entries never outlive the request, so a permission
// change takes effect on the next request at the latest.
func InitPermissionCache(c echo.Context) {
	c.Set(string(KeyPermissionCache), map[string]bool{})
}

// PermissionCache returns the request's permission cache, creating it lazily
// for requests that skipped InitPermissionCache.
func PermissionCache(c echo.Context) map[string]bool {
	if cache, ok := c.Get(string(KeyPermissionCache)).(map[string]bool); ok {
		return cache
	}

	cache := map[string]bool{}
	c.Set(string(KeyPermissionCache), cache)

	return cache
}
