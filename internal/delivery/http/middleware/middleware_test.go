package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	deliverycontext "cms/internal/delivery/context"
	"cms/internal/domain/entity"
	domainerrors "cms/internal/domain/errors"
	"cms/internal/usecase"
)

// stubAuthUsecase validates exactly one token string.
type stubAuthUsecase struct {
	usecase.AuthUsecase

	validToken string
	identity   *entity.AuthenticatedIdentity
}

func (s *stubAuthUsecase) ValidateAccessToken(_ context.Context, tokenString string) (*entity.AuthenticatedIdentity, error) {
	if tokenString == s.validToken {
		return s.identity, nil
	}

	return nil, errors.WithStack(domainerrors.ErrInvalidToken)
}

// stubPermissionUsecase counts resolver hits to expose caching behavior.
type stubPermissionUsecase struct {
	granted map[string]bool
	calls   int
}

func (s *stubPermissionUsecase) HasPermission(_ context.Context, roleID uuid.UUID, resource entity.Resource, action entity.Action) (bool, error) {
	s.calls++

	return s.granted[entity.PermissionCacheKey(resource, action, roleID)], nil
}

func testIdentity() *entity.AuthenticatedIdentity {
	return &entity.AuthenticatedIdentity{
		ID:       uuid.New(),
		Email:    "editor@example.com",
		RoleID:   uuid.New(),
		RoleName: "editor",
	}
}

func runRequest(e *echo.Echo, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	return rec
}

func okHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func TestAuthenticate_ValidBearerToken(t *testing.T) {
	identity := testIdentity()
	m := NewAuthMiddleware(&stubAuthUsecase{validToken: "good-token", identity: identity})

	e := echo.New()
	e.GET("/protected", func(c echo.Context) error {
		got := deliverycontext.GetIdentity(c)
		require.NotNil(t, got)
		assert.Equal(t, identity.ID, got.ID)

		// The middleware seeded an empty permission cache.
		assert.NotNil(t, deliverycontext.PermissionCache(c))

		return okHandler(c)
	}, m.Authenticate)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	rec := runRequest(e, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthenticate_ValidCookieToken(t *testing.T) {
	m := NewAuthMiddleware(&stubAuthUsecase{validToken: "good-token", identity: testIdentity()})

	e := echo.New()
	e.GET("/protected", okHandler, m.Authenticate)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: "good-token"})
	rec := runRequest(e, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthenticate_AllFailuresShareOneBody(t *testing.T) {
	m := NewAuthMiddleware(&stubAuthUsecase{validToken: "good-token", identity: testIdentity()})

	e := echo.New()
	e.GET("/protected", okHandler, m.Authenticate)

	buildRequests := []func() *http.Request{
		func() *http.Request { // no credentials at all
			return httptest.NewRequest(http.MethodGet, "/protected", nil)
		},
		func() *http.Request { // malformed header
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			req.Header.Set("Authorization", "good-token")

			return req
		},
		func() *http.Request { // bad token
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			req.Header.Set("Authorization", "Bearer bad-token")

			return req
		},
	}

	var bodies []string
	for _, build := range buildRequests {
		rec := runRequest(e, build())
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		bodies = append(bodies, rec.Body.String())
	}

	// Every failure mode produces the exact same response body.
	assert.Equal(t, bodies[0], bodies[1])
	assert.Equal(t, bodies[1], bodies[2])
}

func newPermissionTestServer(t *testing.T, perms *stubPermissionUsecase, resource entity.Resource, action entity.Action, handlerFns ...echo.HandlerFunc) (*echo.Echo, *entity.AuthenticatedIdentity) {
	t.Helper()

	identity := testIdentity()
	auth := NewAuthMiddleware(&stubAuthUsecase{validToken: "good-token", identity: identity})
	perm := NewPermissionMiddleware(perms)

	handlerFn := okHandler
	if len(handlerFns) > 0 {
		handlerFn = handlerFns[0]
	}

	e := echo.New()
	e.GET("/guarded", handlerFn, auth.Authenticate, perm.Require(resource, action))

	return e, identity
}

func authedRequest() *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/guarded", nil)
	req.Header.Set("Authorization", "Bearer good-token")

	return req
}

func TestRequire_GrantedPasses(t *testing.T) {
	perms := &stubPermissionUsecase{granted: map[string]bool{}}
	e, identity := newPermissionTestServer(t, perms, entity.ResourceBlog, entity.ActionRead)
	perms.granted[entity.PermissionCacheKey(entity.ResourceBlog, entity.ActionRead, identity.RoleID)] = true

	rec := runRequest(e, authedRequest())
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, perms.calls)
}

func TestRequire_DeniedGetsGenericForbidden(t *testing.T) {
	perms := &stubPermissionUsecase{granted: map[string]bool{}}
	e, _ := newPermissionTestServer(t, perms, entity.ResourceBlog, entity.ActionDelete)

	rec := runRequest(e, authedRequest())
	assert.Equal(t, http.StatusForbidden, rec.Code)

	var body struct {
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	// The body must not name the missing resource or action.
	assert.Equal(t, domainerrors.ErrInsufficientPermissions.Message(), body.Message)
	assert.NotContains(t, rec.Body.String(), string(entity.ResourceBlog))
	assert.NotContains(t, rec.Body.String(), string(entity.ActionDelete))
}

func TestRequire_VerdictIsCachedWithinRequest(t *testing.T) {
	perms := &stubPermissionUsecase{granted: map[string]bool{}}

	identity := testIdentity()
	perms.granted[entity.PermissionCacheKey(entity.ResourceBlog, entity.ActionRead, identity.RoleID)] = true

	auth := NewAuthMiddleware(&stubAuthUsecase{validToken: "good-token", identity: identity})
	perm := NewPermissionMiddleware(perms)

	// Two stacked guards for the same pair resolve once per request.
	e := echo.New()
	e.GET("/guarded", okHandler, auth.Authenticate,
		perm.Require(entity.ResourceBlog, entity.ActionRead),
		perm.Require(entity.ResourceBlog, entity.ActionRead))

	rec := runRequest(e, authedRequest())
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, perms.calls)

	// A second request starts with an empty cache and resolves again.
	rec = runRequest(e, authedRequest())
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, perms.calls)
}

func TestRequire_UnauthenticatedGets401(t *testing.T) {
	perms := &stubPermissionUsecase{granted: map[string]bool{}}
	perm := NewPermissionMiddleware(perms)

	// Guard wired without Authenticate in front: no identity on the context.
	e := echo.New()
	e.GET("/guarded", okHandler, perm.Require(entity.ResourceBlog, entity.ActionRead))

	rec := runRequest(e, httptest.NewRequest(http.MethodGet, "/guarded", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, 0, perms.calls)
}

func TestRequire_PanicsOnUnknownPair(t *testing.T) {
	perm := NewPermissionMiddleware(&stubPermissionUsecase{granted: map[string]bool{}})

	assert.Panics(t, func() { perm.Require(entity.Resource("bogus"), entity.ActionRead) })
	assert.Panics(t, func() { perm.Require(entity.ResourceBlog, entity.Action("bogus")) })
}
