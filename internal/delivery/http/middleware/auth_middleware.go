package middleware

import (
	"strings"

	deliverycontext "cms/internal/delivery/context"
	"cms/internal/delivery/http/response"
	domainerrors "cms/internal/domain/errors"
	"cms/internal/usecase"

	"github.com/labstack/echo/v4"
)

// AccessTokenCookie is the cookie carrying the access token for browser clients.
const AccessTokenCookie = "access_token"

// AuthMiddleware authenticates requests via the full token pipeline: signature
// and expiry, ledger entry, then account status.
type AuthMiddleware struct {
	authUsecase usecase.AuthUsecase
}

// NewAuthMiddleware is the constructor for AuthMiddleware.
func NewAuthMiddleware(authUsecase usecase.AuthUsecase) *AuthMiddleware {
	return &AuthMiddleware{authUsecase: authUsecase}
}

// Authenticate validates the access token and attaches the identity and a
// fresh permission cache to the request. Every failure mode (missing token,
// bad signature, revoked, inactive account) yields the same 401 body.
func (m *AuthMiddleware) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		tokenString := extractAccessToken(c)
		if tokenString == "" {
			return m.unauthorized(c)
		}

		identity, err := m.authUsecase.ValidateAccessToken(c.Request().Context(), tokenString)
		if err != nil {
			return m.unauthorized(c)
		}

		deliverycontext.SetIdentity(c, identity)
		deliverycontext.InitPermissionCache(c)

		return next(c)
	}
}

func (m *AuthMiddleware) unauthorized(c echo.Context) error {
	return response.Unauthorized(c, domainerrors.ErrInvalidToken.ErrorCode(), domainerrors.ErrInvalidToken.Message())
}

// extractAccessToken prefers the httpOnly cookie set at login and falls back
// to a Bearer Authorization header for non-browser clients.
func extractAccessToken(c echo.Context) string {
	if cookie, err := c.Cookie(AccessTokenCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	authHeader := c.Request().Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	tokenString := strings.TrimPrefix(authHeader, "Bearer ")
	if tokenString == authHeader {
		return ""
	}

	return tokenString
}
