// Package handler contains the HTTP handlers for the application.
package handler

import (
	"log/slog"
	"net/http"
	"time"

	deliverycontext "cms/internal/delivery/context"
	"cms/internal/delivery/http/middleware"
	"cms/internal/delivery/http/response"
	domainerrors "cms/internal/domain/errors"
	"cms/internal/domain/service"
	"cms/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// RefreshTokenCookie is the cookie carrying the refresh token.
const RefreshTokenCookie = "refresh_token"

// HeaderXRefreshToken lets non-browser clients pass the refresh token outside the body.
const HeaderXRefreshToken = "X-Refresh-Token"

// AuthHandler holds dependencies for authentication handlers.
type AuthHandler struct {
	uc           usecase.AuthUsecase
	tokenService service.TokenService
	logger       *slog.Logger
}

// NewAuthHandler is the constructor for AuthHandler, injected by Fx.
func NewAuthHandler(uc usecase.AuthUsecase, tokenService service.TokenService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		uc:           uc,
		tokenService: tokenService,
		logger:       logger,
	}
}

// Login handles the login request. On success both tokens are also set as
// httpOnly cookies for browser clients.
func (h *AuthHandler) Login(c echo.Context) error {
	var input usecase.LoginInput
	if err := c.Bind(&input); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid login input")
	}
	if err := c.Validate(&input); err != nil {
		return errors.WithStack(err)
	}
	input.IPAddress = c.RealIP()
	input.UserAgent = c.Request().UserAgent()

	output, err := h.uc.Login(c.Request().Context(), &input)
	if err != nil {
		return errors.WithStack(err)
	}

	h.setTokenCookie(c, middleware.AccessTokenCookie, output.AccessToken, h.tokenService.AccessTokenTTL())
	h.setTokenCookie(c, RefreshTokenCookie, output.RefreshToken, h.tokenService.RefreshTokenTTL())

	return response.Success(c, http.StatusOK, output, "Login successful")
}

// Refresh handles the access-token rotation request.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var input usecase.RefreshInput
	// Body is optional; cookie and header fallbacks cover browser clients.
	_ = c.Bind(&input)
	if input.RefreshToken == "" {
		input.RefreshToken = h.extractRefreshToken(c)
	}
	if input.RefreshToken == "" {
		return response.Unauthorized(c, domainerrors.ErrInvalidRefreshToken.ErrorCode(), domainerrors.ErrInvalidRefreshToken.Message())
	}
	input.IPAddress = c.RealIP()
	input.UserAgent = c.Request().UserAgent()

	output, err := h.uc.RefreshAccessToken(c.Request().Context(), &input)
	if err != nil {
		return errors.WithStack(err)
	}

	h.setTokenCookie(c, middleware.AccessTokenCookie, output.AccessToken, h.tokenService.AccessTokenTTL())

	return response.Success(c, http.StatusOK, output, "Token refreshed successfully")
}

// Logout handles the logout request and clears the token cookies. The
// presented refresh token must belong to a live session.
func (h *AuthHandler) Logout(c echo.Context) error {
	var input usecase.LogoutInput
	_ = c.Bind(&input)
	if input.RefreshToken == "" {
		input.RefreshToken = h.extractRefreshToken(c)
	}
	if input.RefreshToken == "" {
		return response.Unauthorized(c, domainerrors.ErrInvalidRefreshToken.ErrorCode(), domainerrors.ErrInvalidRefreshToken.Message())
	}
	input.IPAddress = c.RealIP()
	input.UserAgent = c.Request().UserAgent()

	if err := h.uc.Logout(c.Request().Context(), &input); err != nil {
		return errors.WithStack(err)
	}

	h.clearTokenCookie(c, middleware.AccessTokenCookie)
	h.clearTokenCookie(c, RefreshTokenCookie)

	return response.Success(c, http.StatusOK, map[string]string{"message": "Successfully logged out"}, "Logout successful")
}

// ForgotPassword starts the password reset flow.
func (h *AuthHandler) ForgotPassword(c echo.Context) error {
	var input usecase.ForgotPasswordInput
	if err := c.Bind(&input); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid forgot password input")
	}
	if err := c.Validate(&input); err != nil {
		return errors.WithStack(err)
	}
	input.IPAddress = c.RealIP()
	input.UserAgent = c.Request().UserAgent()

	output, err := h.uc.ForgotPassword(c.Request().Context(), &input)
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, output, "If the account exists, a reset link has been sent")
}

// ResetPassword consumes a reset token and sets a new password.
func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var input usecase.ResetPasswordInput
	if err := c.Bind(&input); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid reset password input")
	}
	if err := c.Validate(&input); err != nil {
		return errors.WithStack(err)
	}
	input.IPAddress = c.RealIP()
	input.UserAgent = c.Request().UserAgent()

	if err := h.uc.ResetPassword(c.Request().Context(), &input); err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, map[string]string{"message": "Password has been reset"}, "Password reset successful")
}

// Me returns the authenticated identity attached by the auth middleware.
func (h *AuthHandler) Me(c echo.Context) error {
	identity := deliverycontext.GetIdentity(c)
	if identity == nil {
		return response.Unauthorized(c, domainerrors.ErrInvalidToken.ErrorCode(), domainerrors.ErrInvalidToken.Message())
	}

	return response.Success(c, http.StatusOK, identity, "")
}

// Sessions lists the caller's active sessions.
func (h *AuthHandler) Sessions(c echo.Context) error {
	identity := deliverycontext.GetIdentity(c)
	if identity == nil {
		return response.Unauthorized(c, domainerrors.ErrInvalidToken.ErrorCode(), domainerrors.ErrInvalidToken.Message())
	}

	sessions, err := h.uc.ActiveSessions(c.Request().Context(), identity.ID)
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, sessions, "")
}

// LogoutAllDevices revokes every session of the caller.
func (h *AuthHandler) LogoutAllDevices(c echo.Context) error {
	identity := deliverycontext.GetIdentity(c)
	if identity == nil {
		return response.Unauthorized(c, domainerrors.ErrInvalidToken.ErrorCode(), domainerrors.ErrInvalidToken.Message())
	}

	if err := h.uc.LogoutAllDevices(c.Request().Context(), identity.ID); err != nil {
		return errors.WithStack(err)
	}

	h.clearTokenCookie(c, middleware.AccessTokenCookie)
	h.clearTokenCookie(c, RefreshTokenCookie)

	return response.Success(c, http.StatusOK, map[string]string{"message": "All sessions revoked"}, "")
}

func (h *AuthHandler) extractRefreshToken(c echo.Context) string {
	if cookie, err := c.Cookie(RefreshTokenCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	return c.Request().Header.Get(HeaderXRefreshToken)
}

func (h *AuthHandler) setTokenCookie(c echo.Context, name, value string, ttl time.Duration) {
	c.SetCookie(&http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   c.Scheme() == "https",
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) clearTokenCookie(c echo.Context, name string) {
	c.SetCookie(&http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
}
