// Package router contains routing and server setup for the HTTP delivery.
package router

import (
	"cms/internal/delivery/http/middleware"
	"cms/internal/delivery/http/router/handler"
	"cms/internal/domain/entity"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

type RouterParams struct {
	fx.In

	AuthHandler          *handler.AuthHandler
	AuditHandler         *handler.AuditHandler
	AuthMiddleware       *middleware.AuthMiddleware
	PermissionMiddleware *middleware.PermissionMiddleware
}

// router holds all the handlers that need to be registered.
type router struct {
	authHandler          *handler.AuthHandler
	auditHandler         *handler.AuditHandler
	authMiddleware       *middleware.AuthMiddleware
	permissionMiddleware *middleware.PermissionMiddleware
}

// NewRouter is the constructor for the Router.
// Fx will inject the required handlers here.
func NewRouter(params RouterParams) *router {
	return &router{
		authHandler:          params.AuthHandler,
		auditHandler:         params.AuditHandler,
		authMiddleware:       params.AuthMiddleware,
		permissionMiddleware: params.PermissionMiddleware,
	}
}

// RegisterRoutes sets up all the API routes for the application.
func (r *router) RegisterRoutes(e *echo.Echo) {
	// Health check endpoint
	e.GET("/health", handler.HealthCheck)

	// Public auth routes
	authGroup := e.Group("/auth")
	{
		authGroup.POST("/login", r.authHandler.Login)
		authGroup.POST("/refresh", r.authHandler.Refresh)
		authGroup.POST("/logout", r.authHandler.Logout)
		authGroup.POST("/forgot-password", r.authHandler.ForgotPassword)
		authGroup.POST("/reset-password", r.authHandler.ResetPassword)
	}

	// Auth routes that require a valid session
	sessionGroup := e.Group("/auth")
	sessionGroup.Use(r.authMiddleware.Authenticate)
	{
		sessionGroup.GET("/me", r.authHandler.Me)
		sessionGroup.GET("/sessions", r.authHandler.Sessions)
		sessionGroup.DELETE("/sessions", r.authHandler.LogoutAllDevices)
	}

	// Admin routes guarded by the permission pipeline
	adminGroup := e.Group("/admin")
	adminGroup.Use(r.authMiddleware.Authenticate)
	{
		adminGroup.GET("/audit-logs", r.auditHandler.List,
			r.permissionMiddleware.Require(entity.ResourceAuditLog, entity.ActionRead))
	}
}
