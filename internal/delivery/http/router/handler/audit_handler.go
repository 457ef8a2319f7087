package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"cms/internal/delivery/http/response"
	"cms/internal/domain/repository"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

const (
	defaultAuditPageSize = 50
	maxAuditPageSize     = 200
)

// AuditHandler serves the admin audit-log view.
type AuditHandler struct {
	auditRepo repository.AuditRepository
	logger    *slog.Logger
}

// NewAuditHandler is the constructor for AuditHandler, injected by Fx.
func NewAuditHandler(auditRepo repository.AuditRepository, logger *slog.Logger) *AuditHandler {
	return &AuditHandler{auditRepo: auditRepo, logger: logger}
}

// List returns audit entries newest first with limit/offset paging.
func (h *AuditHandler) List(c echo.Context) error {
	limit := queryInt(c, "limit", defaultAuditPageSize)
	if limit < 1 || limit > maxAuditPageSize {
		limit = defaultAuditPageSize
	}
	offset := queryInt(c, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	entries, err := h.auditRepo.List(c.Request().Context(), limit, offset)
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, entries, "")
}

func queryInt(c echo.Context, name string, fallback int) int {
	raw := c.QueryParam(name)
	if raw == "" {
		return fallback
	}

	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}

	return value
}
