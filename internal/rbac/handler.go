package rbac

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/brightwave-mkt/brightwave/internal/platform/httpx"
	"github.com/brightwave-mkt/brightwave/internal/shared"
)

// Handler exposes the permission-introspection endpoints consumed by
// the client-side permission mirror.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	rbac      Middleware
	validator *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbac Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac, validator: validator.New()}
}

// MountRoutes registers introspection routes. The caller wraps these in
// the token-verification middleware.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/check-permission", h.checkPermission)
	r.Get("/me/permissions", h.myPermissions)
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequirePermission(shared.PermPermissionsView))
		r.Get("/permissions", h.listPermissions)
	})
}

type checkPermissionRequest struct {
	Permission string `json:"permission" validate:"required"`
}

type checkPermissionResponse struct {
	Permission string `json:"permission"`
	Allowed    bool   `json:"allowed"`
}

func (h *Handler) checkPermission(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(r)
	if !ok {
		httpx.Error(w, http.StatusUnauthorized, "missing bearer token")
		return
	}
	var req checkPermissionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "permission is required")
		return
	}
	permission := NormalizePermission(req.Permission)
	allowed, err := h.service.UserCan(r.Context(), userID, permission)
	if err != nil {
		h.logger.Error("check permission", slog.Any("error", err))
		httpx.Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	httpx.JSON(w, http.StatusOK, checkPermissionResponse{Permission: permission, Allowed: allowed})
}

func (h *Handler) myPermissions(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(r)
	if !ok {
		httpx.Error(w, http.StatusUnauthorized, "missing bearer token")
		return
	}
	names, err := h.service.PermissionsForUser(r.Context(), userID)
	if err != nil {
		h.logger.Error("my permissions", slog.Any("error", err))
		httpx.Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	httpx.JSON(w, http.StatusOK, names)
}

func (h *Handler) listPermissions(w http.ResponseWriter, r *http.Request) {
	perms, err := h.service.ListPermissions(r.Context())
	if err != nil {
		h.logger.Error("list permissions", slog.Any("error", err))
		httpx.Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	httpx.JSON(w, http.StatusOK, perms)
}

// ActingUserID resolves the authenticated caller's id from the request
// context. Exposed for handlers outside this package that need the
// acting identity next to an authorization decision.
func ActingUserID(r *http.Request) (int64, bool) {
	return currentUserID(r)
}
