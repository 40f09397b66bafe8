// Package roles is the administrative HTTP surface over the RBAC
// engine's role catalog. All mutations delegate to the canonical
// resolution engine; no role logic lives here.
package roles

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/brightwave-mkt/brightwave/internal/platform/httpx"
	"github.com/brightwave-mkt/brightwave/internal/rbac"
	"github.com/brightwave-mkt/brightwave/internal/shared"
)

// Handler manages role management endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *rbac.Service
	rbac      rbac.Middleware
	validator *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *rbac.Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac, validator: validator.New()}
}

// MountRoutes registers role routes. The required permission declared
// per group is the route's authorization contract.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequirePermission(shared.PermRolesView))
		r.Get("/", h.listRoles)
		r.Get("/{roleID}/permissions", h.listRolePermissions)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequirePermission(shared.PermRolesManage))
		r.Post("/", h.createRole)
		r.Put("/{roleID}", h.updateRole)
		r.Delete("/{roleID}", h.deleteRole)
		r.Put("/{roleID}/permissions", h.replacePermissions)
	})
}

type roleRequest struct {
	Name        string `json:"name" validate:"required,min=2,max=64"`
	Description string `json:"description" validate:"max=255"`
}

// An explicit empty permission_ids array is legal and clears the role.
// Only a missing field is rejected.
type replacePermissionsRequest struct {
	PermissionIDs []int64 `json:"permission_ids"`
}

func (h *Handler) listRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.service.ListRoles(r.Context())
	if err != nil {
		h.logger.Error("list roles", slog.Any("error", err))
		httpx.Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	httpx.JSON(w, http.StatusOK, roles)
}

func (h *Handler) listRolePermissions(w http.ResponseWriter, r *http.Request) {
	roleID, ok := h.roleID(w, r)
	if !ok {
		return
	}
	perms, err := h.service.RolePermissions(r.Context(), roleID)
	if err != nil {
		h.respondError(w, "list role permissions", err)
		return
	}
	httpx.JSON(w, http.StatusOK, perms)
}

func (h *Handler) createRole(w http.ResponseWriter, r *http.Request) {
	var req roleRequest
	if !h.decode(w, r, &req) {
		return
	}
	role, err := h.service.CreateRole(r.Context(), req.Name, req.Description)
	if err != nil {
		h.respondError(w, "create role", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, role)
}

func (h *Handler) updateRole(w http.ResponseWriter, r *http.Request) {
	roleID, ok := h.roleID(w, r)
	if !ok {
		return
	}
	var req roleRequest
	if !h.decode(w, r, &req) {
		return
	}
	role, err := h.service.UpdateRole(r.Context(), roleID, req.Name, req.Description)
	if err != nil {
		h.respondError(w, "update role", err)
		return
	}
	httpx.JSON(w, http.StatusOK, role)
}

func (h *Handler) deleteRole(w http.ResponseWriter, r *http.Request) {
	roleID, ok := h.roleID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteRole(r.Context(), roleID); err != nil {
		h.respondError(w, "delete role", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) replacePermissions(w http.ResponseWriter, r *http.Request) {
	roleID, ok := h.roleID(w, r)
	if !ok {
		return
	}
	var req replacePermissionsRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if req.PermissionIDs == nil {
		httpx.Error(w, http.StatusBadRequest, "permission_ids is required")
		return
	}
	perms, err := h.service.ReplaceRolePermissions(r.Context(), roleID, req.PermissionIDs)
	if err != nil {
		h.respondError(w, "replace role permissions", err)
		return
	}
	httpx.JSON(w, http.StatusOK, perms)
}

func (h *Handler) roleID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "roleID"), 10, 64)
	if err != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid role id")
		return 0, false
	}
	return id, true
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, req *roleRequest) bool {
	if err := httpx.DecodeJSON(r, req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "malformed request body")
		return false
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "name is required")
		return false
	}
	return true
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, rbac.ErrNotFound):
		httpx.Error(w, http.StatusNotFound, "role not found")
	case errors.Is(err, rbac.ErrRoleInUse):
		httpx.Error(w, http.StatusConflict, "role in use")
	case errors.Is(err, rbac.ErrRoleExists):
		httpx.Error(w, http.StatusConflict, "role name already exists")
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.Error(w, http.StatusInternalServerError, "internal error")
	}
}
