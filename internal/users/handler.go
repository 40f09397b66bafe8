package users

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/brightwave-mkt/brightwave/internal/platform/httpx"
	"github.com/brightwave-mkt/brightwave/internal/rbac"
	"github.com/brightwave-mkt/brightwave/internal/shared"
)

// Handler manages user management and role assignment endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	rbacSvc   *rbac.Service
	rbac      rbac.Middleware
	validator *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbacSvc *rbac.Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbacSvc: rbacSvc, rbac: rbac, validator: validator.New()}
}

// MountRoutes registers user routes. Each group's permission middleware
// is the route's authorization contract.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequirePermission(shared.PermUsersView))
		r.Get("/", h.listUsers)
		r.Get("/{userID}", h.getUser)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequirePermission(shared.PermUsersEdit))
		r.Post("/", h.createUser)
		r.Put("/{userID}", h.updateUser)
		r.Put("/{userID}/password", h.changePassword)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequirePermission(shared.PermUsersDelete))
		r.Delete("/{userID}", h.deleteUser)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequirePermission(shared.PermRolesManage))
		r.Post("/{userID}/roles", h.assignRole)
		r.Delete("/{userID}/roles/{role}", h.removeRole)
	})
}

type createUserRequest struct {
	Username  string `json:"username" validate:"required,min=3,max=64"`
	Password  string `json:"password" validate:"required,min=8"`
	CompanyID *int64 `json:"company_id"`
	UserType  string `json:"user_type" validate:"required,oneof=employee client contractor"`
}

type updateUserRequest struct {
	CompanyID *int64 `json:"company_id"`
	UserType  string `json:"user_type" validate:"required,oneof=employee client contractor"`
	IsActive  *bool  `json:"is_active" validate:"required"`
}

type changePasswordRequest struct {
	Password string `json:"password" validate:"required,min=8"`
}

type assignRoleRequest struct {
	Role      string     `json:"role" validate:"required"`
	ExpiresAt *time.Time `json:"expires_at"`
}

type assignRoleResponse struct {
	Role   string `json:"role"`
	Status string `json:"status"`
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListUsers(r.Context())
	if err != nil {
		h.logger.Error("list users", slog.Any("error", err))
		httpx.Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	user, err := h.service.GetUser(r.Context(), userID)
	if err != nil {
		h.respondError(w, "get user", err)
		return
	}
	httpx.JSON(w, http.StatusOK, user)
}

func (h *Handler) createUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "username, password and user_type are required")
		return
	}
	user, err := h.service.CreateUser(r.Context(), req.Username, req.Password, req.CompanyID, req.UserType)
	if err != nil {
		h.respondError(w, "create user", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, user)
}

func (h *Handler) updateUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	var req updateUserRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "user_type and is_active are required")
		return
	}
	user, err := h.service.UpdateUser(r.Context(), userID, req.CompanyID, req.UserType, *req.IsActive)
	if err != nil {
		h.respondError(w, "update user", err)
		return
	}
	httpx.JSON(w, http.StatusOK, user)
}

func (h *Handler) changePassword(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	var req changePasswordRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "password of at least 8 characters is required")
		return
	}
	if err := h.service.ChangePassword(r.Context(), userID, req.Password); err != nil {
		h.respondError(w, "change password", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) deleteUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	actorID, ok := rbac.ActingUserID(r)
	if !ok {
		httpx.Error(w, http.StatusUnauthorized, "missing bearer token")
		return
	}
	if err := h.service.DeleteUser(r.Context(), actorID, userID); err != nil {
		h.respondError(w, "delete user", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) assignRole(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	var req assignRoleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "role is required")
		return
	}
	role, err := h.rbacSvc.RoleByName(r.Context(), req.Role)
	if err != nil {
		h.respondError(w, "resolve role", err)
		return
	}
	outcome, err := h.rbacSvc.AssignRole(r.Context(), userID, role.ID, req.ExpiresAt)
	if err != nil {
		h.respondError(w, "assign role", err)
		return
	}
	httpx.JSON(w, http.StatusOK, assignRoleResponse{Role: role.Name, Status: string(outcome)})
}

func (h *Handler) removeRole(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	role, err := h.rbacSvc.RoleByName(r.Context(), chi.URLParam(r, "role"))
	if err != nil {
		h.respondError(w, "resolve role", err)
		return
	}
	removed, err := h.rbacSvc.RemoveRole(r.Context(), userID, role.ID)
	if err != nil {
		h.respondError(w, "remove role", err)
		return
	}
	if !removed {
		httpx.Error(w, http.StatusNotFound, "role not assigned")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) userID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid user id")
		return 0, false
	}
	return id, true
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, shared.ErrNotFound), errors.Is(err, rbac.ErrNotFound):
		httpx.Error(w, http.StatusNotFound, "not found")
	case errors.Is(err, ErrUsernameExists):
		httpx.Error(w, http.StatusConflict, "username already exists")
	case errors.Is(err, ErrSelfDelete):
		httpx.Error(w, http.StatusBadRequest, "cannot delete own account")
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.Error(w, http.StatusInternalServerError, "internal error")
	}
}
