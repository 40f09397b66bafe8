package campaigns

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/brightwave-mkt/brightwave/internal/auth"
	"github.com/brightwave-mkt/brightwave/internal/platform/httpx"
	"github.com/brightwave-mkt/brightwave/internal/rbac"
	"github.com/brightwave-mkt/brightwave/internal/shared"
)

// Handler manages campaign endpoints.
type Handler struct {
	logger    *slog.Logger
	repo      *Repository
	rbac      rbac.Middleware
	validator *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, repo *Repository, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, repo: repo, rbac: rbac, validator: validator.New()}
}

// MountRoutes registers campaign routes. These require identity
// hydration upstream: tenant scoping reads the hydrated user's company.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequirePermission(shared.PermCampaignsView))
		r.Get("/", h.list)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequirePermission(shared.PermCampaignsEdit))
		r.Post("/", h.create)
		r.Put("/{campaignID}", h.update)
	})
}

type createCampaignRequest struct {
	CompanyID int64  `json:"company_id" validate:"required"`
	Name      string `json:"name" validate:"required,min=2,max=128"`
}

type updateCampaignRequest struct {
	Name   string `json:"name" validate:"required,min=2,max=128"`
	Status string `json:"status" validate:"required,oneof=draft active archived"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	// Client users are confined to their own tenant; employees and
	// contractors see all campaigns their permissions allow.
	var companyID *int64
	if user := auth.UserFromContext(r.Context()); user != nil && user.UserType == auth.UserTypeClient {
		if user.CompanyID == nil {
			httpx.JSON(w, http.StatusOK, []Campaign{})
			return
		}
		companyID = user.CompanyID
	}
	list, err := h.repo.List(r.Context(), companyID)
	if err != nil {
		h.logger.Error("list campaigns", slog.Any("error", err))
		httpx.Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createCampaignRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "company_id and name are required")
		return
	}
	campaign, err := h.repo.Create(r.Context(), req.CompanyID, req.Name)
	if err != nil {
		h.logger.Error("create campaign", slog.Any("error", err))
		httpx.Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	httpx.JSON(w, http.StatusCreated, campaign)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "campaignID"), 10, 64)
	if err != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid campaign id")
		return
	}
	var req updateCampaignRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "name and status are required")
		return
	}
	campaign, err := h.repo.Update(r.Context(), id, req.Name, req.Status)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			httpx.Error(w, http.StatusNotFound, "campaign not found")
			return
		}
		h.logger.Error("update campaign", slog.Any("error", err))
		httpx.Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	httpx.JSON(w, http.StatusOK, campaign)
}
