package companies

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

// Handler manages company endpoints.
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

// MountRoutes registers company routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequirePermission(shared.PermCompaniesView))
		r.Get("/", h.list)
		r.Get("/{companyID}", h.get)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequirePermission(shared.PermCompaniesEdit))
		r.Post("/", h.create)
		r.Put("/{companyID}", h.update)
	})
}

type companyRequest struct {
	Name string `json:"name" validate:"required,min=2,max=128"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	list, err := h.repo.List(r.Context())
	if err != nil {
		h.logger.Error("list companies", slog.Any("error", err))
		httpx.Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.companyID(w, r)
	if !ok {
		return
	}
	company, err := h.repo.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, "get company", err)
		return
	}
	httpx.JSON(w, http.StatusOK, company)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req companyRequest
	if !h.decode(w, r, &req) {
		return
	}
	company, err := h.repo.Create(r.Context(), req.Name)
	if err != nil {
		h.respondError(w, "create company", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, company)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.companyID(w, r)
	if !ok {
		return
	}
	var req companyRequest
	if !h.decode(w, r, &req) {
		return
	}
	company, err := h.repo.Update(r.Context(), id, req.Name)
	if err != nil {
		h.respondError(w, "update company", err)
		return
	}
	httpx.JSON(w, http.StatusOK, company)
}

func (h *Handler) companyID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "companyID"), 10, 64)
	if err != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid company id")
		return 0, false
	}
	return id, true
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, req *companyRequest) bool {
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
	case errors.Is(err, shared.ErrNotFound):
		httpx.Error(w, http.StatusNotFound, "company not found")
	case errors.Is(err, ErrNameExists):
		httpx.Error(w, http.StatusConflict, "company name already exists")
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.Error(w, http.StatusInternalServerError, "internal error")
	}
}
