package auth

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/brightwave-mkt/brightwave/internal/platform/httpx"
	"github.com/brightwave-mkt/brightwave/internal/shared"
)

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		validator: validator.New(),
	}
}

// MountRoutes registers auth routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/login", h.handleLogin)
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// UserView is the caller-facing shape of a user record.
type UserView struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	CompanyID *int64 `json:"company_id"`
	UserType  string `json:"user_type"`
}

type loginResponse struct {
	Token string   `json:"token"`
	User  UserView `json:"user"`
}

// NewUserView maps a domain user to its caller-facing shape.
func NewUserView(user *User) UserView {
	return UserView{
		ID:        user.ID,
		Username:  user.Username,
		CompanyID: user.CompanyID,
		UserType:  user.UserType,
	}
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "username and password are required")
		return
	}
	user, token, err := h.service.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, shared.ErrInvalidCredentials) {
			httpx.Error(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		h.logger.Error("login", slog.Any("error", err))
		httpx.Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	httpx.JSON(w, http.StatusOK, loginResponse{Token: token, User: NewUserView(user)})
}
