package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/brightwave-mkt/brightwave/internal/auth"
	"github.com/brightwave-mkt/brightwave/internal/campaigns"
	"github.com/brightwave-mkt/brightwave/internal/companies"
	"github.com/brightwave-mkt/brightwave/internal/observability"
	"github.com/brightwave-mkt/brightwave/internal/platform/httpx"
	"github.com/brightwave-mkt/brightwave/internal/rbac"
	"github.com/brightwave-mkt/brightwave/internal/roles"
	"github.com/brightwave-mkt/brightwave/internal/users"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger           *slog.Logger
	Config           *Config
	AuthMiddleware   auth.Middleware
	AuthHandler      *auth.Handler
	RBACMiddleware   rbac.Middleware
	RBACHandler      *rbac.Handler
	RolesHandler     *roles.Handler
	UsersHandler     *users.Handler
	CompaniesHandler *companies.Handler
	CampaignsHandler *campaigns.Handler
	Metrics          *observability.Metrics
}

// NewRouter constructs the chi.Router with Brightwave defaults. Every
// protected route sits behind token verification; routes that need the
// tenant binding additionally hydrate the full user record.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(LoginRateLimiter())
		params.AuthHandler.MountRoutes(r)
	})

	r.Group(func(r chi.Router) {
		r.Use(params.AuthMiddleware.RequireToken)

		params.RBACHandler.MountRoutes(r)

		r.Route("/roles", params.RolesHandler.MountRoutes)

		r.Group(func(r chi.Router) {
			r.Use(params.AuthMiddleware.HydrateIdentity)

			r.Route("/users", params.UsersHandler.MountRoutes)
			r.Route("/companies", params.CompaniesHandler.MountRoutes)
			r.Route("/campaigns", params.CampaignsHandler.MountRoutes)

			// Role-intrinsic gate: the dashboard is contractor-only by
			// nature, not something a permission grant should open up.
			r.Group(func(r chi.Router) {
				r.Use(params.RBACMiddleware.RequireRole("contractor"))
				r.Get("/contractor/dashboard", contractorDashboard)
			})
		})
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}

func contractorDashboard(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	httpx.JSON(w, http.StatusOK, map[string]any{
		"username": user.Username,
		"widgets":  []string{"assigned_campaigns", "timesheet"},
	})
}
