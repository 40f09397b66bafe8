package rbac

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/brightwave-mkt/brightwave/internal/auth"
	"github.com/brightwave-mkt/brightwave/internal/observability"
	"github.com/brightwave-mkt/brightwave/internal/platform/httpx"
)

// Checker is the resolver surface the middleware depends on.
type Checker interface {
	UserCan(ctx context.Context, userID int64, permission string) (bool, error)
	UserHasRole(ctx context.Context, userID int64, roleName string) (bool, error)
	CanAny(ctx context.Context, userID int64, permissions ...string) (bool, error)
	CanAll(ctx context.Context, userID int64, permissions ...string) (bool, error)
}

// Middleware gates handlers behind permission and role predicates.
// Every check recomputes from the store; a store failure rejects the
// request with 500, never a silent allow.
type Middleware struct {
	Checker Checker
	Logger  *slog.Logger
	Metrics *observability.Metrics
}

// RequirePermission gates a route behind a single permission name.
func (m Middleware) RequirePermission(permission string) func(http.Handler) http.Handler {
	permission = NormalizePermission(permission)
	return m.gate(func(r *http.Request, userID int64) (bool, error) {
		return m.Checker.UserCan(r.Context(), userID, permission)
	}, "missing required permission: "+permission)
}

// RequireAnyPermission gates a route behind OR semantics over the names.
func (m Middleware) RequireAnyPermission(permissions ...string) func(http.Handler) http.Handler {
	normalized := normalizeAll(permissions)
	return m.gate(func(r *http.Request, userID int64) (bool, error) {
		return m.Checker.CanAny(r.Context(), userID, normalized...)
	}, "missing any of required permissions: "+strings.Join(normalized, ", "))
}

// RequireAllPermissions gates a route behind AND semantics over the names.
func (m Middleware) RequireAllPermissions(permissions ...string) func(http.Handler) http.Handler {
	normalized := normalizeAll(permissions)
	return m.gate(func(r *http.Request, userID int64) (bool, error) {
		return m.Checker.CanAll(r.Context(), userID, normalized...)
	}, "missing one of required permissions: "+strings.Join(normalized, ", "))
}

// RequireRole gates a route behind a role name. Reserved for
// role-intrinsic routes; permission gates are authoritative elsewhere.
func (m Middleware) RequireRole(roleName string) func(http.Handler) http.Handler {
	roleName = strings.TrimSpace(roleName)
	return m.gate(func(r *http.Request, userID int64) (bool, error) {
		return m.Checker.UserHasRole(r.Context(), userID, roleName)
	}, "missing required role: "+roleName)
}

// gate builds the shared predicate step. The rejection message names
// the unmet requirement of the route, never another user's grants.
func (m Middleware) gate(check func(*http.Request, int64) (bool, error), rejection string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := currentUserID(r)
			if !ok {
				m.observe("unauthenticated")
				httpx.Error(w, http.StatusUnauthorized, "missing bearer token")
				return
			}
			allowed, err := check(r, userID)
			if err != nil {
				if m.Logger != nil {
					m.Logger.Error("authorization check", slog.Any("error", err))
				}
				m.observe("error")
				httpx.Error(w, http.StatusInternalServerError, "internal error")
				return
			}
			if !allowed {
				m.observe("denied")
				httpx.Error(w, http.StatusForbidden, rejection)
				return
			}
			m.observe("allowed")
			next.ServeHTTP(w, r)
		})
	}
}

func (m Middleware) observe(outcome string) {
	if m.Metrics != nil {
		m.Metrics.AuthzDecision(outcome)
	}
}

// currentUserID resolves the acting user from the hydrated identity
// when present, else from verified token claims.
func currentUserID(r *http.Request) (int64, bool) {
	if user := auth.UserFromContext(r.Context()); user != nil {
		return user.ID, true
	}
	claims := auth.ClaimsFromContext(r.Context())
	if claims == nil {
		return 0, false
	}
	id, err := claims.UserID()
	if err != nil {
		return 0, false
	}
	return id, true
}

func normalizeAll(permissions []string) []string {
	normalized := make([]string, 0, len(permissions))
	for _, p := range permissions {
		p = NormalizePermission(p)
		if p == "" {
			continue
		}
		normalized = append(normalized, p)
	}
	return normalized
}
