package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/brightwave-mkt/brightwave/internal/platform/httpx"
	"github.com/brightwave-mkt/brightwave/internal/shared"
)

// Middleware wires authentication steps ahead of protected handlers.
// The chain is strictly sequential: the first failing step ends the
// request.
type Middleware struct {
	Issuer  *TokenIssuer
	Service *Service
	Logger  *slog.Logger
}

// RequireToken extracts and verifies the bearer token. A missing token
// rejects with 401, an invalid or expired one with 403. Verified claims
// become available to later steps via ClaimsFromContext.
func (m Middleware) RequireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			httpx.Error(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(raw) == "" {
			httpx.Error(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		claims, err := m.Issuer.Verify(strings.TrimSpace(raw))
		if err != nil {
			httpx.Error(w, http.StatusForbidden, "invalid or expired token")
			return
		}
		next.ServeHTTP(w, r.WithContext(ContextWithClaims(r.Context(), claims)))
	})
}

// HydrateIdentity loads the full user record named by the token. A user
// deleted or deactivated after token issuance rejects with 403.
func (m Middleware) HydrateIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := ClaimsFromContext(r.Context())
		if claims == nil {
			httpx.Error(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		userID, err := claims.UserID()
		if err != nil {
			httpx.Error(w, http.StatusForbidden, "invalid or expired token")
			return
		}
		user, err := m.Service.LookupUser(r.Context(), userID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				httpx.Error(w, http.StatusForbidden, "unknown user")
				return
			}
			if m.Logger != nil {
				m.Logger.Error("hydrate identity", slog.Any("error", err))
			}
			httpx.Error(w, http.StatusInternalServerError, "internal error")
			return
		}
		if !user.IsActive {
			httpx.Error(w, http.StatusForbidden, "unknown user")
			return
		}
		next.ServeHTTP(w, r.WithContext(ContextWithUser(r.Context(), user)))
	})
}
