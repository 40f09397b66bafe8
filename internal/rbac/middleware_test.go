package rbac

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"slices"
	"strconv"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"

	"github.com/brightwave-mkt/brightwave/internal/auth"
	_ "github.com/brightwave-mkt/brightwave/testing"
)

// fakeChecker answers from fixed sets, with optional error injection.
type fakeChecker struct {
	permissions []string
	roles       []string
	err         error
}

func (f *fakeChecker) UserCan(ctx context.Context, userID int64, permission string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return slices.Contains(f.permissions, permission), nil
}

func (f *fakeChecker) UserHasRole(ctx context.Context, userID int64, roleName string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return slices.Contains(f.roles, roleName), nil
}

func (f *fakeChecker) CanAny(ctx context.Context, userID int64, permissions ...string) (bool, error) {
	for _, p := range permissions {
		ok, err := f.UserCan(ctx, userID, p)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeChecker) CanAll(ctx context.Context, userID int64, permissions ...string) (bool, error) {
	for _, p := range permissions {
		ok, err := f.UserCan(ctx, userID, p)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func testMiddleware(checker Checker) Middleware {
	return Middleware{Checker: checker, Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

// authedRequest carries verified claims for the given user id, the
// state a request has after the token middleware.
func authedRequest(userID int64) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	claims := &auth.Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: strconv.FormatInt(userID, 10)}}
	return req.WithContext(auth.ContextWithClaims(req.Context(), claims))
}

func serveGate(gate func(http.Handler) http.Handler, req *http.Request) (*httptest.ResponseRecorder, bool) {
	var hit bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hit = true
		w.WriteHeader(http.StatusOK)
	})
	res := httptest.NewRecorder()
	gate(next).ServeHTTP(res, req)
	return res, hit
}

func TestRequirePermissionAllowed(t *testing.T) {
	mw := testMiddleware(&fakeChecker{permissions: []string{"edit_user"}})

	res, hit := serveGate(mw.RequirePermission("edit_user"), authedRequest(1))
	assert.Equal(t, http.StatusOK, res.Code)
	assert.True(t, hit)
}

func TestRequirePermissionDeniedNamesRequirement(t *testing.T) {
	mw := testMiddleware(&fakeChecker{permissions: []string{"view_user"}})

	res, hit := serveGate(mw.RequirePermission("delete_user"), authedRequest(1))
	assert.Equal(t, http.StatusForbidden, res.Code)
	assert.Contains(t, res.Body.String(), "missing required permission: delete_user")
	assert.False(t, hit)
}

func TestRequirePermissionUnauthenticated(t *testing.T) {
	mw := testMiddleware(&fakeChecker{permissions: []string{"edit_user"}})

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	res, hit := serveGate(mw.RequirePermission("edit_user"), req)
	assert.Equal(t, http.StatusUnauthorized, res.Code)
	assert.False(t, hit)
}

func TestRequirePermissionStoreErrorFailsClosed(t *testing.T) {
	mw := testMiddleware(&fakeChecker{err: errors.New("connection reset")})

	res, hit := serveGate(mw.RequirePermission("edit_user"), authedRequest(1))
	assert.Equal(t, http.StatusInternalServerError, res.Code)
	assert.Contains(t, res.Body.String(), "internal error")
	assert.False(t, hit)
}

func TestRequireAnyPermission(t *testing.T) {
	mw := testMiddleware(&fakeChecker{permissions: []string{"view_campaign"}})

	res, hit := serveGate(mw.RequireAnyPermission("edit_campaign", "view_campaign"), authedRequest(1))
	assert.Equal(t, http.StatusOK, res.Code)
	assert.True(t, hit)

	res, hit = serveGate(mw.RequireAnyPermission("edit_campaign", "delete_campaign"), authedRequest(1))
	assert.Equal(t, http.StatusForbidden, res.Code)
	assert.Contains(t, res.Body.String(), "missing any of required permissions: edit_campaign, delete_campaign")
	assert.False(t, hit)
}

func TestRequireAllPermissions(t *testing.T) {
	mw := testMiddleware(&fakeChecker{permissions: []string{"view_user", "edit_user"}})

	res, hit := serveGate(mw.RequireAllPermissions("view_user", "edit_user"), authedRequest(1))
	assert.Equal(t, http.StatusOK, res.Code)
	assert.True(t, hit)

	res, hit = serveGate(mw.RequireAllPermissions("view_user", "delete_user"), authedRequest(1))
	assert.Equal(t, http.StatusForbidden, res.Code)
	assert.False(t, hit)
}

func TestRequireRole(t *testing.T) {
	mw := testMiddleware(&fakeChecker{roles: []string{"contractor"}})

	res, hit := serveGate(mw.RequireRole("contractor"), authedRequest(1))
	assert.Equal(t, http.StatusOK, res.Code)
	assert.True(t, hit)

	res, hit = serveGate(mw.RequireRole("admin"), authedRequest(1))
	assert.Equal(t, http.StatusForbidden, res.Code)
	assert.Contains(t, res.Body.String(), "missing required role: admin")
	assert.False(t, hit)
}

func TestGatePrefersHydratedIdentity(t *testing.T) {
	var sawID int64
	checker := &checkerFunc{fn: func(userID int64, permission string) (bool, error) {
		sawID = userID
		return true, nil
	}}
	mw := testMiddleware(checker)

	req := authedRequest(1)
	req = req.WithContext(auth.ContextWithUser(req.Context(), &auth.User{ID: 42, IsActive: true}))

	res, _ := serveGate(mw.RequirePermission("view_user"), req)
	assert.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, int64(42), sawID)
}

// checkerFunc adapts a single permission predicate into a Checker.
type checkerFunc struct {
	fn func(userID int64, permission string) (bool, error)
}

func (c *checkerFunc) UserCan(ctx context.Context, userID int64, permission string) (bool, error) {
	return c.fn(userID, permission)
}

func (c *checkerFunc) UserHasRole(ctx context.Context, userID int64, roleName string) (bool, error) {
	return c.fn(userID, roleName)
}

func (c *checkerFunc) CanAny(ctx context.Context, userID int64, permissions ...string) (bool, error) {
	return c.fn(userID, "")
}

func (c *checkerFunc) CanAll(ctx context.Context, userID int64, permissions ...string) (bool, error) {
	return c.fn(userID, "")
}
