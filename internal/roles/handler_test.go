package roles

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightwave-mkt/brightwave/internal/auth"
	"github.com/brightwave-mkt/brightwave/internal/rbac"
	"github.com/brightwave-mkt/brightwave/internal/shared"
	_ "github.com/brightwave-mkt/brightwave/testing"
)

// fakeStore is a minimal in-memory rbac.Store for exercising the admin
// surface end to end.
type fakeStore struct {
	roles       map[int64]*rbac.Role
	permissions map[int64]*rbac.Permission
	rolePerms   map[int64]map[int64]bool
	userRoles   map[int64]map[int64]bool
	nextRoleID  int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		roles:       map[int64]*rbac.Role{},
		permissions: map[int64]*rbac.Permission{},
		rolePerms:   map[int64]map[int64]bool{},
		userRoles:   map[int64]map[int64]bool{},
		nextRoleID:  1,
	}
}

func (f *fakeStore) ListActiveRoles(ctx context.Context) ([]rbac.Role, error) {
	var out []rbac.Role
	for _, role := range f.roles {
		if role.IsActive {
			out = append(out, *role)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *fakeStore) ListActivePermissions(ctx context.Context) ([]rbac.Permission, error) {
	var out []rbac.Permission
	for _, perm := range f.permissions {
		if perm.IsActive {
			out = append(out, *perm)
		}
	}
	return out, nil
}

func (f *fakeStore) RoleByID(ctx context.Context, id int64) (rbac.Role, error) {
	role, ok := f.roles[id]
	if !ok {
		return rbac.Role{}, rbac.ErrNotFound
	}
	return *role, nil
}

func (f *fakeStore) RoleByName(ctx context.Context, name string) (rbac.Role, error) {
	for _, role := range f.roles {
		if role.Name == name && role.IsActive {
			return *role, nil
		}
	}
	return rbac.Role{}, rbac.ErrNotFound
}

func (f *fakeStore) CreateRole(ctx context.Context, name, description string) (rbac.Role, error) {
	for _, role := range f.roles {
		if role.Name == name {
			return rbac.Role{}, rbac.ErrRoleExists
		}
	}
	role := &rbac.Role{ID: f.nextRoleID, Name: name, Description: description, IsActive: true}
	f.roles[role.ID] = role
	f.rolePerms[role.ID] = map[int64]bool{}
	f.nextRoleID++
	return *role, nil
}

func (f *fakeStore) UpdateRole(ctx context.Context, id int64, name, description string) (rbac.Role, error) {
	role, ok := f.roles[id]
	if !ok {
		return rbac.Role{}, rbac.ErrNotFound
	}
	role.Name = name
	role.Description = description
	return *role, nil
}

func (f *fakeStore) SoftDeleteRole(ctx context.Context, id int64) error {
	role, ok := f.roles[id]
	if !ok {
		return rbac.ErrNotFound
	}
	for _, assignments := range f.userRoles {
		if assignments[id] {
			return rbac.ErrRoleInUse
		}
	}
	role.IsActive = false
	return nil
}

func (f *fakeStore) AssignRole(ctx context.Context, userID, roleID int64, expiresAt *time.Time) (rbac.AssignOutcome, error) {
	if _, ok := f.roles[roleID]; !ok {
		return "", rbac.ErrNotFound
	}
	if f.userRoles[userID] == nil {
		f.userRoles[userID] = map[int64]bool{}
	}
	if f.userRoles[userID][roleID] {
		return rbac.AlreadyAssigned, nil
	}
	f.userRoles[userID][roleID] = true
	return rbac.Assigned, nil
}

func (f *fakeStore) RemoveRole(ctx context.Context, userID, roleID int64) (bool, error) {
	if !f.userRoles[userID][roleID] {
		return false, nil
	}
	delete(f.userRoles[userID], roleID)
	return true, nil
}

func (f *fakeStore) ReplaceRolePermissions(ctx context.Context, roleID int64, permissionIDs []int64) ([]rbac.Permission, error) {
	if _, ok := f.roles[roleID]; !ok {
		return nil, rbac.ErrNotFound
	}
	next := map[int64]bool{}
	for _, pid := range permissionIDs {
		if _, ok := f.permissions[pid]; !ok {
			return nil, rbac.ErrNotFound
		}
		next[pid] = true
	}
	f.rolePerms[roleID] = next
	return f.RolePermissions(ctx, roleID)
}

func (f *fakeStore) RolePermissions(ctx context.Context, roleID int64) ([]rbac.Permission, error) {
	var out []rbac.Permission
	for pid := range f.rolePerms[roleID] {
		out = append(out, *f.permissions[pid])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *fakeStore) PermissionsForUser(ctx context.Context, userID int64) ([]string, error) {
	seen := map[string]bool{}
	for roleID := range f.userRoles[userID] {
		role := f.roles[roleID]
		if role == nil || !role.IsActive {
			continue
		}
		for pid := range f.rolePerms[roleID] {
			if perm := f.permissions[pid]; perm != nil && perm.IsActive {
				seen[perm.Name] = true
			}
		}
	}
	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}

func (f *fakeStore) UserHasPermission(ctx context.Context, userID int64, permission string) (bool, error) {
	names, _ := f.PermissionsForUser(ctx, userID)
	for _, name := range names {
		if name == permission {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) UserHasRole(ctx context.Context, userID int64, roleName string) (bool, error) {
	for roleID := range f.userRoles[userID] {
		if role := f.roles[roleID]; role != nil && role.IsActive && role.Name == roleName {
			return true, nil
		}
	}
	return false, nil
}

var _ rbac.Store = (*fakeStore)(nil)

const (
	adminUserID    = 1
	employeeUserID = 2
)

// fixture wires a roles router plus a store where user 1 manages roles
// and user 2 holds only the "employee" role.
func fixture(t *testing.T) (chi.Router, *fakeStore, *rbac.Service) {
	t.Helper()
	store := newFakeStore()
	store.permissions[10] = &rbac.Permission{ID: 10, Name: shared.PermRolesView, IsActive: true}
	store.permissions[11] = &rbac.Permission{ID: 11, Name: shared.PermRolesManage, IsActive: true}
	store.permissions[12] = &rbac.Permission{ID: 12, Name: shared.PermUsersEdit, IsActive: true}

	admin, err := store.CreateRole(context.Background(), "admin", "")
	require.NoError(t, err)
	store.rolePerms[admin.ID] = map[int64]bool{10: true, 11: true}
	_, err = store.AssignRole(context.Background(), adminUserID, admin.ID, nil)
	require.NoError(t, err)

	employee, err := store.CreateRole(context.Background(), "employee", "")
	require.NoError(t, err)
	store.rolePerms[employee.ID] = map[int64]bool{12: true}
	_, err = store.AssignRole(context.Background(), employeeUserID, employee.ID, nil)
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := rbac.NewService(store, nil)
	handler := NewHandler(logger, svc, rbac.Middleware{Checker: svc, Logger: logger})
	r := chi.NewRouter()
	r.Route("/roles", handler.MountRoutes)
	return r, store, svc
}

func authedRequest(userID int64, method, path, body string) *http.Request {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	claims := &auth.Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: strconv.FormatInt(userID, 10)}}
	return req.WithContext(auth.ContextWithClaims(req.Context(), claims))
}

func TestListRolesRequiresViewPermission(t *testing.T) {
	router, _, _ := fixture(t)

	res := httptest.NewRecorder()
	router.ServeHTTP(res, authedRequest(employeeUserID, http.MethodGet, "/roles", ""))
	assert.Equal(t, http.StatusForbidden, res.Code)
	assert.Contains(t, res.Body.String(), "missing required permission: view_role")

	res = httptest.NewRecorder()
	router.ServeHTTP(res, authedRequest(adminUserID, http.MethodGet, "/roles", ""))
	require.Equal(t, http.StatusOK, res.Code)
	var roles []rbac.Role
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &roles))
	assert.Len(t, roles, 2)
}

func TestCreateRole(t *testing.T) {
	router, store, _ := fixture(t)

	res := httptest.NewRecorder()
	router.ServeHTTP(res, authedRequest(adminUserID, http.MethodPost, "/roles", `{"name":"auditor","description":"read only"}`))
	require.Equal(t, http.StatusCreated, res.Code)

	var role rbac.Role
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &role))
	assert.Equal(t, "auditor", role.Name)
	assert.NotNil(t, store.roles[role.ID])

	// Duplicate name conflicts.
	res = httptest.NewRecorder()
	router.ServeHTTP(res, authedRequest(adminUserID, http.MethodPost, "/roles", `{"name":"auditor"}`))
	assert.Equal(t, http.StatusConflict, res.Code)
}

func TestDeleteRoleInUseConflicts(t *testing.T) {
	router, store, _ := fixture(t)
	employee, err := store.RoleByName(context.Background(), "employee")
	require.NoError(t, err)

	res := httptest.NewRecorder()
	router.ServeHTTP(res, authedRequest(adminUserID, http.MethodDelete, "/roles/"+strconv.FormatInt(employee.ID, 10), ""))
	assert.Equal(t, http.StatusConflict, res.Code)
	assert.Contains(t, res.Body.String(), "role in use")
	assert.True(t, store.roles[employee.ID].IsActive)
}

func TestDeleteRoleUnassigned(t *testing.T) {
	router, store, _ := fixture(t)
	role, err := store.CreateRole(context.Background(), "obsolete", "")
	require.NoError(t, err)

	res := httptest.NewRecorder()
	router.ServeHTTP(res, authedRequest(adminUserID, http.MethodDelete, "/roles/"+strconv.FormatInt(role.ID, 10), ""))
	assert.Equal(t, http.StatusNoContent, res.Code)
	assert.False(t, store.roles[role.ID].IsActive)
}

func TestReplacePermissionsEmptySetRevokesImmediately(t *testing.T) {
	router, _, svc := fixture(t)
	employee, err := svc.RoleByName(context.Background(), "employee")
	require.NoError(t, err)

	// The employee-role holder starts with edit_user.
	allowed, err := svc.UserCan(context.Background(), employeeUserID, shared.PermUsersEdit)
	require.NoError(t, err)
	require.True(t, allowed)

	res := httptest.NewRecorder()
	router.ServeHTTP(res, authedRequest(adminUserID, http.MethodPut,
		"/roles/"+strconv.FormatInt(employee.ID, 10)+"/permissions", `{"permission_ids":[]}`))
	require.Equal(t, http.StatusOK, res.Code)
	assert.JSONEq(t, `[]`, res.Body.String())

	// The very next check observes the revocation.
	allowed, err = svc.UserCan(context.Background(), employeeUserID, shared.PermUsersEdit)
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestReplacePermissionsMissingFieldRejected(t *testing.T) {
	router, _, svc := fixture(t)
	employee, err := svc.RoleByName(context.Background(), "employee")
	require.NoError(t, err)

	res := httptest.NewRecorder()
	router.ServeHTTP(res, authedRequest(adminUserID, http.MethodPut,
		"/roles/"+strconv.FormatInt(employee.ID, 10)+"/permissions", `{}`))
	assert.Equal(t, http.StatusBadRequest, res.Code)

	// The omitted field did not clear anything.
	allowed, err := svc.UserCan(context.Background(), employeeUserID, shared.PermUsersEdit)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestReplacePermissionsUnknownRole(t *testing.T) {
	router, _, _ := fixture(t)

	res := httptest.NewRecorder()
	router.ServeHTTP(res, authedRequest(adminUserID, http.MethodPut, "/roles/404/permissions", `{"permission_ids":[10]}`))
	assert.Equal(t, http.StatusNotFound, res.Code)
}

func TestMutationsRequireManagePermission(t *testing.T) {
	router, _, _ := fixture(t)

	res := httptest.NewRecorder()
	router.ServeHTTP(res, authedRequest(employeeUserID, http.MethodPost, "/roles", `{"name":"rogue"}`))
	assert.Equal(t, http.StatusForbidden, res.Code)
	assert.Contains(t, res.Body.String(), "missing required permission: manage_role")
}
