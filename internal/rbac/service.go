package rbac

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Service is the canonical permission resolution engine. Every request
// recomputes from the store: there is no per-user memoization, so a
// revoked role stops granting on the affected user's very next request.
// The optional catalog cache covers reference data only.
type Service struct {
	store   Store
	catalog *CatalogCache
}

// NewService constructs a Service. catalog may be nil.
func NewService(store Store, catalog *CatalogCache) *Service {
	return &Service{store: store, catalog: catalog}
}

// NormalizePermission canonicalizes a permission name for comparison.
func NormalizePermission(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// PermissionsForUser returns the distinct permission-name closure: the
// union over all live role assignments of each role's active
// permissions. On store failure the result is empty, never a grant.
func (s *Service) PermissionsForUser(ctx context.Context, userID int64) ([]string, error) {
	names, err := s.store.PermissionsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if names == nil {
		names = []string{}
	}
	return names, nil
}

// UserCan reports whether the permission is in the user's closure,
// using the narrow existence query. Fail-closed: a store error yields
// false alongside the error.
func (s *Service) UserCan(ctx context.Context, userID int64, permission string) (bool, error) {
	permission = NormalizePermission(permission)
	if permission == "" {
		return false, nil
	}
	return s.store.UserHasPermission(ctx, userID, permission)
}

// UserHasRole reports whether the user holds a live assignment of the
// named active role.
func (s *Service) UserHasRole(ctx context.Context, userID int64, roleName string) (bool, error) {
	roleName = strings.TrimSpace(roleName)
	if roleName == "" {
		return false, nil
	}
	return s.store.UserHasRole(ctx, userID, roleName)
}

// CanAny reports whether the user holds at least one of the named
// permissions. Checks are side-effect free, so evaluation stops at the
// first grant.
func (s *Service) CanAny(ctx context.Context, userID int64, permissions ...string) (bool, error) {
	for _, permission := range permissions {
		allowed, err := s.UserCan(ctx, userID, permission)
		if err != nil {
			return false, err
		}
		if allowed {
			return true, nil
		}
	}
	return false, nil
}

// CanAll reports whether the user holds every named permission,
// stopping at the first miss.
func (s *Service) CanAll(ctx context.Context, userID int64, permissions ...string) (bool, error) {
	if len(permissions) == 0 {
		return true, nil
	}
	for _, permission := range permissions {
		allowed, err := s.UserCan(ctx, userID, permission)
		if err != nil {
			return false, err
		}
		if !allowed {
			return false, nil
		}
	}
	return true, nil
}

// ListRoles returns the active role catalog, via the catalog cache when
// one is configured.
func (s *Service) ListRoles(ctx context.Context) ([]Role, error) {
	return s.catalog.Roles(ctx, s.store.ListActiveRoles)
}

// ListPermissions returns the active permission catalog.
func (s *Service) ListPermissions(ctx context.Context) ([]Permission, error) {
	return s.catalog.Permissions(ctx, s.store.ListActivePermissions)
}

// GetRole fetches a role by id.
func (s *Service) GetRole(ctx context.Context, id int64) (Role, error) {
	return s.store.RoleByID(ctx, id)
}

// RoleByName fetches an active role by its stable name.
func (s *Service) RoleByName(ctx context.Context, name string) (Role, error) {
	return s.store.RoleByName(ctx, strings.TrimSpace(name))
}

// CreateRole inserts a new role and invalidates the catalog cache.
func (s *Service) CreateRole(ctx context.Context, name, description string) (Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Role{}, errors.New("rbac: role name required")
	}
	role, err := s.store.CreateRole(ctx, name, strings.TrimSpace(description))
	if err != nil {
		return Role{}, err
	}
	s.clearCatalog(ctx)
	return role, nil
}

// UpdateRole updates an existing role and invalidates the catalog cache.
func (s *Service) UpdateRole(ctx context.Context, id int64, name, description string) (Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Role{}, errors.New("rbac: role name required")
	}
	role, err := s.store.UpdateRole(ctx, id, name, strings.TrimSpace(description))
	if err != nil {
		return Role{}, err
	}
	s.clearCatalog(ctx)
	return role, nil
}

// DeleteRole soft-deletes a role. ErrRoleInUse when live assignments
// still reference it.
func (s *Service) DeleteRole(ctx context.Context, id int64) error {
	if err := s.store.SoftDeleteRole(ctx, id); err != nil {
		return err
	}
	s.clearCatalog(ctx)
	return nil
}

// AssignRole links a user to a role, distinguishing a fresh assignment
// from an existing one.
func (s *Service) AssignRole(ctx context.Context, userID, roleID int64, expiresAt *time.Time) (AssignOutcome, error) {
	if expiresAt != nil && !expiresAt.After(time.Now()) {
		return "", fmt.Errorf("rbac: expiry must be in the future")
	}
	return s.store.AssignRole(ctx, userID, roleID, expiresAt)
}

// RemoveRole unlinks a user from a role.
func (s *Service) RemoveRole(ctx context.Context, userID, roleID int64) (bool, error) {
	return s.store.RemoveRole(ctx, userID, roleID)
}

// ReplaceRolePermissions transactionally swaps a role's permission set
// and invalidates the catalog cache.
func (s *Service) ReplaceRolePermissions(ctx context.Context, roleID int64, permissionIDs []int64) ([]Permission, error) {
	perms, err := s.store.ReplaceRolePermissions(ctx, roleID, permissionIDs)
	if err != nil {
		return nil, err
	}
	if perms == nil {
		perms = []Permission{}
	}
	s.clearCatalog(ctx)
	return perms, nil
}

// RolePermissions lists the permissions attached to a role.
func (s *Service) RolePermissions(ctx context.Context, roleID int64) ([]Permission, error) {
	perms, err := s.store.RolePermissions(ctx, roleID)
	if err != nil {
		return nil, err
	}
	if perms == nil {
		perms = []Permission{}
	}
	return perms, nil
}

// clearCatalog drops cached catalogs; a failed invalidation only delays
// listing freshness within the TTL, so it is not fatal.
func (s *Service) clearCatalog(ctx context.Context) {
	_ = s.catalog.Clear(ctx)
}
