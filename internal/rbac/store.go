package rbac

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/brightwave-mkt/brightwave/internal/platform/db"
)

// Postgres SQLSTATE codes the store inspects.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// Store defines persistence for roles, permissions and their joins.
type Store interface {
	ListActiveRoles(ctx context.Context) ([]Role, error)
	ListActivePermissions(ctx context.Context) ([]Permission, error)
	RoleByID(ctx context.Context, id int64) (Role, error)
	RoleByName(ctx context.Context, name string) (Role, error)
	CreateRole(ctx context.Context, name, description string) (Role, error)
	UpdateRole(ctx context.Context, id int64, name, description string) (Role, error)
	SoftDeleteRole(ctx context.Context, id int64) error
	AssignRole(ctx context.Context, userID, roleID int64, expiresAt *time.Time) (AssignOutcome, error)
	RemoveRole(ctx context.Context, userID, roleID int64) (bool, error)
	ReplaceRolePermissions(ctx context.Context, roleID int64, permissionIDs []int64) ([]Permission, error)
	RolePermissions(ctx context.Context, roleID int64) ([]Permission, error)
	PermissionsForUser(ctx context.Context, userID int64) ([]string, error)
	UserHasPermission(ctx context.Context, userID int64, permission string) (bool, error)
	UserHasRole(ctx context.Context, userID int64, roleName string) (bool, error)
}

// PGStore implements Store using PostgreSQL.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewStore constructs a PGStore backed by the provided pool.
func NewStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

const roleColumns = `id, name, description, is_active, created_at, updated_at`

const permissionColumns = `id, name, resource, action, description, is_active`

// ListActiveRoles returns roles with is_active set, ordered by name.
func (s *PGStore) ListActiveRoles(ctx context.Context) ([]Role, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+roleColumns+` FROM roles WHERE is_active ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("rbac: list roles: %w", err)
	}
	defer rows.Close()
	return collectRoles(rows)
}

// ListActivePermissions returns permissions with is_active set, ordered by name.
func (s *PGStore) ListActivePermissions(ctx context.Context) ([]Permission, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+permissionColumns+` FROM permissions WHERE is_active ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("rbac: list permissions: %w", err)
	}
	defer rows.Close()
	return collectPermissions(rows)
}

// RoleByID fetches a role by id.
func (s *PGStore) RoleByID(ctx context.Context, id int64) (Role, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+roleColumns+` FROM roles WHERE id = $1`, id)
	return scanRole(row)
}

// RoleByName fetches an active role by its stable name.
func (s *PGStore) RoleByName(ctx context.Context, name string) (Role, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+roleColumns+` FROM roles WHERE name = $1 AND is_active`, name)
	return scanRole(row)
}

// CreateRole inserts a new role.
func (s *PGStore) CreateRole(ctx context.Context, name, description string) (Role, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO roles (name, description, is_active)
		VALUES ($1, $2, true)
		RETURNING `+roleColumns, name, description)
	role, err := scanRole(row)
	if err != nil {
		if isUniqueViolation(err) {
			return Role{}, fmt.Errorf("rbac: role %q: %w", name, ErrRoleExists)
		}
		return Role{}, err
	}
	return role, nil
}

// UpdateRole updates name and description of an existing role.
func (s *PGStore) UpdateRole(ctx context.Context, id int64, name, description string) (Role, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE roles SET name = $2, description = $3, updated_at = now()
		WHERE id = $1
		RETURNING `+roleColumns, id, name, description)
	role, err := scanRole(row)
	if err != nil {
		if isUniqueViolation(err) {
			return Role{}, fmt.Errorf("rbac: role %q: %w", name, ErrRoleExists)
		}
		return Role{}, err
	}
	return role, nil
}

// SoftDeleteRole marks a role inactive. Roles still referenced by a
// live user assignment are protected: ErrRoleInUse. The check and the
// update run in one transaction so a concurrent assignment cannot slip
// between them.
func (s *PGStore) SoftDeleteRole(ctx context.Context, id int64) error {
	return db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		var inUse bool
		err := tx.QueryRow(ctx, `
			SELECT EXISTS (
				SELECT 1 FROM user_roles
				WHERE role_id = $1 AND (expires_at IS NULL OR expires_at > now())
			)`, id).Scan(&inUse)
		if err != nil {
			return fmt.Errorf("rbac: check role usage: %w", err)
		}
		if inUse {
			return ErrRoleInUse
		}
		tag, err := tx.Exec(ctx, `UPDATE roles SET is_active = false, updated_at = now() WHERE id = $1 AND is_active`, id)
		if err != nil {
			return fmt.Errorf("rbac: soft delete role: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// AssignRole links a user to a role. Duplicate pairs hit the unique
// constraint and report AlreadyAssigned instead of erroring.
func (s *PGStore) AssignRole(ctx context.Context, userID, roleID int64, expiresAt *time.Time) (AssignOutcome, error) {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO user_roles (user_id, role_id, expires_at)
		VALUES ($1, $2, $3)`, userID, roleID, expiresAt)
	if err != nil {
		if isUniqueViolation(err) {
			return AlreadyAssigned, nil
		}
		if isForeignKeyViolation(err) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("rbac: assign role: %w", err)
	}
	return Assigned, nil
}

// RemoveRole unlinks a user from a role, reporting whether a row existed.
func (s *PGStore) RemoveRole(ctx context.Context, userID, roleID int64) (bool, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM user_roles WHERE user_id = $1 AND role_id = $2`, userID, roleID)
	if err != nil {
		return false, fmt.Errorf("rbac: remove role: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// ReplaceRolePermissions atomically swaps the full permission set of a
// role: delete all, insert the new set, inside one transaction. Readers
// observe either the prior complete set or the new complete set, never
// an empty role mid-update.
func (s *PGStore) ReplaceRolePermissions(ctx context.Context, roleID int64, permissionIDs []int64) ([]Permission, error) {
	var replaced []Permission
	err := db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM roles WHERE id = $1)`, roleID).Scan(&exists); err != nil {
			return fmt.Errorf("rbac: check role: %w", err)
		}
		if !exists {
			return ErrNotFound
		}
		if _, err := tx.Exec(ctx, `DELETE FROM role_permissions WHERE role_id = $1`, roleID); err != nil {
			return fmt.Errorf("rbac: clear role permissions: %w", err)
		}
		for _, permissionID := range permissionIDs {
			if _, err := tx.Exec(ctx, `
				INSERT INTO role_permissions (role_id, permission_id)
				VALUES ($1, $2)
				ON CONFLICT (role_id, permission_id) DO NOTHING`, roleID, permissionID); err != nil {
				if isForeignKeyViolation(err) {
					return fmt.Errorf("rbac: permission %d: %w", permissionID, ErrNotFound)
				}
				return fmt.Errorf("rbac: attach permission: %w", err)
			}
		}
		rows, err := tx.Query(ctx, `
			SELECT `+prefixedPermissionColumns("p")+`
			FROM role_permissions rp
			JOIN permissions p ON p.id = rp.permission_id
			WHERE rp.role_id = $1
			ORDER BY p.name`, roleID)
		if err != nil {
			return fmt.Errorf("rbac: reload role permissions: %w", err)
		}
		defer rows.Close()
		replaced, err = collectPermissions(rows)
		return err
	})
	if err != nil {
		return nil, err
	}
	return replaced, nil
}

// RolePermissions returns the active permissions attached to a role.
func (s *PGStore) RolePermissions(ctx context.Context, roleID int64) ([]Permission, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+prefixedPermissionColumns("p")+`
		FROM role_permissions rp
		JOIN permissions p ON p.id = rp.permission_id AND p.is_active
		WHERE rp.role_id = $1
		ORDER BY p.name`, roleID)
	if err != nil {
		return nil, fmt.Errorf("rbac: role permissions: %w", err)
	}
	defer rows.Close()
	return collectPermissions(rows)
}

// PermissionsForUser computes the permission closure for a user with a
// single join traversal across user_roles, roles, role_permissions and
// permissions, filtered to active rows and unexpired assignments. One
// snapshot-consistent query, never an N+1 per-role walk.
func (s *PGStore) PermissionsForUser(ctx context.Context, userID int64) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT DISTINCT p.name
		FROM user_roles ur
		JOIN roles r ON r.id = ur.role_id AND r.is_active
		JOIN role_permissions rp ON rp.role_id = r.id
		JOIN permissions p ON p.id = rp.permission_id AND p.is_active
		WHERE ur.user_id = $1
		  AND (ur.expires_at IS NULL OR ur.expires_at > now())
		ORDER BY p.name`, userID)
	if err != nil {
		return nil, fmt.Errorf("rbac: permissions for user: %w", err)
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("rbac: scan permission name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rbac: permissions for user: %w", err)
	}
	return names, nil
}

// UserHasPermission is the narrow existence form of the closure query.
// It must agree with PermissionsForUser on every input.
func (s *PGStore) UserHasPermission(ctx context.Context, userID int64, permission string) (bool, error) {
	var allowed bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1
			FROM user_roles ur
			JOIN roles r ON r.id = ur.role_id AND r.is_active
			JOIN role_permissions rp ON rp.role_id = r.id
			JOIN permissions p ON p.id = rp.permission_id AND p.is_active
			WHERE ur.user_id = $1
			  AND (ur.expires_at IS NULL OR ur.expires_at > now())
			  AND p.name = $2
		)`, userID, permission).Scan(&allowed)
	if err != nil {
		return false, fmt.Errorf("rbac: user has permission: %w", err)
	}
	return allowed, nil
}

// UserHasRole checks for a live assignment of the named active role.
func (s *PGStore) UserHasRole(ctx context.Context, userID int64, roleName string) (bool, error) {
	var has bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1
			FROM user_roles ur
			JOIN roles r ON r.id = ur.role_id AND r.is_active
			WHERE ur.user_id = $1
			  AND (ur.expires_at IS NULL OR ur.expires_at > now())
			  AND r.name = $2
		)`, userID, roleName).Scan(&has)
	if err != nil {
		return false, fmt.Errorf("rbac: user has role: %w", err)
	}
	return has, nil
}

func scanRole(row pgx.Row) (Role, error) {
	var role Role
	err := row.Scan(&role.ID, &role.Name, &role.Description, &role.IsActive, &role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Role{}, ErrNotFound
		}
		return Role{}, fmt.Errorf("rbac: scan role: %w", err)
	}
	return role, nil
}

func collectRoles(rows pgx.Rows) ([]Role, error) {
	var roles []Role
	for rows.Next() {
		var role Role
		if err := rows.Scan(&role.ID, &role.Name, &role.Description, &role.IsActive, &role.CreatedAt, &role.UpdatedAt); err != nil {
			return nil, fmt.Errorf("rbac: scan role: %w", err)
		}
		roles = append(roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rbac: iterate roles: %w", err)
	}
	return roles, nil
}

func collectPermissions(rows pgx.Rows) ([]Permission, error) {
	var perms []Permission
	for rows.Next() {
		var perm Permission
		if err := rows.Scan(&perm.ID, &perm.Name, &perm.Resource, &perm.Action, &perm.Description, &perm.IsActive); err != nil {
			return nil, fmt.Errorf("rbac: scan permission: %w", err)
		}
		perms = append(perms, perm)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rbac: iterate permissions: %w", err)
	}
	return perms, nil
}

func prefixedPermissionColumns(alias string) string {
	cols := strings.Split(permissionColumns, ", ")
	for i, c := range cols {
		cols[i] = alias + "." + c
	}
	return strings.Join(cols, ", ")
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation
}

var _ Store = (*PGStore)(nil)
