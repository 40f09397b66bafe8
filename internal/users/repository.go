package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/brightwave-mkt/brightwave/internal/shared"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const userColumns = `id, username, company_id, user_type, is_active, created_at, updated_at`

// ListUsers returns all users ordered by id.
func (r *Repository) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("users: list: %w", err)
	}
	defer rows.Close()
	var list []User
	for rows.Next() {
		var user User
		if err := rows.Scan(&user.ID, &user.Username, &user.CompanyID, &user.UserType, &user.IsActive, &user.CreatedAt, &user.UpdatedAt); err != nil {
			return nil, fmt.Errorf("users: scan: %w", err)
		}
		list = append(list, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("users: list: %w", err)
	}
	return list, nil
}

// GetUser fetches a user by id.
func (r *Repository) GetUser(ctx context.Context, id int64) (User, error) {
	var user User
	err := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id).
		Scan(&user.ID, &user.Username, &user.CompanyID, &user.UserType, &user.IsActive, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, shared.ErrNotFound
		}
		return User{}, fmt.Errorf("users: get: %w", err)
	}
	return user, nil
}

// CreateUser inserts a new user with an already-hashed password.
func (r *Repository) CreateUser(ctx context.Context, username, passwordHash string, companyID *int64, userType string) (User, error) {
	var user User
	err := r.pool.QueryRow(ctx, `
		INSERT INTO users (username, password, company_id, user_type, is_active)
		VALUES ($1, $2, $3, $4, true)
		RETURNING `+userColumns, username, passwordHash, companyID, userType).
		Scan(&user.ID, &user.Username, &user.CompanyID, &user.UserType, &user.IsActive, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return User{}, ErrUsernameExists
		}
		return User{}, fmt.Errorf("users: create: %w", err)
	}
	return user, nil
}

// UpdateUser updates the mutable profile fields of a user.
func (r *Repository) UpdateUser(ctx context.Context, id int64, companyID *int64, userType string, isActive bool) (User, error) {
	var user User
	err := r.pool.QueryRow(ctx, `
		UPDATE users SET company_id = $2, user_type = $3, is_active = $4, updated_at = now()
		WHERE id = $1
		RETURNING `+userColumns, id, companyID, userType, isActive).
		Scan(&user.ID, &user.Username, &user.CompanyID, &user.UserType, &user.IsActive, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, shared.ErrNotFound
		}
		return User{}, fmt.Errorf("users: update: %w", err)
	}
	return user, nil
}

// UpdatePassword replaces the stored password hash.
func (r *Repository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET password = $2, updated_at = now() WHERE id = $1`, id, passwordHash)
	if err != nil {
		return fmt.Errorf("users: update password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// DeleteUser removes a user and, via cascade, its role assignments.
func (r *Repository) DeleteUser(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("users: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
