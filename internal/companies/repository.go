package companies

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

// List returns all companies ordered by name.
func (r *Repository) List(ctx context.Context) ([]Company, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, created_at, updated_at FROM companies ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("companies: list: %w", err)
	}
	defer rows.Close()
	var list []Company
	for rows.Next() {
		var company Company
		if err := rows.Scan(&company.ID, &company.Name, &company.CreatedAt, &company.UpdatedAt); err != nil {
			return nil, fmt.Errorf("companies: scan: %w", err)
		}
		list = append(list, company)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("companies: list: %w", err)
	}
	return list, nil
}

// Get fetches a company by id.
func (r *Repository) Get(ctx context.Context, id int64) (Company, error) {
	var company Company
	err := r.pool.QueryRow(ctx, `SELECT id, name, created_at, updated_at FROM companies WHERE id = $1`, id).
		Scan(&company.ID, &company.Name, &company.CreatedAt, &company.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Company{}, shared.ErrNotFound
		}
		return Company{}, fmt.Errorf("companies: get: %w", err)
	}
	return company, nil
}

// Create inserts a new company.
func (r *Repository) Create(ctx context.Context, name string) (Company, error) {
	var company Company
	err := r.pool.QueryRow(ctx, `
		INSERT INTO companies (name) VALUES ($1)
		RETURNING id, name, created_at, updated_at`, name).
		Scan(&company.ID, &company.Name, &company.CreatedAt, &company.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Company{}, ErrNameExists
		}
		return Company{}, fmt.Errorf("companies: create: %w", err)
	}
	return company, nil
}

// Update renames a company.
func (r *Repository) Update(ctx context.Context, id int64, name string) (Company, error) {
	var company Company
	err := r.pool.QueryRow(ctx, `
		UPDATE companies SET name = $2, updated_at = now() WHERE id = $1
		RETURNING id, name, created_at, updated_at`, id, name).
		Scan(&company.ID, &company.Name, &company.CreatedAt, &company.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Company{}, shared.ErrNotFound
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Company{}, ErrNameExists
		}
		return Company{}, fmt.Errorf("companies: update: %w", err)
	}
	return company, nil
}
