package campaigns

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
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

const campaignColumns = `id, company_id, name, status, created_at, updated_at`

// List returns campaigns, optionally restricted to one company.
func (r *Repository) List(ctx context.Context, companyID *int64) ([]Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns`
	args := []any{}
	if companyID != nil {
		query += ` WHERE company_id = $1`
		args = append(args, *companyID)
	}
	query += ` ORDER BY id`
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("campaigns: list: %w", err)
	}
	defer rows.Close()
	var list []Campaign
	for rows.Next() {
		var c Campaign
		if err := rows.Scan(&c.ID, &c.CompanyID, &c.Name, &c.Status, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("campaigns: scan: %w", err)
		}
		list = append(list, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("campaigns: list: %w", err)
	}
	return list, nil
}

// Create inserts a new campaign in draft status.
func (r *Repository) Create(ctx context.Context, companyID int64, name string) (Campaign, error) {
	var c Campaign
	err := r.pool.QueryRow(ctx, `
		INSERT INTO campaigns (company_id, name, status)
		VALUES ($1, $2, $3)
		RETURNING `+campaignColumns, companyID, name, StatusDraft).
		Scan(&c.ID, &c.CompanyID, &c.Name, &c.Status, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return Campaign{}, fmt.Errorf("campaigns: create: %w", err)
	}
	return c, nil
}

// Update changes name and status of a campaign.
func (r *Repository) Update(ctx context.Context, id int64, name, status string) (Campaign, error) {
	var c Campaign
	err := r.pool.QueryRow(ctx, `
		UPDATE campaigns SET name = $2, status = $3, updated_at = now() WHERE id = $1
		RETURNING `+campaignColumns, id, name, status).
		Scan(&c.ID, &c.CompanyID, &c.Name, &c.Status, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Campaign{}, shared.ErrNotFound
		}
		return Campaign{}, fmt.Errorf("campaigns: update: %w", err)
	}
	return c, nil
}
