// Package campaigns is a representative tenant-scoped business
// resource. Its routes exist primarily to carry the authorization
// contract declared in their middleware; the CRUD itself is thin.
package campaigns

import "time"

// Campaign represents a marketing campaign owned by a company.
type Campaign struct {
	ID        int64     `json:"id"`
	CompanyID int64     `json:"company_id"`
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Campaign statuses.
const (
	StatusDraft    = "draft"
	StatusActive   = "active"
	StatusArchived = "archived"
)
