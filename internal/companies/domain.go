// Package companies holds the tenant catalog. A company scopes
// business data like campaigns; it is orthogonal to the RBAC model.
package companies

import (
	"errors"
	"time"
)

// Company represents a tenant boundary.
type Company struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ErrNameExists indicates a duplicate company name.
var ErrNameExists = errors.New("companies: name already exists")
