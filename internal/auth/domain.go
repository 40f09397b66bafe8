package auth

import "time"

// User represents an authenticated user account. UserType is a
// denormalized classification used by business screens; authorization
// decisions never branch on it.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	CompanyID    *int64
	UserType     string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Known user types.
const (
	UserTypeEmployee   = "employee"
	UserTypeClient     = "client"
	UserTypeContractor = "contractor"
)
