package users

import (
	"errors"
	"time"
)

// User represents a user account for management. UserType is advisory
// classification; authorization never branches on it.
type User struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	CompanyID *int64    `json:"company_id"`
	UserType  string    `json:"user_type"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

var (
	// ErrUsernameExists indicates a duplicate username.
	ErrUsernameExists = errors.New("users: username already exists")
	// ErrSelfDelete blocks a principal from deleting their own account.
	ErrSelfDelete = errors.New("users: cannot delete own account")
)
