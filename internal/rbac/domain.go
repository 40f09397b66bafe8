package rbac

import (
	"errors"
	"time"
)

// Role represents a named authorization bucket. Name is the stable key
// used in code and URLs; IsActive is a soft-delete flag.
type Role struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Permission represents an atomic capability. Name is globally unique;
// Resource and Action are an optional decomposition of it.
type Permission struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Resource    string `json:"resource,omitempty"`
	Action      string `json:"action,omitempty"`
	Description string `json:"description"`
	IsActive    bool   `json:"is_active"`
}

// UserRole links a user to a role. A non-nil ExpiresAt bounds the
// assignment: lapsed rows grant nothing.
type UserRole struct {
	UserID    int64      `json:"user_id"`
	RoleID    int64      `json:"role_id"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// AssignOutcome distinguishes a fresh assignment from a semantic no-op.
type AssignOutcome string

// Assignment outcomes. Re-assigning an existing pair is reported, not
// treated as an error and not silently ignored.
const (
	Assigned        AssignOutcome = "assigned"
	AlreadyAssigned AssignOutcome = "already_assigned"
)

var (
	// ErrNotFound indicates the referenced role, permission or user does not exist.
	ErrNotFound = errors.New("rbac: not found")
	// ErrRoleInUse blocks deletion of a role with active user assignments.
	ErrRoleInUse = errors.New("rbac: role in use")
	// ErrRoleExists indicates a duplicate role name.
	ErrRoleExists = errors.New("rbac: role already exists")
)
