package users

import (
	"context"

	"github.com/brightwave-mkt/brightwave/internal/auth"
)

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	ListUsers(ctx context.Context) ([]User, error)
	GetUser(ctx context.Context, id int64) (User, error)
	CreateUser(ctx context.Context, username, passwordHash string, companyID *int64, userType string) (User, error)
	UpdateUser(ctx context.Context, id int64, companyID *int64, userType string, isActive bool) (User, error)
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
	DeleteUser(ctx context.Context, id int64) error
}

// Service handles user management business rules.
type Service struct {
	repo RepositoryPort
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// ListUsers returns all users.
func (s *Service) ListUsers(ctx context.Context) ([]User, error) {
	return s.repo.ListUsers(ctx)
}

// GetUser fetches one user.
func (s *Service) GetUser(ctx context.Context, id int64) (User, error) {
	return s.repo.GetUser(ctx, id)
}

// CreateUser hashes the initial password and inserts the account.
func (s *Service) CreateUser(ctx context.Context, username, password string, companyID *int64, userType string) (User, error) {
	hashed, err := auth.HashPassword(password)
	if err != nil {
		return User{}, err
	}
	return s.repo.CreateUser(ctx, username, hashed, companyID, userType)
}

// UpdateUser updates profile fields.
func (s *Service) UpdateUser(ctx context.Context, id int64, companyID *int64, userType string, isActive bool) (User, error) {
	return s.repo.UpdateUser(ctx, id, companyID, userType, isActive)
}

// ChangePassword re-hashes and stores a new password.
func (s *Service) ChangePassword(ctx context.Context, id int64, password string) error {
	hashed, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	return s.repo.UpdatePassword(ctx, id, hashed)
}

// DeleteUser removes an account. The self-delete guard lives at the
// authorization boundary: actorID equal to the target is rejected here
// regardless of the actor's permissions.
func (s *Service) DeleteUser(ctx context.Context, actorID, targetID int64) error {
	if actorID == targetID {
		return ErrSelfDelete
	}
	return s.repo.DeleteUser(ctx, targetID)
}
