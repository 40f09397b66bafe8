package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/brightwave-mkt/brightwave/internal/shared"
)

// Service wraps authentication business rules.
type Service struct {
	repo   Repository
	issuer *TokenIssuer
}

// NewService constructs a new Service.
func NewService(repo Repository, issuer *TokenIssuer) *Service {
	return &Service{repo: repo, issuer: issuer}
}

// Authenticate validates username/password credentials. Legacy
// plaintext-stored passwords are re-hashed and persisted on the first
// successful login, so callers must treat this as a side-effecting read.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*User, error) {
	user, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("auth: find user: %w", err)
	}
	if !user.IsActive {
		return nil, shared.ErrInvalidCredentials
	}
	match, needsUpgrade := checkPassword(user.PasswordHash, password)
	if !match {
		return nil, shared.ErrInvalidCredentials
	}
	if needsUpgrade {
		hashed, err := HashPassword(password)
		if err != nil {
			return nil, fmt.Errorf("auth: hash legacy password: %w", err)
		}
		if err := s.repo.UpdatePassword(ctx, user.ID, hashed); err != nil {
			return nil, fmt.Errorf("auth: persist upgraded password: %w", err)
		}
		user.PasswordHash = hashed
	}
	return user, nil
}

// Login authenticates and issues an access token.
func (s *Service) Login(ctx context.Context, username, password string) (*User, string, error) {
	user, err := s.Authenticate(ctx, username, password)
	if err != nil {
		return nil, "", err
	}
	token, err := s.issuer.Issue(user)
	if err != nil {
		return nil, "", fmt.Errorf("auth: issue token: %w", err)
	}
	return user, token, nil
}

// LookupUser loads a user by id for identity hydration.
func (s *Service) LookupUser(ctx context.Context, id int64) (*User, error) {
	return s.repo.FindByID(ctx, id)
}
