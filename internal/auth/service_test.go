package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightwave-mkt/brightwave/internal/shared"
)

type mockRepository struct {
	users map[string]*User
	byID  map[int64]*User

	updatePasswordCalls int
	updatePasswordError error
}

func newMockRepository(users ...*User) *mockRepository {
	m := &mockRepository{users: map[string]*User{}, byID: map[int64]*User{}}
	for _, u := range users {
		m.users[u.Username] = u
		m.byID[u.ID] = u
	}
	return m
}

func (m *mockRepository) FindByUsername(ctx context.Context, username string) (*User, error) {
	u, ok := m.users[username]
	if !ok {
		return nil, shared.ErrNotFound
	}
	clone := *u
	return &clone, nil
}

func (m *mockRepository) FindByID(ctx context.Context, id int64) (*User, error) {
	u, ok := m.byID[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	clone := *u
	return &clone, nil
}

func (m *mockRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	m.updatePasswordCalls++
	if m.updatePasswordError != nil {
		return m.updatePasswordError
	}
	u, ok := m.byID[id]
	if !ok {
		return shared.ErrNotFound
	}
	u.PasswordHash = passwordHash
	return nil
}

func testIssuer() *TokenIssuer {
	return NewTokenIssuer("test-secret", time.Hour)
}

func TestAuthenticateSuccess(t *testing.T) {
	hashed, err := HashPassword("s3cret")
	require.NoError(t, err)
	repo := newMockRepository(&User{ID: 1, Username: "dana", PasswordHash: hashed, IsActive: true})
	svc := NewService(repo, testIssuer())

	user, err := svc.Authenticate(context.Background(), "dana", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, int64(1), user.ID)
	assert.Zero(t, repo.updatePasswordCalls, "bcrypt-stored password needs no rehash")
}

func TestAuthenticateUnknownUser(t *testing.T) {
	svc := NewService(newMockRepository(), testIssuer())

	_, err := svc.Authenticate(context.Background(), "ghost", "whatever")
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestAuthenticateWrongPassword(t *testing.T) {
	hashed, err := HashPassword("s3cret")
	require.NoError(t, err)
	repo := newMockRepository(&User{ID: 1, Username: "dana", PasswordHash: hashed, IsActive: true})
	svc := NewService(repo, testIssuer())

	_, err = svc.Authenticate(context.Background(), "dana", "wrong")
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestAuthenticateInactiveUser(t *testing.T) {
	hashed, err := HashPassword("s3cret")
	require.NoError(t, err)
	repo := newMockRepository(&User{ID: 1, Username: "dana", PasswordHash: hashed, IsActive: false})
	svc := NewService(repo, testIssuer())

	_, err = svc.Authenticate(context.Background(), "dana", "s3cret")
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestAuthenticateUpgradesLegacyPassword(t *testing.T) {
	repo := newMockRepository(&User{ID: 1, Username: "dana", PasswordHash: "legacy-plain", IsActive: true})
	svc := NewService(repo, testIssuer())

	user, err := svc.Authenticate(context.Background(), "dana", "legacy-plain")
	require.NoError(t, err)

	assert.Equal(t, 1, repo.updatePasswordCalls)
	assert.True(t, IsHashedPassword(user.PasswordHash), "returned user carries the upgraded hash")
	assert.True(t, IsHashedPassword(repo.byID[1].PasswordHash), "stored value upgraded in place")

	// Second login goes down the bcrypt path with no further writes.
	_, err = svc.Authenticate(context.Background(), "dana", "legacy-plain")
	require.NoError(t, err)
	assert.Equal(t, 1, repo.updatePasswordCalls)
}

func TestAuthenticateLegacyUpgradeFailureBlocksLogin(t *testing.T) {
	repo := newMockRepository(&User{ID: 1, Username: "dana", PasswordHash: "legacy-plain", IsActive: true})
	repo.updatePasswordError = errors.New("db down")
	svc := NewService(repo, testIssuer())

	_, err := svc.Authenticate(context.Background(), "dana", "legacy-plain")
	require.Error(t, err)
	assert.NotErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestLoginIssuesVerifiableToken(t *testing.T) {
	hashed, err := HashPassword("s3cret")
	require.NoError(t, err)
	repo := newMockRepository(&User{ID: 9, Username: "dana", PasswordHash: hashed, IsActive: true})
	issuer := testIssuer()
	svc := NewService(repo, issuer)

	user, token, err := svc.Login(context.Background(), "dana", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, int64(9), user.ID)

	claims, err := issuer.Verify(token)
	require.NoError(t, err)
	userID, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, int64(9), userID)
}
