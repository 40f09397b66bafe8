package auth

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidToken indicates a token that failed signature or claim checks.
var ErrInvalidToken = errors.New("auth: invalid token")

// DefaultTokenTTL applies when configuration supplies no TTL. There is
// no refresh flow; expiry requires re-authentication.
const DefaultTokenTTL = time.Hour

// Claims carries the minimal identity encoded in an access token.
type Claims struct {
	Username  string `json:"username"`
	CompanyID *int64 `json:"company_id,omitempty"`
	jwt.RegisteredClaims
}

// UserID returns the numeric user id from the subject claim.
func (c *Claims) UserID() (int64, error) {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil {
		return 0, ErrInvalidToken
	}
	return id, nil
}

// TokenIssuer signs and verifies HS256 access tokens.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenIssuer constructs a TokenIssuer. A zero ttl falls back to
// DefaultTokenTTL.
func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenIssuer{secret: []byte(secret), ttl: ttl}
}

// TTL returns the configured token lifetime.
func (i *TokenIssuer) TTL() time.Duration {
	return i.ttl
}

// Issue signs a token for the given user.
func (i *TokenIssuer) Issue(user *User) (string, error) {
	now := time.Now().UTC()
	claims := Claims{
		Username:  user.Username,
		CompanyID: user.CompanyID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(user.ID, 10),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", err
	}
	return signed, nil
}

// Verify parses and validates a signed token, returning its claims.
func (i *TokenIssuer) Verify(raw string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return i.secret, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
