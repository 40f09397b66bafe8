package auth

import (
	"crypto/subtle"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// bcrypt encodings are exactly 60 bytes and carry a versioned prefix.
// Detection is structural so the schema needs no "is hashed" flag.
const bcryptEncodedLen = 60

var bcryptPrefixes = []string{"$2a$", "$2b$", "$2y$"}

// IsHashedPassword reports whether stored looks like a bcrypt hash
// rather than a legacy plaintext value.
func IsHashedPassword(stored string) bool {
	if len(stored) != bcryptEncodedLen {
		return false
	}
	for _, p := range bcryptPrefixes {
		if strings.HasPrefix(stored, p) {
			return true
		}
	}
	return false
}

// HashPassword produces a bcrypt hash at the default cost.
func HashPassword(plain string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// checkPassword compares the submitted password against the stored
// value, tolerating legacy plaintext storage. It reports whether the
// password matched and whether the stored value still needs hashing.
func checkPassword(stored, submitted string) (match, needsUpgrade bool) {
	if IsHashedPassword(stored) {
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(submitted)) == nil, false
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(submitted)) == 1, true
}
