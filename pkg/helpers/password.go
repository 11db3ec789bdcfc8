package helpers

import "golang.org/x/crypto/bcrypt"

// bcryptCost is pinned rather than bcrypt.DefaultCost so hashes stay
// comparable across library upgrades.
const bcryptCost = 10

// HashPassword hashes the plain text password using bcrypt
func HashPassword(plain string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// CheckPassword compares a bcrypt hash with a plain password. It returns
// false on mismatch or a malformed digest, never an error.
func CheckPassword(hash string, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
