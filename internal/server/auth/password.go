package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword returns nil for an empty password, meaning the file is not
// password protected. Otherwise it returns a bcrypt hash.
func HashPassword(password string) (*string, error) {
	if password == "" {
		return nil, nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	h := string(hash)
	return &h, nil
}

// VerifyPassword is false when there is no stored hash or no candidate.
func VerifyPassword(candidate string, storedHash *string) bool {
	if storedHash == nil || *storedHash == "" || candidate == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(*storedHash), []byte(candidate)) == nil
}
