package cryptox

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// ErrPasswordMismatch reports that a password does not match its stored hash.
var ErrPasswordMismatch = errors.New("cryptox: password mismatch")

// HashPassword hashes a plaintext password with bcrypt at the default cost.
// The directory boundary owns password policy; this is only the primitive.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// burnHash is a throwaway bcrypt hash of an unguessable value, used to keep
// the unknown-user path as slow as the wrong-password path.
var burnHash, _ = bcrypt.GenerateFromPassword([]byte("cryptox-burn-only"), bcrypt.DefaultCost)

// BurnPasswordCheck runs a bcrypt comparison that is guaranteed to fail.
// Call it on lookup misses so response timing does not reveal whether an
// account exists.
func BurnPasswordCheck(password string) {
	_ = bcrypt.CompareHashAndPassword(burnHash, []byte(password))
}

// VerifyPassword compares a plaintext password against a bcrypt hash.
// Returns ErrPasswordMismatch for any mismatch so callers never branch on
// hash-format details.
func VerifyPassword(password, hash string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return ErrPasswordMismatch
	}
	return nil
}
