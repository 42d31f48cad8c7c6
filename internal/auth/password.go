package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// ErrEmptyPassword is returned when hashing an empty plaintext.
var ErrEmptyPassword = errors.New("password must not be empty")

// Hasher hashes and verifies passwords with bcrypt. The salt is embedded in
// the digest, so hashing the same plaintext twice yields different digests.
type Hasher struct {
	cost int
}

// NewHasher returns a Hasher using cost, or bcrypt.DefaultCost when cost is out of range.
func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Hasher{cost: cost}
}

// Hash returns the bcrypt digest of plaintext.
func (h *Hasher) Hash(plaintext string) (string, error) {
	if plaintext == "" {
		return "", ErrEmptyPassword
	}
	digest, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", err
	}
	return string(digest), nil
}

// Verify reports whether plaintext matches digest. A malformed digest is a mismatch.
func (h *Hasher) Verify(plaintext, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext)) == nil
}
