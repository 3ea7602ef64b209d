package security

import (
	"golang.org/x/crypto/bcrypt"
)

// Hasher hashes and verifies short-lived verification codes using bcrypt so a
// leaked challenge row does not reveal the code. Callers must not log plaintext codes.
type Hasher struct {
	Cost int
}

// NewHasher returns a Hasher with the given bcrypt cost, clamped to bcrypt's bounds.
// A zero or negative cost selects bcrypt.DefaultCost.
func NewHasher(cost int) *Hasher {
	switch {
	case cost <= 0:
		cost = bcrypt.DefaultCost
	case cost < bcrypt.MinCost:
		cost = bcrypt.MinCost
	case cost > bcrypt.MaxCost:
		cost = bcrypt.MaxCost
	}
	return &Hasher{Cost: cost}
}

// Hash returns the bcrypt hash of code.
func (h *Hasher) Hash(code string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(code), h.Cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Match reports whether code matches the stored hash.
func (h *Hasher) Match(hash, code string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(code)) == nil
}
