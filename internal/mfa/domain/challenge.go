package domain

import "time"

// Challenge is an outstanding phone verification code (stored in verification_challenges).
// Its ID is the confirmation handle given to the client.
type Challenge struct {
	ID        string
	Phone     string // E.164
	CodeHash  string
	Attempts  int
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Expired reports whether the challenge can no longer be confirmed at now.
func (c *Challenge) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}
