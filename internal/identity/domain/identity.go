package domain

import "time"

// Identity is a verified sign-in credential. Its ID is the UID carried as the subject of identity tokens.
type Identity struct {
	ID             string
	Provider       IdentityProvider
	ProviderID     string // E.164 phone number for phone identities
	CreatedAt      time.Time
	LastVerifiedAt time.Time
}

type IdentityProvider string

const (
	IdentityProviderPhone IdentityProvider = "phone"
)
