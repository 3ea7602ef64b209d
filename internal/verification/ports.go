package verification

import (
	"context"

	userdomain "soori/internal/user/domain"
)

// ConfirmationHandle is the opaque reference returned when a code is sent. Empty means none.
type ConfirmationHandle string

// Identity is a phone identity confirmed by the identity provider.
type Identity struct {
	UID         string
	PhoneNumber string
}

// IdentityProvider sends verification codes and confirms them.
type IdentityProvider interface {
	// RequestCode sends a code to the E.164 number and returns the handle that confirms it.
	RequestCode(ctx context.Context, phoneE164 string) (ConfirmationHandle, error)
	// Confirm checks code against handle. A wrong or expired code is an error.
	Confirm(ctx context.Context, handle ConfirmationHandle, code string) (*Identity, error)
	// Token returns a bearer token for a confirmed identity.
	Token(ctx context.Context, identity *Identity) (string, error)
}

// CheckResult is the directory's answer to whether the token's identity is registered.
type CheckResult struct {
	Exists bool
	User   *userdomain.User
}

// UserDirectory looks up and registers users by identity token.
type UserDirectory interface {
	CheckExists(ctx context.Context, token string) (*CheckResult, error)
	Create(ctx context.Context, token string, profile *userdomain.Profile) (*userdomain.User, error)
}

// EventLog records diagnostic events. Implementations must not block and swallow their own failures.
type EventLog interface {
	Record(ctx context.Context, title, description string, fatal bool)
}
