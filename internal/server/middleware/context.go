package middleware

import "context"

type contextKey struct{ name string }

var (
	identityUIDKey = contextKey{"identity_uid"}
	phoneNumberKey = contextKey{"phone_number"}
)

// WithIdentity returns a context with identity_uid and phone_number set.
// Handlers read these via GetIdentityUID and GetPhoneNumber.
func WithIdentity(ctx context.Context, identityUID, phoneNumber string) context.Context {
	ctx = context.WithValue(ctx, identityUIDKey, identityUID)
	ctx = context.WithValue(ctx, phoneNumberKey, phoneNumber)
	return ctx
}

// GetIdentityUID returns the identity_uid from context and true if set; otherwise "", false.
func GetIdentityUID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(identityUIDKey).(string)
	return v, ok
}

// GetPhoneNumber returns the phone_number from context and true if set; otherwise "", false.
func GetPhoneNumber(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(phoneNumberKey).(string)
	return v, ok
}
