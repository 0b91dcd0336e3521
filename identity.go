package saascore

import "context"

// Identity is the verified output of a successful token verification.
// It is never constructed on a failed verification.
type Identity struct {
	// UID is the stable user identifier, taken from the sub claim.
	UID string `json:"uid"`

	// Email is the user's email address.
	Email string `json:"email"`

	// EmailVerified reports whether the provider has verified Email.
	EmailVerified bool `json:"email_verified"`

	// AuthTime is the time the user authenticated, in epoch seconds.
	// Nil when the token does not carry an auth_time claim.
	AuthTime *int64 `json:"auth_time,omitempty"`
}

// ContextKey is the key used to store the verified identity in a request
// context. An empty struct is used to keep allocations down and to avoid
// collisions with other packages.
type ContextKey struct{}

// NewContext returns a copy of ctx carrying the verified identity.
func NewContext(ctx context.Context, identity *Identity) context.Context {
	return context.WithValue(ctx, ContextKey{}, identity)
}

// IdentityFromContext retrieves the verified identity placed in the context
// by one of the framework adapters. The second return value reports whether
// an identity was present.
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	identity, ok := ctx.Value(ContextKey{}).(*Identity)
	return identity, ok
}
