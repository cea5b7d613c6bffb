package contextx

import "context"

// Key is a private type to avoid collisions in request context keys.
type Key string

// PrincipalKey is the context key used to store the authenticated Principal.
const PrincipalKey Key = "principal"

// Principal is the identity resolved from a request's bearer credential.
type Principal struct {
	UserID   string
	Username string
	Role     string
}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, PrincipalKey, p)
}

// PrincipalFrom returns the principal stored by the auth middleware, if any.
func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(PrincipalKey).(Principal)
	return p, ok && p.UserID != ""
}
