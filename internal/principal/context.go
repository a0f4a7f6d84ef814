// Package principal carries the authenticated caller through request
// context. Token validation happens upstream; this package only transports
// the already-extracted claims.
package principal

import "context"

type Principal struct {
	UserID    string
	Anonymous bool
}

func (p Principal) IsZero() bool {
	return p.UserID == ""
}

type contextKey struct{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, contextKey{}, p)
}

func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(contextKey{}).(Principal)
	return p, ok
}
