package domain

import "context"

// Principal identifies the authenticated caller. It is resolved once by the
// auth middleware and passed explicitly into every operation; usecases never
// reach for ambient session state.
type Principal struct {
	UserID string
	Email  string
}

type principalKey struct{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}
