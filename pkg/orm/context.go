package orm

import "context"

// Principal identifies who is acting: the logged-in user and the
// workstation. Both are nullable during bootstrap and in tests; audit rows
// carry whatever is present.
type Principal struct {
	UserID    *int64
	StationID *int64
}

type principalKey struct{}

// WithPrincipal attaches the acting principal to ctx. Commit reads it when
// stamping audit rows.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// CurrentPrincipal returns the principal attached to ctx, or the zero
// Principal when none is.
func CurrentPrincipal(ctx context.Context) Principal {
	p, _ := ctx.Value(principalKey{}).(Principal)
	return p
}
