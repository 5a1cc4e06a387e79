package auth

import (
	"context"

	"github.com/platinummonkey/filtros/pkg/contextkeys"
)

// WithPrincipal stores p in ctx.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return contextkeys.WithAuth(ctx, p)
}

// PrincipalFrom returns the authenticated principal, or nil.
func PrincipalFrom(ctx context.Context) *Principal {
	p, _ := ctx.Value(contextkeys.AuthKey).(*Principal)
	return p
}
