package auth

import (
	"context"

	"github.com/canopy-data/canopy/pkg/catalog/inmem"
)

type principalKey struct{}

// WithPrincipal returns a context carrying the authenticated principal.
func WithPrincipal(ctx context.Context, principal string) context.Context {
	return context.WithValue(ctx, principalKey{}, principal)
}

// PrincipalFrom returns the principal carried by ctx, or the public
// principal when none was set.
func PrincipalFrom(ctx context.Context) string {
	if p, ok := ctx.Value(principalKey{}).(string); ok && p != "" {
		return p
	}
	return inmem.PrincipalPublic
}
