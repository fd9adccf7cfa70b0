// Package requestctx carries authenticated request identity through context.
package requestctx

import "context"

// Role identifies the marketplace role an authenticated principal acts under.
type Role string

const (
	// RoleClient marks a principal posting jobs and accepting proposals.
	RoleClient Role = "client"
	// RoleFreelancer marks a principal submitting proposals.
	RoleFreelancer Role = "freelancer"
)

// Principal is the authenticated identity supplied by the auth collaborator.
type Principal struct {
	ID   string
	Role Role
}

// principalContextKey is the context key for authenticated identity.
type principalContextKey struct{}

// WithPrincipal stores an authenticated principal in context.
func WithPrincipal(ctx context.Context, principal Principal) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, principalContextKey{}, principal)
}

// PrincipalFromContext returns the principal stored in context.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	if ctx == nil {
		return Principal{}, false
	}
	value, ok := ctx.Value(principalContextKey{}).(Principal)
	if !ok || value.ID == "" {
		return Principal{}, false
	}
	return value, true
}
