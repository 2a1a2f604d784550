package auth

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrUnauthenticated is returned when authentication fails.
var ErrUnauthenticated = errors.New("unauthenticated")

// Principal represents an authenticated caller from a verified JWT.
// This is added to the request context after successful JWT verification.
type Principal struct {
	UserID uuid.UUID

	// TenantClaims are the raw "{tenantKey}:{role}" values embedded at issuance.
	// They are a point-in-time snapshot and are parsed by the authz package.
	TenantClaims []string
}

type contextKey int

const (
	principalContextKey contextKey = iota
)

// WithPrincipal adds the authenticated principal to the context.
func WithPrincipal(ctx context.Context, principal *Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, principal)
}

// PrincipalFromContext extracts the authenticated principal from the request context.
// Returns nil if no principal is present (unauthenticated request).
func PrincipalFromContext(ctx context.Context) *Principal {
	principal, _ := ctx.Value(principalContextKey).(*Principal)
	return principal
}
