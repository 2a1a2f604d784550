package authz

import (
	"context"

	"github.com/google/uuid"
	"github.com/wolfeidau/tenantry/internal/models"
)

// Decision is the outcome of a successful authorization check. It can only be
// produced by Decide, so holding one proves the check ran.
type Decision struct {
	tenantKey uuid.UUID
	role      models.Role
	required  models.Role
}

// TenantKey returns the tenant key the caller was authorized for.
func (d Decision) TenantKey() uuid.UUID { return d.tenantKey }

// Role returns the role the caller holds on the tenant.
func (d Decision) Role() models.Role { return d.role }

// Required returns the minimum role the endpoint declared.
func (d Decision) Required() models.Role { return d.required }

// Decide evaluates a required role against the caller's claims for the tenant
// identified by tenantKey, as taken from the route.
//
// It returns ErrAccessDenied when no claim matches the tenant (including an
// unparseable route key) and *InsufficientRoleError when the matching claim's
// role is below required.
func Decide(claims []string, tenantKey string, required models.Role) (Decision, error) {
	key, err := uuid.Parse(tenantKey)
	if err != nil || key == uuid.Nil {
		return Decision{}, ErrAccessDenied
	}

	var (
		held  models.Role
		found bool
	)
	for _, c := range ParseClaims(claims) {
		if c.TenantKey != key {
			continue
		}
		// duplicate claims for one tenant should not happen; take the strongest
		if !found || c.Role > held {
			held = c.Role
		}
		found = true
	}

	if !found {
		return Decision{}, ErrAccessDenied
	}

	if !held.AtLeast(required) {
		return Decision{}, &InsufficientRoleError{Required: required, Actual: held}
	}

	return Decision{tenantKey: key, role: held, required: required}, nil
}

type contextKey int

const (
	decisionContextKey contextKey = iota
)

// WithDecision records a successful decision for the remainder of the request.
func WithDecision(ctx context.Context, d Decision) context.Context {
	return context.WithValue(ctx, decisionContextKey, d)
}

// DecisionFromContext returns the decision recorded for this request, if any.
func DecisionFromContext(ctx context.Context) (Decision, bool) {
	d, ok := ctx.Value(decisionContextKey).(Decision)
	return d, ok && d.tenantKey != uuid.Nil
}
