// Package tenancy holds the request-scoped handle of the tenant a request has
// been authorized for. The handle lives only in the request's context.Context.
package tenancy

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/wolfeidau/tenantry/internal/authz"
	"github.com/wolfeidau/tenantry/internal/models"
)

// ErrContextNotSet is returned when tenant-scoped code runs without a tenant
// context. It means the authorization stage was skipped or misordered and is a
// server defect, never a client error.
var ErrContextNotSet = errors.New("tenant context not set")

// ErrContextAlreadySet is returned when a request tries to establish a second tenant.
var ErrContextAlreadySet = errors.New("tenant context already set")

// Tenant is the read-only handle of the authorized tenant.
type Tenant struct {
	internalID int64
	publicKey  uuid.UUID
}

// ID returns the tenant's internal storage id.
func (t Tenant) ID() int64 { return t.internalID }

// Key returns the tenant's public key.
func (t Tenant) Key() uuid.UUID { return t.publicKey }

type contextKey int

const (
	tenantContextKey contextKey = iota
)

// Establish moves the request from Unset to Set. It requires an authorization
// decision already recorded in ctx and a tenant row matching the decided key.
func Establish(ctx context.Context, tenant *models.Tenant) (context.Context, error) {
	if _, err := FromContext(ctx); err == nil {
		return ctx, ErrContextAlreadySet
	}

	decision, ok := authz.DecisionFromContext(ctx)
	if !ok {
		return ctx, fmt.Errorf("%w: no authorization decision recorded", ErrContextNotSet)
	}

	if tenant == nil || tenant.PublicKey != decision.TenantKey() {
		return ctx, fmt.Errorf("%w: tenant does not match authorization decision", ErrContextNotSet)
	}

	return context.WithValue(ctx, tenantContextKey, Tenant{
		internalID: tenant.InternalID,
		publicKey:  tenant.PublicKey,
	}), nil
}

// FromContext returns the authorized tenant for this request.
// Returns ErrContextNotSet if Establish has not run.
func FromContext(ctx context.Context) (Tenant, error) {
	t, ok := ctx.Value(tenantContextKey).(Tenant)
	if !ok || t.publicKey == uuid.Nil {
		return Tenant{}, ErrContextNotSet
	}
	return t, nil
}
