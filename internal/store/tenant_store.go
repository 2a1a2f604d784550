package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/wolfeidau/tenantry/internal/models"
)

// Sentinel errors for tenant store operations
var (
	ErrTenantNotFound      = errors.New("tenant not found")
	ErrTenantAlreadyExists = errors.New("tenant already exists")
)

// TenantStore defines the interface for tenant storage operations.
// It holds no authorization logic; callers decide who may see a tenant.
type TenantStore interface {
	// Create provisions a new tenant and assigns its InternalID.
	// Returns ErrTenantAlreadyExists if a tenant with the same public key exists.
	Create(ctx context.Context, tenant *models.Tenant) error

	// GetByKey retrieves a tenant by its public key.
	// Returns ErrTenantNotFound if the tenant doesn't exist.
	GetByKey(ctx context.Context, key uuid.UUID) (*models.Tenant, error)

	// Delete hard-deletes a tenant by public key.
	// This cascade-deletes role assignments and all tenant-owned data.
	// Returns ErrTenantNotFound if the tenant doesn't exist.
	Delete(ctx context.Context, key uuid.UUID) error
}
