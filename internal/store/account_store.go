package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/wolfeidau/tenantry/internal/models"
)

// ErrAccountNotFound is returned when an account doesn't exist in the current tenant.
var ErrAccountNotFound = errors.New("account not found")

// AccountStore provides tenant-scoped access to accounts.
//
// No method accepts a tenant id. Every implementation resolves the tenant from
// the request's tenancy context and returns tenancy.ErrContextNotSet when it is
// missing, so a query can only ever see rows of the already-authorized tenant.
type AccountStore interface {
	// List returns all accounts of the current tenant ordered by name.
	List(ctx context.Context) ([]*models.Account, error)

	// Get retrieves an account of the current tenant.
	// Returns ErrAccountNotFound if it doesn't exist or belongs to another tenant.
	Get(ctx context.Context, accountID uuid.UUID) (*models.Account, error)

	// Create inserts an account, stamping TenantID from the context and assigning
	// a new AccountID. Caller-supplied values for either are ignored.
	Create(ctx context.Context, account *models.Account) error

	// Delete removes an account of the current tenant.
	// Returns ErrAccountNotFound if it doesn't exist or belongs to another tenant.
	Delete(ctx context.Context, accountID uuid.UUID) error
}
