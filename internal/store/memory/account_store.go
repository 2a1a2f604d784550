package memory

import (
	"bytes"
	"cmp"
	"context"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/wolfeidau/tenantry/internal/models"
	"github.com/wolfeidau/tenantry/internal/store"
	"github.com/wolfeidau/tenantry/internal/tenancy"
)

// AccountStore implements store.AccountStore using in-memory storage.
// All access goes through scoped, which pins the current tenant.
type AccountStore struct {
	db *DB
}

// NewAccountStore creates a new in-memory account store.
func NewAccountStore(db *DB) *AccountStore {
	return &AccountStore{db: db}
}

// scoped is the single entry point for tenant-scoped access. It returns the
// current tenant's id and a predicate matching only that tenant's rows.
func (s *AccountStore) scoped(ctx context.Context) (int64, func(*models.Account) bool, error) {
	tenant, err := tenancy.FromContext(ctx)
	if err != nil {
		return 0, nil, err
	}
	tenantID := tenant.ID()
	return tenantID, func(a *models.Account) bool { return a.TenantID == tenantID }, nil
}

// List returns all accounts of the current tenant ordered by name, then id.
func (s *AccountStore) List(ctx context.Context) ([]*models.Account, error) {
	_, inTenant, err := s.scoped(ctx)
	if err != nil {
		return nil, err
	}

	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	var result []*models.Account
	for _, a := range s.db.accounts {
		if !inTenant(a) {
			continue
		}
		clone := *a
		result = append(result, &clone)
	}

	slices.SortFunc(result, func(a, b *models.Account) int {
		return cmp.Or(
			strings.Compare(a.Name, b.Name),
			bytes.Compare(a.AccountID[:], b.AccountID[:]),
		)
	})

	return result, nil
}

// Get retrieves an account of the current tenant.
func (s *AccountStore) Get(ctx context.Context, accountID uuid.UUID) (*models.Account, error) {
	_, inTenant, err := s.scoped(ctx)
	if err != nil {
		return nil, err
	}

	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	a, exists := s.db.accounts[accountID]
	if !exists || !inTenant(a) {
		return nil, store.ErrAccountNotFound
	}

	clone := *a
	return &clone, nil
}

// Create inserts an account, stamping TenantID from the context and assigning a new AccountID.
func (s *AccountStore) Create(ctx context.Context, account *models.Account) error {
	tenantID, _, err := s.scoped(ctx)
	if err != nil {
		return err
	}

	accountID, err := uuid.NewV7()
	if err != nil {
		return err
	}

	clone := *account
	clone.TenantID = tenantID
	clone.AccountID = accountID
	if clone.CreatedAt.IsZero() {
		clone.CreatedAt = time.Now()
	}

	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if _, exists := s.db.tenants[tenantID]; !exists {
		// tenant deleted after the request was authorized
		return store.ErrTenantNotFound
	}

	s.db.accounts[clone.AccountID] = &clone

	account.TenantID = clone.TenantID
	account.AccountID = clone.AccountID
	account.CreatedAt = clone.CreatedAt

	return nil
}

// Delete removes an account of the current tenant.
func (s *AccountStore) Delete(ctx context.Context, accountID uuid.UUID) error {
	_, inTenant, err := s.scoped(ctx)
	if err != nil {
		return err
	}

	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	a, exists := s.db.accounts[accountID]
	if !exists || !inTenant(a) {
		return store.ErrAccountNotFound
	}

	delete(s.db.accounts, accountID)

	return nil
}
