package memory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/wolfeidau/tenantry/internal/models"
	"github.com/wolfeidau/tenantry/internal/store"
)

// TenantStore implements store.TenantStore using in-memory storage.
type TenantStore struct {
	db *DB
}

// NewTenantStore creates a new in-memory tenant store.
func NewTenantStore(db *DB) *TenantStore {
	return &TenantStore{db: db}
}

// Create provisions a new tenant in memory.
func (s *TenantStore) Create(ctx context.Context, tenant *models.Tenant) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if _, exists := s.db.tenantsByKey[tenant.PublicKey]; exists {
		return store.ErrTenantAlreadyExists
	}

	if tenant.CreatedAt.IsZero() {
		tenant.CreatedAt = time.Now()
	}

	s.db.nextTenantID++
	tenant.InternalID = s.db.nextTenantID

	// Clone to avoid external modifications
	clone := *tenant
	s.db.tenants[clone.InternalID] = &clone
	s.db.tenantsByKey[clone.PublicKey] = &clone

	return nil
}

// GetByKey retrieves a tenant by its public key.
func (s *TenantStore) GetByKey(ctx context.Context, key uuid.UUID) (*models.Tenant, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	tenant, exists := s.db.tenantsByKey[key]
	if !exists {
		return nil, store.ErrTenantNotFound
	}

	clone := *tenant
	return &clone, nil
}

// Delete hard-deletes a tenant and cascades to its assignments and accounts.
func (s *TenantStore) Delete(ctx context.Context, key uuid.UUID) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	tenant, exists := s.db.tenantsByKey[key]
	if !exists {
		return store.ErrTenantNotFound
	}

	for k := range s.db.assignments {
		if k.tenantID == tenant.InternalID {
			delete(s.db.assignments, k)
		}
	}
	for id, a := range s.db.accounts {
		if a.TenantID == tenant.InternalID {
			delete(s.db.accounts, id)
		}
	}

	delete(s.db.tenants, tenant.InternalID)
	delete(s.db.tenantsByKey, key)

	return nil
}
