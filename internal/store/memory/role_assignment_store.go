package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/wolfeidau/tenantry/internal/models"
	"github.com/wolfeidau/tenantry/internal/store"
)

// RoleAssignmentStore implements store.RoleAssignmentStore using in-memory storage.
type RoleAssignmentStore struct {
	db *DB
}

// NewRoleAssignmentStore creates a new in-memory role assignment store.
func NewRoleAssignmentStore(db *DB) *RoleAssignmentStore {
	return &RoleAssignmentStore{db: db}
}

// Get retrieves the assignment for a user on a tenant.
func (s *RoleAssignmentStore) Get(ctx context.Context, userID uuid.UUID, tenantID int64) (*models.RoleAssignment, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	a, exists := s.db.assignments[assignmentKey{userID: userID, tenantID: tenantID}]
	if !exists {
		return nil, store.ErrRoleAssignmentNotFound
	}

	clone := *a
	return &clone, nil
}

// ListForUser returns every tenant the user holds a role on.
func (s *RoleAssignmentStore) ListForUser(ctx context.Context, userID uuid.UUID) ([]*models.TenantAccess, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	var result []*models.TenantAccess
	for k, a := range s.db.assignments {
		if k.userID != userID {
			continue
		}
		tenant, exists := s.db.tenants[k.tenantID]
		if !exists {
			continue
		}
		result = append(result, &models.TenantAccess{Tenant: *tenant, Role: a.Role})
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Tenant.PublicKey.String() < result[j].Tenant.PublicKey.String()
	})

	return result, nil
}

// ListForTenant returns all assignments on a tenant.
func (s *RoleAssignmentStore) ListForTenant(ctx context.Context, tenantID int64) ([]*models.RoleAssignment, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	var result []*models.RoleAssignment
	for k, a := range s.db.assignments {
		if k.tenantID == tenantID {
			clone := *a
			result = append(result, &clone)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})

	return result, nil
}

// Create grants a role, failing with store.ErrDuplicateRoleAssignment if one exists.
func (s *RoleAssignmentStore) Create(ctx context.Context, assignment *models.RoleAssignment) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if _, exists := s.db.tenants[assignment.TenantID]; !exists {
		return store.ErrTenantNotFound
	}

	key := assignmentKey{userID: assignment.UserID, tenantID: assignment.TenantID}
	if _, exists := s.db.assignments[key]; exists {
		return store.ErrDuplicateRoleAssignment
	}

	if assignment.CreatedAt.IsZero() {
		assignment.CreatedAt = time.Now()
	}

	clone := *assignment
	s.db.assignments[key] = &clone

	return nil
}

// Remove revokes an assignment.
func (s *RoleAssignmentStore) Remove(ctx context.Context, assignment *models.RoleAssignment) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	key := assignmentKey{userID: assignment.UserID, tenantID: assignment.TenantID}
	if _, exists := s.db.assignments[key]; !exists {
		return store.ErrRoleAssignmentNotFound
	}

	delete(s.db.assignments, key)

	return nil
}
