package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/wolfeidau/tenantry/internal/models"
)

// Sentinel errors for role assignment store operations
var (
	ErrRoleAssignmentNotFound  = errors.New("role assignment not found")
	ErrDuplicateRoleAssignment = errors.New("role assignment already exists")
)

// RoleAssignmentStore defines the interface for user -> tenant role assignments.
// Uniqueness of (user, tenant) is enforced by the storage layer, so concurrent
// grants are detected on conflict rather than serialized by locks.
type RoleAssignmentStore interface {
	// Get retrieves the assignment for a user on a tenant.
	// Returns ErrRoleAssignmentNotFound if none exists.
	Get(ctx context.Context, userID uuid.UUID, tenantID int64) (*models.RoleAssignment, error)

	// ListForUser returns every tenant the user holds a role on, joined with the tenant row.
	ListForUser(ctx context.Context, userID uuid.UUID) ([]*models.TenantAccess, error)

	// ListForTenant returns all assignments on a tenant.
	ListForTenant(ctx context.Context, tenantID int64) ([]*models.RoleAssignment, error)

	// Create grants a role. It fails atomically with ErrDuplicateRoleAssignment when the
	// user already holds a role on the tenant; the existing assignment is left unchanged.
	// Returns ErrTenantNotFound if the tenant doesn't exist.
	Create(ctx context.Context, assignment *models.RoleAssignment) error

	// Remove revokes the assignment identified by (UserID, TenantID).
	// Returns ErrRoleAssignmentNotFound if none exists.
	Remove(ctx context.Context, assignment *models.RoleAssignment) error
}
