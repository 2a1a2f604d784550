package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/tenantry/internal/models"
	"github.com/wolfeidau/tenantry/internal/store"
)

// RoleAssignmentStore implements store.RoleAssignmentStore using PostgreSQL.
// The (user_id, tenant_id) unique constraint is the only concurrency guard.
type RoleAssignmentStore struct {
	pool *pgxpool.Pool
}

// NewRoleAssignmentStore creates a new PostgreSQL-backed role assignment store.
func NewRoleAssignmentStore(pool *pgxpool.Pool) *RoleAssignmentStore {
	return &RoleAssignmentStore{
		pool: pool,
	}
}

// Get retrieves the assignment for a user on a tenant.
func (s *RoleAssignmentStore) Get(ctx context.Context, userID uuid.UUID, tenantID int64) (*models.RoleAssignment, error) {
	query := `
		SELECT user_id, tenant_id, role, created_at
		FROM role_assignments
		WHERE user_id = $1 AND tenant_id = $2
	`

	a, err := scanAssignment(s.pool.QueryRow(ctx, query, userID, tenantID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrRoleAssignmentNotFound
		}
		return nil, fmt.Errorf("failed to get role assignment: %w", err)
	}

	return a, nil
}

// ListForUser returns every tenant the user holds a role on.
func (s *RoleAssignmentStore) ListForUser(ctx context.Context, userID uuid.UUID) ([]*models.TenantAccess, error) {
	query := `
		SELECT t.tenant_id, t.public_key, t.name, t.description, t.created_at, ra.role
		FROM role_assignments ra
		JOIN tenants t ON t.tenant_id = ra.tenant_id
		WHERE ra.user_id = $1
		ORDER BY t.public_key
	`

	rows, err := s.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tenant access: %w", mapPostgresError(err))
	}
	defer rows.Close()

	var result []*models.TenantAccess
	for rows.Next() {
		var (
			ta   models.TenantAccess
			role string
		)
		err := rows.Scan(
			&ta.Tenant.InternalID,
			&ta.Tenant.PublicKey,
			&ta.Tenant.Name,
			&ta.Tenant.Description,
			&ta.Tenant.CreatedAt,
			&role,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan tenant access: %w", err)
		}
		if ta.Role, err = models.ParseRole(role); err != nil {
			return nil, fmt.Errorf("invalid role stored for tenant %s: %w", ta.Tenant.PublicKey, err)
		}
		result = append(result, &ta)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tenant access: %w", err)
	}

	return result, nil
}

// ListForTenant returns all assignments on a tenant.
func (s *RoleAssignmentStore) ListForTenant(ctx context.Context, tenantID int64) ([]*models.RoleAssignment, error) {
	query := `
		SELECT user_id, tenant_id, role, created_at
		FROM role_assignments
		WHERE tenant_id = $1
		ORDER BY created_at
	`

	rows, err := s.pool.Query(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list role assignments: %w", mapPostgresError(err))
	}
	defer rows.Close()

	var result []*models.RoleAssignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan role assignment: %w", err)
		}
		result = append(result, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating role assignments: %w", err)
	}

	return result, nil
}

// Create grants a role. A second grant for the same (user, tenant) is rejected by
// the unique constraint and surfaces as store.ErrDuplicateRoleAssignment.
func (s *RoleAssignmentStore) Create(ctx context.Context, assignment *models.RoleAssignment) error {
	if !assignment.Role.Valid() {
		return fmt.Errorf("invalid role %d", int(assignment.Role))
	}
	if assignment.CreatedAt.IsZero() {
		assignment.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO role_assignments (
			user_id, tenant_id, role, created_at
		) VALUES (
			$1, $2, $3, $4
		)
	`

	_, err := s.pool.Exec(ctx, query,
		assignment.UserID,
		assignment.TenantID,
		assignment.Role.String(),
		assignment.CreatedAt,
	)
	if err != nil {
		mapped := mapPostgresError(err)
		switch {
		case errors.Is(mapped, store.ErrDuplicateRoleAssignment):
			return store.ErrDuplicateRoleAssignment
		case errors.Is(mapped, store.ErrTenantNotFound):
			return store.ErrTenantNotFound
		}
		return fmt.Errorf("failed to create role assignment: %w", mapped)
	}

	log.Debug().
		Str("user_id", assignment.UserID.String()).
		Int64("tenant_id", assignment.TenantID).
		Str("role", assignment.Role.String()).
		Msg("Created role assignment")

	return nil
}

// Remove revokes the assignment identified by (UserID, TenantID).
func (s *RoleAssignmentStore) Remove(ctx context.Context, assignment *models.RoleAssignment) error {
	result, err := s.pool.Exec(ctx,
		`DELETE FROM role_assignments WHERE user_id = $1 AND tenant_id = $2`,
		assignment.UserID,
		assignment.TenantID,
	)
	if err != nil {
		return fmt.Errorf("failed to remove role assignment: %w", mapPostgresError(err))
	}

	if result.RowsAffected() == 0 {
		return store.ErrRoleAssignmentNotFound
	}

	log.Debug().
		Str("user_id", assignment.UserID.String()).
		Int64("tenant_id", assignment.TenantID).
		Msg("Removed role assignment")

	return nil
}

func scanAssignment(row pgx.Row) (*models.RoleAssignment, error) {
	var (
		a    models.RoleAssignment
		role string
	)
	if err := row.Scan(&a.UserID, &a.TenantID, &role, &a.CreatedAt); err != nil {
		return nil, err
	}

	parsed, err := models.ParseRole(role)
	if err != nil {
		return nil, err
	}
	a.Role = parsed

	return &a, nil
}
