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

// TenantStore implements store.TenantStore using PostgreSQL.
type TenantStore struct {
	pool *pgxpool.Pool
}

// NewTenantStore creates a new PostgreSQL-backed tenant store.
// It shares the connection pool with other stores.
func NewTenantStore(pool *pgxpool.Pool) *TenantStore {
	return &TenantStore{
		pool: pool,
	}
}

// Create provisions a new tenant and populates its InternalID.
func (s *TenantStore) Create(ctx context.Context, tenant *models.Tenant) error {
	if tenant.CreatedAt.IsZero() {
		tenant.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO tenants (
			public_key, name, description, created_at
		) VALUES (
			$1, $2, $3, $4
		)
		RETURNING tenant_id
	`

	err := s.pool.QueryRow(ctx, query,
		tenant.PublicKey,
		tenant.Name,
		tenant.Description,
		tenant.CreatedAt,
	).Scan(&tenant.InternalID)
	if err != nil {
		mapped := mapPostgresError(err)
		if errors.Is(mapped, store.ErrTenantAlreadyExists) {
			return store.ErrTenantAlreadyExists
		}
		return fmt.Errorf("failed to create tenant: %w", mapped)
	}

	log.Debug().
		Str("tenant_key", tenant.PublicKey.String()).
		Str("name", tenant.Name).
		Msg("Created tenant")

	return nil
}

// GetByKey retrieves a tenant by its public key.
func (s *TenantStore) GetByKey(ctx context.Context, key uuid.UUID) (*models.Tenant, error) {
	query := `
		SELECT tenant_id, public_key, name, description, created_at
		FROM tenants
		WHERE public_key = $1
	`

	var t models.Tenant
	err := s.pool.QueryRow(ctx, query, key).Scan(
		&t.InternalID,
		&t.PublicKey,
		&t.Name,
		&t.Description,
		&t.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrTenantNotFound
		}
		return nil, fmt.Errorf("failed to get tenant: %w", mapPostgresError(err))
	}

	return &t, nil
}

// Delete hard-deletes a tenant by public key.
// Role assignments and accounts are removed via ON DELETE CASCADE.
func (s *TenantStore) Delete(ctx context.Context, key uuid.UUID) error {
	result, err := s.pool.Exec(ctx, `DELETE FROM tenants WHERE public_key = $1`, key)
	if err != nil {
		return fmt.Errorf("failed to delete tenant: %w", mapPostgresError(err))
	}

	if result.RowsAffected() == 0 {
		return store.ErrTenantNotFound
	}

	log.Info().
		Str("tenant_key", key.String()).
		Msg("Deleted tenant (and cascade-deleted all tenant data)")

	return nil
}
