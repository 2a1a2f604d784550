package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/wolfeidau/tenantry/internal/models"
	"github.com/wolfeidau/tenantry/internal/store"
)

type GrantCmd struct {
	Tenant        uuid.UUID          `help:"tenant public key" required:""`
	User          uuid.UUID          `help:"user id" required:""`
	Role          models.Role        `help:"role to grant (Viewer, Editor or Owner)" required:""`
	PostgresStore PostgresStoreFlags `embed:"" prefix:"postgres-"`
}

func (g *GrantCmd) Validate() error {
	if !g.Role.Valid() {
		return errors.New("role must be one of Viewer, Editor or Owner")
	}
	if g.User == uuid.Nil {
		return errors.New("user must not be the nil UUID")
	}
	return nil
}

func (g *GrantCmd) Run(ctx context.Context, globals *Globals) error {
	log := setupLogger(globals)

	db, err := g.PostgresStore.open(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = db.Stop() }()

	tenant, err := db.Tenants.GetByKey(ctx, g.Tenant)
	if err != nil {
		return fmt.Errorf("failed to load tenant %s: %w", g.Tenant, err)
	}

	err = db.Assignments.Create(ctx, &models.RoleAssignment{
		UserID:   g.User,
		TenantID: tenant.InternalID,
		Role:     g.Role,
	})
	if errors.Is(err, store.ErrDuplicateRoleAssignment) {
		return fmt.Errorf("user %s already holds a role on tenant %s; revoke it first", g.User, g.Tenant)
	}
	if err != nil {
		return fmt.Errorf("failed to grant role: %w", err)
	}

	log.Info().
		Str("tenant_key", g.Tenant.String()).
		Str("user_id", g.User.String()).
		Str("role", g.Role.String()).
		Msg("Role granted")

	return nil
}

type RevokeCmd struct {
	Tenant        uuid.UUID          `help:"tenant public key" required:""`
	User          uuid.UUID          `help:"user id" required:""`
	PostgresStore PostgresStoreFlags `embed:"" prefix:"postgres-"`
}

func (r *RevokeCmd) Run(ctx context.Context, globals *Globals) error {
	log := setupLogger(globals)

	db, err := r.PostgresStore.open(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = db.Stop() }()

	tenant, err := db.Tenants.GetByKey(ctx, r.Tenant)
	if err != nil {
		return fmt.Errorf("failed to load tenant %s: %w", r.Tenant, err)
	}

	err = db.Assignments.Remove(ctx, &models.RoleAssignment{
		UserID:   r.User,
		TenantID: tenant.InternalID,
	})
	if err != nil {
		return fmt.Errorf("failed to revoke role: %w", err)
	}

	log.Info().
		Str("tenant_key", r.Tenant.String()).
		Str("user_id", r.User.String()).
		Msg("Role revoked")

	return nil
}
