package commands

import (
	"context"
	"fmt"

	"github.com/wolfeidau/tenantry/internal/provision"
)

type ProvisionCmd struct {
	File          string             `help:"YAML provisioning file" type:"existingfile" required:""`
	PostgresStore PostgresStoreFlags `embed:"" prefix:"postgres-"`
}

func (p *ProvisionCmd) Run(ctx context.Context, globals *Globals) error {
	log := setupLogger(globals)

	file, err := provision.Load(p.File)
	if err != nil {
		return err
	}

	db, err := p.PostgresStore.open(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = db.Stop() }()

	result, err := provision.New(db.Tenants, db.Assignments).Apply(ctx, file)
	if err != nil {
		return fmt.Errorf("failed to provision tenants: %w", err)
	}

	log.Info().
		Int("tenants_created", result.TenantsCreated).
		Int("tenants_existing", result.TenantsExisting).
		Int("assignments_created", result.AssignmentsCreated).
		Int("assignments_skipped", result.AssignmentsSkipped).
		Msg("Provisioning applied")

	return nil
}
