package main

import (
	"context"

	"github.com/alecthomas/kong"
	"github.com/wolfeidau/tenantry/cmd/tenantry/internal/commands"
)

var (
	version = "dev"
	cli     struct {
		Debug     bool `help:"Enable debug mode."`
		Version   kong.VersionFlag
		Serve     commands.ServeCmd     `cmd:"" help:"Start the tenant API server"`
		Migrate   commands.MigrateCmd   `cmd:"" help:"Apply database migrations"`
		Provision commands.ProvisionCmd `cmd:"" help:"Create tenants and owner grants from a YAML file"`
		Grant     commands.GrantCmd     `cmd:"" help:"Grant a user a role on a tenant"`
		Revoke    commands.RevokeCmd    `cmd:"" help:"Revoke a user's role on a tenant"`
		Token     commands.TokenCmd     `cmd:"" help:"Issue a credential for a user"`
		Keygen    commands.KeygenCmd    `cmd:"" help:"Generate a PEM encoded signing key"`
	}
)

func main() {
	ctx := context.Background()
	cmd := kong.Parse(&cli,
		kong.Name("tenantry"),
		kong.Vars{
			"version": version,
		},
		kong.BindTo(ctx, (*context.Context)(nil)))
	err := cmd.Run(&commands.Globals{Debug: cli.Debug, Version: version})
	cmd.FatalIfErrorf(err)
}
