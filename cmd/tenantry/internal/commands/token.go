package commands

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/wolfeidau/tenantry/internal/auth"
)

type TokenCmd struct {
	User          uuid.UUID          `help:"user id to issue the credential for" required:""`
	PostgresStore PostgresStoreFlags `embed:"" prefix:"postgres-"`
	Token         TokenFlags         `embed:"" prefix:"token-"`
}

func (t *TokenCmd) Run(ctx context.Context, globals *Globals) error {
	setupLogger(globals)

	keys, err := t.Token.keyManager()
	if err != nil {
		return err
	}

	db, err := t.PostgresStore.open(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = db.Stop() }()

	issuer := auth.NewTokenIssuer(keys, auth.NewClaimsEnricher(db.Assignments), t.Token.Issuer, t.Token.Audience, t.Token.TTL)

	issued, err := issuer.Issue(ctx, t.User)
	if err != nil {
		return err
	}

	fmt.Println(issued.AccessToken)
	return nil
}

type KeygenCmd struct{}

func (k *KeygenCmd) Run() error {
	keys, err := auth.NewKeyManager()
	if err != nil {
		return err
	}

	keyPEM, err := keys.PrivateKeyPEM()
	if err != nil {
		return err
	}

	fmt.Print(keyPEM)
	return nil
}
