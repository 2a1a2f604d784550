package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/tenantry/internal/auth"
	postgresstore "github.com/wolfeidau/tenantry/internal/store/postgres"
)

type PostgresStoreFlags struct {
	// Connection Configuration
	ConnString string `help:"PostgreSQL connection string" env:"POSTGRES_CONNECTION_STRING"`

	// Connection Pool Configuration
	MaxConns        int32 `help:"maximum number of connections in pool" default:"20"`
	MinConns        int32 `help:"minimum number of connections in pool" default:"5"`
	MaxConnLifetime int32 `help:"maximum connection lifetime in seconds" default:"3600"`
	MaxConnIdleTime int32 `help:"maximum connection idle time in seconds" default:"1800"`
	StartupTimeout  int32 `help:"how long to retry the initial connection in seconds" default:"30"`

	// Migration Configuration
	AutoMigrate bool `help:"run database migrations on startup" default:"false" env:"TENANTRY_POSTGRES_AUTO_MIGRATE"`
}

func (s *PostgresStoreFlags) Validate() error {
	if s.ConnString == "" {
		return errors.New("PostgreSQL connection string is required (--postgres-conn-string or POSTGRES_CONNECTION_STRING)")
	}
	return nil
}

func (s *PostgresStoreFlags) poolConfig() *postgresstore.PoolConfig {
	return &postgresstore.PoolConfig{
		ConnString:      s.ConnString,
		MaxConns:        s.MaxConns,
		MinConns:        s.MinConns,
		MaxConnLifetime: s.MaxConnLifetime,
		MaxConnIdleTime: s.MaxConnIdleTime,
		StartupTimeout:  s.StartupTimeout,
	}
}

// open connects to PostgreSQL, runs migrations when enabled and returns the stores.
// The caller must Stop the returned DB.
func (s *PostgresStoreFlags) open(ctx context.Context) (*postgresstore.DB, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	pool, err := postgresstore.NewPool(ctx, s.poolConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if s.AutoMigrate {
		if err := postgresstore.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		log.Info().Msg("Database migrations completed")
	}

	return postgresstore.NewDB(pool), nil
}

// TokenFlags configures credential signing and verification.
type TokenFlags struct {
	SigningKey     string        `help:"PEM encoded P-256 private key used to sign credentials" env:"TENANTRY_SIGNING_KEY"`
	SigningKeyFile string        `help:"path to a PEM encoded P-256 private key" env:"TENANTRY_SIGNING_KEY_FILE" type:"path"`
	Issuer         string        `help:"credential issuer" default:"https://localhost" env:"TENANTRY_ISSUER"`
	Audience       string        `help:"credential audience" default:"tenantry-api" env:"TENANTRY_AUDIENCE"`
	TTL            time.Duration `help:"credential lifetime" default:"1h" env:"TENANTRY_TOKEN_TTL"`
}

func (t *TokenFlags) Validate() error {
	if t.SigningKey != "" && t.SigningKeyFile != "" {
		return errors.New("only one of --token-signing-key and --token-signing-key-file may be set")
	}
	if t.TTL <= 0 {
		return errors.New("token TTL must be positive")
	}
	return nil
}

func (t *TokenFlags) configured() bool {
	return t.SigningKey != "" || t.SigningKeyFile != ""
}

// keyManager loads the configured signing key.
func (t *TokenFlags) keyManager() (*auth.KeyManager, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}

	keyPEM := t.SigningKey
	if t.SigningKeyFile != "" {
		data, err := os.ReadFile(t.SigningKeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read signing key file: %w", err)
		}
		keyPEM = string(data)
	}

	return auth.NewKeyManagerFromPEM(keyPEM)
}
