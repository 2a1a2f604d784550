package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/tenantry/internal/auth"
	httpmiddleware "github.com/wolfeidau/tenantry/internal/http"
	"github.com/wolfeidau/tenantry/internal/provision"
	"github.com/wolfeidau/tenantry/internal/server"
	memorystore "github.com/wolfeidau/tenantry/internal/store/memory"
	"github.com/wolfeidau/tenantry/internal/telemetry"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type ServeCmd struct {
	// Server configuration
	Listen string `help:"HTTP server listen address" default:"0.0.0.0:8443" env:"TENANTRY_LISTEN"`
	Cert   string `help:"path to TLS cert file" default:"" env:"TENANTRY_TLS_CERT"`
	Key    string `help:"path to TLS key file" default:"" env:"TENANTRY_TLS_KEY"`

	// CORS configuration
	CORSOrigins []string `help:"allowed CORS origins for API requests" env:"TENANTRY_CORS_ORIGINS"`

	// Proxies whose X-Forwarded-For and X-Real-IP headers are believed
	TrustedProxies []string `help:"trusted proxy addresses or CIDR prefixes" env:"TENANTRY_TRUSTED_PROXIES"`

	// Development and operational modes
	Tracing          bool    `help:"enable tracing" default:"false" env:"TENANTRY_TRACING"`
	TraceSampleRatio float64 `help:"fraction of root traces sampled" default:"1" env:"TENANTRY_TRACE_SAMPLE_RATIO"`
	ProvisionFile    string  `help:"YAML provisioning file applied at startup" type:"existingfile" env:"TENANTRY_PROVISION_FILE"`

	// Store configuration
	StoreType     string             `help:"store type (memory or postgres)" default:"memory" env:"TENANTRY_STORE_TYPE" enum:"memory,postgres"`
	PostgresStore PostgresStoreFlags `embed:"" prefix:"postgres-"`
	Token         TokenFlags         `embed:"" prefix:"token-"`
}

func (c *ServeCmd) Validate() error {
	if (c.Cert == "") != (c.Key == "") {
		return errors.New("TLS certificate and key must be provided together (--cert and --key)")
	}
	if c.TraceSampleRatio < 0 || c.TraceSampleRatio > 1 {
		return errors.New("trace sample ratio must be between 0 and 1")
	}
	if _, err := httpmiddleware.NewClientIPResolver(c.TrustedProxies); err != nil {
		return err
	}
	return nil
}

func (c *ServeCmd) Run(ctx context.Context, globals *Globals) error {
	log := setupLogger(globals)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().Str("version", globals.Version).Bool("debug", globals.Debug).Msg("Starting server")

	// Setup telemetry if enabled
	if c.Tracing {
		log.Info().Msg("Tracing is enabled")
		shutdown, err := telemetry.InitTelemetry(ctx, telemetry.Config{
			ServiceName: "tenantry-server",
			Version:     globals.Version,
			SampleRatio: c.TraceSampleRatio,
		})
		if err != nil {
			log.Warn().Err(err).Msg("Failed to initialize telemetry, continuing without metrics")
			shutdown = func(ctx context.Context) error { return nil }
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				log.Error().Err(err).Msg("Failed to shutdown telemetry")
			}
		}()
	}

	// Create stores based on store type
	var stores server.Stores

	switch c.StoreType {
	case "postgres":
		db, err := c.PostgresStore.open(ctx)
		if err != nil {
			return err
		}
		if err := db.Start(); err != nil {
			return err
		}
		defer func() {
			if err := db.Stop(); err != nil {
				log.Error().Err(err).Msg("Failed to stop PostgreSQL stores")
			}
		}()

		stores = server.Stores{Tenants: db.Tenants, Assignments: db.Assignments, Accounts: db.Accounts}
		log.Info().Msg("Using PostgreSQL stores with shared connection pool")

	default:
		mem := memorystore.New()
		stores = server.Stores{Tenants: mem.Tenants, Assignments: mem.Assignments, Accounts: mem.Accounts}
		log.Info().Msg("Using in-memory stores")
	}

	if c.ProvisionFile != "" {
		file, err := provision.Load(c.ProvisionFile)
		if err != nil {
			return err
		}
		result, err := provision.New(stores.Tenants, stores.Assignments).Apply(ctx, file)
		if err != nil {
			return fmt.Errorf("failed to provision tenants: %w", err)
		}
		log.Info().
			Int("tenants_created", result.TenantsCreated).
			Int("assignments_created", result.AssignmentsCreated).
			Msg("Provisioning applied")
	}

	keys, err := c.keyManager()
	if err != nil {
		return err
	}

	issuer := auth.NewTokenIssuer(keys, auth.NewClaimsEnricher(stores.Assignments), c.Token.Issuer, c.Token.Audience, c.Token.TTL)
	verifier := auth.NewJWTVerifier(keys, c.Token.Issuer, c.Token.Audience)

	log.Info().
		Str("issuer", c.Token.Issuer).
		Str("kid", keys.Kid()).
		Msg("Credential signing initialized")

	clientIP, err := httpmiddleware.NewClientIPResolver(c.TrustedProxies)
	if err != nil {
		return err
	}

	srv := server.NewServer(stores, keys, issuer, verifier,
		server.WithCORSOrigins(c.CORSOrigins),
		server.WithClientIPResolver(clientIP),
	)

	handler := srv.Handler(log)
	if c.Tracing {
		handler = otelhttp.NewHandler(handler, "tenantry")
	}

	httpServer := configureHTTPServer(c.Listen, handler)

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", c.Listen).Bool("tls", c.Cert != "").Msg("Starting HTTP server")
		if c.Cert != "" {
			errCh <- httpServer.ListenAndServeTLS(c.Cert, c.Key)
			return
		}
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		log.Info().Msg("Shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	}
}

// keyManager loads the configured signing key. The in-memory store may run
// with an ephemeral key since nothing it issues outlives the process.
func (c *ServeCmd) keyManager() (*auth.KeyManager, error) {
	if c.Token.configured() {
		return c.Token.keyManager()
	}
	if c.StoreType == "postgres" {
		return nil, errors.New("a signing key is required with the postgres store (--token-signing-key or --token-signing-key-file)")
	}
	if err := c.Token.Validate(); err != nil {
		return nil, err
	}

	log.Warn().Msg("No signing key configured, using an ephemeral key; credentials will not survive a restart")
	return auth.NewKeyManager()
}
