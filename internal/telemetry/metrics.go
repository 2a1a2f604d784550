package telemetry

import (
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const (
	meterName = "github.com/wolfeidau/tenantry"
)

// Metrics holds all the OpenTelemetry metric instruments
type Metrics struct {
	// Authorization metrics
	AuthzDecisionsTotal metric.Int64Counter

	// Tenant context metrics
	TenantContextFailuresTotal metric.Int64Counter

	// Directory metrics
	RoleGrantsTotal      metric.Int64Counter
	RoleRevocationsTotal metric.Int64Counter

	// Credential metrics
	TokensIssuedTotal        metric.Int64Counter
	AuthenticationFailsTotal metric.Int64Counter
}

var (
	once    sync.Once
	metrics *Metrics
)

// GetMetrics returns the singleton Metrics instance, initializing it if necessary
func GetMetrics() *Metrics {
	once.Do(func() {
		metrics = initMetrics()
	})
	return metrics
}

// initMetrics creates and registers all metric instruments
func initMetrics() *Metrics {
	meter := otel.GetMeterProvider().Meter(meterName)

	m := &Metrics{}

	m.AuthzDecisionsTotal, _ = meter.Int64Counter(
		"tenantry.authz.decisions.total",
		metric.WithDescription("Total number of authorization decisions by outcome"),
		metric.WithUnit("{decision}"),
	)

	m.TenantContextFailuresTotal, _ = meter.Int64Counter(
		"tenantry.tenancy.context_failures.total",
		metric.WithDescription("Total number of requests that failed to establish a tenant context"),
		metric.WithUnit("{request}"),
	)

	m.RoleGrantsTotal, _ = meter.Int64Counter(
		"tenantry.directory.grants.total",
		metric.WithDescription("Total number of role assignments created"),
		metric.WithUnit("{assignment}"),
	)

	m.RoleRevocationsTotal, _ = meter.Int64Counter(
		"tenantry.directory.revocations.total",
		metric.WithDescription("Total number of role assignments removed"),
		metric.WithUnit("{assignment}"),
	)

	m.TokensIssuedTotal, _ = meter.Int64Counter(
		"tenantry.auth.tokens_issued.total",
		metric.WithDescription("Total number of credentials issued"),
		metric.WithUnit("{token}"),
	)

	m.AuthenticationFailsTotal, _ = meter.Int64Counter(
		"tenantry.auth.failures.total",
		metric.WithDescription("Total number of rejected credentials"),
		metric.WithUnit("{request}"),
	)

	return m
}
