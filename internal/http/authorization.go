package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/wolfeidau/tenantry/internal/auth"
	"github.com/wolfeidau/tenantry/internal/authz"
	"github.com/wolfeidau/tenantry/internal/models"
	"github.com/wolfeidau/tenantry/internal/store"
	"github.com/wolfeidau/tenantry/internal/telemetry"
	"github.com/wolfeidau/tenantry/internal/tenancy"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// TenantKeyPathValue is the route wildcard holding the tenant's public key.
const TenantKeyPathValue = "tenantKey"

// RequestVerifier authenticates an incoming request.
type RequestVerifier interface {
	VerifyRequest(r *http.Request) (*auth.Principal, error)
}

// Authenticate verifies the bearer credential and stores the principal in the
// request context. Failures are answered with 401.
func Authenticate(verifier RequestVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, err := verifier.VerifyRequest(r)
			if err != nil {
				telemetry.GetMetrics().AuthenticationFailsTotal.Add(r.Context(), 1)
				zerolog.Ctx(r.Context()).Info().
					Str("client_ip", ClientIPFromContext(r.Context())).
					Err(err).
					Msg("authentication failed")
				WriteError(w, r, err)
				return
			}

			ctx := zerolog.Ctx(r.Context()).With().
				Str("user_id", principal.UserID.String()).
				Str("client_ip", ClientIPFromContext(r.Context())).
				Logger().WithContext(r.Context())
			ctx = auth.WithPrincipal(ctx, principal)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole authorizes the caller for the tenant named in the route and
// records the decision. It must run after Authenticate.
func RequireRole(required models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			principal := auth.PrincipalFromContext(ctx)
			if principal == nil {
				WriteError(w, r, auth.ErrUnauthenticated)
				return
			}

			tenantKey := r.PathValue(TenantKeyPathValue)

			decision, err := authz.Decide(principal.TenantClaims, tenantKey, required)
			recordDecision(ctx, required, err)
			if err != nil {
				zerolog.Ctx(ctx).Info().
					Str("required_role", required.String()).
					Err(err).
					Msg("authorization denied")
				WriteError(w, r, err)
				return
			}

			zerolog.Ctx(ctx).Debug().
				Str("tenant_key", decision.TenantKey().String()).
				Str("role", decision.Role().String()).
				Str("required_role", required.String()).
				Msg("authorization allowed")

			next.ServeHTTP(w, r.WithContext(authz.WithDecision(ctx, decision)))
		})
	}
}

// TenantContext resolves the authorized tenant and establishes it for the
// rest of the request. It must run after RequireRole.
//
// A tenant that vanished after the credential was issued is answered exactly
// like a tenant the caller never had access to.
func TenantContext(tenants store.TenantStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			decision, ok := authz.DecisionFromContext(ctx)
			if !ok {
				telemetry.GetMetrics().TenantContextFailuresTotal.Add(ctx, 1,
					metric.WithAttributes(attribute.String("reason", "no_decision")))
				WriteError(w, r, tenancy.ErrContextNotSet)
				return
			}

			tenant, err := tenants.GetByKey(ctx, decision.TenantKey())
			if err != nil {
				telemetry.GetMetrics().TenantContextFailuresTotal.Add(ctx, 1,
					metric.WithAttributes(attribute.String("reason", "lookup")))
				WriteError(w, r, tenantLookupError(err))
				return
			}

			ctx, err = tenancy.Establish(ctx, tenant)
			if err != nil {
				telemetry.GetMetrics().TenantContextFailuresTotal.Add(ctx, 1,
					metric.WithAttributes(attribute.String("reason", "establish")))
				WriteError(w, r, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func tenantLookupError(err error) error {
	if errors.Is(err, store.ErrTenantNotFound) {
		return fmt.Errorf("%w: %w", authz.ErrAccessDenied, err)
	}
	return err
}

func recordDecision(ctx context.Context, required models.Role, err error) {
	var insufficient *authz.InsufficientRoleError

	outcome := "allowed"
	switch {
	case errors.As(err, &insufficient):
		outcome = "insufficient_role"
	case err != nil:
		outcome = "access_denied"
	}

	telemetry.GetMetrics().AuthzDecisionsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("outcome", outcome),
		attribute.String("required_role", required.String()),
	))
}

// ParseUUIDPathValue reads a UUID route wildcard.
func ParseUUIDPathValue(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid %s", ErrBadRequest, name)
	}
	return id, nil
}
