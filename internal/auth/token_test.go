package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/tenantry/internal/models"
	"github.com/wolfeidau/tenantry/internal/store/memory"
)

const (
	testIssuer   = "https://tenantry.test"
	testAudience = "tenantry-api"
)

type fixture struct {
	stores   *memory.Stores
	keys     *KeyManager
	issuer   *TokenIssuer
	verifier *JWTVerifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	stores := memory.New()
	keys, err := NewKeyManager()
	require.NoError(t, err)

	return &fixture{
		stores:   stores,
		keys:     keys,
		issuer:   NewTokenIssuer(keys, NewClaimsEnricher(stores.Assignments), testIssuer, testAudience, time.Hour),
		verifier: NewJWTVerifier(keys, testIssuer, testAudience),
	}
}

func (f *fixture) grant(t *testing.T, userID uuid.UUID, name string, role models.Role) *models.Tenant {
	t.Helper()
	ctx := context.Background()

	tenant := &models.Tenant{PublicKey: uuid.New(), Name: name}
	require.NoError(t, f.stores.Tenants.Create(ctx, tenant))
	require.NoError(t, f.stores.Assignments.Create(ctx, &models.RoleAssignment{
		UserID:   userID,
		TenantID: tenant.InternalID,
		Role:     role,
	}))
	return tenant
}

func TestClaimsEnricher_Claims(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()

	t.Run("no assignments", func(t *testing.T) {
		claims, err := NewClaimsEnricher(f.stores.Assignments).Claims(ctx, userID)
		require.NoError(t, err)
		require.Empty(t, claims)
	})

	acme := f.grant(t, userID, "acme", models.RoleOwner)
	globex := f.grant(t, userID, "globex", models.RoleViewer)
	f.grant(t, uuid.New(), "initech", models.RoleOwner)

	t.Run("one claim per tenant", func(t *testing.T) {
		claims, err := NewClaimsEnricher(f.stores.Assignments).Claims(ctx, userID)
		require.NoError(t, err)
		require.ElementsMatch(t, []string{
			acme.PublicKey.String() + ":Owner",
			globex.PublicKey.String() + ":Viewer",
		}, claims)
		require.IsNonDecreasing(t, claims)
	})
}

func TestTokenIssuer_Issue(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()
	acme := f.grant(t, userID, "acme", models.RoleEditor)

	issued, err := f.issuer.Issue(ctx, userID)
	require.NoError(t, err)
	require.Equal(t, "Bearer", issued.TokenType)
	require.WithinDuration(t, time.Now().Add(time.Hour), issued.ExpiresAt, time.Minute)

	principal, err := f.verifier.Verify(issued.AccessToken)
	require.NoError(t, err)
	require.Equal(t, userID, principal.UserID)
	require.Equal(t, []string{acme.PublicKey.String() + ":Editor"}, principal.TenantClaims)
}

func TestTokenIssuer_Issue_snapshotsClaims(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()

	before, err := f.issuer.Issue(ctx, userID)
	require.NoError(t, err)

	acme := f.grant(t, userID, "acme", models.RoleViewer)

	// existing credential is unchanged until the next issuance
	principal, err := f.verifier.Verify(before.AccessToken)
	require.NoError(t, err)
	require.Empty(t, principal.TenantClaims)

	after, err := f.issuer.Issue(ctx, userID)
	require.NoError(t, err)

	principal, err = f.verifier.Verify(after.AccessToken)
	require.NoError(t, err)
	require.Equal(t, []string{acme.PublicKey.String() + ":Viewer"}, principal.TenantClaims)
}
