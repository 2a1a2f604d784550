package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/tenantry/internal/auth"
	"github.com/wolfeidau/tenantry/internal/authz"
	"github.com/wolfeidau/tenantry/internal/models"
	"github.com/wolfeidau/tenantry/internal/store/memory"
	"github.com/wolfeidau/tenantry/internal/tenancy"
)

type staticVerifier struct {
	principal *auth.Principal
}

func (v staticVerifier) VerifyRequest(r *http.Request) (*auth.Principal, error) {
	if r.Header.Get("Authorization") == "" || v.principal == nil {
		return nil, auth.ErrUnauthenticated
	}
	return v.principal, nil
}

// tenantHandler reports the established tenant key.
var tenantHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	tenant, err := tenancy.FromContext(r.Context())
	if err != nil {
		WriteError(w, r, err)
		return
	}
	WriteJSON(w, r, http.StatusOK, map[string]string{"tenant_key": tenant.Key().String()})
})

func newTestMux(verifier RequestVerifier, stores *memory.Stores, required models.Role) *http.ServeMux {
	chain := func(h http.Handler) http.Handler {
		h = TenantContext(stores.Tenants)(h)
		h = RequireRole(required)(h)
		return Authenticate(verifier)(h)
	}

	mux := http.NewServeMux()
	mux.Handle("GET /api/tenant/{tenantKey}/things", chain(tenantHandler))
	mux.Handle("GET /api/unordered/{tenantKey}/things", TenantContext(stores.Tenants)(tenantHandler))
	return mux
}

func doGet(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, path, nil)
	r.Header.Set("Authorization", "Bearer test")
	h.ServeHTTP(rec, r)
	return rec
}

func createTenant(t *testing.T, stores *memory.Stores, name string) *models.Tenant {
	t.Helper()
	tenant := &models.Tenant{PublicKey: uuid.New(), Name: name}
	require.NoError(t, stores.Tenants.Create(context.Background(), tenant))
	return tenant
}

func TestAuthorizationChain(t *testing.T) {
	stores := memory.New()
	acme := createTenant(t, stores, "acme")
	globex := createTenant(t, stores, "globex")

	principal := &auth.Principal{
		UserID:       uuid.New(),
		TenantClaims: []string{authz.FormatClaim(acme.PublicKey, models.RoleViewer)},
	}
	mux := newTestMux(staticVerifier{principal: principal}, stores, models.RoleViewer)

	t.Run("authorized tenant", func(t *testing.T) {
		rec := doGet(t, mux, "/api/tenant/"+acme.PublicKey.String()+"/things")
		require.Equal(t, http.StatusOK, rec.Code)

		var body map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Equal(t, acme.PublicKey.String(), body["tenant_key"])
	})

	t.Run("existing tenant without access and missing tenant are indistinguishable", func(t *testing.T) {
		noAccess := doGet(t, mux, "/api/tenant/"+globex.PublicKey.String()+"/things")
		missing := doGet(t, mux, "/api/tenant/"+uuid.NewString()+"/things")
		malformed := doGet(t, mux, "/api/tenant/not-a-uuid/things")

		require.Equal(t, http.StatusForbidden, noAccess.Code)
		for _, rec := range []*httptest.ResponseRecorder{missing, malformed} {
			require.Equal(t, noAccess.Code, rec.Code)
			require.Equal(t, noAccess.Header(), rec.Header())
			require.Equal(t, noAccess.Body.Bytes(), rec.Body.Bytes())
		}
	})

	t.Run("unauthenticated", func(t *testing.T) {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/tenant/"+acme.PublicKey.String()+"/things", nil))
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestAuthorizationChain_insufficientRole(t *testing.T) {
	stores := memory.New()
	acme := createTenant(t, stores, "acme")

	principal := &auth.Principal{
		UserID:       uuid.New(),
		TenantClaims: []string{authz.FormatClaim(acme.PublicKey, models.RoleViewer)},
	}
	mux := newTestMux(staticVerifier{principal: principal}, stores, models.RoleEditor)

	rec := doGet(t, mux, "/api/tenant/"+acme.PublicKey.String()+"/things")
	require.Equal(t, http.StatusForbidden, rec.Code)

	var p Problem
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	require.Equal(t, "Insufficient role", p.Title)
	require.Equal(t, "Editor", p.RequiredRole)
	require.Equal(t, "Viewer", p.ActualRole)
}

func TestAuthorizationChain_tenantDeletedAfterIssuance(t *testing.T) {
	stores := memory.New()
	acme := createTenant(t, stores, "acme")
	globex := createTenant(t, stores, "globex")

	principal := &auth.Principal{
		UserID: uuid.New(),
		TenantClaims: []string{
			authz.FormatClaim(acme.PublicKey, models.RoleOwner),
		},
	}
	mux := newTestMux(staticVerifier{principal: principal}, stores, models.RoleViewer)

	noAccess := doGet(t, mux, "/api/tenant/"+globex.PublicKey.String()+"/things")

	require.NoError(t, stores.Tenants.Delete(context.Background(), acme.PublicKey))

	deleted := doGet(t, mux, "/api/tenant/"+acme.PublicKey.String()+"/things")
	require.Equal(t, http.StatusForbidden, deleted.Code)
	require.Equal(t, noAccess.Body.Bytes(), deleted.Body.Bytes())
}

func TestTenantContext_withoutDecision(t *testing.T) {
	stores := memory.New()
	acme := createTenant(t, stores, "acme")
	mux := newTestMux(staticVerifier{}, stores, models.RoleViewer)

	rec := doGet(t, mux, "/api/unordered/"+acme.PublicKey.String()+"/things")
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var p Problem
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	require.Equal(t, "Internal server error", p.Title)
}

func TestRequireRole_withoutPrincipal(t *testing.T) {
	called := false
	h := RequireRole(models.RoleViewer)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	mux := http.NewServeMux()
	mux.Handle("GET /t/{tenantKey}", h)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/t/"+uuid.NewString(), nil))
	require.False(t, called)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}
