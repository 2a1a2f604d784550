package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/tenantry/internal/auth"
	"github.com/wolfeidau/tenantry/internal/authz"
	"github.com/wolfeidau/tenantry/internal/models"
	"github.com/wolfeidau/tenantry/internal/store/memory"
)

func TestNewClientIPResolver_invalid(t *testing.T) {
	for _, entry := range []string{"not-an-ip", "10.0.0.0/99", "10.0.0.1:80"} {
		_, err := NewClientIPResolver([]string{entry})
		require.Error(t, err, entry)
	}
}

func TestClientIPResolver_Resolve(t *testing.T) {
	resolver, err := NewClientIPResolver([]string{"10.0.0.0/8", "192.168.1.5", ""})
	require.NoError(t, err)

	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		expected   string
	}{
		{
			name:       "untrusted peer ignores forwarded for",
			remoteAddr: "203.0.113.9:4000",
			headers:    map[string]string{"X-Forwarded-For": "198.51.100.1"},
			expected:   "203.0.113.9",
		},
		{
			name:       "untrusted peer ignores real ip",
			remoteAddr: "203.0.113.9:4000",
			headers:    map[string]string{"X-Real-IP": "198.51.100.1"},
			expected:   "203.0.113.9",
		},
		{
			name:       "trusted peer uses forwarded for",
			remoteAddr: "10.1.2.3:4000",
			headers:    map[string]string{"X-Forwarded-For": "198.51.100.1"},
			expected:   "198.51.100.1",
		},
		{
			name:       "trusted hops are skipped from the right",
			remoteAddr: "10.1.2.3:4000",
			headers:    map[string]string{"X-Forwarded-For": "6.6.6.6, 198.51.100.1, 10.9.9.9"},
			expected:   "198.51.100.1",
		},
		{
			name:       "single trusted address",
			remoteAddr: "192.168.1.5:4000",
			headers:    map[string]string{"X-Real-IP": "198.51.100.7"},
			expected:   "198.51.100.7",
		},
		{
			name:       "garbage header falls back to peer",
			remoteAddr: "10.1.2.3:4000",
			headers:    map[string]string{"X-Forwarded-For": "<script>"},
			expected:   "10.1.2.3",
		},
		{
			name:       "all hops trusted falls back to peer",
			remoteAddr: "10.1.2.3:4000",
			headers:    map[string]string{"X-Forwarded-For": "10.0.0.1"},
			expected:   "10.1.2.3",
		},
		{
			name:       "ipv6 peer",
			remoteAddr: "[2001:db8::1]:4000",
			expected:   "2001:db8::1",
		},
		{
			name:       "peer without port",
			remoteAddr: "203.0.113.9",
			expected:   "203.0.113.9",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			require.Equal(t, tt.expected, resolver.Resolve(r))
		})
	}
}

func TestClientIPResolver_noTrustedProxies(t *testing.T) {
	resolver, err := NewClientIPResolver(nil)
	require.NoError(t, err)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "127.0.0.1:4000"
	r.Header.Set("X-Forwarded-For", "198.51.100.1")
	r.Header.Set("X-Real-IP", "198.51.100.2")

	require.Equal(t, "127.0.0.1", resolver.Resolve(r))
}

func TestClientIPResolver_Middleware(t *testing.T) {
	resolver, err := NewClientIPResolver([]string{"10.0.0.0/8"})
	require.NoError(t, err)

	var captured string
	handler := resolver.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = ClientIPFromContext(r.Context())
	}))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.0.0.2:4000"
	r.Header.Set("X-Forwarded-For", "198.51.100.1")
	handler.ServeHTTP(httptest.NewRecorder(), r)

	require.Equal(t, "198.51.100.1", captured)
	require.Empty(t, ClientIPFromContext(context.Background()))
}

func TestAuthorizationDenied_logsClientIP(t *testing.T) {
	stores := memory.New()
	acme := createTenant(t, stores, "acme")
	globex := createTenant(t, stores, "globex")

	principal := &auth.Principal{
		UserID:       uuid.New(),
		TenantClaims: []string{authz.FormatClaim(acme.PublicKey, models.RoleViewer)},
	}

	resolver, err := NewClientIPResolver(nil)
	require.NoError(t, err)

	var buf bytes.Buffer
	log := zerolog.New(&buf).Level(zerolog.InfoLevel)

	handler := Authenticate(staticVerifier{principal: principal})(RequireRole(models.RoleViewer)(tenantHandler))
	mux := http.NewServeMux()
	mux.Handle("GET /api/tenant/{tenantKey}/things", handler)

	withLogger := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mux.ServeHTTP(w, r.WithContext(log.WithContext(r.Context())))
	})

	r := httptest.NewRequest(http.MethodGet, "/api/tenant/"+globex.PublicKey.String()+"/things", nil)
	r.RemoteAddr = "203.0.113.9:4000"
	r.Header.Set("Authorization", "Bearer test")
	rec := httptest.NewRecorder()
	resolver.Middleware(withLogger).ServeHTTP(rec, r)

	require.Equal(t, http.StatusForbidden, rec.Code)

	var event map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &event))
	require.Equal(t, "authorization denied", event["message"])
	require.Equal(t, "203.0.113.9", event["client_ip"])
	require.Equal(t, principal.UserID.String(), event["user_id"])
}
