package server

import (
	"net/http"
	"strings"

	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/wolfeidau/tenantry/internal/auth"
	httpmiddleware "github.com/wolfeidau/tenantry/internal/http"
	"github.com/wolfeidau/tenantry/internal/logger"
	"github.com/wolfeidau/tenantry/internal/models"
	"github.com/wolfeidau/tenantry/internal/store"
)

// Stores groups the directory and tenant-scoped stores the server depends on.
type Stores struct {
	Tenants     store.TenantStore
	Assignments store.RoleAssignmentStore
	Accounts    store.AccountStore
}

// Server wraps the HTTP handlers of the tenant API.
type Server struct {
	stores      Stores
	keys        *auth.KeyManager
	issuer      *auth.TokenIssuer
	verifier    httpmiddleware.RequestVerifier
	corsOrigins []string
	clientIP    *httpmiddleware.ClientIPResolver

	accounts *AccountHandlers
	members  *MemberHandlers
}

// Option configures optional server behaviour.
type Option func(*Server)

// WithCORSOrigins enables CORS for the given origins.
func WithCORSOrigins(origins []string) Option {
	return func(s *Server) {
		s.corsOrigins = origins
	}
}

// WithClientIPResolver sets how client addresses are resolved for audit logs.
// Without it forwarding headers are ignored.
func WithClientIPResolver(resolver *httpmiddleware.ClientIPResolver) Option {
	return func(s *Server) {
		s.clientIP = resolver
	}
}

// NewServer creates a new server.
func NewServer(stores Stores, keys *auth.KeyManager, issuer *auth.TokenIssuer, verifier httpmiddleware.RequestVerifier, opts ...Option) *Server {
	s := &Server{
		stores:   stores,
		keys:     keys,
		issuer:   issuer,
		verifier: verifier,
		accounts: NewAccountHandlers(stores.Accounts),
		members:  NewMemberHandlers(stores.Assignments),
		clientIP: &httpmiddleware.ClientIPResolver{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the HTTP handler for the server
func (s *Server) Handler(log zerolog.Logger) http.Handler {
	mux := http.NewServeMux()

	// Health check endpoint for load balancer
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	mux.HandleFunc("GET /.well-known/jwks.json", s.jwksHandler)

	authenticated := httpmiddleware.Authenticate(s.verifier)
	mux.Handle("POST /auth/refresh", authenticated(http.HandlerFunc(s.refreshHandler)))

	// tenant scoped routes
	s.handleTenant(mux, "GET /accounts", models.RoleViewer, s.accounts.List)
	s.handleTenant(mux, "GET /accounts/{accountID}", models.RoleViewer, s.accounts.Get)
	s.handleTenant(mux, "POST /accounts", models.RoleEditor, s.accounts.Create)
	s.handleTenant(mux, "DELETE /accounts/{accountID}", models.RoleEditor, s.accounts.Delete)

	s.handleTenant(mux, "GET /members", models.RoleOwner, s.members.List)
	s.handleTenant(mux, "PUT /members/{userID}", models.RoleOwner, s.members.Grant)
	s.handleTenant(mux, "DELETE /members/{userID}", models.RoleOwner, s.members.Revoke)

	var handler http.Handler = mux
	if len(s.corsOrigins) > 0 {
		handler = withCORS(s.corsOrigins, handler)
	}
	handler = logger.NewHTTPRequests(log).Middleware(handler)

	return s.clientIP.Middleware(handler)
}

// handleTenant registers a tenant scoped route. Every such route runs
// Authenticate, RequireRole and TenantContext in that order before the handler.
func (s *Server) handleTenant(mux *http.ServeMux, route string, required models.Role, h http.HandlerFunc) {
	method, path, _ := strings.Cut(route, " ")

	var handler http.Handler = h
	handler = httpmiddleware.TenantContext(s.stores.Tenants)(handler)
	handler = httpmiddleware.RequireRole(required)(handler)
	handler = httpmiddleware.Authenticate(s.verifier)(handler)

	mux.Handle(method+" /api/tenant/{"+httpmiddleware.TenantKeyPathValue+"}"+path, handler)
}

func (s *Server) jwksHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "public, max-age=300")
	httpmiddleware.WriteJSON(w, r, http.StatusOK, map[string]any{
		"keys": []map[string]any{s.keys.JWK()},
	})
}

// withCORS adds CORS support for bearer authenticated API calls.
func withCORS(allowedOrigins []string, h http.Handler) http.Handler {
	middleware := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:         300,
	})
	return middleware.Handler(h)
}
