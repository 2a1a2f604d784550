package server

import (
	"net/http"

	"github.com/wolfeidau/tenantry/internal/auth"
	httpmiddleware "github.com/wolfeidau/tenantry/internal/http"
	"github.com/wolfeidau/tenantry/internal/telemetry"
)

// refreshHandler re-issues a credential with freshly enriched tenant claims.
// This is the point at which grants and revocations reach the caller.
func (s *Server) refreshHandler(w http.ResponseWriter, r *http.Request) {
	principal := auth.PrincipalFromContext(r.Context())
	if principal == nil {
		httpmiddleware.WriteError(w, r, auth.ErrUnauthenticated)
		return
	}

	issued, err := s.issuer.Issue(r.Context(), principal.UserID)
	if err != nil {
		httpmiddleware.WriteError(w, r, err)
		return
	}

	telemetry.GetMetrics().TokensIssuedTotal.Add(r.Context(), 1)

	w.Header().Set("Cache-Control", "no-store")
	httpmiddleware.WriteJSON(w, r, http.StatusOK, issued)
}
