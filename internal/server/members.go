package server

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	httpmiddleware "github.com/wolfeidau/tenantry/internal/http"
	"github.com/wolfeidau/tenantry/internal/models"
	"github.com/wolfeidau/tenantry/internal/store"
	"github.com/wolfeidau/tenantry/internal/telemetry"
	"github.com/wolfeidau/tenantry/internal/tenancy"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MemberHandlers manages role assignments on the current tenant.
//
// Changes are visible to the affected user after their next credential
// issuance, not on tokens already in flight.
type MemberHandlers struct {
	assignments store.RoleAssignmentStore
}

// NewMemberHandlers creates member handlers backed by assignments.
func NewMemberHandlers(assignments store.RoleAssignmentStore) *MemberHandlers {
	return &MemberHandlers{assignments: assignments}
}

type grantRequest struct {
	Role models.Role `json:"role"`
}

type listMembersResponse struct {
	Members []*models.RoleAssignment `json:"members"`
}

// List returns all role assignments on the current tenant.
func (h *MemberHandlers) List(w http.ResponseWriter, r *http.Request) {
	tenant, err := tenancy.FromContext(r.Context())
	if err != nil {
		httpmiddleware.WriteError(w, r, err)
		return
	}

	members, err := h.assignments.ListForTenant(r.Context(), tenant.ID())
	if err != nil {
		httpmiddleware.WriteError(w, r, err)
		return
	}

	if members == nil {
		members = []*models.RoleAssignment{}
	}

	httpmiddleware.WriteJSON(w, r, http.StatusOK, listMembersResponse{Members: members})
}

// Grant gives a user a role on the current tenant. A user already holding a
// role gets 409 and keeps the existing assignment.
func (h *MemberHandlers) Grant(w http.ResponseWriter, r *http.Request) {
	tenant, err := tenancy.FromContext(r.Context())
	if err != nil {
		httpmiddleware.WriteError(w, r, err)
		return
	}

	userID, err := httpmiddleware.ParseUUIDPathValue(r, "userID")
	if err != nil {
		httpmiddleware.WriteError(w, r, err)
		return
	}
	if userID == uuid.Nil {
		httpmiddleware.WriteError(w, r, fmt.Errorf("%w: userID must not be the nil UUID", httpmiddleware.ErrBadRequest))
		return
	}

	var req grantRequest
	if err := decodeJSON(w, r, &req); err != nil {
		httpmiddleware.WriteError(w, r, err)
		return
	}
	if !req.Role.Valid() {
		httpmiddleware.WriteError(w, r, fmt.Errorf("%w: role is required", httpmiddleware.ErrBadRequest))
		return
	}

	assignment := &models.RoleAssignment{
		UserID:   userID,
		TenantID: tenant.ID(),
		Role:     req.Role,
	}
	if err := h.assignments.Create(r.Context(), assignment); err != nil {
		httpmiddleware.WriteError(w, r, err)
		return
	}

	telemetry.GetMetrics().RoleGrantsTotal.Add(r.Context(), 1,
		metric.WithAttributes(attribute.String("role", req.Role.String())))

	zerolog.Ctx(r.Context()).Info().
		Str("member_id", userID.String()).
		Str("role", req.Role.String()).
		Msg("Role granted")

	httpmiddleware.WriteJSON(w, r, http.StatusCreated, assignment)
}

// Revoke removes a user's role on the current tenant.
func (h *MemberHandlers) Revoke(w http.ResponseWriter, r *http.Request) {
	tenant, err := tenancy.FromContext(r.Context())
	if err != nil {
		httpmiddleware.WriteError(w, r, err)
		return
	}

	userID, err := httpmiddleware.ParseUUIDPathValue(r, "userID")
	if err != nil {
		httpmiddleware.WriteError(w, r, store.ErrRoleAssignmentNotFound)
		return
	}

	err = h.assignments.Remove(r.Context(), &models.RoleAssignment{
		UserID:   userID,
		TenantID: tenant.ID(),
	})
	if err != nil {
		httpmiddleware.WriteError(w, r, err)
		return
	}

	telemetry.GetMetrics().RoleRevocationsTotal.Add(r.Context(), 1)

	zerolog.Ctx(r.Context()).Info().
		Str("member_id", userID.String()).
		Msg("Role revoked")

	w.WriteHeader(http.StatusNoContent)
}
