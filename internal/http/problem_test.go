package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/tenantry/internal/auth"
	"github.com/wolfeidau/tenantry/internal/authz"
	"github.com/wolfeidau/tenantry/internal/models"
	"github.com/wolfeidau/tenantry/internal/store"
	"github.com/wolfeidau/tenantry/internal/tenancy"
)

func TestProblemFor(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		title  string
	}{
		{"access denied", authz.ErrAccessDenied, http.StatusForbidden, "Access denied"},
		{"tenant not found", store.ErrTenantNotFound, http.StatusForbidden, "Access denied"},
		{"wrapped tenant not found", fmt.Errorf("lookup: %w", store.ErrTenantNotFound), http.StatusForbidden, "Access denied"},
		{"insufficient role", &authz.InsufficientRoleError{Required: models.RoleEditor, Actual: models.RoleViewer}, http.StatusForbidden, "Insufficient role"},
		{"assignment not found", store.ErrRoleAssignmentNotFound, http.StatusNotFound, "Role assignment not found"},
		{"duplicate assignment", store.ErrDuplicateRoleAssignment, http.StatusConflict, "Duplicate role assignment"},
		{"context not set", tenancy.ErrContextNotSet, http.StatusInternalServerError, "Internal server error"},
		{"account not found", store.ErrAccountNotFound, http.StatusNotFound, "Not found"},
		{"unauthenticated", auth.ErrUnauthenticated, http.StatusUnauthorized, "Unauthenticated"},
		{"bad request", fmt.Errorf("%w: invalid body", ErrBadRequest), http.StatusBadRequest, "Bad request"},
		{"unknown", errors.New("connection refused"), http.StatusInternalServerError, "Internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := ProblemFor(tt.err)
			require.Equal(t, tt.status, p.Status)
			require.Equal(t, tt.title, p.Title)
		})
	}
}

func TestProblemFor_insufficientRoleFields(t *testing.T) {
	p := ProblemFor(&authz.InsufficientRoleError{Required: models.RoleOwner, Actual: models.RoleEditor})
	require.Equal(t, "Owner", p.RequiredRole)
	require.Equal(t, "Editor", p.ActualRole)

	denied := ProblemFor(authz.ErrAccessDenied)
	require.Empty(t, denied.RequiredRole)
	require.Empty(t, denied.ActualRole)
}

func TestWriteError_internalDetailNotLeaked(t *testing.T) {
	rec := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)

	WriteError(rec, r, errors.New("pq: password authentication failed for user tenantry"))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
	require.NotContains(t, rec.Body.String(), "password")

	var p Problem
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	require.Equal(t, "Internal server error", p.Title)
	require.Empty(t, p.Detail)
}
