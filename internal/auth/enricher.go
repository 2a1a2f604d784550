package auth

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/wolfeidau/tenantry/internal/authz"
	"github.com/wolfeidau/tenantry/internal/store"
)

// ClaimsEnricher converts a user's role assignments into tenant claims.
//
// It runs only when a credential is issued (login or refresh). Permission
// changes therefore take effect on the next issuance, not mid-session.
type ClaimsEnricher struct {
	assignments store.RoleAssignmentStore
}

// NewClaimsEnricher creates a claims enricher reading from the directory.
func NewClaimsEnricher(assignments store.RoleAssignmentStore) *ClaimsEnricher {
	return &ClaimsEnricher{assignments: assignments}
}

// Claims returns one "{tenantKey}:{role}" claim per tenant the user holds a role on.
func (e *ClaimsEnricher) Claims(ctx context.Context, userID uuid.UUID) ([]string, error) {
	access, err := e.assignments.ListForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list role assignments: %w", err)
	}

	claims := make([]string, 0, len(access))
	for _, ta := range access {
		claims = append(claims, authz.FormatClaim(ta.Tenant.PublicKey, ta.Role))
	}
	sort.Strings(claims)

	return claims, nil
}
