package authz

import (
	"strings"

	"github.com/google/uuid"
	"github.com/wolfeidau/tenantry/internal/models"
)

// Claim is a parsed tenant access claim of the form "{tenantKey}:{role}".
type Claim struct {
	TenantKey uuid.UUID
	Role      models.Role
}

// String formats the claim as it is embedded in credentials.
func (c Claim) String() string {
	return FormatClaim(c.TenantKey, c.Role)
}

// FormatClaim formats a tenant key and role as a claim value.
func FormatClaim(tenantKey uuid.UUID, role models.Role) string {
	return tenantKey.String() + ":" + role.String()
}

// ParseClaim parses a claim value. Malformed values return false and must be
// treated as absent by callers.
func ParseClaim(value string) (Claim, bool) {
	key, roleName, ok := strings.Cut(value, ":")
	if !ok || key == "" || roleName == "" {
		return Claim{}, false
	}

	tenantKey, err := uuid.Parse(key)
	if err != nil || tenantKey == uuid.Nil {
		return Claim{}, false
	}

	role, err := models.ParseRole(roleName)
	if err != nil {
		return Claim{}, false
	}

	return Claim{TenantKey: tenantKey, Role: role}, true
}

// ParseClaims parses all well-formed claims, silently dropping malformed ones.
func ParseClaims(values []string) []Claim {
	claims := make([]Claim, 0, len(values))
	for _, v := range values {
		if c, ok := ParseClaim(v); ok {
			claims = append(claims, c)
		}
	}
	return claims
}
