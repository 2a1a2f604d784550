package authz

import (
	"errors"
	"fmt"

	"github.com/wolfeidau/tenantry/internal/models"
)

// ErrAccessDenied covers both "no role on this tenant" and "no such tenant".
// Callers cannot tell the two apart.
var ErrAccessDenied = errors.New("access denied")

// InsufficientRoleError is returned when the caller has proven access to the
// tenant but holds a role below the one the endpoint requires.
type InsufficientRoleError struct {
	Required models.Role
	Actual   models.Role
}

func (e *InsufficientRoleError) Error() string {
	return fmt.Sprintf("insufficient role: requires %s, has %s", e.Required, e.Actual)
}
