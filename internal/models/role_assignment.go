package models

import (
	"time"

	"github.com/google/uuid"
)

// RoleAssignment grants a user a role on a single tenant.
// At most one assignment exists per (UserID, TenantID).
type RoleAssignment struct {
	UserID    uuid.UUID `json:"user_id"`
	TenantID  int64     `json:"-"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}
