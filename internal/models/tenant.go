package models

import (
	"time"

	"github.com/google/uuid"
)

// Tenant represents an isolated unit of data ownership.
// All business data is partitioned by tenant.
type Tenant struct {
	InternalID  int64     `json:"-"`          // Storage identity, never exposed to callers
	PublicKey   uuid.UUID `json:"tenant_key"` // Opaque key used in routes and claims
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// TenantAccess joins a role assignment with the tenant it grants access to.
// Claims are issued from these because assignments only carry the internal id.
type TenantAccess struct {
	Tenant Tenant
	Role   Role
}
