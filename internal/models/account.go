package models

import (
	"time"

	"github.com/google/uuid"
)

// Account is a tenant-owned ledger account. TenantID is always stamped from
// the request's tenant context, never taken from caller input.
type Account struct {
	AccountID   uuid.UUID `json:"account_id"`
	TenantID    int64     `json:"-"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
