package memory

import (
	"sync"

	"github.com/google/uuid"
	"github.com/wolfeidau/tenantry/internal/models"
)

type assignmentKey struct {
	userID   uuid.UUID
	tenantID int64
}

// DB is the shared in-memory backing for the tenant, role assignment and
// account stores. Sharing one lock lets tenant deletion cascade the way the
// PostgreSQL foreign keys do.
// This implementation is for testing and development only - data is lost on restart.
type DB struct {
	mu sync.RWMutex

	nextTenantID int64
	tenants      map[int64]*models.Tenant     // tenant_id -> Tenant
	tenantsByKey map[uuid.UUID]*models.Tenant // public_key -> Tenant
	assignments  map[assignmentKey]*models.RoleAssignment
	accounts     map[uuid.UUID]*models.Account // account_id -> Account
}

// NewDB creates an empty in-memory database.
func NewDB() *DB {
	return &DB{
		tenants:      make(map[int64]*models.Tenant),
		tenantsByKey: make(map[uuid.UUID]*models.Tenant),
		assignments:  make(map[assignmentKey]*models.RoleAssignment),
		accounts:     make(map[uuid.UUID]*models.Account),
	}
}

// Stores bundles the stores sharing a single DB.
type Stores struct {
	Tenants     *TenantStore
	Assignments *RoleAssignmentStore
	Accounts    *AccountStore
}

// New creates a fresh DB and the stores backed by it.
func New() *Stores {
	db := NewDB()
	return &Stores{
		Tenants:     NewTenantStore(db),
		Assignments: NewRoleAssignmentStore(db),
		Accounts:    NewAccountStore(db),
	}
}
