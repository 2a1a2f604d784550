// Package provision creates tenants and their initial role assignments from a
// declarative YAML file. Applying the same file twice is a no-op.
package provision

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/tenantry/internal/models"
	"github.com/wolfeidau/tenantry/internal/store"
	"gopkg.in/yaml.v3"
)

// File is the provisioning document.
type File struct {
	Tenants []TenantSpec `yaml:"tenants"`
}

// TenantSpec declares one tenant and its members.
type TenantSpec struct {
	Key         uuid.UUID    `yaml:"key"`
	Name        string       `yaml:"name"`
	Description string       `yaml:"description"`
	Members     []MemberSpec `yaml:"members"`
}

// MemberSpec declares a user's role on the enclosing tenant.
type MemberSpec struct {
	User uuid.UUID   `yaml:"user"`
	Role models.Role `yaml:"role"`
}

// Result counts what Apply changed.
type Result struct {
	TenantsCreated     int
	TenantsExisting    int
	AssignmentsCreated int
	AssignmentsSkipped int
}

// Load reads and validates a provisioning file.
func Load(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open provisioning file: %w", err)
	}
	defer f.Close()

	return Decode(f)
}

// Decode parses and validates a provisioning document.
func Decode(r io.Reader) (*File, error) {
	var file File

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("failed to parse provisioning file: %w", err)
	}

	if err := file.Validate(); err != nil {
		return nil, err
	}

	return &file, nil
}

// Validate checks the document for missing keys, duplicates and an owner per tenant.
func (f *File) Validate() error {
	seen := make(map[uuid.UUID]bool, len(f.Tenants))

	for i, t := range f.Tenants {
		if t.Key == uuid.Nil {
			return fmt.Errorf("tenants[%d]: key is required", i)
		}
		if t.Name == "" {
			return fmt.Errorf("tenants[%d]: name is required", i)
		}
		if seen[t.Key] {
			return fmt.Errorf("tenants[%d]: duplicate key %s", i, t.Key)
		}
		seen[t.Key] = true

		users := make(map[uuid.UUID]bool, len(t.Members))
		hasOwner := false
		for j, m := range t.Members {
			if m.User == uuid.Nil {
				return fmt.Errorf("tenants[%d].members[%d]: user is required", i, j)
			}
			if !m.Role.Valid() {
				return fmt.Errorf("tenants[%d].members[%d]: role is required", i, j)
			}
			if users[m.User] {
				return fmt.Errorf("tenants[%d].members[%d]: duplicate user %s", i, j, m.User)
			}
			users[m.User] = true
			hasOwner = hasOwner || m.Role == models.RoleOwner
		}
		if !hasOwner {
			return fmt.Errorf("tenants[%d]: at least one Owner is required", i)
		}
	}

	return nil
}

// Provisioner applies provisioning files to the tenant directory.
type Provisioner struct {
	tenants     store.TenantStore
	assignments store.RoleAssignmentStore
}

// New creates a provisioner.
func New(tenants store.TenantStore, assignments store.RoleAssignmentStore) *Provisioner {
	return &Provisioner{tenants: tenants, assignments: assignments}
}

// Apply creates missing tenants and assignments. Existing tenants are left as
// they are, and existing assignments keep their current role.
func (p *Provisioner) Apply(ctx context.Context, file *File) (*Result, error) {
	result := &Result{}

	for _, ts := range file.Tenants {
		tenant, created, err := p.ensureTenant(ctx, ts)
		if err != nil {
			return result, err
		}
		if created {
			result.TenantsCreated++
		} else {
			result.TenantsExisting++
		}

		for _, m := range ts.Members {
			err := p.assignments.Create(ctx, &models.RoleAssignment{
				UserID:   m.User,
				TenantID: tenant.InternalID,
				Role:     m.Role,
			})
			switch {
			case errors.Is(err, store.ErrDuplicateRoleAssignment):
				result.AssignmentsSkipped++
				log.Debug().
					Str("tenant_key", tenant.PublicKey.String()).
					Str("user_id", m.User.String()).
					Msg("Role assignment already exists, skipping")
			case err != nil:
				return result, fmt.Errorf("failed to grant %s on %s: %w", m.Role, tenant.PublicKey, err)
			default:
				result.AssignmentsCreated++
			}
		}
	}

	return result, nil
}

func (p *Provisioner) ensureTenant(ctx context.Context, ts TenantSpec) (*models.Tenant, bool, error) {
	tenant := &models.Tenant{
		PublicKey:   ts.Key,
		Name:        ts.Name,
		Description: ts.Description,
	}

	err := p.tenants.Create(ctx, tenant)
	if err == nil {
		log.Info().
			Str("tenant_key", tenant.PublicKey.String()).
			Str("name", tenant.Name).
			Msg("Tenant created")
		return tenant, true, nil
	}

	if !errors.Is(err, store.ErrTenantAlreadyExists) {
		return nil, false, fmt.Errorf("failed to create tenant %s: %w", ts.Key, err)
	}

	existing, err := p.tenants.GetByKey(ctx, ts.Key)
	if err != nil {
		return nil, false, fmt.Errorf("failed to load tenant %s: %w", ts.Key, err)
	}

	return existing, false, nil
}
