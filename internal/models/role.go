package models

import (
	"fmt"
)

// Role is a tenant-level capability. Roles are totally ordered:
// Viewer < Editor < Owner.
type Role int

const (
	RoleNone Role = iota // No access; never stored
	RoleViewer
	RoleEditor
	RoleOwner
)

var roleNames = map[Role]string{
	RoleViewer: "Viewer",
	RoleEditor: "Editor",
	RoleOwner:  "Owner",
}

// ParseRole parses a role from its serialized name.
func ParseRole(s string) (Role, error) {
	for r, name := range roleNames {
		if name == s {
			return r, nil
		}
	}
	return RoleNone, fmt.Errorf("unknown role %q", s)
}

// String returns the serialized name of the role.
func (r Role) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return "None"
}

// Valid reports whether r is one of Viewer, Editor or Owner.
func (r Role) Valid() bool {
	_, ok := roleNames[r]
	return ok
}

// AtLeast reports whether r grants everything required grants.
func (r Role) AtLeast(required Role) bool {
	return r.Valid() && r >= required
}

// MarshalText implements encoding.TextMarshaler.
func (r Role) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("invalid role %d", int(r))
	}
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Role) UnmarshalText(text []byte) error {
	parsed, err := ParseRole(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
