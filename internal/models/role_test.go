package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	tests := []struct {
		input    string
		expected Role
		wantErr  bool
	}{
		{input: "Viewer", expected: RoleViewer},
		{input: "Editor", expected: RoleEditor},
		{input: "Owner", expected: RoleOwner},
		{input: "owner", wantErr: true},
		{input: "Admin", wantErr: true},
		{input: "", wantErr: true},
		{input: "None", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			role, err := ParseRole(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				require.Equal(t, RoleNone, role)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.expected, role)
			require.Equal(t, tt.input, role.String())
		})
	}
}

func TestRole_AtLeast(t *testing.T) {
	roles := []Role{RoleViewer, RoleEditor, RoleOwner}

	for i, held := range roles {
		for j, required := range roles {
			require.Equal(t, i >= j, held.AtLeast(required), "%s at least %s", held, required)
		}
	}

	t.Run("none never satisfies", func(t *testing.T) {
		for _, required := range roles {
			require.False(t, RoleNone.AtLeast(required))
		}
	})
}

func TestRole_JSON(t *testing.T) {
	var body struct {
		Role Role `json:"role"`
	}

	require.NoError(t, json.Unmarshal([]byte(`{"role":"Editor"}`), &body))
	require.Equal(t, RoleEditor, body.Role)

	require.Error(t, json.Unmarshal([]byte(`{"role":"Superuser"}`), &body))

	_, err := json.Marshal(struct{ Role Role }{Role: RoleNone})
	require.Error(t, err)
}
