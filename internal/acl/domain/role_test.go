package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRoleOrdering(t *testing.T) {
	t.Parallel()

	require.True(t, RoleView < RoleOperate)
	require.True(t, RoleOperate < RoleCollaborate)
	require.True(t, RoleCollaborate < RoleOwner)

	require.True(t, RoleOwner.AtLeast(RoleView))
	require.True(t, RoleCollaborate.AtLeast(RoleCollaborate))
	require.False(t, RoleOperate.AtLeast(RoleCollaborate))
	require.False(t, Role(0).AtLeast(RoleView), "zero role grants nothing")
	require.False(t, Role(99).AtLeast(RoleView), "out-of-range role grants nothing")
}

func TestParseRole(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want Role
	}{
		{"view", RoleView},
		{"operate", RoleOperate},
		{"Collaborate", RoleCollaborate},
		{" owner ", RoleOwner},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseRole(tt.in)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}

	for _, bad := range []string{"", "admin", "editor", "own"} {
		_, err := ParseRole(bad)
		require.ErrorIs(t, err, ErrInvalidRole, bad)
	}
}

func TestRoleJSON(t *testing.T) {
	t.Parallel()

	var payload struct {
		Role Role `json:"role"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"role":"operate"}`), &payload))
	require.Equal(t, RoleOperate, payload.Role)

	out, err := json.Marshal(payload)
	require.NoError(t, err)
	require.JSONEq(t, `{"role":"operate"}`, string(out))

	require.Error(t, json.Unmarshal([]byte(`{"role":"superuser"}`), &payload))
}
