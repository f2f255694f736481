// playlistd - multi-display video playlist orchestrator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playlistd

package authz

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func testEnforcer(t *testing.T) *Enforcer {
	t.Helper()
	path := filepath.Join(t.TempDir(), "policy.csv")
	e, err := NewEnforcer(path)
	require.NoError(t, err)
	return e
}

func TestEnforcer_DeniesByDefault(t *testing.T) {
	e := testEnforcer(t)

	allowed, err := e.Enforce("admin-1", "ABC123", ActionControl)
	require.NoError(t, err)
	require.False(t, allowed)
}

func TestEnforcer_GrantOwnershipAllowsOwnAndControl(t *testing.T) {
	e := testEnforcer(t)
	require.NoError(t, e.GrantOwnership("admin-1", "ABC123"))

	owns, err := e.Enforce("admin-1", "ABC123", ActionOwn)
	require.NoError(t, err)
	require.True(t, owns)

	controls, err := e.Enforce("admin-1", "ABC123", ActionControl)
	require.NoError(t, err)
	require.True(t, controls)
}

func TestEnforcer_GrantIsScopedToDisplayAndAdmin(t *testing.T) {
	e := testEnforcer(t)
	require.NoError(t, e.GrantOwnership("admin-1", "ABC123"))

	allowed, err := e.Enforce("admin-2", "ABC123", ActionControl)
	require.NoError(t, err)
	require.False(t, allowed, "a different admin must not inherit ownership")

	allowed, err = e.Enforce("admin-1", "XYZ789", ActionControl)
	require.NoError(t, err)
	require.False(t, allowed, "ownership must not leak to other displays")
}

func TestEnforcer_RevokeDisplayRemovesAllOwners(t *testing.T) {
	e := testEnforcer(t)
	require.NoError(t, e.GrantOwnership("admin-1", "ABC123"))
	require.NoError(t, e.GrantOwnership("admin-2", "ABC123"))

	require.NoError(t, e.RevokeDisplay("ABC123"))

	for _, admin := range []string{"admin-1", "admin-2"} {
		allowed, err := e.Enforce(admin, "ABC123", ActionControl)
		require.NoError(t, err)
		require.False(t, allowed)
	}
}

func TestEnforcer_OwnersOf(t *testing.T) {
	e := testEnforcer(t)
	require.NoError(t, e.GrantOwnership("admin-1", "ABC123"))
	require.NoError(t, e.GrantOwnership("admin-2", "ABC123"))

	owners, err := e.OwnersOf("ABC123")
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"admin-1", "admin-2"}, owners)
}

func TestEnforcer_PersistsAcrossReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.csv")
	e, err := NewEnforcer(path)
	require.NoError(t, err)
	require.NoError(t, e.GrantOwnership("admin-1", "ABC123"))

	reloaded, err := NewEnforcer(path)
	require.NoError(t, err)

	allowed, err := reloaded.Enforce("admin-1", "ABC123", ActionOwn)
	require.NoError(t, err)
	require.True(t, allowed)
}
