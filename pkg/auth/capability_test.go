package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hyperion/pkg/errors"
)

func newTestKeeper() *Keeper {
	return NewKeeper(map[Role]string{
		RoleManager: "manager-secret",
		RoleAdmin:   "admin-secret",
	})
}

func TestGrant(t *testing.T) {
	keeper := newTestKeeper()

	cap, err := keeper.Grant(RoleManager, "manager-secret")
	require.NoError(t, err)
	assert.NoError(t, keeper.Verify(cap, RoleManager))

	_, err = keeper.Grant(RoleManager, "wrong-token")
	assert.ErrorIs(t, err, errors.ErrUnauthorized)

	_, err = keeper.Grant(Role("oracle"), "manager-secret")
	assert.ErrorIs(t, err, errors.ErrUnauthorized)
}

func TestVerify_RoleMismatch(t *testing.T) {
	keeper := newTestKeeper()

	adminCap, err := keeper.Grant(RoleAdmin, "admin-secret")
	require.NoError(t, err)

	err = keeper.Verify(adminCap, RoleManager)
	assert.ErrorIs(t, err, errors.ErrUnauthorized)
}

func TestVerify_ZeroCapability(t *testing.T) {
	keeper := newTestKeeper()

	err := keeper.Verify(Capability{}, RoleManager)
	assert.ErrorIs(t, err, errors.ErrUnauthorized)
}

func TestVerify_RotatedSecret(t *testing.T) {
	keeper := newTestKeeper()
	cap, err := keeper.Grant(RoleManager, "manager-secret")
	require.NoError(t, err)

	// A capability minted before a secret rotation no longer verifies
	rotated := NewKeeper(map[Role]string{RoleManager: "new-secret"})
	err = rotated.Verify(cap, RoleManager)
	assert.ErrorIs(t, err, errors.ErrUnauthorized)
}

func TestGrant_UnconfiguredRole(t *testing.T) {
	keeper := NewKeeper(map[Role]string{RoleManager: ""})

	_, err := keeper.Grant(RoleManager, "")
	assert.ErrorIs(t, err, errors.ErrUnauthorized)
}
