package state_test

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"loyaltyd/core/state"
	"loyaltyd/storage"
)

var (
	alice = common.HexToAddress("0x0000000000000000000000000000000000000a11")
	bob   = common.HexToAddress("0x0000000000000000000000000000000000000b22")
	carol = common.HexToAddress("0x0000000000000000000000000000000000000c33")
)

func newTestRegistry(t *testing.T) (*state.OwnershipRegistry, *state.Manager) {
	t.Helper()
	db := storage.NewMemDB()
	t.Cleanup(db.Close)
	manager := state.NewManager(db)
	require.NoError(t, manager.InitializeLifecycle())
	return state.NewOwnershipRegistry(db, manager), manager
}

func TestSafeAssignRejectsDoubleAssign(t *testing.T) {
	registry, _ := newTestRegistry(t)
	require.NoError(t, registry.SafeAssign(alice, 1))
	err := registry.SafeAssign(bob, 1)
	require.ErrorIs(t, err, state.ErrAlreadyAssigned)

	owner, err := registry.OwnerOfToken(1)
	require.NoError(t, err)
	require.Equal(t, alice, owner)
}

func TestRemoveOwnershipRequiresOwner(t *testing.T) {
	registry, _ := newTestRegistry(t)
	require.ErrorIs(t, registry.RemoveOwnership(7), state.ErrNotOwned)
}

func TestRemovalRepacksEnumeration(t *testing.T) {
	registry, _ := newTestRegistry(t)
	require.NoError(t, registry.SafeAssign(alice, 1))
	require.NoError(t, registry.SafeAssign(bob, 2))
	require.NoError(t, registry.SafeAssign(carol, 3))

	// Removing the first entry swaps the last live token into its slot.
	require.NoError(t, registry.RemoveOwnership(1))

	supply, err := registry.TotalSupply()
	require.NoError(t, err)
	require.Equal(t, uint64(2), supply)

	id0, err := registry.TokenAtIndex(0)
	require.NoError(t, err)
	require.Equal(t, uint64(3), id0)
	id1, err := registry.TokenAtIndex(1)
	require.NoError(t, err)
	require.Equal(t, uint64(2), id1)

	owner0, err := registry.OwnerOf(0)
	require.NoError(t, err)
	require.Equal(t, carol, owner0)
	owner1, err := registry.OwnerOf(1)
	require.NoError(t, err)
	require.Equal(t, bob, owner1)

	_, err = registry.OwnerOf(2)
	require.ErrorIs(t, err, state.ErrIndexOutOfRange)
	_, err = registry.OwnerOfToken(1)
	require.ErrorIs(t, err, state.ErrNotOwned)
}

func TestEnumerationReachesEveryLiveTokenOnce(t *testing.T) {
	registry, _ := newTestRegistry(t)
	for id := uint64(1); id <= 6; id++ {
		require.NoError(t, registry.SafeAssign(alice, id))
	}
	require.NoError(t, registry.RemoveOwnership(2))
	require.NoError(t, registry.RemoveOwnership(5))

	supply, err := registry.TotalSupply()
	require.NoError(t, err)
	require.Equal(t, uint64(4), supply)

	seen := make(map[uint64]struct{})
	for i := uint64(0); i < supply; i++ {
		id, err := registry.TokenAtIndex(i)
		require.NoError(t, err)
		_, dup := seen[id]
		require.False(t, dup, "token %d enumerated twice", id)
		seen[id] = struct{}{}
	}
	require.Equal(t, map[uint64]struct{}{1: {}, 3: {}, 4: {}, 6: {}}, seen)
}

func TestApprovalFlow(t *testing.T) {
	registry, _ := newTestRegistry(t)
	require.NoError(t, registry.SafeAssign(alice, 1))

	require.ErrorIs(t, registry.Approve(bob, carol, 1), state.ErrNotOwner)

	require.NoError(t, registry.Approve(alice, carol, 1))
	ok, err := registry.IsOwnerOrApproved(carol, 1)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = registry.IsOwnerOrApproved(bob, 1)
	require.NoError(t, err)
	require.False(t, ok)

	// Clearing with the zero address revokes the delegate.
	require.NoError(t, registry.Approve(alice, common.Address{}, 1))
	ok, err = registry.IsOwnerOrApproved(carol, 1)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestTransferHonorsTransferabilityGate(t *testing.T) {
	registry, manager := newTestRegistry(t)
	require.NoError(t, registry.SafeAssign(alice, 1))

	// Transfers default to disabled.
	require.ErrorIs(t, registry.Transfer(alice, bob, 1), state.ErrNotTransferable)

	require.NoError(t, manager.SetTransferable(true))
	require.NoError(t, registry.Transfer(alice, bob, 1))

	owner, err := registry.OwnerOfToken(1)
	require.NoError(t, err)
	require.Equal(t, bob, owner)

	require.ErrorIs(t, registry.Transfer(alice, carol, 1), state.ErrNotOwner)
}

func TestTransferClearsApproval(t *testing.T) {
	registry, manager := newTestRegistry(t)
	require.NoError(t, manager.SetTransferable(true))
	require.NoError(t, registry.SafeAssign(alice, 1))
	require.NoError(t, registry.Approve(alice, carol, 1))

	require.NoError(t, registry.Transfer(carol, bob, 1))

	ok, err := registry.IsOwnerOrApproved(carol, 1)
	require.NoError(t, err)
	require.False(t, ok)
}
