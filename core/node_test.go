package core_test

import (
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"loyaltyd/core"
	"loyaltyd/core/events"
	"loyaltyd/native/token"
	"loyaltyd/storage"
)

var (
	authority = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	alice     = common.HexToAddress("0x0000000000000000000000000000000000000a11")
	bob       = common.HexToAddress("0x0000000000000000000000000000000000000b22")
)

func newTestNode(t *testing.T) *core.Node {
	t.Helper()
	db := storage.NewMemDB()
	t.Cleanup(db.Close)
	node, err := core.NewNode(db, authority)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}
	return node
}

func mustBalance(t *testing.T, node *core.Node, holder common.Address) *big.Int {
	t.Helper()
	balance, err := node.RewardsBalance(holder)
	if err != nil {
		t.Fatalf("rewards balance: %v", err)
	}
	return balance
}

func TestLifecycleAndDistributionScenario(t *testing.T) {
	node := newTestNode(t)

	first, err := node.Mint(authority, alice)
	if err != nil {
		t.Fatalf("mint alice: %v", err)
	}
	if first != 1 {
		t.Fatalf("expected id 1, got %d", first)
	}
	second, err := node.Mint(authority, bob)
	if err != nil {
		t.Fatalf("mint bob: %v", err)
	}
	if second != 2 {
		t.Fatalf("expected id 2, got %d", second)
	}

	if err := node.Distribute(big.NewInt(100)); err != nil {
		t.Fatalf("distribute: %v", err)
	}
	if got := mustBalance(t, node, alice); got.Cmp(big.NewInt(50)) != 0 {
		t.Fatalf("expected alice 50, got %s", got)
	}
	if got := mustBalance(t, node, bob); got.Cmp(big.NewInt(50)) != 0 {
		t.Fatalf("expected bob 50, got %s", got)
	}

	if err := node.Burn(alice, first); err != nil {
		t.Fatalf("burn: %v", err)
	}
	burnt, err := node.IsBurnt(first)
	if err != nil {
		t.Fatalf("is burnt: %v", err)
	}
	if !burnt {
		t.Fatal("token 1 must read burnt")
	}

	if err := node.Distribute(big.NewInt(100)); err != nil {
		t.Fatalf("second distribute: %v", err)
	}
	if got := mustBalance(t, node, alice); got.Cmp(big.NewInt(50)) != 0 {
		t.Fatalf("alice must keep 50 after burning her token, got %s", got)
	}
	if got := mustBalance(t, node, bob); got.Cmp(big.NewInt(150)) != 0 {
		t.Fatalf("expected bob 150, got %s", got)
	}
}

func TestUnauthorizedCallsLeaveStateUnchanged(t *testing.T) {
	node := newTestNode(t)

	if _, err := node.Mint(alice, bob); !errors.Is(err, token.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	supply, err := node.TotalSupply()
	if err != nil {
		t.Fatalf("total supply: %v", err)
	}
	if supply != 0 {
		t.Fatalf("expected supply 0, got %d", supply)
	}

	if err := node.SetTransferability(alice, true); !errors.Is(err, token.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	transferable, err := node.Transferability()
	if err != nil {
		t.Fatalf("transferability: %v", err)
	}
	if transferable {
		t.Fatal("transferability must remain false")
	}
}

func TestNodeResumesFromExistingDatabase(t *testing.T) {
	db := storage.NewMemDB()
	t.Cleanup(db.Close)
	node, err := core.NewNode(db, authority)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}
	if _, err := node.Mint(authority, alice); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if _, err := node.Mint(authority, bob); err != nil {
		t.Fatalf("mint: %v", err)
	}

	reopened, err := core.NewNode(db, authority)
	if err != nil {
		t.Fatalf("reopen node: %v", err)
	}
	id, err := reopened.Mint(authority, alice)
	if err != nil {
		t.Fatalf("mint after reopen: %v", err)
	}
	if id != 3 {
		t.Fatalf("expected id 3 after reopen, got %d", id)
	}
}

func TestTransferTokenRespectsGlobalFlag(t *testing.T) {
	node := newTestNode(t)
	id, err := node.Mint(authority, alice)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := node.TransferToken(alice, bob, id); err == nil {
		t.Fatal("expected transfer to fail while transferability is off")
	}
	if err := node.SetTransferability(authority, true); err != nil {
		t.Fatalf("set transferability: %v", err)
	}
	if err := node.TransferToken(alice, bob, id); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	owner, err := node.OwnerOfToken(id)
	if err != nil {
		t.Fatalf("owner of token: %v", err)
	}
	if owner != bob {
		t.Fatalf("expected bob to own token, got %s", owner.Hex())
	}
}

func TestEventSubscriptionReceivesBacklogAndLiveEvents(t *testing.T) {
	node := newTestNode(t)

	if _, err := node.Mint(authority, alice); err != nil {
		t.Fatalf("mint: %v", err)
	}

	updates, cancel, backlog := node.SubscribeEvents(8)
	defer cancel()

	if len(backlog) != 1 {
		t.Fatalf("expected 1 backlog event, got %d", len(backlog))
	}
	if backlog[0].EventType() != events.TypeTokenMinted {
		t.Fatalf("expected minted event in backlog, got %s", backlog[0].EventType())
	}

	if _, err := node.Mint(authority, bob); err != nil {
		t.Fatalf("mint: %v", err)
	}
	select {
	case evt := <-updates:
		minted, ok := evt.(events.TokenMinted)
		if !ok {
			t.Fatalf("expected TokenMinted, got %T", evt)
		}
		if minted.Recipient != bob || minted.TokenID != 2 {
			t.Fatalf("unexpected event: %+v", minted)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for live event")
	}
}
