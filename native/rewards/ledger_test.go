package rewards_test

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"loyaltyd/core/events"
	"loyaltyd/core/state"
	"loyaltyd/native/rewards"
	"loyaltyd/storage"
)

var (
	alice = common.HexToAddress("0x0000000000000000000000000000000000000a11")
	bob   = common.HexToAddress("0x0000000000000000000000000000000000000b22")
)

type capturingEmitter struct {
	events []events.Event
}

func (c *capturingEmitter) Emit(e events.Event) {
	c.events = append(c.events, e)
}

func newTestLedger(t *testing.T) (*rewards.Ledger, *state.OwnershipRegistry, *capturingEmitter) {
	t.Helper()
	db := storage.NewMemDB()
	t.Cleanup(db.Close)
	manager := state.NewManager(db)
	if err := manager.InitializeLifecycle(); err != nil {
		t.Fatalf("initialize lifecycle: %v", err)
	}
	registry := state.NewOwnershipRegistry(db, manager)
	ledger := rewards.NewLedger(manager, registry, rewards.ModuleAddress)
	emitter := &capturingEmitter{}
	ledger.SetEmitter(emitter)
	return ledger, registry, emitter
}

func assign(t *testing.T, registry *state.OwnershipRegistry, owner common.Address, id uint64) {
	t.Helper()
	if err := registry.SafeAssign(owner, id); err != nil {
		t.Fatalf("assign token %d: %v", id, err)
	}
}

func mustBalance(t *testing.T, ledger *rewards.Ledger, holder common.Address) *big.Int {
	t.Helper()
	balance, err := ledger.Balance(holder)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	return balance
}

func TestDistributeEvenSplit(t *testing.T) {
	ledger, registry, emitter := newTestLedger(t)
	assign(t, registry, alice, 1)
	assign(t, registry, bob, 2)

	if err := ledger.Distribute(big.NewInt(100)); err != nil {
		t.Fatalf("distribute: %v", err)
	}
	if got := mustBalance(t, ledger, alice); got.Cmp(big.NewInt(50)) != 0 {
		t.Fatalf("expected alice balance 50, got %s", got)
	}
	if got := mustBalance(t, ledger, bob); got.Cmp(big.NewInt(50)) != 0 {
		t.Fatalf("expected bob balance 50, got %s", got)
	}

	if len(emitter.events) != 1 {
		t.Fatalf("expected exactly one aggregate event, got %d", len(emitter.events))
	}
	distributed, ok := emitter.events[0].(events.RewardsDistributed)
	if !ok {
		t.Fatalf("expected RewardsDistributed event, got %T", emitter.events[0])
	}
	if distributed.Pool.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("expected pool 100 in event, got %s", distributed.Pool)
	}
	if distributed.Origin != rewards.ModuleAddress {
		t.Fatalf("expected module origin, got %s", distributed.Origin.Hex())
	}
}

func TestDistributeFloorsOddPool(t *testing.T) {
	ledger, registry, _ := newTestLedger(t)
	assign(t, registry, alice, 1)
	assign(t, registry, bob, 2)

	// share = floor(7/2) = 3; the remaining 1 is discarded for the round.
	if err := ledger.Distribute(big.NewInt(7)); err != nil {
		t.Fatalf("distribute: %v", err)
	}
	if got := mustBalance(t, ledger, alice); got.Cmp(big.NewInt(3)) != 0 {
		t.Fatalf("expected alice balance 3, got %s", got)
	}
	if got := mustBalance(t, ledger, bob); got.Cmp(big.NewInt(3)) != 0 {
		t.Fatalf("expected bob balance 3, got %s", got)
	}
}

func TestDistributeAccumulatesPerToken(t *testing.T) {
	ledger, registry, _ := newTestLedger(t)
	assign(t, registry, alice, 1)
	assign(t, registry, alice, 2)
	assign(t, registry, bob, 3)

	if err := ledger.Distribute(big.NewInt(90)); err != nil {
		t.Fatalf("distribute: %v", err)
	}
	// Alice owns two of three tokens: two shares of 30.
	if got := mustBalance(t, ledger, alice); got.Cmp(big.NewInt(60)) != 0 {
		t.Fatalf("expected alice balance 60, got %s", got)
	}
	if got := mustBalance(t, ledger, bob); got.Cmp(big.NewInt(30)) != 0 {
		t.Fatalf("expected bob balance 30, got %s", got)
	}

	if err := ledger.Distribute(big.NewInt(30)); err != nil {
		t.Fatalf("second distribute: %v", err)
	}
	if got := mustBalance(t, ledger, alice); got.Cmp(big.NewInt(80)) != 0 {
		t.Fatalf("expected alice balance 80 after second round, got %s", got)
	}
}

func TestDistributeConservation(t *testing.T) {
	ledger, registry, _ := newTestLedger(t)
	holders := []common.Address{alice, bob, common.HexToAddress("0x0000000000000000000000000000000000000c33")}
	for i, holder := range holders {
		assign(t, registry, holder, uint64(i+1))
	}

	pool := big.NewInt(1000)
	if err := ledger.Distribute(pool); err != nil {
		t.Fatalf("distribute: %v", err)
	}
	total := big.NewInt(0)
	for _, holder := range holders {
		total.Add(total, mustBalance(t, ledger, holder))
	}
	// floor(1000/3) * 3 = 999 <= 1000.
	if total.Cmp(big.NewInt(999)) != 0 {
		t.Fatalf("expected total credits 999, got %s", total)
	}
	if total.Cmp(pool) > 0 {
		t.Fatalf("credits %s exceed pool %s", total, pool)
	}
}

func TestDistributeRejectsInvalidPool(t *testing.T) {
	ledger, registry, emitter := newTestLedger(t)
	assign(t, registry, alice, 1)

	for _, pool := range []*big.Int{nil, big.NewInt(0), big.NewInt(-5)} {
		if err := ledger.Distribute(pool); !errors.Is(err, rewards.ErrInvalidPool) {
			t.Fatalf("expected ErrInvalidPool for %v, got %v", pool, err)
		}
	}
	if got := mustBalance(t, ledger, alice); got.Sign() != 0 {
		t.Fatalf("rejected distribution must not credit, got %s", got)
	}
	if len(emitter.events) != 0 {
		t.Fatalf("rejected distribution must not emit, got %d events", len(emitter.events))
	}
}

func TestDistributeRejectsEmptySupply(t *testing.T) {
	ledger, _, _ := newTestLedger(t)
	if err := ledger.Distribute(big.NewInt(100)); !errors.Is(err, rewards.ErrNoTokensMinted) {
		t.Fatalf("expected ErrNoTokensMinted, got %v", err)
	}
}

func TestDistributeZeroShareCreatesNoEntries(t *testing.T) {
	ledger, registry, emitter := newTestLedger(t)
	assign(t, registry, alice, 1)
	assign(t, registry, bob, 2)

	// floor(1/2) = 0: nothing is credited, the whole pool is rounding loss.
	if err := ledger.Distribute(big.NewInt(1)); err != nil {
		t.Fatalf("distribute: %v", err)
	}
	if got := mustBalance(t, ledger, alice); got.Sign() != 0 {
		t.Fatalf("expected no credit, got %s", got)
	}
	if len(emitter.events) != 1 {
		t.Fatalf("round still emits its aggregate event, got %d", len(emitter.events))
	}
}
