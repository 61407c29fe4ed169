package core

import (
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"loyaltyd/core/events"
	"loyaltyd/core/state"
	"loyaltyd/native/rewards"
	"loyaltyd/native/token"
	"loyaltyd/storage"
)

// Node wires the lifecycle engine and the reward ledger to the persistent
// state and serializes every operation. There is exactly one Node per process;
// its mutex is what gives the system its strict sequential execution model: no
// two state-changing operations ever interleave, and a rejected operation
// leaves no partial state behind.
type Node struct {
	mu sync.RWMutex

	db        storage.Database
	state     *state.Manager
	ownership *state.OwnershipRegistry
	lifecycle *token.Engine
	rewards   *rewards.Ledger

	broadcaster *eventBroadcaster
}

// NewNode initializes the ledger state on top of the provided database and
// returns the process-wide node. Initialization is idempotent: an existing
// data directory resumes where it left off, a fresh one seeds the identifier
// counter at 1 and pre-marks the sentinel identifier 0 as burnt.
func NewNode(db storage.Database, authority common.Address) (*Node, error) {
	manager := state.NewManager(db)
	if err := manager.InitializeLifecycle(); err != nil {
		return nil, err
	}
	ownership := state.NewOwnershipRegistry(db, manager)
	broadcaster := newEventBroadcaster()

	lifecycle := token.NewEngine(manager, ownership, authority)
	lifecycle.SetEmitter(broadcaster)
	rewardLedger := rewards.NewLedger(manager, ownership, rewards.ModuleAddress)
	rewardLedger.SetEmitter(broadcaster)

	return &Node{
		db:          db,
		state:       manager,
		ownership:   ownership,
		lifecycle:   lifecycle,
		rewards:     rewardLedger,
		broadcaster: broadcaster,
	}, nil
}

// Mint assigns the next token identifier to the recipient.
func (n *Node) Mint(caller, recipient common.Address) (uint64, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.lifecycle.Mint(caller, recipient)
}

// Burn irreversibly retires the token.
func (n *Node) Burn(caller common.Address, id uint64) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.lifecycle.Burn(caller, id)
}

// SetTransferability overwrites the global transfer flag.
func (n *Node) SetTransferability(caller common.Address, transferable bool) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.lifecycle.SetTransferability(caller, transferable)
}

// Transferability reports the global transfer flag.
func (n *Node) Transferability() (bool, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.lifecycle.Transferability()
}

// IsBurnt reports the burn flag for the identifier.
func (n *Node) IsBurnt(id uint64) (bool, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.lifecycle.IsBurnt(id)
}

// Distribute fans the pool out across all live token holders.
func (n *Node) Distribute(pool *big.Int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.rewards.Distribute(pool)
}

// RewardsBalance returns the holder's accumulated reward balance.
func (n *Node) RewardsBalance(holder common.Address) (*big.Int, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.rewards.Balance(holder)
}

// TotalSupply returns the number of currently live tokens.
func (n *Node) TotalSupply() (uint64, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.ownership.TotalSupply()
}

// OwnerOfToken resolves the current owner of a live token by identifier.
func (n *Node) OwnerOfToken(id uint64) (common.Address, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.ownership.OwnerOfToken(id)
}

// ApproveToken grants spender the approval slot on the token. Approved callers
// may burn or transfer the token on the owner's behalf.
func (n *Node) ApproveToken(caller, spender common.Address, id uint64) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.ownership.Approve(caller, spender, id)
}

// TransferToken moves the token to a new owner, subject to the global
// transferability flag enforced by the ownership registry.
func (n *Node) TransferToken(caller, to common.Address, id uint64) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.ownership.Transfer(caller, to, id)
}

// SubscribeEvents registers an event subscriber. The returned backlog holds
// recent events emitted before the subscription; the channel carries
// everything after. The cancel function must be called to release the
// subscription.
func (n *Node) SubscribeEvents(buffer int) (<-chan events.Event, func(), []events.Event) {
	return n.broadcaster.subscribe(buffer)
}
