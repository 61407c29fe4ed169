package rewards

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"loyaltyd/core/events"
)

// RewardState persists the per-holder accumulated balances. Balances only ever
// grow; there is no debit path in this module.
type RewardState interface {
	RewardBalance(addr common.Address) (*big.Int, error)
	SetRewardBalance(addr common.Address, amount *big.Int) error
}

// OwnershipEnumerator is the slice of the underlying token ledger the reward
// ledger needs: positional enumeration over the currently live tokens. The
// enumeration may re-pack after burns; the only guarantee relied on is that
// every live token appears at exactly one index in [0, TotalSupply()).
type OwnershipEnumerator interface {
	OwnerOf(index uint64) (common.Address, error)
	TotalSupply() (uint64, error)
}

// Ledger fans a fungible reward pool out across all currently live token
// holders.
type Ledger struct {
	st      RewardState
	ledger  OwnershipEnumerator
	origin  common.Address
	emitter events.Emitter
}

// NewLedger creates a reward ledger. The origin address identifies the system
// in the aggregate distribution notification.
func NewLedger(st RewardState, ledger OwnershipEnumerator, origin common.Address) *Ledger {
	return &Ledger{st: st, ledger: ledger, origin: origin, emitter: events.NoopEmitter{}}
}

// SetEmitter configures the event emitter used to broadcast distribution
// rounds. Passing nil resets the emitter to a no-op implementation.
func (l *Ledger) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		l.emitter = events.NoopEmitter{}
		return
	}
	l.emitter = emitter
}

// Distribute credits every live token's owner with pool/totalSupply (floor
// division), accumulating when one holder owns several tokens. The remainder
// pool - share*totalSupply is deliberately not distributed: the rounding loss
// is the documented policy for a round, not a bug. A single aggregate
// RewardsDistributed event is emitted per call.
//
// All owners are resolved and credits accumulated in memory before the first
// balance write, so a rejected call leaves no partial state.
func (l *Ledger) Distribute(pool *big.Int) error {
	if pool == nil || pool.Sign() <= 0 {
		return ErrInvalidPool
	}
	supply, err := l.ledger.TotalSupply()
	if err != nil {
		return err
	}
	if supply == 0 {
		return ErrNoTokensMinted
	}
	share := new(big.Int).Quo(pool, new(big.Int).SetUint64(supply))
	if share.Sign() > 0 {
		credits := make(map[common.Address]*big.Int)
		order := make([]common.Address, 0, supply)
		for i := uint64(0); i < supply; i++ {
			owner, err := l.ledger.OwnerOf(i)
			if err != nil {
				return err
			}
			credit, ok := credits[owner]
			if !ok {
				credit = big.NewInt(0)
				credits[owner] = credit
				order = append(order, owner)
			}
			credit.Add(credit, share)
		}
		for _, holder := range order {
			balance, err := l.st.RewardBalance(holder)
			if err != nil {
				return err
			}
			balance = new(big.Int).Add(balance, credits[holder])
			if err := l.st.SetRewardBalance(holder, balance); err != nil {
				return err
			}
		}
	}
	l.emitter.Emit(events.RewardsDistributed{Origin: l.origin, Pool: new(big.Int).Set(pool)})
	return nil
}

// Balance returns the holder's accumulated reward balance. Absent holders read
// as zero.
func (l *Ledger) Balance(holder common.Address) (*big.Int, error) {
	return l.st.RewardBalance(holder)
}
