package token

import (
	"github.com/ethereum/go-ethereum/common"

	"loyaltyd/core/events"
)

// LifecycleState describes the minimal functionality the lifecycle engine
// needs from the surrounding state implementation.
type LifecycleState interface {
	NextTokenID() (uint64, error)
	SetNextTokenID(next uint64) error
	TokenBurnt(id uint64) (bool, error)
	SetTokenBurnt(id uint64) error
	Transferable() (bool, error)
	SetTransferable(transferable bool) error
}

// OwnershipLedger is the contract consumed from the underlying non-fungible
// token ledger. The engine never reimplements ownership bookkeeping; it only
// drives this interface.
type OwnershipLedger interface {
	SafeAssign(owner common.Address, id uint64) error
	RemoveOwnership(id uint64) error
	IsOwnerOrApproved(caller common.Address, id uint64) (bool, error)
}

// Engine is the token lifecycle manager. It owns the monotonically increasing
// identifier counter and the per-identifier burn flags, and gates all
// lifecycle mutations on the configured authority.
type Engine struct {
	st        LifecycleState
	ledger    OwnershipLedger
	authority common.Address
	emitter   events.Emitter
}

// NewEngine creates a lifecycle engine bound to the given state, ownership
// ledger and minting authority.
func NewEngine(st LifecycleState, ledger OwnershipLedger, authority common.Address) *Engine {
	return &Engine{st: st, ledger: ledger, authority: authority, emitter: events.NoopEmitter{}}
}

// SetEmitter configures the event emitter used to broadcast lifecycle changes.
// Passing nil resets the emitter to a no-op implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// Mint assigns the next identifier to the recipient and registers ownership in
// the underlying ledger. Only the authority may mint. Identifiers start at 1,
// increase strictly and are never reused.
func (e *Engine) Mint(caller, recipient common.Address) (uint64, error) {
	if caller != e.authority {
		return 0, ErrUnauthorized
	}
	if recipient == (common.Address{}) {
		return 0, ErrInvalidRecipient
	}
	id, err := e.st.NextTokenID()
	if err != nil {
		return 0, err
	}
	if err := e.ledger.SafeAssign(recipient, id); err != nil {
		return 0, err
	}
	if err := e.st.SetNextTokenID(id + 1); err != nil {
		return 0, err
	}
	e.emitter.Emit(events.TokenMinted{Recipient: recipient, TokenID: id})
	return id, nil
}

// Burn retires the token irreversibly and removes its ownership record. The
// caller must be the current owner or hold the owner's approval. A burnt
// identifier is never reassigned and its flag is never cleared.
func (e *Engine) Burn(caller common.Address, id uint64) error {
	burnt, err := e.st.TokenBurnt(id)
	if err != nil {
		return err
	}
	if burnt {
		return ErrAlreadyBurnt
	}
	allowed, err := e.ledger.IsOwnerOrApproved(caller, id)
	if err != nil {
		return err
	}
	if !allowed {
		return ErrForbidden
	}
	if err := e.ledger.RemoveOwnership(id); err != nil {
		return err
	}
	if err := e.st.SetTokenBurnt(id); err != nil {
		return err
	}
	e.emitter.Emit(events.TokenBurned{Caller: caller, TokenID: id})
	return nil
}

// SetTransferability overwrites the global transfer flag. The flag is advisory
// for the lifecycle operations themselves; the ownership ledger enforces it at
// its transfer boundary.
func (e *Engine) SetTransferability(caller common.Address, transferable bool) error {
	if caller != e.authority {
		return ErrUnauthorized
	}
	if err := e.st.SetTransferable(transferable); err != nil {
		return err
	}
	e.emitter.Emit(events.TransferabilityChanged{Caller: caller, Transferable: transferable})
	return nil
}

// IsBurnt reports the burn flag for the identifier. Identifiers that were
// never minted read as not burnt, except the reserved sentinel 0 which always
// reads burnt.
func (e *Engine) IsBurnt(id uint64) (bool, error) {
	return e.st.TokenBurnt(id)
}

// Transferability returns the current value of the global transfer flag.
func (e *Engine) Transferability() (bool, error) {
	return e.st.Transferable()
}
