package state

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"

	"loyaltyd/storage"
)

var (
	ErrAlreadyAssigned = errors.New("ownership: token already assigned")
	ErrNotOwned        = errors.New("ownership: token has no owner")
	ErrIndexOutOfRange = errors.New("ownership: enumeration index out of range")
	ErrNotOwner        = errors.New("ownership: caller does not own token")
	ErrNotTransferable = errors.New("ownership: transfers are disabled")
	ErrInvalidOwner    = errors.New("ownership: invalid owner address")
)

var keyOwnershipCount = []byte("ownership/count")

func ownerKey(id uint64) []byte {
	return []byte(fmt.Sprintf("ownership/owner/%020d", id))
}

func indexKey(id uint64) []byte {
	return []byte(fmt.Sprintf("ownership/index/%020d", id))
}

func listKey(index uint64) []byte {
	return []byte(fmt.Sprintf("ownership/list/%020d", index))
}

func approvedKey(id uint64) []byte {
	return []byte(fmt.Sprintf("ownership/approved/%020d", id))
}

// TransferGate is consulted before any ownership transfer. The lifecycle state
// implements it with the authority-controlled transferability flag.
type TransferGate interface {
	Transferable() (bool, error)
}

// OwnershipRegistry keeps the id-to-owner mapping together with an array-backed
// enumeration of the currently live tokens.
//
// Enumeration contract: OwnerOf(index) is positional over the live-token
// array. Removing a token swaps the last array entry into the vacated slot and
// shrinks the array, so enumeration order depends on the burn history. Callers
// may rely on every live token appearing at exactly one index in
// [0, TotalSupply()); they must not rely on any particular order.
type OwnershipRegistry struct {
	db   storage.Database
	gate TransferGate
}

// NewOwnershipRegistry creates a registry backed by the provided database. The
// gate may be nil, in which case transfers are always allowed.
func NewOwnershipRegistry(db storage.Database, gate TransferGate) *OwnershipRegistry {
	return &OwnershipRegistry{db: db, gate: gate}
}

// SafeAssign registers id as owned by owner and appends it to the enumeration.
// It fails if the id is already assigned.
func (r *OwnershipRegistry) SafeAssign(owner common.Address, id uint64) error {
	if owner == (common.Address{}) {
		return ErrInvalidOwner
	}
	ok, err := r.db.Has(ownerKey(id))
	if err != nil {
		return err
	}
	if ok {
		return fmt.Errorf("%w: %d", ErrAlreadyAssigned, id)
	}
	count, err := r.TotalSupply()
	if err != nil {
		return err
	}
	if err := r.db.Put(ownerKey(id), owner.Bytes()); err != nil {
		return err
	}
	if err := r.putUint(listKey(count), id); err != nil {
		return err
	}
	if err := r.putUint(indexKey(id), count); err != nil {
		return err
	}
	return r.putUint(keyOwnershipCount, count+1)
}

// RemoveOwnership deletes the id-to-owner mapping and re-packs the enumeration
// with a swap-and-pop of the last live entry. Any approval on the id is
// cleared. It fails if the id has no owner.
func (r *OwnershipRegistry) RemoveOwnership(id uint64) error {
	ok, err := r.db.Has(ownerKey(id))
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %d", ErrNotOwned, id)
	}
	count, err := r.TotalSupply()
	if err != nil {
		return err
	}
	var index uint64
	if err := r.getUint(indexKey(id), &index); err != nil {
		return err
	}
	last := count - 1
	if index != last {
		var movedID uint64
		if err := r.getUint(listKey(last), &movedID); err != nil {
			return err
		}
		if err := r.putUint(listKey(index), movedID); err != nil {
			return err
		}
		if err := r.putUint(indexKey(movedID), index); err != nil {
			return err
		}
	}
	if err := r.db.Delete(listKey(last)); err != nil {
		return err
	}
	if err := r.db.Delete(indexKey(id)); err != nil {
		return err
	}
	if err := r.db.Delete(ownerKey(id)); err != nil {
		return err
	}
	if err := r.db.Delete(approvedKey(id)); err != nil {
		return err
	}
	return r.putUint(keyOwnershipCount, last)
}

// IsOwnerOrApproved reports whether the caller owns the token or holds its
// single-slot approval. Unassigned ids report false without error.
func (r *OwnershipRegistry) IsOwnerOrApproved(caller common.Address, id uint64) (bool, error) {
	owner, ok, err := r.ownerOfToken(id)
	if err != nil || !ok {
		return false, err
	}
	if owner == caller {
		return true, nil
	}
	data, err := r.db.Get(approvedKey(id))
	if errors.Is(err, storage.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return common.BytesToAddress(data) == caller, nil
}

// OwnerOf resolves the owner of the token at enumeration position index.
func (r *OwnershipRegistry) OwnerOf(index uint64) (common.Address, error) {
	count, err := r.TotalSupply()
	if err != nil {
		return common.Address{}, err
	}
	if index >= count {
		return common.Address{}, fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}
	var id uint64
	if err := r.getUint(listKey(index), &id); err != nil {
		return common.Address{}, err
	}
	owner, ok, err := r.ownerOfToken(id)
	if err != nil {
		return common.Address{}, err
	}
	if !ok {
		return common.Address{}, fmt.Errorf("%w: %d", ErrNotOwned, id)
	}
	return owner, nil
}

// TokenAtIndex returns the token identifier at enumeration position index.
func (r *OwnershipRegistry) TokenAtIndex(index uint64) (uint64, error) {
	count, err := r.TotalSupply()
	if err != nil {
		return 0, err
	}
	if index >= count {
		return 0, fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}
	var id uint64
	if err := r.getUint(listKey(index), &id); err != nil {
		return 0, err
	}
	return id, nil
}

// OwnerOfToken resolves the owner of a token by identifier.
func (r *OwnershipRegistry) OwnerOfToken(id uint64) (common.Address, error) {
	owner, ok, err := r.ownerOfToken(id)
	if err != nil {
		return common.Address{}, err
	}
	if !ok {
		return common.Address{}, fmt.Errorf("%w: %d", ErrNotOwned, id)
	}
	return owner, nil
}

// TotalSupply returns the number of currently live tokens.
func (r *OwnershipRegistry) TotalSupply() (uint64, error) {
	ok, err := r.db.Has(keyOwnershipCount)
	if err != nil || !ok {
		return 0, err
	}
	var count uint64
	if err := r.getUint(keyOwnershipCount, &count); err != nil {
		return 0, err
	}
	return count, nil
}

// Approve grants spender the single approval slot on id. Only the current
// owner may approve; the zero address clears the slot.
func (r *OwnershipRegistry) Approve(caller, spender common.Address, id uint64) error {
	owner, ok, err := r.ownerOfToken(id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %d", ErrNotOwned, id)
	}
	if owner != caller {
		return ErrNotOwner
	}
	if spender == (common.Address{}) {
		return r.db.Delete(approvedKey(id))
	}
	return r.db.Put(approvedKey(id), spender.Bytes())
}

// Transfer moves id from its current owner to the recipient. The caller must
// be the owner or approved, and the transferability gate must allow transfers.
// The approval slot is cleared on success.
func (r *OwnershipRegistry) Transfer(caller, to common.Address, id uint64) error {
	if to == (common.Address{}) {
		return ErrInvalidOwner
	}
	if r.gate != nil {
		transferable, err := r.gate.Transferable()
		if err != nil {
			return err
		}
		if !transferable {
			return ErrNotTransferable
		}
	}
	allowed, err := r.IsOwnerOrApproved(caller, id)
	if err != nil {
		return err
	}
	if !allowed {
		return ErrNotOwner
	}
	if err := r.db.Delete(approvedKey(id)); err != nil {
		return err
	}
	return r.db.Put(ownerKey(id), to.Bytes())
}

func (r *OwnershipRegistry) ownerOfToken(id uint64) (common.Address, bool, error) {
	data, err := r.db.Get(ownerKey(id))
	if errors.Is(err, storage.ErrKeyNotFound) {
		return common.Address{}, false, nil
	}
	if err != nil {
		return common.Address{}, false, err
	}
	return common.BytesToAddress(data), true, nil
}

func (r *OwnershipRegistry) putUint(key []byte, value uint64) error {
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return err
	}
	return r.db.Put(key, encoded)
}

func (r *OwnershipRegistry) getUint(key []byte, out *uint64) error {
	data, err := r.db.Get(key)
	if err != nil {
		return err
	}
	return rlp.DecodeBytes(data, out)
}
