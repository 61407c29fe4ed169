package state

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"

	"loyaltyd/storage"
)

const (
	// FirstTokenID is the identifier handed out by the first successful
	// mint. Identifier zero is reserved as the burnt sentinel.
	FirstTokenID uint64 = 1
	// SentinelTokenID is never assigned to a holder. It is pre-marked burnt
	// at initialization so burn-status queries on unminted identifiers
	// behave predictably.
	SentinelTokenID uint64 = 0
)

var (
	keyNextTokenID  = []byte("lifecycle/next-id")
	keyTransferable = []byte("lifecycle/transferable")
)

func burntKey(id uint64) []byte {
	return []byte(fmt.Sprintf("lifecycle/burnt/%020d", id))
}

func rewardKey(addr common.Address) []byte {
	return append([]byte("rewards/balance/"), addr.Bytes()...)
}

// Manager persists the lifecycle counters, per-token burn flags, the global
// transferability flag and the accumulated reward balances on top of a
// key-value database. Values are RLP encoded.
type Manager struct {
	db storage.Database
}

// NewManager wraps the provided database.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

// InitializeLifecycle seeds the identifier counter and the burnt sentinel.
// It is idempotent: reopening an existing data directory resumes the stored
// counter untouched.
func (m *Manager) InitializeLifecycle() error {
	ok, err := m.db.Has(keyNextTokenID)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	if err := m.SetNextTokenID(FirstTokenID); err != nil {
		return err
	}
	return m.SetTokenBurnt(SentinelTokenID)
}

// NextTokenID returns the identifier the next mint will assign.
func (m *Manager) NextTokenID() (uint64, error) {
	var next uint64
	if err := m.getRLP(keyNextTokenID, &next); err != nil {
		return 0, err
	}
	return next, nil
}

// SetNextTokenID overwrites the identifier counter.
func (m *Manager) SetNextTokenID(next uint64) error {
	return m.putRLP(keyNextTokenID, next)
}

// TokenBurnt reports whether the identifier has been burnt. Identifiers that
// were never written read as not burnt.
func (m *Manager) TokenBurnt(id uint64) (bool, error) {
	key := burntKey(id)
	ok, err := m.db.Has(key)
	if err != nil || !ok {
		return false, err
	}
	var burnt bool
	if err := m.getRLP(key, &burnt); err != nil {
		return false, err
	}
	return burnt, nil
}

// SetTokenBurnt marks the identifier burnt. The flag is monotonic; there is no
// operation that clears it.
func (m *Manager) SetTokenBurnt(id uint64) error {
	return m.putRLP(burntKey(id), true)
}

// Transferable reports the current value of the global transfer flag. The flag
// defaults to false until the authority toggles it.
func (m *Manager) Transferable() (bool, error) {
	ok, err := m.db.Has(keyTransferable)
	if err != nil || !ok {
		return false, err
	}
	var transferable bool
	if err := m.getRLP(keyTransferable, &transferable); err != nil {
		return false, err
	}
	return transferable, nil
}

// SetTransferable overwrites the global transfer flag.
func (m *Manager) SetTransferable(transferable bool) error {
	return m.putRLP(keyTransferable, transferable)
}

// RewardBalance returns the accumulated reward balance of the holder. Absent
// holders read as zero; no entry is created by the read.
func (m *Manager) RewardBalance(addr common.Address) (*big.Int, error) {
	key := rewardKey(addr)
	ok, err := m.db.Has(key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return big.NewInt(0), nil
	}
	balance := new(big.Int)
	if err := m.getRLP(key, balance); err != nil {
		return nil, err
	}
	return balance, nil
}

// SetRewardBalance overwrites the holder's accumulated balance.
func (m *Manager) SetRewardBalance(addr common.Address, amount *big.Int) error {
	if amount == nil {
		amount = big.NewInt(0)
	}
	return m.putRLP(rewardKey(addr), amount)
}

func (m *Manager) putRLP(key []byte, value interface{}) error {
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return err
	}
	return m.db.Put(key, encoded)
}

func (m *Manager) getRLP(key []byte, out interface{}) error {
	data, err := m.db.Get(key)
	if err != nil {
		return err
	}
	return rlp.DecodeBytes(data, out)
}
