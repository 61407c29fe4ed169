package events

import (
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
)

const (
	// TypeTokenMinted is emitted when a new loyalty token is assigned to a
	// recipient.
	TypeTokenMinted = "loyalty.token.minted"
	// TypeTokenBurned is emitted when a loyalty token is irreversibly
	// retired.
	TypeTokenBurned = "loyalty.token.burned"
	// TypeRewardsDistributed is emitted once per distribution round after
	// all holder balances have been credited.
	TypeRewardsDistributed = "loyalty.rewards.distributed"
	// TypeTransferabilityChanged is emitted when the authority toggles the
	// global transferability flag.
	TypeTransferabilityChanged = "loyalty.transferability.changed"
)

// TokenMinted captures the assignment of a fresh token identifier.
type TokenMinted struct {
	Recipient common.Address
	TokenID   uint64
}

// EventType implements the Event interface.
func (TokenMinted) EventType() string { return TypeTokenMinted }

// Attributes implements the Event interface.
func (e TokenMinted) Attributes() map[string]string {
	return map[string]string{
		"recipient": e.Recipient.Hex(),
		"tokenId":   strconv.FormatUint(e.TokenID, 10),
	}
}

// TokenBurned captures the retirement of a token by its owner or an approved
// delegate.
type TokenBurned struct {
	Caller  common.Address
	TokenID uint64
}

// EventType implements the Event interface.
func (TokenBurned) EventType() string { return TypeTokenBurned }

// Attributes implements the Event interface.
func (e TokenBurned) Attributes() map[string]string {
	return map[string]string{
		"caller":  e.Caller.Hex(),
		"tokenId": strconv.FormatUint(e.TokenID, 10),
	}
}

// RewardsDistributed is the single aggregate notification for one distribution
// round. Pool is the submitted amount, not the amount actually credited; the
// floor-division remainder is discarded by policy.
type RewardsDistributed struct {
	Origin common.Address
	Pool   *big.Int
}

// EventType implements the Event interface.
func (RewardsDistributed) EventType() string { return TypeRewardsDistributed }

// Attributes implements the Event interface.
func (e RewardsDistributed) Attributes() map[string]string {
	pool := "0"
	if e.Pool != nil {
		pool = e.Pool.String()
	}
	return map[string]string{
		"origin": e.Origin.Hex(),
		"amount": pool,
	}
}

// TransferabilityChanged records the new value of the global transfer flag.
type TransferabilityChanged struct {
	Caller       common.Address
	Transferable bool
}

// EventType implements the Event interface.
func (TransferabilityChanged) EventType() string { return TypeTransferabilityChanged }

// Attributes implements the Event interface.
func (e TransferabilityChanged) Attributes() map[string]string {
	return map[string]string{
		"caller":       e.Caller.Hex(),
		"transferable": strconv.FormatBool(e.Transferable),
	}
}
