package rewards

import "github.com/ethereum/go-ethereum/common"

// ModuleAddress identifies the reward ledger itself as the origin of the
// aggregate RewardsDistributed notification. It is a reserved address that no
// holder can control.
var ModuleAddress = common.BytesToAddress([]byte("loyalty/rewards"))
