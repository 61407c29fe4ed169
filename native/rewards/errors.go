package rewards

import "errors"

var (
	ErrInvalidPool    = errors.New("rewards: pool must be positive")
	ErrNoTokensMinted = errors.New("rewards: no live tokens to distribute to")
)
