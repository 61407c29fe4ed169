package token

import "errors"

var (
	ErrUnauthorized     = errors.New("token: unauthorized")
	ErrInvalidRecipient = errors.New("token: invalid recipient")
	ErrForbidden        = errors.New("token: caller neither owner nor approved")
	ErrAlreadyBurnt     = errors.New("token: already burnt")
)
