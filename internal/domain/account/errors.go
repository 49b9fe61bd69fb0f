package account

import "errors"

var (
	// ErrAccountNotFound is returned when no ledger row exists for the user
	ErrAccountNotFound = errors.New("account not found")

	ErrInternal = errors.New("internal error")
)
