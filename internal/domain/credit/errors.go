package credit

import "errors"

var (
	// ErrInsufficientCredits is returned when the available balance cannot
	// cover the requested amount. This is a normal negative outcome, not a
	// fault — handlers surface it as a purchase prompt.
	ErrInsufficientCredits = errors.New("insufficient credits")

	// ErrInvalidAmount is returned when amount is <= 0
	ErrInvalidAmount = errors.New("invalid amount: must be greater than 0")

	// ErrAccountNotFound is returned when no ledger exists for the user
	ErrAccountNotFound = errors.New("account not found")

	ErrInternal = errors.New("internal error")
)
