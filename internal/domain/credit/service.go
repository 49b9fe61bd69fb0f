package credit

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Service is the credit guard gating every paid operation.
type Service interface {
	// TryConsume atomically debits amount credits if the balance covers it.
	// granted=false with a nil error means insufficient balance — the caller
	// must refuse the paid operation without retrying.
	TryConsume(ctx context.Context, userID uuid.UUID, amount int) (granted bool, availableAfter int, err error)

	// Release reverses a debit after the paid operation failed downstream.
	Release(ctx context.Context, userID uuid.UUID, amount int) error

	// Available returns the current spendable balance.
	Available(ctx context.Context, userID uuid.UUID) (int, error)
}

type service struct {
	repo Repository
}

// NewService creates a credit guard backed by the accounts ledger
func NewService(db *sqlx.DB) Service {
	return &service{repo: NewRepository(db)}
}

// NewServiceWithRepository wires an explicit repository (tests)
func NewServiceWithRepository(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) TryConsume(ctx context.Context, userID uuid.UUID, amount int) (bool, int, error) {
	if amount <= 0 {
		return false, 0, ErrInvalidAmount
	}

	availableAfter, err := s.repo.Consume(ctx, userID, amount)
	if err != nil {
		if errors.Is(err, ErrInsufficientCredits) {
			available, availErr := s.repo.Available(ctx, userID)
			if availErr != nil {
				available = 0
			}
			return false, available, nil
		}
		return false, 0, err
	}

	return true, availableAfter, nil
}

func (s *service) Release(ctx context.Context, userID uuid.UUID, amount int) error {
	return s.repo.Release(ctx, userID, amount)
}

func (s *service) Available(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.repo.Available(ctx, userID)
}
