package credit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const queryTimeout = 3 * time.Second

type Repository interface {
	Consume(ctx context.Context, userID uuid.UUID, amount int) (int, error)
	Release(ctx context.Context, userID uuid.UUID, amount int) error
	Available(ctx context.Context, userID uuid.UUID) (int, error)
}

// GuardRepository implements the balance check-and-debit against the
// accounts table.
type GuardRepository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *GuardRepository {
	return &GuardRepository{db: db}
}

// Consume debits the balance iff it covers the amount. The check and the
// increment are one statement, so two concurrent requests can never both
// pass the balance check — the WHERE clause re-evaluates under the row lock.
// Returns the available balance after the debit, or ErrInsufficientCredits.
func (r *GuardRepository) Consume(ctx context.Context, userID uuid.UUID, amount int) (int, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}

	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var availableAfter int
	err := r.db.GetContext(ctx2, &availableAfter, `
		UPDATE accounts
		SET used_credits = used_credits + $2, updated_at = NOW()
		WHERE user_id = $1 AND total_credits - used_credits >= $2
		RETURNING total_credits - used_credits
	`, userID, amount)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Either no account or not enough balance; disambiguate for the caller.
			if _, availErr := r.Available(ctx, userID); availErr != nil {
				return 0, availErr
			}
			return 0, ErrInsufficientCredits
		}
		return 0, fmt.Errorf("%w: consume credits", ErrInternal)
	}

	return availableAfter, nil
}

// Release reverses a debit after a failed paid operation. used_credits is
// floored at zero so a stray double-release cannot corrupt the ledger.
func (r *GuardRepository) Release(ctx context.Context, userID uuid.UUID, amount int) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}

	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	result, err := r.db.ExecContext(ctx2, `
		UPDATE accounts
		SET used_credits = GREATEST(used_credits - $2, 0), updated_at = NOW()
		WHERE user_id = $1
	`, userID, amount)
	if err != nil {
		return fmt.Errorf("%w: release credits", ErrInternal)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: rows affected", ErrInternal)
	}
	if rows == 0 {
		return ErrAccountNotFound
	}

	return nil
}

// Available returns the current spendable balance
func (r *GuardRepository) Available(ctx context.Context, userID uuid.UUID) (int, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var available int
	err := r.db.GetContext(ctx2, &available, `
		SELECT total_credits - used_credits FROM accounts WHERE user_id = $1
	`, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrAccountNotFound
		}
		return 0, fmt.Errorf("%w: get available", ErrInternal)
	}

	return available, nil
}
