package billing

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const queryTimeout = 3 * time.Second

// Repository is the read/append surface the billing handler depends on
type Repository interface {
	Append(ctx context.Context, t *Transaction) (inserted bool, err error)
	FindByOrderID(ctx context.Context, orderID string) (*Transaction, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Transaction, error)
}

// TransactionRepository is the append-only transaction log. No update or
// delete is exposed; the unique constraint on order_id is the replay guard.
type TransactionRepository struct {
	db sqlx.ExtContext
}

func NewRepository(db *sqlx.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// WithTx returns a repository bound to an open transaction
func (r *TransactionRepository) WithTx(tx *sqlx.Tx) *TransactionRepository {
	return &TransactionRepository{db: tx}
}

// Append inserts a transaction. A duplicate order_id is not an error: the
// provider redelivers events, and the constraint violation is the signal
// that this one was already processed.
func (r *TransactionRepository) Append(ctx context.Context, t *Transaction) (bool, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}

	_, err := r.db.ExecContext(ctx2, `
		INSERT INTO transactions (id, order_id, user_id, type, credits_added, amount, currency, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, t.ID, t.OrderID, t.UserID, t.Type, t.CreditsAdded, t.Amount, t.Currency, t.Status, t.CreatedAt)
	if err != nil {
		if strings.Contains(err.Error(), "duplicate key value violates unique constraint") {
			return false, nil
		}
		return false, fmt.Errorf("%w: append transaction", ErrInternal)
	}

	return true, nil
}

// FindByOrderID returns the transaction for an order, or nil if none exists
func (r *TransactionRepository) FindByOrderID(ctx context.Context, orderID string) (*Transaction, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var t Transaction
	err := sqlx.GetContext(ctx2, r.db, &t, `
		SELECT id, order_id, user_id, type, credits_added, amount, currency, status, created_at
		FROM transactions
		WHERE order_id = $1
	`, orderID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: find transaction", ErrInternal)
	}

	return &t, nil
}

// ListByUser returns a user's transaction history, newest first
func (r *TransactionRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Transaction, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	if limit <= 0 {
		limit = 20
	}

	transactions := make([]Transaction, 0)
	err := sqlx.SelectContext(ctx2, r.db, &transactions, `
		SELECT id, order_id, user_id, type, credits_added, amount, currency, status, created_at
		FROM transactions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%w: list transactions", ErrInternal)
	}

	return transactions, nil
}
