package billing

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ylayali/personalisedcolpage/internal/domain/account"
)

// TransactionStore is the slice of the transaction log the reconciler needs.
type TransactionStore interface {
	Append(ctx context.Context, t *Transaction) (bool, error)
	FindByOrderID(ctx context.Context, orderID string) (*Transaction, error)
}

// AccountStore is the slice of the account ledger the reconciler needs.
type AccountStore interface {
	GetByEmail(ctx context.Context, email string) (*account.Account, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*account.Account, error)
	Adjust(ctx context.Context, userID uuid.UUID, totalDelta, usedDelta int) (*account.Account, error)
	SetSubscription(ctx context.Context, userID uuid.UUID, status account.SubscriptionStatus, subType string) error
}

// Stores gives the reconciler its two collaborating stores plus an atomic
// scope spanning both. InTx runs fn against transaction-bound stores; any
// error rolls the whole unit back, so a failed ledger mutation also discards
// the idempotency row and a redelivery can heal the event.
type Stores interface {
	Transactions() TransactionStore
	Accounts() AccountStore
	InTx(ctx context.Context, fn func(transactions TransactionStore, accounts AccountStore) error) error
}

type sqlStores struct {
	db           *sqlx.DB
	transactions *TransactionRepository
	accounts     *account.AccountRepository
}

// NewStores wires the postgres-backed stores for the reconciler
func NewStores(db *sqlx.DB) Stores {
	return &sqlStores{
		db:           db,
		transactions: NewRepository(db),
		accounts:     account.NewRepository(db),
	}
}

func (s *sqlStores) Transactions() TransactionStore { return s.transactions }

func (s *sqlStores) Accounts() AccountStore { return s.accounts }

func (s *sqlStores) InTx(ctx context.Context, fn func(TransactionStore, AccountStore) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(s.transactions.WithTx(tx), s.accounts.WithTx(tx)); err != nil {
		return err
	}
	return tx.Commit()
}
