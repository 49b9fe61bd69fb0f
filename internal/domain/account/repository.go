package account

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

type Repository interface {
	Ensure(ctx context.Context, userID uuid.UUID, email string, signupCredits int) (*Account, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*Account, error)
	GetByEmail(ctx context.Context, email string) (*Account, error)
	Adjust(ctx context.Context, userID uuid.UUID, totalDelta, usedDelta int) (*Account, error)
	SetSubscription(ctx context.Context, userID uuid.UUID, status SubscriptionStatus, subType string) error
}

// AccountRepository provides ledger rows backed by the accounts table.
type AccountRepository struct {
	db sqlx.ExtContext
}

func NewRepository(db *sqlx.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// WithTx returns a repository bound to an open transaction
func (r *AccountRepository) WithTx(tx *sqlx.Tx) *AccountRepository {
	return &AccountRepository{db: tx}
}

// Ensure creates the ledger row for a newly observed identity. Concurrent
// first requests race on the insert; ON CONFLICT DO NOTHING makes the loser
// fall through to the select, so exactly one row ever exists per user.
func (r *AccountRepository) Ensure(ctx context.Context, userID uuid.UUID, email string, signupCredits int) (*Account, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	if signupCredits < 0 {
		signupCredits = 0
	}

	_, err := r.db.ExecContext(ctx2, `
		INSERT INTO accounts (user_id, email, total_credits, used_credits, subscription_status)
		VALUES ($1, $2, $3, 0, 'inactive')
		ON CONFLICT (user_id) DO NOTHING
	`, userID, strings.ToLower(strings.TrimSpace(email)), signupCredits)
	if err != nil {
		return nil, fmt.Errorf("%w: ensure account", ErrInternal)
	}

	return r.GetByUserID(ctx, userID)
}

func (r *AccountRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*Account, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var a Account
	err := sqlx.GetContext(ctx2, r.db, &a, `
		SELECT user_id, email, total_credits, used_credits, subscription_status, subscription_type, created_at, updated_at
		FROM accounts
		WHERE user_id = $1
	`, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("%w: get account", ErrInternal)
	}

	return &a, nil
}

// GetByEmail resolves the account a checkout event belongs to. The provider
// only knows the customer email, not our user id.
func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*Account, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var a Account
	err := sqlx.GetContext(ctx2, r.db, &a, `
		SELECT user_id, email, total_credits, used_credits, subscription_status, subscription_type, created_at, updated_at
		FROM accounts
		WHERE email = $1
	`, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("%w: get account by email", ErrInternal)
	}

	return &a, nil
}

// Adjust applies credit deltas in a single atomic statement. total_credits is
// floored at zero (a refund larger than the remaining grant cannot drive the
// ledger negative); used_credits is floored at zero but deliberately NOT
// clamped to total_credits — the callers construct deltas that keep that
// invariant, and refunds are allowed to leave available negative.
func (r *AccountRepository) Adjust(ctx context.Context, userID uuid.UUID, totalDelta, usedDelta int) (*Account, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var a Account
	err := sqlx.GetContext(ctx2, r.db, &a, `
		UPDATE accounts
		SET total_credits = GREATEST(total_credits + $2, 0),
		    used_credits  = GREATEST(used_credits + $3, 0),
		    updated_at    = NOW()
		WHERE user_id = $1
		RETURNING user_id, email, total_credits, used_credits, subscription_status, subscription_type, created_at, updated_at
	`, userID, totalDelta, usedDelta)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("%w: adjust account", ErrInternal)
	}

	return &a, nil
}

// SetSubscription updates subscription state without touching credits.
// An empty subType clears the stored type.
func (r *AccountRepository) SetSubscription(ctx context.Context, userID uuid.UUID, status SubscriptionStatus, subType string) error {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	sub := sql.NullString{String: subType, Valid: subType != ""}

	result, err := r.db.ExecContext(ctx2, `
		UPDATE accounts
		SET subscription_status = $2, subscription_type = $3, updated_at = NOW()
		WHERE user_id = $1
	`, userID, status, sub)
	if err != nil {
		return fmt.Errorf("%w: set subscription", ErrInternal)
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
