package billing

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/ylayali/personalisedcolpage/internal/domain/account"
	"github.com/ylayali/personalisedcolpage/internal/pkg/checkout"
)

// Config carries the reconciler's explicit configuration — injected at
// construction so tests can supply fixtures instead of ambient state.
type Config struct {
	// ProductCredits maps provider product IDs to the credits they grant.
	ProductCredits map[string]int
	// CreditsPerPurchase is the grant for products not in the catalog.
	CreditsPerPurchase int
}

// Reconciler translates verified checkout events into ledger and
// transaction-log mutations. Every credit-moving event runs its append and
// its ledger adjustment in one atomic unit.
type Reconciler struct {
	stores Stores
	cfg    Config
}

// NewReconciler creates a webhook reconciler
func NewReconciler(stores Stores, cfg Config) *Reconciler {
	if cfg.CreditsPerPurchase <= 0 {
		cfg.CreditsPerPurchase = 25
	}
	return &Reconciler{stores: stores, cfg: cfg}
}

// HandleEvent applies one already-verified checkout event. A nil return
// acknowledges the delivery; an error tells the caller to answer with a
// failure status so the provider redelivers. Events that can never succeed
// (unknown account, unknown refund order, unrecognized type) are logged and
// acknowledged — failing them would make the provider retry forever.
func (r *Reconciler) HandleEvent(ctx context.Context, ev *checkout.Event) error {
	switch ev.EventType {
	case checkout.EventPurchaseCompleted, checkout.EventSubscriptionCreated:
		return r.applyGrant(ctx, ev, true)
	case checkout.EventSubscriptionRenewed:
		return r.applyGrant(ctx, ev, false)
	case checkout.EventSubscriptionCancelled:
		return r.applyCancellation(ctx, ev)
	case checkout.EventRefundProcessed:
		return r.applyRefund(ctx, ev)
	default:
		log.Info().
			Str("event_type", ev.EventType).
			Str("order_id", ev.OrderID).
			Msg("ignoring unrecognized checkout event")
		return nil
	}
}

// applyGrant credits a purchase or renewal. activate additionally marks the
// subscription active (first purchase); renewals leave status untouched.
// The append and the grant share one transaction: a store failure rolls the
// idempotency row back so the redelivery applies the event in full.
func (r *Reconciler) applyGrant(ctx context.Context, ev *checkout.Event, activate bool) error {
	acct, err := r.resolveAccount(ctx, ev)
	if err != nil || acct == nil {
		return err
	}

	credits := r.creditsForProduct(ev.ProductID)

	var duplicate bool
	err = r.stores.InTx(ctx, func(transactions TransactionStore, accounts AccountStore) error {
		inserted, err := transactions.Append(ctx, &Transaction{
			OrderID:      ev.OrderID,
			UserID:       acct.UserID,
			Type:         TxTypePurchase,
			CreditsAdded: credits,
			Amount:       ev.Amount,
			Currency:     ev.Currency,
			Status:       StatusCompleted,
		})
		if err != nil {
			return fmt.Errorf("append purchase %s: %w", ev.OrderID, err)
		}
		if !inserted {
			duplicate = true
			return nil
		}

		if _, err := accounts.Adjust(ctx, acct.UserID, credits, 0); err != nil {
			return fmt.Errorf("grant credits for %s: %w", ev.OrderID, err)
		}

		if activate {
			subType := ev.SubscriptionType
			if !account.IsValidSubscriptionType(subType) {
				subType = ""
			}
			if err := accounts.SetSubscription(ctx, acct.UserID, account.SubscriptionActive, subType); err != nil {
				return fmt.Errorf("activate subscription for %s: %w", ev.OrderID, err)
			}
		}
		return nil
	})
	if err != nil {
		log.Error().Err(err).
			Str("order_id", ev.OrderID).
			Str("user_id", acct.UserID.String()).
			Int("credits", credits).
			Msg("checkout grant rolled back, awaiting redelivery")
		return err
	}
	if duplicate {
		log.Info().
			Str("order_id", ev.OrderID).
			Str("user_id", acct.UserID.String()).
			Msg("duplicate checkout event, already processed")
		return nil
	}

	log.Info().
		Str("order_id", ev.OrderID).
		Str("user_id", acct.UserID.String()).
		Int("credits", credits).
		Str("event_type", ev.EventType).
		Msg("checkout purchase reconciled")
	return nil
}

func (r *Reconciler) applyCancellation(ctx context.Context, ev *checkout.Event) error {
	acct, err := r.resolveAccount(ctx, ev)
	if err != nil || acct == nil {
		return err
	}

	// Status change only; the user keeps credits already granted.
	if err := r.stores.Accounts().SetSubscription(ctx, acct.UserID, account.SubscriptionCancelled, acct.SubscriptionType.String); err != nil {
		return fmt.Errorf("cancel subscription for %s: %w", ev.OrderID, err)
	}

	log.Info().
		Str("order_id", ev.OrderID).
		Str("user_id", acct.UserID.String()).
		Msg("subscription cancelled")
	return nil
}

func (r *Reconciler) applyRefund(ctx context.Context, ev *checkout.Event) error {
	original, err := r.stores.Transactions().FindByOrderID(ctx, ev.OrderID)
	if err != nil {
		return fmt.Errorf("lookup refund original %s: %w", ev.OrderID, err)
	}
	if original == nil {
		log.Warn().
			Str("order_id", ev.OrderID).
			Msg("refund for unknown order, acknowledging without mutation")
		return nil
	}
	// Only purchases reverse. A refund event naming a refund row would
	// negate the negative grant and re-credit the account.
	if original.Type != TxTypePurchase {
		log.Warn().
			Str("order_id", ev.OrderID).
			Str("type", string(original.Type)).
			Msg("refund for non-purchase transaction, acknowledging without mutation")
		return nil
	}

	var duplicate bool
	err = r.stores.InTx(ctx, func(transactions TransactionStore, accounts AccountStore) error {
		inserted, err := transactions.Append(ctx, &Transaction{
			OrderID:      RefundOrderID(ev.OrderID),
			UserID:       original.UserID,
			Type:         TxTypeRefund,
			CreditsAdded: -original.CreditsAdded,
			Amount:       ev.Amount,
			Currency:     ev.Currency,
			Status:       StatusRefunded,
		})
		if err != nil {
			return fmt.Errorf("append refund %s: %w", ev.OrderID, err)
		}
		if !inserted {
			duplicate = true
			return nil
		}

		// The ledger floors total_credits at zero, so the reversal removes
		// at most what the account still holds.
		if _, err := accounts.Adjust(ctx, original.UserID, -original.CreditsAdded, 0); err != nil {
			return fmt.Errorf("reverse credits for %s: %w", ev.OrderID, err)
		}

		subType := ""
		if acct, err := accounts.GetByUserID(ctx, original.UserID); err == nil && acct.SubscriptionType.Valid {
			subType = acct.SubscriptionType.String
		}
		if err := accounts.SetSubscription(ctx, original.UserID, account.SubscriptionCancelled, subType); err != nil {
			return fmt.Errorf("cancel subscription after refund %s: %w", ev.OrderID, err)
		}
		return nil
	})
	if err != nil {
		log.Error().Err(err).
			Str("order_id", ev.OrderID).
			Str("user_id", original.UserID.String()).
			Int("credits", original.CreditsAdded).
			Msg("refund rolled back, awaiting redelivery")
		return err
	}
	if duplicate {
		log.Info().
			Str("order_id", ev.OrderID).
			Str("user_id", original.UserID.String()).
			Msg("duplicate refund event, already processed")
		return nil
	}

	log.Info().
		Str("order_id", ev.OrderID).
		Str("user_id", original.UserID.String()).
		Int("credits_reversed", original.CreditsAdded).
		Msg("refund reconciled")
	return nil
}

// resolveAccount maps the event's customer email to a ledger account.
// A nil account with nil error means "acknowledge without mutation".
func (r *Reconciler) resolveAccount(ctx context.Context, ev *checkout.Event) (*account.Account, error) {
	if ev.CustomerEmail == "" {
		log.Warn().
			Str("event_type", ev.EventType).
			Str("order_id", ev.OrderID).
			Msg("checkout event without customer email, acknowledging")
		return nil, nil
	}

	acct, err := r.stores.Accounts().GetByEmail(ctx, ev.CustomerEmail)
	if err != nil {
		if errors.Is(err, account.ErrAccountNotFound) {
			log.Warn().
				Str("event_type", ev.EventType).
				Str("order_id", ev.OrderID).
				Str("customer_email", ev.CustomerEmail).
				Msg("no account for checkout event, acknowledging")
			return nil, nil
		}
		return nil, fmt.Errorf("resolve account for %s: %w", ev.OrderID, err)
	}

	return acct, nil
}

func (r *Reconciler) creditsForProduct(productID string) int {
	if credits, ok := r.cfg.ProductCredits[productID]; ok && credits > 0 {
		return credits
	}
	return r.cfg.CreditsPerPurchase
}
