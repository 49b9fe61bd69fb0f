package billing

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/ylayali/personalisedcolpage/internal/domain/account"
	"github.com/ylayali/personalisedcolpage/internal/pkg/checkout"
)

type fakeTransactionStore struct {
	byOrderID map[string]*Transaction
	appendErr error
}

func newFakeTransactionStore() *fakeTransactionStore {
	return &fakeTransactionStore{byOrderID: make(map[string]*Transaction)}
}

func (f *fakeTransactionStore) Append(_ context.Context, t *Transaction) (bool, error) {
	if f.appendErr != nil {
		return false, f.appendErr
	}
	if _, exists := f.byOrderID[t.OrderID]; exists {
		return false, nil
	}
	cp := *t
	cp.ID = uuid.New()
	f.byOrderID[t.OrderID] = &cp
	return true, nil
}

func (f *fakeTransactionStore) FindByOrderID(_ context.Context, orderID string) (*Transaction, error) {
	t, ok := f.byOrderID[orderID]
	if !ok {
		return nil, nil
	}
	return t, nil
}

type fakeAccountStore struct {
	byEmail   map[string]*account.Account
	adjustErr error
}

func newFakeAccountStore() *fakeAccountStore {
	return &fakeAccountStore{byEmail: make(map[string]*account.Account)}
}

func (f *fakeAccountStore) add(email string, total, used int) *account.Account {
	acct := &account.Account{
		UserID:             uuid.New(),
		Email:              email,
		TotalCredits:       total,
		UsedCredits:        used,
		SubscriptionStatus: account.SubscriptionInactive,
	}
	f.byEmail[strings.ToLower(email)] = acct
	return acct
}

func (f *fakeAccountStore) GetByEmail(_ context.Context, email string) (*account.Account, error) {
	acct, ok := f.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, account.ErrAccountNotFound
	}
	return acct, nil
}

func (f *fakeAccountStore) GetByUserID(_ context.Context, userID uuid.UUID) (*account.Account, error) {
	for _, acct := range f.byEmail {
		if acct.UserID == userID {
			return acct, nil
		}
	}
	return nil, account.ErrAccountNotFound
}

func (f *fakeAccountStore) Adjust(_ context.Context, userID uuid.UUID, totalDelta, usedDelta int) (*account.Account, error) {
	if f.adjustErr != nil {
		return nil, f.adjustErr
	}
	acct, err := f.GetByUserID(context.Background(), userID)
	if err != nil {
		return nil, err
	}
	acct.TotalCredits += totalDelta
	if acct.TotalCredits < 0 {
		acct.TotalCredits = 0
	}
	acct.UsedCredits += usedDelta
	if acct.UsedCredits < 0 {
		acct.UsedCredits = 0
	}
	return acct, nil
}

func (f *fakeAccountStore) SetSubscription(_ context.Context, userID uuid.UUID, status account.SubscriptionStatus, subType string) error {
	acct, err := f.GetByUserID(context.Background(), userID)
	if err != nil {
		return err
	}
	acct.SubscriptionStatus = status
	acct.SubscriptionType = sql.NullString{String: subType, Valid: subType != ""}
	return nil
}

// fakeStores mimics the transactional scope: it snapshots both fakes before
// running fn and restores them when fn fails, so partial mutations roll back
// the way a real transaction would.
type fakeStores struct {
	transactions *fakeTransactionStore
	accounts     *fakeAccountStore
}

func (f *fakeStores) Transactions() TransactionStore { return f.transactions }

func (f *fakeStores) Accounts() AccountStore { return f.accounts }

func (f *fakeStores) InTx(_ context.Context, fn func(TransactionStore, AccountStore) error) error {
	txSnap := make(map[string]*Transaction, len(f.transactions.byOrderID))
	for k, v := range f.transactions.byOrderID {
		cp := *v
		txSnap[k] = &cp
	}
	acctSnap := make(map[string]*account.Account, len(f.accounts.byEmail))
	for k, v := range f.accounts.byEmail {
		cp := *v
		acctSnap[k] = &cp
	}
	if err := fn(f.transactions, f.accounts); err != nil {
		f.transactions.byOrderID = txSnap
		f.accounts.byEmail = acctSnap
		return err
	}
	return nil
}

func newTestReconciler(transactions *fakeTransactionStore, accounts *fakeAccountStore) *Reconciler {
	return NewReconciler(&fakeStores{transactions: transactions, accounts: accounts}, Config{
		CreditsPerPurchase: 25,
		ProductCredits:     map[string]int{"pack_50": 50},
	})
}

func TestPurchaseGrantsCredits(t *testing.T) {
	transactions := newFakeTransactionStore()
	accounts := newFakeAccountStore()
	acct := accounts.add("buyer@example.com", 3, 0)

	r := newTestReconciler(transactions, accounts)
	err := r.HandleEvent(context.Background(), &checkout.Event{
		EventType:     checkout.EventPurchaseCompleted,
		OrderID:       "ord_1",
		CustomerEmail: "buyer@example.com",
		Amount:        9.99,
		Currency:      "USD",
	})
	if err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}

	if acct.TotalCredits != 28 {
		t.Errorf("expected 28 total credits, got %d", acct.TotalCredits)
	}
	if acct.SubscriptionStatus != account.SubscriptionActive {
		t.Errorf("expected active subscription, got %s", acct.SubscriptionStatus)
	}
	tx, _ := transactions.FindByOrderID(context.Background(), "ord_1")
	if tx == nil {
		t.Fatal("expected transaction recorded")
	}
	if tx.CreditsAdded != 25 || tx.Type != TxTypePurchase || tx.Status != StatusCompleted {
		t.Errorf("unexpected transaction: %+v", tx)
	}
}

func TestPurchaseUsesProductCatalog(t *testing.T) {
	transactions := newFakeTransactionStore()
	accounts := newFakeAccountStore()
	acct := accounts.add("buyer@example.com", 0, 0)

	r := newTestReconciler(transactions, accounts)
	err := r.HandleEvent(context.Background(), &checkout.Event{
		EventType:     checkout.EventPurchaseCompleted,
		OrderID:       "ord_2",
		CustomerEmail: "buyer@example.com",
		ProductID:     "pack_50",
	})
	if err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	if acct.TotalCredits != 50 {
		t.Errorf("expected 50 credits from catalog, got %d", acct.TotalCredits)
	}
}

func TestDuplicateDeliveryGrantsOnce(t *testing.T) {
	transactions := newFakeTransactionStore()
	accounts := newFakeAccountStore()
	acct := accounts.add("buyer@example.com", 0, 0)

	r := newTestReconciler(transactions, accounts)
	ev := &checkout.Event{
		EventType:     checkout.EventPurchaseCompleted,
		OrderID:       "ord_dup",
		CustomerEmail: "buyer@example.com",
	}
	for i := 0; i < 3; i++ {
		if err := r.HandleEvent(context.Background(), ev); err != nil {
			t.Fatalf("delivery %d: %v", i, err)
		}
	}

	if acct.TotalCredits != 25 {
		t.Errorf("expected a single grant of 25, got %d", acct.TotalCredits)
	}
}

func TestRenewalDoesNotTouchStatus(t *testing.T) {
	transactions := newFakeTransactionStore()
	accounts := newFakeAccountStore()
	acct := accounts.add("buyer@example.com", 10, 2)
	acct.SubscriptionStatus = account.SubscriptionCancelled

	r := newTestReconciler(transactions, accounts)
	err := r.HandleEvent(context.Background(), &checkout.Event{
		EventType:     checkout.EventSubscriptionRenewed,
		OrderID:       "ord_renew",
		CustomerEmail: "buyer@example.com",
	})
	if err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}

	if acct.TotalCredits != 35 {
		t.Errorf("expected 35 credits after renewal, got %d", acct.TotalCredits)
	}
	if acct.SubscriptionStatus != account.SubscriptionCancelled {
		t.Errorf("renewal must not change status, got %s", acct.SubscriptionStatus)
	}
}

func TestCancellationKeepsCredits(t *testing.T) {
	transactions := newFakeTransactionStore()
	accounts := newFakeAccountStore()
	acct := accounts.add("buyer@example.com", 20, 5)
	acct.SubscriptionStatus = account.SubscriptionActive

	r := newTestReconciler(transactions, accounts)
	err := r.HandleEvent(context.Background(), &checkout.Event{
		EventType:     checkout.EventSubscriptionCancelled,
		OrderID:       "ord_cancel",
		CustomerEmail: "buyer@example.com",
	})
	if err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}

	if acct.SubscriptionStatus != account.SubscriptionCancelled {
		t.Errorf("expected cancelled, got %s", acct.SubscriptionStatus)
	}
	if acct.TotalCredits != 20 || acct.UsedCredits != 5 {
		t.Errorf("cancellation must not move credits, got %d/%d", acct.TotalCredits, acct.UsedCredits)
	}
}

func TestRefundReversesOriginalGrant(t *testing.T) {
	transactions := newFakeTransactionStore()
	accounts := newFakeAccountStore()
	acct := accounts.add("buyer@example.com", 0, 0)
	acct.SubscriptionStatus = account.SubscriptionActive

	r := newTestReconciler(transactions, accounts)
	purchase := &checkout.Event{
		EventType:     checkout.EventPurchaseCompleted,
		OrderID:       "ord_ref",
		CustomerEmail: "buyer@example.com",
	}
	if err := r.HandleEvent(context.Background(), purchase); err != nil {
		t.Fatalf("purchase: %v", err)
	}

	// Spend a few before the refund arrives.
	acct.UsedCredits = 10

	refund := &checkout.Event{
		EventType: checkout.EventRefundProcessed,
		OrderID:   "ord_ref",
	}
	if err := r.HandleEvent(context.Background(), refund); err != nil {
		t.Fatalf("refund: %v", err)
	}

	if acct.TotalCredits != 0 {
		t.Errorf("expected total floored at 0, got %d", acct.TotalCredits)
	}
	if acct.UsedCredits != 10 {
		t.Errorf("refund must not rewrite used credits, got %d", acct.UsedCredits)
	}
	if acct.SubscriptionStatus != account.SubscriptionCancelled {
		t.Errorf("expected cancelled after refund, got %s", acct.SubscriptionStatus)
	}

	reversal, _ := transactions.FindByOrderID(context.Background(), RefundOrderID("ord_ref"))
	if reversal == nil {
		t.Fatal("expected refund transaction recorded")
	}
	if reversal.CreditsAdded != -25 || reversal.Type != TxTypeRefund || reversal.Status != StatusRefunded {
		t.Errorf("unexpected reversal: %+v", reversal)
	}
}

func TestDuplicateRefundReversesOnce(t *testing.T) {
	transactions := newFakeTransactionStore()
	accounts := newFakeAccountStore()
	acct := accounts.add("buyer@example.com", 0, 0)

	r := newTestReconciler(transactions, accounts)
	if err := r.HandleEvent(context.Background(), &checkout.Event{
		EventType:     checkout.EventPurchaseCompleted,
		OrderID:       "ord_rr",
		CustomerEmail: "buyer@example.com",
	}); err != nil {
		t.Fatalf("purchase: %v", err)
	}
	acct.TotalCredits = 100

	refund := &checkout.Event{EventType: checkout.EventRefundProcessed, OrderID: "ord_rr"}
	for i := 0; i < 2; i++ {
		if err := r.HandleEvent(context.Background(), refund); err != nil {
			t.Fatalf("refund %d: %v", i, err)
		}
	}

	if acct.TotalCredits != 75 {
		t.Errorf("expected a single reversal of 25, got %d", acct.TotalCredits)
	}
}

func TestRefundForUnknownOrderIsAcknowledged(t *testing.T) {
	transactions := newFakeTransactionStore()
	accounts := newFakeAccountStore()
	acct := accounts.add("buyer@example.com", 10, 0)

	r := newTestReconciler(transactions, accounts)
	err := r.HandleEvent(context.Background(), &checkout.Event{
		EventType: checkout.EventRefundProcessed,
		OrderID:   "ord_never_seen",
	})
	if err != nil {
		t.Fatalf("expected ack, got %v", err)
	}
	if acct.TotalCredits != 10 {
		t.Errorf("unknown refund must not mutate, got %d", acct.TotalCredits)
	}
}

func TestUnknownAccountIsAcknowledged(t *testing.T) {
	transactions := newFakeTransactionStore()
	accounts := newFakeAccountStore()

	r := newTestReconciler(transactions, accounts)
	err := r.HandleEvent(context.Background(), &checkout.Event{
		EventType:     checkout.EventPurchaseCompleted,
		OrderID:       "ord_3",
		CustomerEmail: "stranger@example.com",
	})
	if err != nil {
		t.Fatalf("expected ack for unknown account, got %v", err)
	}
	if len(transactions.byOrderID) != 0 {
		t.Error("no transaction should be recorded for an unknown account")
	}
}

func TestUnrecognizedEventTypeIsAcknowledged(t *testing.T) {
	transactions := newFakeTransactionStore()
	accounts := newFakeAccountStore()
	accounts.add("buyer@example.com", 5, 0)

	r := newTestReconciler(transactions, accounts)
	err := r.HandleEvent(context.Background(), &checkout.Event{
		EventType:     "invoice.finalized",
		OrderID:       "ord_4",
		CustomerEmail: "buyer@example.com",
	})
	if err != nil {
		t.Fatalf("expected ack for unknown type, got %v", err)
	}
	if len(transactions.byOrderID) != 0 {
		t.Error("unknown events must not be recorded")
	}
}

func TestTransientGrantFailureHealsOnRedelivery(t *testing.T) {
	transactions := newFakeTransactionStore()
	accounts := newFakeAccountStore()
	accounts.add("buyer@example.com", 0, 0)
	accounts.adjustErr = errors.New("connection reset")

	r := newTestReconciler(transactions, accounts)
	ev := &checkout.Event{
		EventType:     checkout.EventPurchaseCompleted,
		OrderID:       "ord_retry",
		CustomerEmail: "buyer@example.com",
	}
	if err := r.HandleEvent(context.Background(), ev); err == nil {
		t.Fatal("expected error so the provider redelivers")
	}

	// The failed grant must roll the idempotency row back with it, or the
	// redelivery would dead-end as a duplicate and the credits stay lost.
	if tx, _ := transactions.FindByOrderID(context.Background(), "ord_retry"); tx != nil {
		t.Fatal("transaction row must not survive a failed grant")
	}

	accounts.adjustErr = nil
	if err := r.HandleEvent(context.Background(), ev); err != nil {
		t.Fatalf("redelivery: %v", err)
	}

	acct, err := accounts.GetByEmail(context.Background(), "buyer@example.com")
	if err != nil {
		t.Fatalf("GetByEmail: %v", err)
	}
	if acct.TotalCredits != 25 {
		t.Errorf("expected redelivery to grant 25 credits, got %d", acct.TotalCredits)
	}
	if tx, _ := transactions.FindByOrderID(context.Background(), "ord_retry"); tx == nil {
		t.Error("expected transaction recorded after redelivery")
	}
}

func TestRefundNamingRefundRowIsAcknowledged(t *testing.T) {
	transactions := newFakeTransactionStore()
	accounts := newFakeAccountStore()
	accounts.add("buyer@example.com", 0, 0)

	r := newTestReconciler(transactions, accounts)
	if err := r.HandleEvent(context.Background(), &checkout.Event{
		EventType:     checkout.EventPurchaseCompleted,
		OrderID:       "ord_rev",
		CustomerEmail: "buyer@example.com",
	}); err != nil {
		t.Fatalf("purchase: %v", err)
	}
	if err := r.HandleEvent(context.Background(), &checkout.Event{
		EventType: checkout.EventRefundProcessed,
		OrderID:   "ord_rev",
	}); err != nil {
		t.Fatalf("refund: %v", err)
	}

	// A refund event naming the reversal row must not negate the negative
	// grant and hand the credits back.
	if err := r.HandleEvent(context.Background(), &checkout.Event{
		EventType: checkout.EventRefundProcessed,
		OrderID:   RefundOrderID("ord_rev"),
	}); err != nil {
		t.Fatalf("expected ack for refund of a refund, got %v", err)
	}

	acct, err := accounts.GetByEmail(context.Background(), "buyer@example.com")
	if err != nil {
		t.Fatalf("GetByEmail: %v", err)
	}
	if acct.TotalCredits != 0 {
		t.Errorf("refund of a refund must not re-grant credits, got %d", acct.TotalCredits)
	}
	if len(transactions.byOrderID) != 2 {
		t.Errorf("expected only the purchase and its reversal, got %d rows", len(transactions.byOrderID))
	}
}
