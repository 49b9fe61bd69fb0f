package billing

import (
	"time"

	"github.com/google/uuid"
)

// TxType defines supported transaction types.
type TxType string

const (
	TxTypePurchase TxType = "purchase"
	TxTypeRefund   TxType = "refund"
	TxTypeBonus    TxType = "bonus"
)

// Status represents transaction status
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusRefunded  Status = "refunded"
)

// Transaction is an append-only ledger row for one credit-affecting checkout
// event. order_id carries the provider's idempotency key; refunds use the
// derived "<order_id>-refund" key so they stay distinct from the purchase.
type Transaction struct {
	ID           uuid.UUID `db:"id" json:"id"`
	OrderID      string    `db:"order_id" json:"order_id"`
	UserID       uuid.UUID `db:"user_id" json:"user_id"`
	Type         TxType    `db:"type" json:"type"`
	CreditsAdded int       `db:"credits_added" json:"credits_added"`
	Amount       float64   `db:"amount" json:"amount"`
	Currency     string    `db:"currency" json:"currency"`
	Status       Status    `db:"status" json:"status"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// RefundOrderID derives the idempotency key for the refund of an order
func RefundOrderID(orderID string) string {
	return orderID + "-refund"
}
