package account

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// SubscriptionStatus matches the subscription_status enum
type SubscriptionStatus string

const (
	SubscriptionInactive  SubscriptionStatus = "inactive"
	SubscriptionActive    SubscriptionStatus = "active"
	SubscriptionCancelled SubscriptionStatus = "cancelled"
	SubscriptionPastDue   SubscriptionStatus = "past_due"
)

// SubscriptionType matches the subscription_type enum
type SubscriptionType string

const (
	SubscriptionMonthly SubscriptionType = "monthly"
	SubscriptionYearly  SubscriptionType = "yearly"
)

// Account is the per-user credit ledger root.
// total_credits and used_credits only move through Repository.Adjust so the
// available balance can never be raced below zero by concurrent spends.
type Account struct {
	UserID             uuid.UUID          `db:"user_id"`
	Email              string             `db:"email"`
	TotalCredits       int                `db:"total_credits"`
	UsedCredits        int                `db:"used_credits"`
	SubscriptionStatus SubscriptionStatus `db:"subscription_status"`
	SubscriptionType   sql.NullString     `db:"subscription_type"`
	CreatedAt          time.Time          `db:"created_at"`
	UpdatedAt          time.Time          `db:"updated_at"`
}

// Available returns the spendable balance. It can be negative after a refund
// reverses credits the user already spent; callers treat anything below one
// as "no credits".
func (a *Account) Available() int {
	return a.TotalCredits - a.UsedCredits
}

// HasActiveSubscription returns true if the account has a live subscription
func (a *Account) HasActiveSubscription() bool {
	return a.SubscriptionStatus == SubscriptionActive
}

// IsValidSubscriptionType checks a payload-supplied subscription type
func IsValidSubscriptionType(raw string) bool {
	switch SubscriptionType(raw) {
	case SubscriptionMonthly, SubscriptionYearly:
		return true
	}
	return false
}
