package checkout

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Event types delivered by the checkout provider.
const (
	EventPurchaseCompleted     = "purchase.completed"
	EventSubscriptionCreated   = "subscription.created"
	EventSubscriptionRenewed   = "subscription.renewed"
	EventSubscriptionCancelled = "subscription.cancelled"
	EventRefundProcessed       = "refund.processed"
)

// Event is a parsed checkout webhook notification
type Event struct {
	EventType        string  `json:"event_type"`
	OrderID          string  `json:"order_id"`
	CustomerEmail    string  `json:"customer_email"`
	ProductID        string  `json:"product_id"`
	Amount           float64 `json:"amount"`
	Currency         string  `json:"currency"`
	Status           string  `json:"status"`
	SubscriptionType string  `json:"subscription_type"`
	CreatedAt        string  `json:"created_at"`
}

// ParseEvent decodes a raw webhook body into an Event.
// event_type and order_id are required for every event we act on;
// customer_email is validated per event type by the reconciler.
func ParseEvent(body []byte) (*Event, error) {
	var ev Event
	if err := json.Unmarshal(body, &ev); err != nil {
		return nil, fmt.Errorf("invalid event payload: %w", err)
	}

	ev.EventType = strings.TrimSpace(ev.EventType)
	ev.OrderID = strings.TrimSpace(ev.OrderID)
	ev.CustomerEmail = strings.ToLower(strings.TrimSpace(ev.CustomerEmail))

	if ev.EventType == "" {
		return nil, fmt.Errorf("event_type is required")
	}
	if ev.OrderID == "" {
		return nil, fmt.Errorf("order_id is required")
	}

	return &ev, nil
}

// IsSubscriptionGrant reports whether the event grants credits and activates
// a subscription (first purchase or subscription start).
func (e *Event) IsSubscriptionGrant() bool {
	return e.EventType == EventPurchaseCompleted || e.EventType == EventSubscriptionCreated
}
