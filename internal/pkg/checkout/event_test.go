package checkout

import "testing"

func TestParseEvent(t *testing.T) {
	ev, err := ParseEvent([]byte(`{
		"event_type": "purchase.completed",
		"order_id": "ord_100",
		"customer_email": "Buyer@Example.COM",
		"product_id": "prod_monthly",
		"amount": 9.99,
		"currency": "USD",
		"status": "paid",
		"subscription_type": "monthly"
	}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.CustomerEmail != "buyer@example.com" {
		t.Fatalf("expected email normalized to lowercase, got %q", ev.CustomerEmail)
	}
	if !ev.IsSubscriptionGrant() {
		t.Fatal("purchase.completed should be a subscription grant")
	}
}

func TestParseEventMissingFields(t *testing.T) {
	if _, err := ParseEvent([]byte(`{"order_id":"ord_1"}`)); err == nil {
		t.Fatal("expected error for missing event_type")
	}
	if _, err := ParseEvent([]byte(`{"event_type":"refund.processed"}`)); err == nil {
		t.Fatal("expected error for missing order_id")
	}
	if _, err := ParseEvent([]byte(`not-json`)); err == nil {
		t.Fatal("expected error for malformed body")
	}
}
