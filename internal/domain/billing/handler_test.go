package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ylayali/personalisedcolpage/internal/pkg/checkout"
)

const testWebhookSecret = "whsec_test"

func newWebhookTest(t *testing.T) (*Handler, *fakeTransactionStore, *fakeAccountStore) {
	t.Helper()
	transactions := newFakeTransactionStore()
	accounts := newFakeAccountStore()
	reconciler := newTestReconciler(transactions, accounts)
	return NewHandler(reconciler, nil, testWebhookSecret), transactions, accounts
}

func postWebhook(h *Handler, body []byte, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhooks/checkout", bytes.NewReader(body))
	if signature != "" {
		req.Header.Set(checkout.SignatureHeader, signature)
	}
	rec := httptest.NewRecorder()
	h.Webhook(rec, req)
	return rec
}

func TestWebhookValidSignature(t *testing.T) {
	h, transactions, accounts := newWebhookTest(t)
	acct := accounts.add("buyer@example.com", 0, 0)

	body, _ := json.Marshal(map[string]interface{}{
		"event_type":     checkout.EventPurchaseCompleted,
		"order_id":       "ord_http",
		"customer_email": "buyer@example.com",
		"amount":         9.99,
		"currency":       "USD",
	})
	rec := postWebhook(h, body, checkout.GenerateSignature(body, testWebhookSecret))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if acct.TotalCredits != 25 {
		t.Errorf("expected grant applied, got %d credits", acct.TotalCredits)
	}
	if tx, _ := transactions.FindByOrderID(context.Background(), "ord_http"); tx == nil {
		t.Error("expected transaction recorded")
	}
}

func TestWebhookInvalidSignature(t *testing.T) {
	h, transactions, accounts := newWebhookTest(t)
	acct := accounts.add("buyer@example.com", 0, 0)

	body, _ := json.Marshal(map[string]interface{}{
		"event_type":     checkout.EventPurchaseCompleted,
		"order_id":       "ord_bad_sig",
		"customer_email": "buyer@example.com",
	})
	rec := postWebhook(h, body, checkout.GenerateSignature(body, "wrong_secret"))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if acct.TotalCredits != 0 {
		t.Error("rejected webhook must not mutate the ledger")
	}
	if len(transactions.byOrderID) != 0 {
		t.Error("rejected webhook must not record a transaction")
	}
}

func TestWebhookMissingSignature(t *testing.T) {
	h, _, accounts := newWebhookTest(t)
	accounts.add("buyer@example.com", 0, 0)

	body, _ := json.Marshal(map[string]interface{}{
		"event_type": checkout.EventPurchaseCompleted,
		"order_id":   "ord_no_sig",
	})
	rec := postWebhook(h, body, "")

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestWebhookEmptySecretRejectsAll(t *testing.T) {
	transactions := newFakeTransactionStore()
	accounts := newFakeAccountStore()
	h := NewHandler(newTestReconciler(transactions, accounts), nil, "")

	body := []byte(`{"event_type":"purchase.completed","order_id":"ord_x"}`)
	rec := postWebhook(h, body, checkout.GenerateSignature(body, ""))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unconfigured secret must fail closed, got %d", rec.Code)
	}
}

func TestWebhookMalformedPayload(t *testing.T) {
	h, _, _ := newWebhookTest(t)

	body := []byte(`{"order_id":"no_type"}`)
	rec := postWebhook(h, body, checkout.GenerateSignature(body, testWebhookSecret))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestWebhookReconcilerFailure(t *testing.T) {
	transactions := newFakeTransactionStore()
	accounts := newFakeAccountStore()
	accounts.add("buyer@example.com", 0, 0)
	accounts.adjustErr = context.DeadlineExceeded
	h := NewHandler(newTestReconciler(transactions, accounts), nil, testWebhookSecret)

	body, _ := json.Marshal(map[string]interface{}{
		"event_type":     checkout.EventPurchaseCompleted,
		"order_id":       "ord_fail",
		"customer_email": "buyer@example.com",
	})
	rec := postWebhook(h, body, checkout.GenerateSignature(body, testWebhookSecret))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 for redelivery, got %d", rec.Code)
	}
}
