package checkout

import "testing"

func TestVerifySignature(t *testing.T) {
	payload := []byte(`{"event_type":"purchase.completed","order_id":"ord_1"}`)
	secret := "whsec_test"

	sig := GenerateSignature(payload, secret)
	if sig == "" {
		t.Fatal("expected non-empty signature")
	}

	if !VerifySignature(payload, sig, secret) {
		t.Fatal("expected signature to verify")
	}
}

func TestVerifySignatureMismatch(t *testing.T) {
	payload := []byte(`{"order_id":"ord_1"}`)
	sig := GenerateSignature(payload, "whsec_test")

	if VerifySignature([]byte(`{"order_id":"ord_2"}`), sig, "whsec_test") {
		t.Fatal("expected tampered payload to fail verification")
	}
	if VerifySignature(payload, sig, "other_secret") {
		t.Fatal("expected wrong secret to fail verification")
	}
}

func TestVerifySignatureFailsClosed(t *testing.T) {
	payload := []byte(`{}`)

	if VerifySignature(payload, GenerateSignature(payload, "s"), "") {
		t.Fatal("empty secret must reject all events")
	}
	if VerifySignature(payload, "", "s") {
		t.Fatal("missing signature must be rejected")
	}
	if VerifySignature(payload, "not-hex!", "s") {
		t.Fatal("malformed signature must be rejected")
	}
}
