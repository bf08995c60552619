package billing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"
	"time"
)

func signStripePayload(payload []byte, secret string, ts time.Time) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.", ts.Unix())
	mac.Write(payload)
	return fmt.Sprintf("t=%d,v1=%s", ts.Unix(), hex.EncodeToString(mac.Sum(nil)))
}

func TestVerifyStripeWebhookSignature(t *testing.T) {
	payload := []byte(`{"id":"evt_1","type":"checkout.session.completed"}`)
	secret := "whsec_test"
	now := time.Now()

	header := signStripePayload(payload, secret, now)
	if !verifyStripeSignatureAt(payload, header, secret, DefaultSignatureTolerance, now) {
		t.Fatalf("expected valid signature to verify")
	}

	if verifyStripeSignatureAt(payload, header, "whsec_other", DefaultSignatureTolerance, now) {
		t.Fatalf("expected wrong secret to fail")
	}
	if verifyStripeSignatureAt([]byte(`{"tampered":true}`), header, secret, DefaultSignatureTolerance, now) {
		t.Fatalf("expected tampered payload to fail")
	}
	if verifyStripeSignatureAt(payload, "", secret, DefaultSignatureTolerance, now) {
		t.Fatalf("expected missing header to fail")
	}
	if verifyStripeSignatureAt(payload, header, "", DefaultSignatureTolerance, now) {
		t.Fatalf("expected missing secret to fail")
	}
}

func TestVerifyStripeWebhookSignature_Tolerance(t *testing.T) {
	payload := []byte(`{}`)
	secret := "whsec_test"
	signedAt := time.Now().Add(-10 * time.Minute)

	header := signStripePayload(payload, secret, signedAt)
	if verifyStripeSignatureAt(payload, header, secret, DefaultSignatureTolerance, time.Now()) {
		t.Fatalf("expected stale timestamp to be rejected")
	}
	if !verifyStripeSignatureAt(payload, header, secret, 15*time.Minute, time.Now()) {
		t.Fatalf("expected wider tolerance to accept")
	}
}

func TestVerifyStripeWebhookSignature_MultipleV1(t *testing.T) {
	payload := []byte(`{"id":"evt_2"}`)
	secret := "whsec_test"
	now := time.Now()

	valid := signStripePayload(payload, secret, now)
	// Prepend a bogus v1 entry; Stripe sends several during secret rolls.
	header := fmt.Sprintf("t=%d,v1=%s,%s", now.Unix(), "deadbeef", valid[len(fmt.Sprintf("t=%d,", now.Unix())):])
	if !verifyStripeSignatureAt(payload, header, secret, DefaultSignatureTolerance, now) {
		t.Fatalf("expected any matching v1 entry to verify")
	}
}
