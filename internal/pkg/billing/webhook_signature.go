package billing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"
)

// DefaultSignatureTolerance bounds how stale a signed webhook timestamp may
// be before the delivery is rejected as a possible replay.
const DefaultSignatureTolerance = 5 * time.Minute

// VerifyStripeWebhookSignature checks a Stripe-Signature header against the
// raw request body. Stripe signs "timestamp.payload" with HMAC-SHA256 and
// sends the result as one or more v1 entries in the header.
func VerifyStripeWebhookSignature(payload []byte, signatureHeader, webhookSecret string) bool {
	return verifyStripeSignatureAt(payload, signatureHeader, webhookSecret, DefaultSignatureTolerance, time.Now())
}

func verifyStripeSignatureAt(payload []byte, signatureHeader, webhookSecret string, tolerance time.Duration, now time.Time) bool {
	header := strings.TrimSpace(signatureHeader)
	secret := strings.TrimSpace(webhookSecret)
	if header == "" || secret == "" {
		return false
	}

	var timestamp int64
	var candidates [][]byte
	for _, part := range strings.Split(header, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "t":
			ts, err := strconv.ParseInt(kv[1], 10, 64)
			if err != nil {
				return false
			}
			timestamp = ts
		case "v1":
			sig, err := hex.DecodeString(strings.ToLower(kv[1]))
			if err != nil {
				continue
			}
			candidates = append(candidates, sig)
		}
	}
	if timestamp == 0 || len(candidates) == 0 {
		return false
	}

	if tolerance > 0 {
		age := now.Sub(time.Unix(timestamp, 0))
		if age > tolerance || age < -tolerance {
			return false
		}
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strconv.FormatInt(timestamp, 10)))
	mac.Write([]byte("."))
	mac.Write(payload)
	expected := mac.Sum(nil)

	for _, sig := range candidates {
		if hmac.Equal(expected, sig) {
			return true
		}
	}
	return false
}
