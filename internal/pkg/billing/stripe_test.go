package billing

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"
)

func TestParseWebhookEvent_CheckoutCompleted(t *testing.T) {
	raw := []byte(`{
		"id": "evt_123",
		"type": "checkout.session.completed",
		"data": {
			"object": {
				"customer": "cus_123",
				"client_reference_id": "fallback@example.com",
				"customer_details": { "email": "alice@example.com" }
			}
		}
	}`)

	ev, err := ParseWebhookEvent(raw)
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	if ev.ID != "evt_123" || ev.Type != EventCheckoutCompleted {
		t.Fatalf("unexpected envelope: id=%q type=%q", ev.ID, ev.Type)
	}

	checkout, err := ev.CheckoutCompleted()
	if err != nil {
		t.Fatalf("unexpected decode error: %v", err)
	}
	if checkout.CustomerEmail != "alice@example.com" {
		t.Fatalf("expected billing email to win, got %q", checkout.CustomerEmail)
	}
	if checkout.StripeCustomerID != "cus_123" {
		t.Fatalf("unexpected customer id %q", checkout.StripeCustomerID)
	}
}

func TestParseWebhookEvent_ClientReferenceFallback(t *testing.T) {
	raw := []byte(`{
		"id": "evt_124",
		"type": "checkout.session.completed",
		"data": { "object": { "customer": "cus_124", "client_reference_id": "bob@example.com" } }
	}`)

	ev, err := ParseWebhookEvent(raw)
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	checkout, err := ev.CheckoutCompleted()
	if err != nil {
		t.Fatalf("unexpected decode error: %v", err)
	}
	if checkout.CustomerEmail != "bob@example.com" {
		t.Fatalf("expected client_reference_id fallback, got %q", checkout.CustomerEmail)
	}
}

func TestParseWebhookEvent_NoEmail(t *testing.T) {
	raw := []byte(`{
		"id": "evt_125",
		"type": "checkout.session.completed",
		"data": { "object": { "customer": "cus_125" } }
	}`)

	ev, err := ParseWebhookEvent(raw)
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	if _, err := ev.CheckoutCompleted(); err == nil {
		t.Fatalf("expected error for session without any email")
	}
}

func TestParseWebhookEvent_MissingType(t *testing.T) {
	if _, err := ParseWebhookEvent([]byte(`{"id":"evt_1"}`)); err == nil {
		t.Fatalf("expected error for payload without event type")
	}
}

func newTestStripeClient(handler http.Handler) (*StripeClient, *httptest.Server) {
	srv := httptest.NewServer(handler)
	client := &StripeClient{
		SecretKey:  "sk_test_123",
		APIBaseURL: srv.URL,
		HTTPClient: &http.Client{Timeout: 5 * time.Second},
	}
	return client, srv
}

func TestStripeClient_CreatePortalSession(t *testing.T) {
	var gotForm url.Values
	client, srv := newTestStripeClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/billing_portal/sessions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if user, _, ok := r.BasicAuth(); !ok || user != "sk_test_123" {
			t.Errorf("expected secret key as basic auth user")
		}
		_ = r.ParseForm()
		gotForm = r.PostForm
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"bps_1","url":"https://billing.stripe.com/p/session/test"}`))
	}))
	defer srv.Close()

	session, err := client.CreatePortalSession(context.Background(), "cus_123", "https://akidsy.test/account")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if session.URL == "" {
		t.Fatalf("expected portal url")
	}
	if gotForm.Get("customer") != "cus_123" {
		t.Fatalf("expected customer to be scoped, got %q", gotForm.Get("customer"))
	}
	if gotForm.Get("return_url") != "https://akidsy.test/account" {
		t.Fatalf("unexpected return_url %q", gotForm.Get("return_url"))
	}
}

func TestStripeClient_CreateCheckoutSession(t *testing.T) {
	client, srv := newTestStripeClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		if r.PostForm.Get("mode") != "subscription" {
			t.Errorf("expected subscription mode, got %q", r.PostForm.Get("mode"))
		}
		if r.PostForm.Get("subscription_data[trial_period_days]") != "7" {
			t.Errorf("expected 7 trial days")
		}
		if r.PostForm.Get("client_reference_id") != "alice@example.com" {
			t.Errorf("expected client_reference_id to mirror the email")
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"cs_1","url":"https://checkout.stripe.com/c/pay/test"}`))
	}))
	defer srv.Close()

	session, err := client.CreateCheckoutSession(context.Background(), CheckoutSessionInput{
		PriceID:       "price_123",
		CustomerEmail: "alice@example.com",
		SuccessURL:    "https://akidsy.test/dashboard?success=true",
		CancelURL:     "https://akidsy.test/?canceled=true",
		TrialDays:     7,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if session.URL == "" {
		t.Fatalf("expected checkout url")
	}
}

func TestStripeClient_ErrorStatus(t *testing.T) {
	client, srv := newTestStripeClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		_, _ = w.Write([]byte(`{"error":{"message":"no such customer"}}`))
	}))
	defer srv.Close()

	if _, err := client.CreatePortalSession(context.Background(), "cus_missing", "https://akidsy.test/account"); err == nil {
		t.Fatalf("expected error from non-2xx response")
	}
}

func TestStripeClient_MissingSecret(t *testing.T) {
	client := &StripeClient{APIBaseURL: "http://127.0.0.1:0", HTTPClient: http.DefaultClient}
	if _, err := client.CreatePortalSession(context.Background(), "cus_123", "https://akidsy.test/account"); err == nil {
		t.Fatalf("expected error when secret key is not configured")
	}
}
