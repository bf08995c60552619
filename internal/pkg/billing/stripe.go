package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ivarnor/akidsy/internal/pkg/env"
)

const defaultStripeAPIBaseURL = "https://api.stripe.com/v1"

type StripeClient struct {
	SecretKey  string
	APIBaseURL string

	HTTPClient *http.Client
}

// CheckoutSessionInput captures the fields Akidsy sets when starting a
// subscription checkout: one recurring price, 7-day trial, email match.
type CheckoutSessionInput struct {
	PriceID       string
	CustomerEmail string
	SuccessURL    string
	CancelURL     string
	TrialDays     int
}

type CheckoutSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

type PortalSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

type StripePlan struct {
	Amount        int64  `json:"amount"`
	Interval      string `json:"interval"`
	IntervalCount int64  `json:"interval_count"`
}

type StripeSubscriptionItem struct {
	Plan     StripePlan `json:"plan"`
	Quantity int64      `json:"quantity"`
}

type StripeSubscription struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Items  struct {
		Data []StripeSubscriptionItem `json:"data"`
	} `json:"items"`
}

type StripeInvoice struct {
	ID         string `json:"id"`
	Created    int64  `json:"created"`
	AmountPaid int64  `json:"amount_paid"`
	Status     string `json:"status"`
}

// SubscriptionList is one page of GET /v1/subscriptions.
type SubscriptionList struct {
	Data    []StripeSubscription `json:"data"`
	HasMore bool                 `json:"has_more"`
}

// InvoiceList is one page of GET /v1/invoices.
type InvoiceList struct {
	Data    []StripeInvoice `json:"data"`
	HasMore bool            `json:"has_more"`
}

func NewStripeClientFromEnv() *StripeClient {
	return &StripeClient{
		SecretKey:  strings.TrimSpace(env.GetEnv("STRIPE_SECRET_KEY", "")),
		APIBaseURL: strings.TrimRight(env.GetEnv("STRIPE_API_BASE_URL", defaultStripeAPIBaseURL), "/"),
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// CreateCheckoutSession starts a subscription-mode checkout and returns the
// provider-hosted URL to redirect the browser to.
func (c *StripeClient) CreateCheckoutSession(ctx context.Context, in CheckoutSessionInput) (*CheckoutSession, error) {
	if strings.TrimSpace(in.PriceID) == "" || strings.TrimSpace(in.CustomerEmail) == "" {
		return nil, errors.New("price id and customer email are required")
	}

	form := url.Values{}
	form.Set("mode", "subscription")
	form.Set("payment_method_types[0]", "card")
	form.Set("line_items[0][price]", strings.TrimSpace(in.PriceID))
	form.Set("line_items[0][quantity]", "1")
	form.Set("success_url", in.SuccessURL)
	form.Set("cancel_url", in.CancelURL)
	form.Set("customer_email", strings.TrimSpace(in.CustomerEmail))
	// client_reference_id mirrors the account email so the webhook can fall
	// back to it when customer_details is absent.
	form.Set("client_reference_id", strings.TrimSpace(in.CustomerEmail))
	if in.TrialDays > 0 {
		form.Set("subscription_data[trial_period_days]", strconv.Itoa(in.TrialDays))
	}

	var out CheckoutSession
	if err := c.postForm(ctx, "/checkout/sessions", form, &out); err != nil {
		return nil, err
	}
	if strings.TrimSpace(out.URL) == "" {
		return nil, errors.New("stripe checkout session returned empty url")
	}
	return &out, nil
}

// CreatePortalSession issues a time-boxed billing-portal URL scoped to one
// customer. The URL is single-use and expires on the provider's clock.
func (c *StripeClient) CreatePortalSession(ctx context.Context, customerID, returnURL string) (*PortalSession, error) {
	if strings.TrimSpace(customerID) == "" {
		return nil, errors.New("customer id is required")
	}

	form := url.Values{}
	form.Set("customer", strings.TrimSpace(customerID))
	form.Set("return_url", returnURL)

	var out PortalSession
	if err := c.postForm(ctx, "/billing_portal/sessions", form, &out); err != nil {
		return nil, err
	}
	if strings.TrimSpace(out.URL) == "" {
		return nil, errors.New("stripe portal session returned empty url")
	}
	return &out, nil
}

// ListSubscriptions returns one page of subscriptions filtered by status
// and optionally by customer.
func (c *StripeClient) ListSubscriptions(ctx context.Context, customerID, status string, limit int, startingAfter string) (*SubscriptionList, error) {
	q := url.Values{}
	if customerID != "" {
		q.Set("customer", customerID)
	}
	if status != "" {
		q.Set("status", status)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if startingAfter != "" {
		q.Set("starting_after", startingAfter)
	}

	var out SubscriptionList
	if err := c.get(ctx, "/subscriptions", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListPaidInvoices returns one page of paid invoices created at or after
// the given unix timestamp.
func (c *StripeClient) ListPaidInvoices(ctx context.Context, createdGTE int64, limit int, startingAfter string) (*InvoiceList, error) {
	q := url.Values{}
	q.Set("status", "paid")
	if createdGTE > 0 {
		q.Set("created[gte]", strconv.FormatInt(createdGTE, 10))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if startingAfter != "" {
		q.Set("starting_after", startingAfter)
	}

	var out InvoiceList
	if err := c.get(ctx, "/invoices", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *StripeClient) postForm(ctx context.Context, path string, form url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.APIBaseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req, out)
}

func (c *StripeClient) get(ctx context.Context, path string, q url.Values, out interface{}) error {
	u := c.APIBaseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *StripeClient) do(req *http.Request, out interface{}) error {
	if strings.TrimSpace(c.SecretKey) == "" {
		return errors.New("STRIPE_SECRET_KEY is not configured")
	}
	req.SetBasicAuth(c.SecretKey, "")
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("stripe request %s failed: status=%d body=%s", req.URL.Path, resp.StatusCode, string(body))
	}
	return json.Unmarshal(body, out)
}

// ParseWebhookEvent extracts the envelope of a Stripe webhook payload.
type WebhookEvent struct {
	ID     string
	Type   string
	object json.RawMessage
}

func ParseWebhookEvent(payload []byte) (*WebhookEvent, error) {
	var raw struct {
		ID   string `json:"id"`
		Type string `json:"type"`
		Data struct {
			Object json.RawMessage `json:"object"`
		} `json:"data"`
	}
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, err
	}
	if strings.TrimSpace(raw.Type) == "" {
		return nil, errors.New("stripe webhook payload missing event type")
	}
	return &WebhookEvent{
		ID:     strings.TrimSpace(raw.ID),
		Type:   strings.TrimSpace(raw.Type),
		object: raw.Data.Object,
	}, nil
}

// CheckoutCompleted decodes the event's checkout session object. The billing
// email is preferred; client_reference_id is the caller-supplied fallback.
func (e *WebhookEvent) CheckoutCompleted() (*CheckoutCompletedEvent, error) {
	if e.Type != EventCheckoutCompleted {
		return nil, fmt.Errorf("unexpected event type: %s", e.Type)
	}
	var raw struct {
		Customer        string `json:"customer"`
		ClientReference string `json:"client_reference_id"`
		CustomerDetails struct {
			Email string `json:"email"`
		} `json:"customer_details"`
	}
	if err := json.Unmarshal(e.object, &raw); err != nil {
		return nil, err
	}

	email := strings.TrimSpace(raw.CustomerDetails.Email)
	if email == "" {
		email = strings.TrimSpace(raw.ClientReference)
	}
	if email == "" {
		return nil, errors.New("checkout session carries no customer email")
	}

	return &CheckoutCompletedEvent{
		EventID:          e.ID,
		CustomerEmail:    email,
		StripeCustomerID: strings.TrimSpace(raw.Customer),
	}, nil
}

// SubscriptionDeleted decodes the event's subscription object.
func (e *WebhookEvent) SubscriptionDeleted() (*SubscriptionDeletedEvent, error) {
	if e.Type != EventSubscriptionDeleted {
		return nil, fmt.Errorf("unexpected event type: %s", e.Type)
	}
	var raw struct {
		Customer string `json:"customer"`
	}
	if err := json.Unmarshal(e.object, &raw); err != nil {
		return nil, err
	}
	if strings.TrimSpace(raw.Customer) == "" {
		return nil, errors.New("subscription event carries no customer reference")
	}
	return &SubscriptionDeletedEvent{
		EventID:          e.ID,
		StripeCustomerID: strings.TrimSpace(raw.Customer),
	}, nil
}
