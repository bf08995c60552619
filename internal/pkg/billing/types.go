package billing

// Stripe event types this service reacts to. Everything else is
// acknowledged and recorded but never touches the membership row.
const (
	EventCheckoutCompleted   = "checkout.session.completed"
	EventSubscriptionDeleted = "customer.subscription.deleted"
)

// CheckoutCompletedEvent is the normalized slice of a
// checkout.session.completed payload the reconciliation path consumes.
type CheckoutCompletedEvent struct {
	EventID          string
	CustomerEmail    string
	StripeCustomerID string
}

// SubscriptionDeletedEvent carries the customer reference whose
// subscription ended; the membership is located by that reference.
type SubscriptionDeletedEvent struct {
	EventID          string
	StripeCustomerID string
}

// WebhookEventInput is the normalized input for webhook event persistence.
type WebhookEventInput struct {
	Provider        string
	ProviderEventID string
	EventType       string
	PayloadJSON     string
	SignatureValid  bool
}
