package billing

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"

	"github.com/ivarnor/akidsy/app/models"
	"gorm.io/gorm"
)

// ErrNoCustomerRef is returned when a portal capability is requested for a
// membership that never completed a checkout. There is nothing to manage.
var ErrNoCustomerRef = errors.New("membership has no billing customer reference")

// Service reconciles payment-provider lifecycle events into the durable
// membership record and answers entitlement reads.
type Service struct {
	repo Repository
}

// NewService creates a billing service from an injected repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// NewServiceFromDB creates a billing service from a GORM DB handle.
func NewServiceFromDB(db *gorm.DB) *Service {
	return NewService(NewRepository(db))
}

// ApplyCheckoutCompleted flips the membership located by the event's email
// to an entitled trial. All writes are absolute values, so redelivering the
// same event is harmless. A missing membership returns
// gorm.ErrRecordNotFound; the webhook handler acknowledges that case
// instead of failing, because the provider would retry forever against an
// unrecoverable mismatch.
func (s *Service) ApplyCheckoutCompleted(ctx context.Context, ev *CheckoutCompletedEvent) (*models.Membership, error) {
	_ = ctx
	email := strings.TrimSpace(ev.CustomerEmail)
	if email == "" {
		return nil, errors.New("customer email is required")
	}

	m, err := s.repo.GetMembershipByEmail(email)
	if err != nil {
		return nil, err
	}

	m.IsMember = true
	m.SubscriptionStatus = models.SubscriptionStatusTrialing
	// The customer reference, once set, is never cleared.
	if ref := strings.TrimSpace(ev.StripeCustomerID); ref != "" {
		m.StripeCustomerID = ref
	}
	if err := s.repo.SaveMembership(m); err != nil {
		return nil, err
	}
	return m, nil
}

// ApplySubscriptionDeleted ends entitlement for the membership holding the
// event's customer reference. The reference itself is kept for idempotent
// re-reconciliation and later portal access.
func (s *Service) ApplySubscriptionDeleted(ctx context.Context, ev *SubscriptionDeletedEvent) (*models.Membership, error) {
	_ = ctx
	ref := strings.TrimSpace(ev.StripeCustomerID)
	if ref == "" {
		return nil, errors.New("customer reference is required")
	}

	m, err := s.repo.GetMembershipByCustomerRef(ref)
	if err != nil {
		return nil, err
	}

	m.IsMember = false
	m.SubscriptionStatus = models.SubscriptionStatusCanceled
	if err := s.repo.SaveMembership(m); err != nil {
		return nil, err
	}
	return m, nil
}

// MembershipForUser loads the durable membership record for the gate.
func (s *Service) MembershipForUser(ctx context.Context, userID uint) (*models.Membership, error) {
	_ = ctx
	if userID == 0 {
		return nil, errors.New("user_id is required")
	}
	return s.repo.GetMembershipByUserID(userID)
}

// PortalCustomerRef resolves the provider customer reference needed to
// issue a billing-portal capability. ErrNoCustomerRef means the account
// has no subscription to manage, regardless of the member flag.
func (s *Service) PortalCustomerRef(ctx context.Context, userID uint) (string, error) {
	m, err := s.MembershipForUser(ctx, userID)
	if err != nil {
		return "", err
	}
	ref := strings.TrimSpace(m.StripeCustomerID)
	if ref == "" {
		return "", ErrNoCustomerRef
	}
	return ref, nil
}

// RecordActivity appends a viewing entry to the member's capped activity log.
func (s *Service) RecordActivity(ctx context.Context, userID uint, entry models.ActivityEntry) error {
	m, err := s.MembershipForUser(ctx, userID)
	if err != nil {
		return err
	}
	if err := m.AppendActivity(entry); err != nil {
		return err
	}
	return s.repo.SaveMembership(m)
}

// ResyncFromProvider re-derives the member flag from the provider's own
// subscription list. This is the user-initiated recovery path for webhook
// lag: a paid account whose flag never flipped can pull state directly.
func (s *Service) ResyncFromProvider(ctx context.Context, client *StripeClient, userID uint) (*models.Membership, error) {
	m, err := s.MembershipForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	ref := strings.TrimSpace(m.StripeCustomerID)
	if ref == "" {
		return nil, ErrNoCustomerRef
	}

	status := models.SubscriptionStatusCanceled
	for _, candidate := range []string{models.SubscriptionStatusActive, models.SubscriptionStatusTrialing} {
		list, err := client.ListSubscriptions(ctx, ref, candidate, 1, "")
		if err != nil {
			return nil, err
		}
		if len(list.Data) > 0 {
			status = candidate
			break
		}
	}

	m.SubscriptionStatus = status
	m.IsMember = IsEntitlingStatus(status)
	if err := s.repo.SaveMembership(m); err != nil {
		return nil, err
	}
	return m, nil
}

// RecordWebhookEvent persists webhook payloads idempotently.
func (s *Service) RecordWebhookEvent(ctx context.Context, in WebhookEventInput) (bool, *models.BillingWebhookEvent, error) {
	_ = ctx
	provider := strings.ToLower(strings.TrimSpace(in.Provider))
	if provider == "" {
		return false, nil, errors.New("provider is required")
	}
	eventID := strings.TrimSpace(in.ProviderEventID)
	if eventID == "" {
		sum := sha256.Sum256([]byte(in.PayloadJSON))
		eventID = "hash:" + hex.EncodeToString(sum[:])
	}

	event := &models.BillingWebhookEvent{
		Provider:        provider,
		ProviderEventID: eventID,
		EventType:       strings.TrimSpace(in.EventType),
		PayloadJSON:     in.PayloadJSON,
		SignatureValid:  in.SignatureValid,
	}
	return s.repo.CreateWebhookEventIfNotExists(event)
}

// MarkWebhookProcessed marks an event as processed and stores an optional error.
// Processed events are terminal: a redelivery of the same event id is
// acknowledged without running the apply step again.
func (s *Service) MarkWebhookProcessed(ctx context.Context, webhookEventID uint, processingErr error) error {
	_ = ctx
	if webhookEventID == 0 {
		return errors.New("webhook_event_id is required")
	}
	errMsg := ""
	if processingErr != nil {
		errMsg = processingErr.Error()
	}
	return s.repo.MarkWebhookProcessed(webhookEventID, errMsg)
}

// RecordWebhookFailure notes a failed apply on an event while leaving it
// unprocessed, so the provider's redelivery runs the apply again.
func (s *Service) RecordWebhookFailure(ctx context.Context, webhookEventID uint, processingErr error) error {
	_ = ctx
	if webhookEventID == 0 {
		return errors.New("webhook_event_id is required")
	}
	errMsg := ""
	if processingErr != nil {
		errMsg = processingErr.Error()
	}
	return s.repo.RecordWebhookFailure(webhookEventID, errMsg)
}

// IsEntitlingStatus reports whether a subscription status grants access.
func IsEntitlingStatus(status string) bool {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case models.SubscriptionStatusActive, models.SubscriptionStatusTrialing:
		return true
	default:
		return false
	}
}

// PlanNameForCustomer resolves a human plan label from the provider, used
// on the account page. Active subscriptions win over trialing ones.
func PlanNameForCustomer(ctx context.Context, client *StripeClient, customerID string) (string, error) {
	for _, status := range []string{models.SubscriptionStatusActive, models.SubscriptionStatusTrialing} {
		list, err := client.ListSubscriptions(ctx, customerID, status, 1, "")
		if err != nil {
			return "", err
		}
		if len(list.Data) == 0 || len(list.Data[0].Items.Data) == 0 {
			continue
		}
		name := "Monthly Membership"
		if list.Data[0].Items.Data[0].Plan.Interval == "year" {
			name = "Yearly Membership"
		}
		if status == models.SubscriptionStatusTrialing {
			name += " (Trialing)"
		}
		return name, nil
	}
	return "Free/No Active Subscription", nil
}
