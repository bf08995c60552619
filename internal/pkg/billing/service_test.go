package billing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ivarnor/akidsy/app/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// fakeRepo is an in-memory Repository for service tests.
type fakeRepo struct {
	memberships []*models.Membership
	events      map[string]*models.BillingWebhookEvent
	nextEventID uint
	saveErr     error
}

func newFakeRepo(memberships ...*models.Membership) *fakeRepo {
	return &fakeRepo{
		memberships: memberships,
		events:      make(map[string]*models.BillingWebhookEvent),
	}
}

func (f *fakeRepo) GetMembershipByUserID(userID uint) (*models.Membership, error) {
	for _, m := range f.memberships {
		if m.UserID == userID {
			return m, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepo) GetMembershipByEmail(email string) (*models.Membership, error) {
	for _, m := range f.memberships {
		if m.Email == email {
			return m, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepo) GetMembershipByCustomerRef(ref string) (*models.Membership, error) {
	for _, m := range f.memberships {
		if m.StripeCustomerID == ref {
			return m, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepo) SaveMembership(m *models.Membership) error {
	return f.saveErr
}

func (f *fakeRepo) CreateWebhookEventIfNotExists(event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error) {
	key := event.Provider + "/" + event.ProviderEventID
	if stored, ok := f.events[key]; ok {
		return false, stored, nil
	}
	f.nextEventID++
	event.ID = f.nextEventID
	f.events[key] = event
	return true, event, nil
}

func (f *fakeRepo) MarkWebhookProcessed(id uint, processingError string) error {
	for _, ev := range f.events {
		if ev.ID == id {
			now := time.Now()
			ev.ProcessedAt = &now
			ev.ProcessingError = processingError
		}
	}
	return nil
}

func (f *fakeRepo) RecordWebhookFailure(id uint, processingError string) error {
	for _, ev := range f.events {
		if ev.ID == id {
			ev.ProcessingError = processingError
		}
	}
	return nil
}

func TestApplyCheckoutCompleted_Idempotent(t *testing.T) {
	m := &models.Membership{UserID: 1, Email: "alice@example.com"}
	svc := NewService(newFakeRepo(m))

	ev := &CheckoutCompletedEvent{EventID: "evt_1", CustomerEmail: "alice@example.com", StripeCustomerID: "cus_123"}

	first, err := svc.ApplyCheckoutCompleted(context.Background(), ev)
	require.NoError(t, err)
	assert.True(t, first.IsMember)
	assert.Equal(t, models.SubscriptionStatusTrialing, first.SubscriptionStatus)
	assert.Equal(t, "cus_123", first.StripeCustomerID)

	// Redelivery of the same event sets the same absolute values.
	second, err := svc.ApplyCheckoutCompleted(context.Background(), ev)
	require.NoError(t, err)
	assert.Equal(t, first.IsMember, second.IsMember)
	assert.Equal(t, first.SubscriptionStatus, second.SubscriptionStatus)
	assert.Equal(t, first.StripeCustomerID, second.StripeCustomerID)
}

func TestApplyCheckoutCompleted_UnknownEmail(t *testing.T) {
	svc := NewService(newFakeRepo())

	_, err := svc.ApplyCheckoutCompleted(context.Background(), &CheckoutCompletedEvent{
		EventID:       "evt_2",
		CustomerEmail: "nobody@example.com",
	})
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestApplyCheckoutCompleted_KeepsExistingRef(t *testing.T) {
	m := &models.Membership{UserID: 1, Email: "alice@example.com", StripeCustomerID: "cus_old"}
	svc := NewService(newFakeRepo(m))

	// A redelivered event without a customer id must not clear the ref.
	_, err := svc.ApplyCheckoutCompleted(context.Background(), &CheckoutCompletedEvent{
		EventID:       "evt_3",
		CustomerEmail: "alice@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, "cus_old", m.StripeCustomerID)
}

func TestApplySubscriptionDeleted(t *testing.T) {
	m := &models.Membership{
		UserID:             2,
		Email:              "bob@example.com",
		IsMember:           true,
		SubscriptionStatus: models.SubscriptionStatusActive,
		StripeCustomerID:   "cus_456",
	}
	svc := NewService(newFakeRepo(m))

	got, err := svc.ApplySubscriptionDeleted(context.Background(), &SubscriptionDeletedEvent{
		EventID:          "evt_4",
		StripeCustomerID: "cus_456",
	})
	require.NoError(t, err)
	assert.False(t, got.IsMember)
	assert.Equal(t, models.SubscriptionStatusCanceled, got.SubscriptionStatus)
	// The reference survives cancellation for later portal access.
	assert.Equal(t, "cus_456", got.StripeCustomerID)
}

func TestPortalCustomerRef(t *testing.T) {
	withRef := &models.Membership{UserID: 1, Email: "a@example.com", IsMember: true, StripeCustomerID: "cus_123"}
	withoutRef := &models.Membership{UserID: 2, Email: "b@example.com", IsMember: true}
	svc := NewService(newFakeRepo(withRef, withoutRef))

	ref, err := svc.PortalCustomerRef(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "cus_123", ref)

	// A member flag without a checkout behind it yields no capability.
	_, err = svc.PortalCustomerRef(context.Background(), 2)
	assert.ErrorIs(t, err, ErrNoCustomerRef)

	_, err = svc.PortalCustomerRef(context.Background(), 99)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRecordWebhookEvent_Deduplicates(t *testing.T) {
	svc := NewService(newFakeRepo())

	in := WebhookEventInput{
		Provider:        models.BillingProviderStripe,
		ProviderEventID: "evt_5",
		EventType:       EventCheckoutCompleted,
		PayloadJSON:     `{}`,
		SignatureValid:  true,
	}

	created, _, err := svc.RecordWebhookEvent(context.Background(), in)
	require.NoError(t, err)
	assert.True(t, created)

	created, _, err = svc.RecordWebhookEvent(context.Background(), in)
	require.NoError(t, err)
	assert.False(t, created)
}

func TestRecordWebhookEvent_HashFallbackID(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo)

	created, stored, err := svc.RecordWebhookEvent(context.Background(), WebhookEventInput{
		Provider:    models.BillingProviderStripe,
		EventType:   "invoice.paid",
		PayloadJSON: `{"id":"in_1"}`,
	})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Contains(t, stored.ProviderEventID, "hash:")
}

func TestRecordActivity_TrimsLog(t *testing.T) {
	m := &models.Membership{UserID: 1, Email: "a@example.com"}
	svc := NewService(newFakeRepo(m))

	for i := 0; i < models.ActivityLogLimit+5; i++ {
		err := svc.RecordActivity(context.Background(), 1, models.ActivityEntry{
			ContentID: uint(i + 1),
			Title:     "Awesome Video",
			Category:  models.CategoryVideos,
		})
		require.NoError(t, err)
	}

	log := m.ActivityLog()
	assert.Len(t, log, models.ActivityLogLimit)
	// Oldest entries are dropped first.
	assert.Equal(t, uint(6), log[0].ContentID)
}

func TestIsEntitlingStatus(t *testing.T) {
	for _, status := range []string{"active", "trialing", " Active "} {
		if !IsEntitlingStatus(status) {
			t.Fatalf("expected status %q to be entitling", status)
		}
	}
	for _, status := range []string{"none", "canceled", ""} {
		if IsEntitlingStatus(status) {
			t.Fatalf("expected status %q to be non-entitling", status)
		}
	}
}

func TestApplyCheckoutCompleted_SaveFailure(t *testing.T) {
	repo := newFakeRepo(&models.Membership{UserID: 1, Email: "a@example.com"})
	repo.saveErr = errors.New("store unavailable")
	svc := NewService(repo)

	_, err := svc.ApplyCheckoutCompleted(context.Background(), &CheckoutCompletedEvent{
		EventID:       "evt_6",
		CustomerEmail: "a@example.com",
	})
	assert.Error(t, err)
}
