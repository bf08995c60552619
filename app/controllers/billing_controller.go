package controllers

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sujit-baniya/flash"
	"gorm.io/gorm"

	"github.com/ivarnor/akidsy/app/models"
	"github.com/ivarnor/akidsy/internal/pkg/billing"
	"github.com/ivarnor/akidsy/internal/pkg/database"
	"github.com/ivarnor/akidsy/internal/pkg/env"
	"github.com/ivarnor/akidsy/internal/pkg/usercontext"
)

const checkoutTrialDays = 7

// HandleStripeWebhook ingests provider lifecycle events. The signature is
// verified before anything is written; only verified payloads reach the
// event store and the membership row.
func HandleStripeWebhook(c *fiber.Ctx) error {
	return handleStripeWebhook(c, billing.NewServiceFromDB(database.GetDB()))
}

func handleStripeWebhook(c *fiber.Ctx, svc *billing.Service) error {
	rawBody := append([]byte(nil), c.BodyRaw()...)
	signature := strings.TrimSpace(c.Get("Stripe-Signature"))
	secret := env.GetEnv("STRIPE_WEBHOOK_SECRET", "")

	if !billing.VerifyStripeWebhookSignature(rawBody, signature, secret) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_signature"})
	}

	event, err := billing.ParseWebhookEvent(rawBody)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_payload"})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	created, stored, err := svc.RecordWebhookEvent(ctx, billing.WebhookEventInput{
		Provider:        models.BillingProviderStripe,
		ProviderEventID: event.ID,
		EventType:       event.Type,
		PayloadJSON:     string(rawBody),
		SignatureValid:  true,
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "webhook_persist_failed"})
	}
	if !created {
		// Only a finished event is a duplicate. An event whose earlier
		// delivery errored out mid-apply stays unprocessed, and the
		// provider's retry is the recovery mechanism, so it goes through
		// dispatch again.
		if stored.ProcessedAt != nil {
			return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true, "duplicate": true})
		}
	}

	switch event.Type {
	case billing.EventCheckoutCompleted:
		completed, err := event.CheckoutCompleted()
		if err != nil {
			_ = svc.MarkWebhookProcessed(ctx, stored.ID, err)
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_payload"})
		}

		_, applyErr := svc.ApplyCheckoutCompleted(ctx, completed)
		if applyErr != nil {
			if errors.Is(applyErr, gorm.ErrRecordNotFound) {
				// No account under this email. Acknowledge instead of
				// failing: the provider would retry forever against an
				// unrecoverable mismatch.
				_ = svc.MarkWebhookProcessed(ctx, stored.ID, errors.New("no membership for customer email"))
				return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true, "ignored": true})
			}
			_ = svc.RecordWebhookFailure(ctx, stored.ID, applyErr)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "membership_update_failed"})
		}

		_ = svc.MarkWebhookProcessed(ctx, stored.ID, nil)
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true})

	case billing.EventSubscriptionDeleted:
		deleted, err := event.SubscriptionDeleted()
		if err != nil {
			_ = svc.MarkWebhookProcessed(ctx, stored.ID, err)
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_payload"})
		}

		_, applyErr := svc.ApplySubscriptionDeleted(ctx, deleted)
		if applyErr != nil {
			if errors.Is(applyErr, gorm.ErrRecordNotFound) {
				_ = svc.MarkWebhookProcessed(ctx, stored.ID, errors.New("no membership for customer reference"))
				return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true, "ignored": true})
			}
			_ = svc.RecordWebhookFailure(ctx, stored.ID, applyErr)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "membership_update_failed"})
		}

		_ = svc.MarkWebhookProcessed(ctx, stored.ID, nil)
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true})

	default:
		// Not a material event. Recorded, acknowledged, no state change.
		_ = svc.MarkWebhookProcessed(ctx, stored.ID, nil)
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true, "ignored": true})
	}
}

// HandleCheckout creates a checkout session for the logged-in user and
// returns the provider-hosted URL as JSON.
func HandleCheckout(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
	}

	sessionURL, err := createCheckoutSession(c, userCtx.Email)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "checkout_session_failed"})
	}

	return c.JSON(fiber.Map{"url": sessionURL})
}

// HandleCheckoutStart is the browser entry point: it creates the checkout
// session and redirects straight to the provider.
func HandleCheckoutStart(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		fm := fiber.Map{"type": "error", "message": "Please log in to see this content!"}
		return flash.WithError(c, fm).Redirect("/login", fiber.StatusSeeOther)
	}

	sessionURL, err := createCheckoutSession(c, userCtx.Email)
	if err != nil {
		fm := fiber.Map{"type": "error", "message": "Could not start checkout. Please try again."}
		return flash.WithError(c, fm).Redirect("/", fiber.StatusSeeOther)
	}

	return c.Redirect(sessionURL, fiber.StatusSeeOther)
}

func createCheckoutSession(c *fiber.Ctx, email string) (string, error) {
	base := strings.TrimRight(env.GetEnv("PUBLIC_DOMAIN", ""), "/")
	if base == "" {
		base = "http://localhost:" + env.GetEnv("APP_PORT", "4000")
	}

	client := billing.NewStripeClientFromEnv()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	sess, err := client.CreateCheckoutSession(ctx, billing.CheckoutSessionInput{
		PriceID:       env.GetEnv("STRIPE_PRICE_ID", ""),
		CustomerEmail: email,
		SuccessURL:    base + "/checkout/success",
		CancelURL:     base + "/",
		TrialDays:     checkoutTrialDays,
	})
	if err != nil {
		return "", err
	}
	return sess.URL, nil
}

// HandleUserBillingResync re-derives the member flag from the provider's
// subscription list, for accounts whose webhook never landed.
func HandleUserBillingResync(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return c.Redirect("/login", fiber.StatusSeeOther)
	}

	svc := billing.NewServiceFromDB(database.GetDB())
	client := billing.NewStripeClientFromEnv()
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	membership, err := svc.ResyncFromProvider(ctx, client, userCtx.UserID)
	if err != nil {
		if errors.Is(err, billing.ErrNoCustomerRef) {
			fm := fiber.Map{"type": "error", "message": "No active subscription to sync."}
			return flash.WithError(c, fm).Redirect("/account")
		}
		fm := fiber.Map{"type": "error", "message": "Membership sync failed. Please try again."}
		return flash.WithError(c, fm).Redirect("/account")
	}

	msg := "Membership synced. Status: " + membership.SubscriptionStatus
	return flash.WithSuccess(c, fiber.Map{"type": "success", "message": msg}).Redirect("/account")
}
