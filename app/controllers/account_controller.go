package controllers

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sujit-baniya/flash"

	"github.com/ivarnor/akidsy/app/models"
	"github.com/ivarnor/akidsy/app/repository"
	"github.com/ivarnor/akidsy/internal/pkg/billing"
	"github.com/ivarnor/akidsy/internal/pkg/database"
	"github.com/ivarnor/akidsy/internal/pkg/env"
	"github.com/ivarnor/akidsy/internal/pkg/usercontext"
)

// HandleAccount renders the account page with the resolved plan label
func HandleAccount(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	data := baseViewData(c, "My Account")
	data["CSRFToken"] = csrfToken(c)
	data["Email"] = userCtx.Email

	if userCtx.IsAdmin {
		data["PlanName"] = "VIP"
		return c.Render("account", data, "layouts/main")
	}

	svc := billing.NewServiceFromDB(database.GetDB())
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	planName := "Free/No Active Subscription"
	ref, err := svc.PortalCustomerRef(ctx, userCtx.UserID)
	if err == nil {
		client := billing.NewStripeClientFromEnv()
		if name, err := billing.PlanNameForCustomer(ctx, client, ref); err == nil {
			planName = name
		}
	}
	data["PlanName"] = planName

	return c.Render("account", data, "layouts/main")
}

// HandleAccountCancel renders the retention step shown before any portal
// access. The page asks the member to stay and requires the account
// password before the portal link is issued.
func HandleAccountCancel(c *fiber.Ctx) error {
	data := baseViewData(c, "Manage Subscription")
	data["CSRFToken"] = csrfToken(c)
	return c.Render("account_cancel", data, "layouts/main")
}

// HandleBillingPortal issues a billing-portal URL after a fresh password
// check. The session alone is not enough here: the portal can cancel a paid
// subscription, so the request must prove it comes from the account owner
// right now.
func HandleBillingPortal(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
	}

	user, err := repository.GetGlobalFactory().GetUserRepository().GetByID(userCtx.UserID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "user_lookup_failed"})
	}

	svc := billing.NewServiceFromDB(database.GetDB())
	client := billing.NewStripeClientFromEnv()
	return issueBillingPortal(c, user, svc, client)
}

// issueBillingPortal runs the re-auth and capability steps: fresh password
// check first, then customer-ref resolution, then the provider call. No
// portal session is created unless the password check passed in this
// request.
func issueBillingPortal(c *fiber.Ctx, user *models.User, svc *billing.Service, client *billing.StripeClient) error {
	password := c.FormValue("password")
	if password == "" {
		var body struct {
			Password string `json:"password"`
		}
		if err := c.BodyParser(&body); err == nil {
			password = body.Password
		}
	}
	if !user.CheckPassword(password) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error":   "invalid_password",
			"message": "The password you entered is incorrect.",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	ref, err := svc.PortalCustomerRef(ctx, user.ID)
	if err != nil {
		if errors.Is(err, billing.ErrNoCustomerRef) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error":   "no_subscription",
				"message": "You have no active subscription to manage.",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "membership_lookup_failed"})
	}

	base := strings.TrimRight(env.GetEnv("PUBLIC_DOMAIN", ""), "/")
	if base == "" {
		base = "http://localhost:" + env.GetEnv("APP_PORT", "4000")
	}

	portal, err := client.CreatePortalSession(ctx, ref, base+"/account")
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "portal_session_failed"})
	}

	return c.JSON(fiber.Map{"url": portal.URL})
}

// HandleAccountActivity shows the member's recent viewing history
func HandleAccountActivity(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	svc := billing.NewServiceFromDB(database.GetDB())
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	membership, err := svc.MembershipForUser(ctx, userCtx.UserID)
	if err != nil {
		fm := fiber.Map{"type": "error", "message": "Could not load your activity."}
		return flash.WithError(c, fm).Redirect("/account")
	}

	data := baseViewData(c, "Recent Activity")
	data["Activity"] = membership.ActivityLog()
	return c.Render("account_activity", data, "layouts/main")
}
