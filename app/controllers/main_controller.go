package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ivarnor/akidsy/internal/pkg/usercontext"
)

// HandleStart renders the marketing landing page. Logged-in members are
// sent straight to their dashboard.
func HandleStart(c *fiber.Ctx) error {
	ctx := usercontext.GetUserContext(c)
	if ctx.IsLoggedIn && ctx.IsAdmin {
		return c.Redirect("/admin", fiber.StatusSeeOther)
	}

	data := baseViewData(c, "Akidsy - Fun Learning for Kids")
	return c.Render("index", data, "layouts/main")
}

// HandleCheckoutSuccess thanks a new subscriber after the provider
// redirects back. Entitlement itself arrives via webhook, not here.
func HandleCheckoutSuccess(c *fiber.Ctx) error {
	data := baseViewData(c, "Welcome to the Club!")
	return c.Render("checkout_success", data, "layouts/main")
}

// HandleTerms renders the terms of service page
func HandleTerms(c *fiber.Ctx) error {
	data := baseViewData(c, "Terms of Service")
	return c.Render("terms", data, "layouts/main")
}

// HandlePrivacy renders the privacy policy page
func HandlePrivacy(c *fiber.Ctx) error {
	data := baseViewData(c, "Privacy Policy")
	return c.Render("privacy", data, "layouts/main")
}

// HandleDocsAPI serves the rendered API docs entry page
func HandleDocsAPI(c *fiber.Ctx) error {
	return c.Redirect("/docs/api/v1", fiber.StatusSeeOther)
}
