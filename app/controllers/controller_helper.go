package controllers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sujit-baniya/flash"

	"github.com/ivarnor/akidsy/internal/pkg/usercontext"
)

func isLoggedIn(c *fiber.Ctx) bool {
	return usercontext.IsLoggedIn(c)
}

// ExtractUsername gets the username from the user context (set by middleware)
func ExtractUsername(c *fiber.Ctx) string {
	return usercontext.GetUsername(c)
}

// baseViewData assembles the fiber.Map every page render starts from
func baseViewData(c *fiber.Ctx, title string) fiber.Map {
	ctx := usercontext.GetUserContext(c)
	return fiber.Map{
		"Title":      title,
		"IsLoggedIn": ctx.IsLoggedIn,
		"IsAdmin":    ctx.IsAdmin,
		"Username":   ctx.Username,
		"Flash":      flash.Get(c),
	}
}

// csrfToken pulls the token set by the CSRF middleware, empty outside the group
func csrfToken(c *fiber.Ctx) string {
	if token, ok := c.Locals("csrf").(string); ok {
		return token
	}
	return ""
}
