package flash

import (
	"github.com/gofiber/fiber/v2"
)

// FlashKey is the locals key under which the current flash message lives
const FlashKey = "flash"

// Set stores a flash message for the current request
func Set(c *fiber.Ctx, message fiber.Map) {
	c.Locals(FlashKey, message)
}

// Get returns the flash message for the current request, or nil
func Get(c *fiber.Ctx) fiber.Map {
	flashMessage := c.Locals(FlashKey)
	if flashMessage == nil {
		return nil
	}

	return flashMessage.(fiber.Map)
}
