package controllers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/ivarnor/akidsy/app/models"
	"github.com/ivarnor/akidsy/app/repository"
	"github.com/ivarnor/akidsy/internal/pkg/billing"
	"github.com/ivarnor/akidsy/internal/pkg/database"
	"github.com/ivarnor/akidsy/internal/pkg/metrics/counter"
	"github.com/ivarnor/akidsy/internal/pkg/usercontext"
)

// HandleContentView records one content view: the global counter on the
// item and an entry in the member's capped activity log.
func HandleContentView(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	var body struct {
		UUID string `json:"uuid"`
	}
	if err := c.BodyParser(&body); err != nil || body.UUID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_payload"})
	}

	repo := repository.GetGlobalFactory().GetContentRepository()
	content, err := repo.GetByUUID(body.UUID)
	if err != nil || !content.IsPublished {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found"})
	}

	// Views are buffered in Redis and flushed to the database in batches.
	// If Redis is down, fall back to a direct increment.
	if err := counter.AddContentView(content.ID); err != nil {
		if err := repo.IncrementViews(content.ID); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "view_update_failed"})
		}
	}

	// Activity is best-effort telemetry; a failed append never fails the view.
	svc := billing.NewServiceFromDB(database.GetDB())
	_ = svc.RecordActivity(c.UserContext(), userCtx.UserID, models.ActivityEntry{
		ContentID: content.ID,
		Title:     content.Title,
		Category:  content.Category,
		Timestamp: time.Now(),
	})

	return c.JSON(fiber.Map{"ok": true})
}
