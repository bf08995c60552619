package controllers

import (
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/sujit-baniya/flash"

	"github.com/ivarnor/akidsy/app/models"
	"github.com/ivarnor/akidsy/app/repository"
	"github.com/ivarnor/akidsy/internal/pkg/storage"
)

const dashboardPageSize = 24

var (
	storageClient     *storage.Client
	storageClientErr  error
	storageClientOnce sync.Once
)

func getStorageClient() (*storage.Client, error) {
	storageClientOnce.Do(func() {
		storageClient, storageClientErr = storage.NewClientFromEnv()
	})
	return storageClient, storageClientErr
}

// HandleDashboard renders the member home with one shelf per category
func HandleDashboard(c *fiber.Ctx) error {
	repo := repository.GetGlobalFactory().GetContentRepository()

	shelves := make(map[string][]models.Content)
	for _, category := range models.ContentCategories {
		items, err := repo.GetPublishedByCategory(category, 0, dashboardPageSize)
		if err != nil {
			continue
		}
		shelves[category] = items
	}

	data := baseViewData(c, "Dashboard")
	data["Shelves"] = shelves
	data["Categories"] = models.ContentCategories
	return c.Render("dashboard", data, "layouts/main")
}

// HandleDashboardCategory lists one category of the catalog
func HandleDashboardCategory(c *fiber.Ctx) error {
	category := c.Params("category")
	if !models.IsValidCategory(category) {
		return c.Status(fiber.StatusNotFound).Render("404", baseViewData(c, "Not Found"), "layouts/main")
	}

	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}

	repo := repository.GetGlobalFactory().GetContentRepository()
	items, err := repo.GetPublishedByCategory(category, (page-1)*dashboardPageSize, dashboardPageSize)
	if err != nil {
		fm := fiber.Map{"type": "error", "message": "Could not load content. Please try again."}
		return flash.WithError(c, fm).Redirect("/dashboard")
	}

	data := baseViewData(c, category)
	data["Category"] = category
	data["Items"] = items
	data["Page"] = page
	return c.Render("dashboard_category", data, "layouts/main")
}

// HandleContentDownload hands out a short-lived presigned URL for one
// content object. The file itself never passes through the app server.
func HandleContentDownload(c *fiber.Ctx) error {
	uuid := c.Params("uuid")

	repo := repository.GetGlobalFactory().GetContentRepository()
	content, err := repo.GetByUUID(uuid)
	if err != nil || !content.IsPublished {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found"})
	}

	client, err := getStorageClient()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "storage_unavailable"})
	}

	url, err := client.PresignDownload(c.UserContext(), content.ObjectKey, storage.DefaultDownloadTTL)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "download_link_failed"})
	}

	return c.Redirect(url, fiber.StatusSeeOther)
}
