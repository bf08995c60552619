package controllers

import (
	"context"
	"encoding/json"
	"mime/multipart"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sujit-baniya/flash"

	"github.com/ivarnor/akidsy/app/models"
	"github.com/ivarnor/akidsy/app/repository"
	"github.com/ivarnor/akidsy/internal/pkg/billing"
	"github.com/ivarnor/akidsy/internal/pkg/cache"
	"github.com/ivarnor/akidsy/internal/pkg/database"
	"github.com/ivarnor/akidsy/internal/pkg/statistics"
)

// AdminController handles admin-related HTTP requests using repository pattern
type AdminController struct {
	repos *repository.Repositories
}

// NewAdminController creates a new admin controller with repository dependencies
func NewAdminController(repos *repository.Repositories) *AdminController {
	return &AdminController{
		repos: repos,
	}
}

var adminController *AdminController

// InitializeAdminController wires the admin controller to the global repositories
func InitializeAdminController() {
	adminController = NewAdminController(repository.GetGlobalRepositories())
}

func (ac *AdminController) handleError(c *fiber.Ctx, message string, err error) error {
	fm := fiber.Map{"type": "error", "message": message}
	return flash.WithError(c, fm).Redirect("/admin")
}

// HandleAdminDashboard renders the admin dashboard with aggregate numbers
func HandleAdminDashboard(c *fiber.Ctx) error {
	ac := adminController

	stats := statistics.GetStatisticsData()

	recentUsers, err := ac.repos.User.List(0, 5)
	if err != nil {
		return ac.handleError(c, "Failed to get recent users", err)
	}

	popular, err := ac.repos.Content.MostViewed(5)
	if err != nil {
		return ac.handleError(c, "Failed to get popular content", err)
	}

	data := baseViewData(c, "Admin")
	data["Stats"] = stats
	data["RecentUsers"] = recentUsers
	data["PopularContent"] = popular
	return c.Render("admin/dashboard", data, "layouts/main")
}

const statsHealthCacheKey = "stats:admin:health"

// HandleAdminStatsHealth reports subscriber health as JSON. The numbers
// are cached briefly in Redis; the dashboard polls this endpoint.
func HandleAdminStatsHealth(c *fiber.Ctx) error {
	ac := adminController

	if cached, err := cache.Get(statsHealthCacheKey); err == nil && cached != "" {
		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		return c.SendString(cached)
	}

	totalUsers, err := ac.repos.User.Count()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "stats_failed"})
	}
	totalMembers, err := ac.repos.User.CountMembers()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "stats_failed"})
	}

	db := database.GetDB()
	now := time.Now().UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	var activeTrials, signupsThisMonth, cancellationsThisMonth, unverifiedUsers int64
	db.Model(&models.Membership{}).
		Where("is_member = ? AND subscription_status = ?", true, models.SubscriptionStatusTrialing).
		Count(&activeTrials)
	db.Model(&models.User{}).Where("created_at >= ?", monthStart).Count(&signupsThisMonth)
	db.Model(&models.Membership{}).
		Where("subscription_status = ? AND updated_at >= ?", models.SubscriptionStatusCanceled, monthStart).
		Count(&cancellationsThisMonth)
	db.Model(&models.User{}).Where("status = ?", models.STATUS_INACTIVE).Count(&unverifiedUsers)

	churn := 0.0
	if totalMembers+cancellationsThisMonth > 0 {
		churn = float64(cancellationsThisMonth) / float64(totalMembers+cancellationsThisMonth)
	}
	conversion := 0.0
	if totalUsers > 0 {
		conversion = float64(totalMembers) / float64(totalUsers)
	}

	popular, err := ac.repos.Content.MostViewed(5)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "stats_failed"})
	}
	topContent := make([]fiber.Map, 0, len(popular))
	for _, item := range popular {
		topContent = append(topContent, fiber.Map{
			"uuid":     item.UUID,
			"title":    item.Title,
			"category": item.Category,
			"views":    item.Views,
		})
	}

	storageOK := false
	if client, err := getStorageClient(); err == nil {
		hctx, hcancel := context.WithTimeout(context.Background(), 5*time.Second)
		storageOK = client.HealthCheck(hctx) == nil
		hcancel()
	}

	payload := fiber.Map{
		"total_users":              totalUsers,
		"total_members":            totalMembers,
		"active_trials":            activeTrials,
		"signups_this_month":       signupsThisMonth,
		"cancellations_this_month": cancellationsThisMonth,
		"churn_rate":               churn,
		"conversion":               conversion,
		"unverified_users":         unverifiedUsers,
		"total_content":            statistics.GetTotalContent(),
		"total_views":              statistics.GetTotalViews(),
		"top_content":              topContent,
		"storage_ok":               storageOK,
	}

	if raw, err := json.Marshal(payload); err == nil {
		_ = cache.Set(statsHealthCacheKey, string(raw), time.Minute)
	}
	return c.JSON(payload)
}

// HandleAdminStatsRevenue reports MRR from active subscriptions and the
// paid-invoice total for the last 30 days. The provider is the source of
// truth for money, not the local database.
func HandleAdminStatsRevenue(c *fiber.Ctx) error {
	client := billing.NewStripeClientFromEnv()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	since := time.Now().AddDate(0, 0, -30).Unix()

	var totalCents int64
	var invoiceCount int
	startingAfter := ""
	for {
		list, err := client.ListPaidInvoices(ctx, since, 100, startingAfter)
		if err != nil {
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "provider_unavailable"})
		}
		for _, inv := range list.Data {
			totalCents += inv.AmountPaid
			invoiceCount++
		}
		if !list.HasMore || len(list.Data) == 0 {
			break
		}
		startingAfter = list.Data[len(list.Data)-1].ID
	}

	var mrrCents int64
	var activeSubscriptions int
	startingAfter = ""
	for {
		list, err := client.ListSubscriptions(ctx, "", models.SubscriptionStatusActive, 100, startingAfter)
		if err != nil {
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "provider_unavailable"})
		}
		for _, sub := range list.Data {
			activeSubscriptions++
			for _, item := range sub.Items.Data {
				amount := item.Plan.Amount
				count := item.Plan.IntervalCount
				if count <= 0 {
					count = 1
				}
				// Normalize to a monthly figure
				switch item.Plan.Interval {
				case "year":
					mrrCents += amount / (12 * count)
				case "week":
					mrrCents += amount * 4 / count
				default:
					mrrCents += amount / count
				}
			}
		}
		if !list.HasMore || len(list.Data) == 0 {
			break
		}
		startingAfter = list.Data[len(list.Data)-1].ID
	}

	return c.JSON(fiber.Map{
		"period_days":          30,
		"invoice_count":        invoiceCount,
		"total_cents":          totalCents,
		"mrr_cents":            mrrCents,
		"active_subscriptions": activeSubscriptions,
	})
}

// HandleAdminContent lists the catalog for management
func HandleAdminContent(c *fiber.Ctx) error {
	ac := adminController

	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}
	const pageSize = 50

	items, err := ac.repos.Content.GetAll((page-1)*pageSize, pageSize)
	if err != nil {
		return ac.handleError(c, "Failed to load content", err)
	}

	categoryCounts := make(map[string]int64, len(models.ContentCategories))
	for _, category := range models.ContentCategories {
		count, err := ac.repos.Content.CountByCategory(category)
		if err != nil {
			return ac.handleError(c, "Failed to load content", err)
		}
		categoryCounts[category] = count
	}

	data := baseViewData(c, "Manage Content")
	data["Items"] = items
	data["Page"] = page
	data["CategoryCounts"] = categoryCounts
	data["CSRFToken"] = csrfToken(c)
	return c.Render("admin/content", data, "layouts/main")
}

// HandleAdminContentCreate renders the create form
func HandleAdminContentCreate(c *fiber.Ctx) error {
	data := baseViewData(c, "New Content")
	data["Categories"] = models.ContentCategories
	data["CSRFToken"] = csrfToken(c)
	return c.Render("admin/content_form", data, "layouts/main")
}

// HandleAdminContentStore persists a new catalog item
func HandleAdminContentStore(c *fiber.Ctx) error {
	ac := adminController

	category := c.FormValue("category")
	if !models.IsValidCategory(category) {
		fm := fiber.Map{"type": "error", "message": "Unknown content category"}
		return flash.WithError(c, fm).Redirect("/admin/content/create")
	}

	content := &models.Content{
		Title:        c.FormValue("title"),
		Slug:         c.FormValue("slug"),
		Category:     category,
		Description:  c.FormValue("description"),
		ObjectKey:    c.FormValue("object_key"),
		ThumbnailKey: c.FormValue("thumbnail_key"),
		Duration:     c.FormValue("duration"),
		IsPublished:  c.FormValue("is_published") == "on",
	}

	// An attached media file is uploaded to the bucket under a generated
	// key; alternatively the form can reference an already uploaded object.
	if fileHeader, err := c.FormFile("media"); err == nil && fileHeader != nil {
		key, err := uploadContentMedia(c, content, fileHeader)
		if err != nil {
			fm := fiber.Map{"type": "error", "message": "Failed to upload media file"}
			return flash.WithError(c, fm).Redirect("/admin/content/create")
		}
		content.ObjectKey = key
	}

	if content.Title == "" || content.Slug == "" || content.ObjectKey == "" {
		fm := fiber.Map{"type": "error", "message": "Title, slug and media file or object key are required"}
		return flash.WithError(c, fm).Redirect("/admin/content/create")
	}

	if err := ac.repos.Content.Create(content); err != nil {
		fm := fiber.Map{"type": "error", "message": "Failed to save content"}
		return flash.WithError(c, fm).Redirect("/admin/content/create")
	}

	go statistics.UpdateStatisticsCache()

	fm := fiber.Map{"type": "success", "message": "Content created"}
	return flash.WithSuccess(c, fm).Redirect("/admin/content")
}

// HandleAdminContentEdit renders the edit form for one item
func HandleAdminContentEdit(c *fiber.Ctx) error {
	ac := adminController

	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return ac.handleError(c, "Invalid content id", err)
	}

	content, err := ac.repos.Content.GetByID(uint(id))
	if err != nil {
		return ac.handleError(c, "Content not found", err)
	}

	data := baseViewData(c, "Edit Content")
	data["Content"] = content
	data["Categories"] = models.ContentCategories
	data["CSRFToken"] = csrfToken(c)
	return c.Render("admin/content_form", data, "layouts/main")
}

// HandleAdminContentUpdate applies edits to one item
func HandleAdminContentUpdate(c *fiber.Ctx) error {
	ac := adminController

	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return ac.handleError(c, "Invalid content id", err)
	}

	content, err := ac.repos.Content.GetByID(uint(id))
	if err != nil {
		return ac.handleError(c, "Content not found", err)
	}

	if category := c.FormValue("category"); category != "" {
		if !models.IsValidCategory(category) {
			fm := fiber.Map{"type": "error", "message": "Unknown content category"}
			return flash.WithError(c, fm).Redirect("/admin/content")
		}
		content.Category = category
	}
	if v := c.FormValue("title"); v != "" {
		content.Title = v
	}
	if v := c.FormValue("slug"); v != "" {
		content.Slug = v
	}
	content.Description = c.FormValue("description")
	if v := c.FormValue("object_key"); v != "" {
		content.ObjectKey = v
	}
	content.ThumbnailKey = c.FormValue("thumbnail_key")
	content.Duration = c.FormValue("duration")
	content.IsPublished = c.FormValue("is_published") == "on"

	if err := ac.repos.Content.Update(content); err != nil {
		fm := fiber.Map{"type": "error", "message": "Failed to update content"}
		return flash.WithError(c, fm).Redirect("/admin/content")
	}

	fm := fiber.Map{"type": "success", "message": "Content updated"}
	return flash.WithSuccess(c, fm).Redirect("/admin/content")
}

// HandleAdminContentDelete removes one item and its stored media
func HandleAdminContentDelete(c *fiber.Ctx) error {
	ac := adminController

	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return ac.handleError(c, "Invalid content id", err)
	}

	content, err := ac.repos.Content.GetByID(uint(id))
	if err != nil {
		fm := fiber.Map{"type": "error", "message": "Content not found"}
		return flash.WithError(c, fm).Redirect("/admin/content")
	}

	if err := ac.repos.Content.Delete(uint(id)); err != nil {
		fm := fiber.Map{"type": "error", "message": "Failed to delete content"}
		return flash.WithError(c, fm).Redirect("/admin/content")
	}

	// Media removal is best-effort; the catalog row is already gone.
	if client, err := getStorageClient(); err == nil {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		_ = client.Delete(ctx, content.ObjectKey)
		if content.ThumbnailKey != "" {
			_ = client.Delete(ctx, content.ThumbnailKey)
		}
	}

	go statistics.UpdateStatisticsCache()

	fm := fiber.Map{"type": "success", "message": "Content deleted"}
	return flash.WithSuccess(c, fm).Redirect("/admin/content")
}

// uploadContentMedia stores an admin-attached media file in the bucket and
// returns its generated object key. An attached thumbnail goes to the
// matching thumbnail key.
func uploadContentMedia(c *fiber.Ctx, content *models.Content, media *multipart.FileHeader) (string, error) {
	client, err := getStorageClient()
	if err != nil {
		return "", err
	}

	// The key derives from the UUID, so it has to exist before the row does.
	if content.UUID == "" {
		content.UUID = uuid.New().String()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	key := client.Config().ObjectKey(content.Category, content.UUID, filepath.Ext(media.Filename))
	f, err := media.Open()
	if err != nil {
		return "", err
	}
	defer f.Close()
	if err := client.Upload(ctx, key, f, media.Header.Get("Content-Type")); err != nil {
		return "", err
	}

	if thumb, err := c.FormFile("thumbnail"); err == nil && thumb != nil {
		tf, err := thumb.Open()
		if err != nil {
			return "", err
		}
		defer tf.Close()
		thumbKey := client.Config().ThumbnailKey(content.Category, content.UUID)
		if err := client.Upload(ctx, thumbKey, tf, thumb.Header.Get("Content-Type")); err != nil {
			return "", err
		}
		content.ThumbnailKey = thumbKey
	}

	return key, nil
}

// HandleAdminUsers lists registered accounts
func HandleAdminUsers(c *fiber.Ctx) error {
	ac := adminController

	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}
	const pageSize = 50

	users, err := ac.repos.User.List((page-1)*pageSize, pageSize)
	if err != nil {
		return ac.handleError(c, "Failed to load users", err)
	}

	data := baseViewData(c, "Users")
	data["Users"] = users
	data["Page"] = page
	return c.Render("admin/users", data, "layouts/main")
}
