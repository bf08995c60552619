package router

import (
	"github.com/ivarnor/akidsy/app/controllers"
	"github.com/ivarnor/akidsy/internal/pkg/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

type ApiRouter struct {
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api", limiter.New())
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Hello from api",
		})
	})

	// Session-authenticated JSON endpoints
	api.Post("/checkout", middleware.RequireAPISessionAuth, controllers.HandleCheckout)
	api.Post("/billing/portal", middleware.RequireAPISessionAuth, controllers.HandleBillingPortal)
	api.Post("/content/view", middleware.RequireAPISessionAuth, controllers.HandleContentView)

	// Admin stats
	adminAPI := api.Group("/admin", middleware.RequireAdmin)
	adminAPI.Get("/stats/health", controllers.HandleAdminStatsHealth)
	adminAPI.Get("/stats/revenue", controllers.HandleAdminStatsRevenue)
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}
