package router

import (
	"github.com/ivarnor/akidsy/app/controllers"
	"github.com/ivarnor/akidsy/internal/pkg/middleware"
	"github.com/gofiber/fiber/v2"
)

func (h HttpRouter) registerAdminRoutes(app *fiber.App) {
	adminGroup := app.Group("/admin", middleware.RequireAdmin)
	adminGroup.Get("/", controllers.HandleAdminDashboard)
	adminGroup.Get("/users", controllers.HandleAdminUsers)

	// Content management
	adminGroup.Get("/content", controllers.HandleAdminContent)
	adminGroup.Get("/content/create", controllers.HandleAdminContentCreate)
	adminGroup.Post("/content/store", controllers.HandleAdminContentStore)
	adminGroup.Get("/content/edit/:id", controllers.HandleAdminContentEdit)
	adminGroup.Post("/content/update/:id", controllers.HandleAdminContentUpdate)
	adminGroup.Post("/content/delete/:id", controllers.HandleAdminContentDelete)
}
