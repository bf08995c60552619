package router

import (
	"strings"
	"time"

	"github.com/ivarnor/akidsy/app/controllers"
	"github.com/ivarnor/akidsy/internal/pkg/billing"
	"github.com/ivarnor/akidsy/internal/pkg/database"
	"github.com/ivarnor/akidsy/internal/pkg/env"
	"github.com/ivarnor/akidsy/internal/pkg/middleware"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/csrf"
)

func (h HttpRouter) registerCSRFProtectedRoutes(app *fiber.App) {
	csrfConf := csrf.Config{
		KeyLookup:      "form:_csrf",
		ContextKey:     "csrf",
		CookieName:     "csrf_",
		CookieSameSite: "Lax",
		Expiration:     1 * time.Hour,
		CookieSecure:   !env.IsDev(),
		Next: func(c *fiber.Ctx) bool {
			return strings.HasPrefix(c.Path(), "/api/") ||
				strings.HasPrefix(c.Path(), "/webhooks/")
		},
	}

	billingSvc := billing.NewServiceFromDB(database.GetDB())

	group := app.Group("", cors.New(), csrf.New(csrfConf))
	group.Get("/", loggedInMiddleware, controllers.HandleStart)
	group.Get("/terms", loggedInMiddleware, controllers.HandleTerms)
	group.Get("/privacy", loggedInMiddleware, controllers.HandlePrivacy)

	group.Get("/login", loggedInMiddleware, controllers.HandleAuthLogin)
	group.Post("/login", loggedInMiddleware, controllers.HandleAuthLogin)
	group.Get("/register", loggedInMiddleware, controllers.HandleAuthRegister)
	group.Post("/register", loggedInMiddleware, controllers.HandleAuthRegister)
	group.Get("/activate", loggedInMiddleware, controllers.HandleAuthActivate)
	group.Post("/activate", loggedInMiddleware, controllers.HandleAuthActivate)

	// Checkout
	group.Get("/checkout/start", middleware.RequireAuth, controllers.HandleCheckoutStart)
	group.Get("/checkout/success", middleware.RequireAuth, controllers.HandleCheckoutSuccess)

	// Account
	group.Get("/account", middleware.RequireAuth, controllers.HandleAccount)
	group.Get("/account/cancel", middleware.RequireAuth, controllers.HandleAccountCancel)
	group.Get("/account/activity", middleware.RequireAuth, controllers.HandleAccountActivity)
	group.Post("/account/resync", middleware.RequireAuth, controllers.HandleUserBillingResync)

	// Member content. The gate re-reads the membership row on every request.
	memberGroup := group.Group("/dashboard", middleware.RequireMember(billingSvc))
	memberGroup.Get("/", controllers.HandleDashboard)
	memberGroup.Get("/content/:uuid/download", controllers.HandleContentDownload)
	memberGroup.Get("/:category", controllers.HandleDashboardCategory)
}
