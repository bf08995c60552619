package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ivarnor/akidsy/app/models"
	"github.com/ivarnor/akidsy/internal/pkg/billing"
	"github.com/ivarnor/akidsy/internal/pkg/usercontext"
)

// stubBillingRepo backs the gate tests with in-memory memberships.
type stubBillingRepo struct {
	memberships map[uint]*models.Membership
}

func (s *stubBillingRepo) GetMembershipByUserID(userID uint) (*models.Membership, error) {
	if m, ok := s.memberships[userID]; ok {
		return m, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubBillingRepo) GetMembershipByEmail(string) (*models.Membership, error) {
	return nil, gorm.ErrRecordNotFound
}

func (s *stubBillingRepo) GetMembershipByCustomerRef(string) (*models.Membership, error) {
	return nil, gorm.ErrRecordNotFound
}

func (s *stubBillingRepo) SaveMembership(*models.Membership) error { return nil }

func (s *stubBillingRepo) CreateWebhookEventIfNotExists(event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error) {
	return true, event, nil
}

func (s *stubBillingRepo) MarkWebhookProcessed(uint, string) error { return nil }

func (s *stubBillingRepo) RecordWebhookFailure(uint, string) error { return nil }

func newGateApp(ctx usercontext.UserContext, memberships map[uint]*models.Membership) *fiber.App {
	svc := billing.NewService(&stubBillingRepo{memberships: memberships})

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("USER_CONTEXT", ctx)
		c.Locals(usercontext.KeyFromProtected, ctx.IsLoggedIn)
		c.Locals(usercontext.KeyIsAdmin, ctx.IsAdmin)
		return c.Next()
	})
	app.Get("/dashboard", RequireMember(svc), func(c *fiber.Ctx) error {
		return c.SendString("member content")
	})
	return app
}

func TestRequireMemberAnonymousRedirectsToLogin(t *testing.T) {
	app := newGateApp(usercontext.UserContext{}, nil)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/dashboard", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))
}

func TestRequireMemberAdminRoutedToAdminSurface(t *testing.T) {
	ctx := usercontext.UserContext{UserID: 1, IsLoggedIn: true, IsAdmin: true}
	app := newGateApp(ctx, nil)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/dashboard", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/admin", resp.Header.Get("Location"))
}

func TestRequireMemberAllowsActiveMember(t *testing.T) {
	ctx := usercontext.UserContext{UserID: 7, IsLoggedIn: true}
	memberships := map[uint]*models.Membership{
		7: {UserID: 7, IsMember: true, SubscriptionStatus: models.SubscriptionStatusTrialing},
	}
	app := newGateApp(ctx, memberships)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/dashboard", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestRequireMemberNonMemberRedirectsToCheckout(t *testing.T) {
	ctx := usercontext.UserContext{UserID: 7, IsLoggedIn: true}
	memberships := map[uint]*models.Membership{
		7: {UserID: 7, IsMember: false, SubscriptionStatus: models.SubscriptionStatusNone},
	}
	app := newGateApp(ctx, memberships)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/dashboard", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/checkout/start", resp.Header.Get("Location"))
}

func TestRequireMemberMissingMembershipRowDenies(t *testing.T) {
	ctx := usercontext.UserContext{UserID: 42, IsLoggedIn: true}
	app := newGateApp(ctx, map[uint]*models.Membership{})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/dashboard", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/checkout/start", resp.Header.Get("Location"))
}

func TestRequireAuthRedirectsWhenNotLoggedIn(t *testing.T) {
	app := fiber.New()
	app.Get("/account", RequireAuth, func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/account", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))
}

func TestRequireAdminRejectsNonAdmin(t *testing.T) {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals(usercontext.KeyFromProtected, true)
		c.Locals(usercontext.KeyIsAdmin, false)
		return c.Next()
	})
	app.Get("/admin", RequireAdmin, func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/admin", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))
}

func TestRequireAPISessionAuthReturnsJSON401(t *testing.T) {
	app := fiber.New()
	app.Post("/api/content/view", RequireAPISessionAuth, func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/api/content/view", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "application/json")
}
