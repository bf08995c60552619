package controllers

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivarnor/akidsy/app/models"
	"github.com/ivarnor/akidsy/internal/pkg/billing"
)

const testPortalPassword = "correct-horse-battery"

func newPortalUser(t *testing.T) *models.User {
	t.Helper()
	hash, err := models.HashPassword(testPortalPassword)
	require.NoError(t, err)
	return &models.User{
		ID:       1,
		Name:     "Alice",
		Email:    "alice@example.com",
		Password: hash,
		Role:     models.ROLE_USER,
		Status:   models.STATUS_ACTIVE,
	}
}

func newPortalApp(user *models.User, repo *fakeBillingRepo, client *billing.StripeClient) *fiber.App {
	svc := billing.NewService(repo)
	app := fiber.New()
	app.Post("/api/billing/portal", func(c *fiber.Ctx) error {
		return issueBillingPortal(c, user, svc, client)
	})
	return app
}

func postPortal(t *testing.T, app *fiber.App, password string) *http.Response {
	t.Helper()
	body := fmt.Sprintf(`{"password":%q}`, password)
	req := httptest.NewRequest(http.MethodPost, "/api/billing/portal", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func TestBillingPortalWrongPasswordIssuesNothing(t *testing.T) {
	user := newPortalUser(t)
	repo := newFakeBillingRepo(&models.Membership{
		UserID:           1,
		Email:            user.Email,
		IsMember:         true,
		StripeCustomerID: "cus_123",
	})

	var portalCalls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		portalCalls++
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"bps_1","url":"https://billing.example.com/p/bps_1"}`)
	}))
	defer server.Close()

	client := &billing.StripeClient{SecretKey: "sk_test", APIBaseURL: server.URL, HTTPClient: server.Client()}
	app := newPortalApp(user, repo, client)

	resp := postPortal(t, app, "not-the-password")
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	body, readErr := io.ReadAll(resp.Body)
	require.NoError(t, readErr)
	assert.Contains(t, string(body), "invalid_password")
	// The logged-in session alone never yields a portal URL.
	assert.Equal(t, 0, portalCalls)
}

func TestBillingPortalNoCustomerRef(t *testing.T) {
	user := newPortalUser(t)
	// Entitled but never checked out, so there is no customer reference.
	repo := newFakeBillingRepo(&models.Membership{
		UserID:   1,
		Email:    user.Email,
		IsMember: true,
	})

	var portalCalls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		portalCalls++
	}))
	defer server.Close()

	client := &billing.StripeClient{SecretKey: "sk_test", APIBaseURL: server.URL, HTTPClient: server.Client()}
	app := newPortalApp(user, repo, client)

	resp := postPortal(t, app, testPortalPassword)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	body, readErr := io.ReadAll(resp.Body)
	require.NoError(t, readErr)
	assert.Contains(t, string(body), "no_subscription")
	assert.Equal(t, 0, portalCalls)
}

func TestBillingPortalFreshPasswordIssuesURL(t *testing.T) {
	user := newPortalUser(t)
	repo := newFakeBillingRepo(&models.Membership{
		UserID:           1,
		Email:            user.Email,
		IsMember:         true,
		StripeCustomerID: "cus_123",
	})

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "cus_123", r.Form.Get("customer"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"bps_1","url":"https://billing.example.com/p/bps_1"}`)
	}))
	defer server.Close()

	client := &billing.StripeClient{SecretKey: "sk_test", APIBaseURL: server.URL, HTTPClient: server.Client()}
	app := newPortalApp(user, repo, client)

	resp := postPortal(t, app, testPortalPassword)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	body, readErr := io.ReadAll(resp.Body)
	require.NoError(t, readErr)
	assert.Contains(t, string(body), "https://billing.example.com/p/bps_1")
}
