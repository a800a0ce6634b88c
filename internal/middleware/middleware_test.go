package middleware

import (
	"net/http/httptest"
	"testing"

	"showroom-backend/internal/pkg/constants"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func asRole(role string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals("user", map[string]interface{}{"user_id": uuid.NewString(), "role": role})
		return c.Next()
	}
}

func ok(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) }

func TestCORS(t *testing.T) {
	app := fiber.New()
	app.Use(CORS(CORSConfig{AllowedSuffix: ".showroom.app", AllowedOrigins: []string{"https://partners.example.com/"}, DevPassword: "letmein"}))
	app.Get("/", ok)

	cases := []struct {
		origin, devPassword string
		want                int
	}{
		{"", "", fiber.StatusOK},
		{"https://www.showroom.app", "", fiber.StatusOK},
		{"https://partners.example.com", "", fiber.StatusOK},
		{"https://evil.example.com", "", fiber.StatusForbidden},
		{"https://evil.example.com", "letmein", fiber.StatusOK},
	}
	for _, tc := range cases {
		req := httptest.NewRequest("GET", "/", nil)
		if tc.origin != "" {
			req.Header.Set("Origin", tc.origin)
		}
		if tc.devPassword != "" {
			req.Header.Set("dev-password", tc.devPassword)
		}
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, tc.want, resp.StatusCode, tc.origin)
		if tc.want == fiber.StatusOK && tc.origin != "" {
			assert.Equal(t, tc.origin, resp.Header.Get("Access-Control-Allow-Origin"))
		}
	}

	req := httptest.NewRequest("OPTIONS", "/", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
}

func TestTracing_ReusesValidIDAndScopesLogger(t *testing.T) {
	app := fiber.New()
	app.Use(Tracing())
	var fromCtx bool
	app.Get("/", func(c *fiber.Ctx) error {
		fromCtx = zerolog.Ctx(c.UserContext()).GetLevel() != zerolog.Disabled
		return c.SendString(GetTraceID(c))
	})

	id := uuid.NewString()
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Trace-Id", id)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, id, resp.Header.Get("X-Trace-Id"))
	assert.True(t, fromCtx)

	req = httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Trace-Id", "not-a-uuid")
	resp, err = app.Test(req)
	require.NoError(t, err)
	_, perr := uuid.Parse(resp.Header.Get("X-Trace-Id"))
	assert.NoError(t, perr)
}

func TestAuthorizePermission(t *testing.T) {
	cases := []struct {
		role string
		perm string
		want int
	}{
		{constants.Member, constants.Partner, fiber.StatusOK},
		{constants.Member, constants.GrantCredits, fiber.StatusForbidden},
		{constants.Admin, constants.GrantCredits, fiber.StatusOK},
		{"", constants.Partner, fiber.StatusInternalServerError},
		{constants.Admin, "made_up", fiber.StatusInternalServerError},
	}
	for _, tc := range cases {
		app := fiber.New()
		app.Get("/", asRole(tc.role), AuthorizePermission(tc.perm), ok)
		resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
		require.NoError(t, err)
		assert.Equal(t, tc.want, resp.StatusCode, tc.role+"/"+tc.perm)
	}

	app := fiber.New()
	app.Get("/", AuthorizePermission(constants.Partner), ok)
	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestRequireAuth(t *testing.T) {
	app := fiber.New()
	app.Get("/in", asRole(constants.Member), RequireAuth(), ok)
	app.Get("/out", RequireAuth(), ok)

	resp, err := app.Test(httptest.NewRequest("GET", "/in", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	resp, err = app.Test(httptest.NewRequest("GET", "/out", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestRateLimiter_BlocksAfterBurst(t *testing.T) {
	app := fiber.New()
	app.Post("/", NewRateLimiter(rate.Limit(0.001), 2).Middleware(), ok)
	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		resp, err := app.Test(httptest.NewRequest("POST", "/", nil))
		require.NoError(t, err)
		codes = append(codes, resp.StatusCode)
	}
	assert.Equal(t, []int{fiber.StatusOK, fiber.StatusOK, fiber.StatusTooManyRequests}, codes)
}
