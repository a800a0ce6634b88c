package middleware

import (
	"strings"

	"showroom-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// CORSConfig lists who may call the API from a browser.
type CORSConfig struct {
	AllowedSuffix  string   // e.g. ".showroom.app"
	AllowedOrigins []string // exact origins, e.g. FRONTEND_URL
	DevPassword    string
}

func (cfg CORSConfig) allows(c *fiber.Ctx, origin string) bool {
	o := strings.ToLower(strings.TrimRight(origin, "/"))
	for _, a := range cfg.AllowedOrigins {
		if a != "" && o == strings.ToLower(strings.TrimRight(a, "/")) {
			return true
		}
	}
	if cfg.AllowedSuffix != "" && strings.HasSuffix(o, strings.ToLower(cfg.AllowedSuffix)) {
		return true
	}
	return cfg.DevPassword != "" && c.Get("dev-password") == cfg.DevPassword
}

// CORS answers localhost preflights and reflects allowed origins with credentials.
// Requests without an Origin header (server to server, cron) pass through.
func CORS(cfg CORSConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		origin := c.Get("Origin")
		if origin == "" {
			return c.Next()
		}
		local := strings.HasPrefix(origin, "http://localhost:") || strings.HasPrefix(origin, "http://127.0.0.1:")
		if c.Method() == fiber.MethodOptions && (local || cfg.allows(c, origin)) {
			setCORSHeaders(c, origin)
			return c.SendStatus(fiber.StatusNoContent)
		}
		if !cfg.allows(c, origin) {
			return response.Error(c, "Not allowed by CORS", fiber.StatusForbidden, nil)
		}
		setCORSHeaders(c, origin)
		return c.Next()
	}
}

func setCORSHeaders(c *fiber.Ctx, origin string) {
	c.Set("Access-Control-Allow-Origin", origin)
	c.Set("Access-Control-Allow-Credentials", "true")
	c.Set("Access-Control-Allow-Headers", "Content-Type, dev-password, X-Trace-Id")
	c.Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
	c.Set("Access-Control-Expose-Headers", "X-Trace-Id")
	c.Set("Vary", "Origin")
}
