package bootstrap

import (
	"showroom-backend/internal/config"
	"showroom-backend/internal/interfaces/router"

	"github.com/gofiber/fiber/v2"
)

// New creates the Fiber app for Vercel serverless (api handler imports this package, not internal).
// Sweeps run through the cron endpoint there, never in-process.
func New() (*fiber.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	cfg.RunSweeper = false
	app, _, err := router.CreateApp(cfg)
	return app, err
}
