package cron

import (
	"crypto/subtle"

	"showroom-backend/internal/application/sweeper"
	"showroom-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

const keyHeader = "X-Cron-Key"

// Handlers exposes the expiry sweep to an external scheduler for deployments
// without a long-running process (serverless).
type Handlers struct {
	Runner *sweeper.Runner
	Secret string
}

// Sweep POST /api/v1/internal/sweep
func (h *Handlers) Sweep(c *fiber.Ctx) error {
	key := c.Get(keyHeader)
	if h.Secret == "" || subtle.ConstantTimeCompare([]byte(key), []byte(h.Secret)) != 1 {
		return response.Error(c, "Unauthorized", fiber.StatusForbidden, nil)
	}
	expired, ran, err := h.Runner.RunOnce(c.UserContext())
	if err != nil {
		log.Error().Err(err).Msg("cron sweep failed")
		return response.Error(c, "Sweep failed", fiber.StatusInternalServerError, nil)
	}
	return response.Success(c, "Sweep finished", fiber.Map{"expired": expired, "ran": ran}, nil)
}
