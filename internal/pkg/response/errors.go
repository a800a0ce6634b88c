package response

import (
	"errors"
	"strings"

	"showroom-backend/internal/domain"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// FromError maps a domain error to the standard error response. Unknown errors
// and invariant violations become a generic 500.
func FromError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, domain.ErrInsufficientCredits):
		return Error(c, err.Error(), fiber.StatusPaymentRequired, fiber.Map{
			"code":   "insufficient_credits",
			"action": "Buy credits to apply to more showrooms.",
		})
	case errors.Is(err, domain.ErrWindowClosed):
		return Error(c, err.Error(), fiber.StatusConflict, fiber.Map{
			"code":   "window_closed",
			"action": "This listing is not accepting applications right now. Try again later.",
		})
	case errors.Is(err, domain.ErrStaleThread):
		return Error(c, err.Error(), fiber.StatusConflict, fiber.Map{"code": "stale_thread"})
	case errors.Is(err, domain.ErrInvalidState):
		return Error(c, err.Error(), fiber.StatusConflict, fiber.Map{"code": "invalid_state"})
	case errors.Is(err, domain.ErrUnauthorized):
		return Error(c, err.Error(), fiber.StatusForbidden, fiber.Map{"code": "forbidden"})
	case errors.Is(err, domain.ErrNotFound):
		return Error(c, err.Error(), fiber.StatusNotFound, nil)
	case errors.Is(err, domain.ErrMissingReason):
		return Error(c, err.Error(), fiber.StatusUnprocessableEntity, fiber.Map{"code": "missing_reason"})
	case errors.Is(err, domain.ErrInvalidAmount):
		return Error(c, err.Error(), fiber.StatusUnprocessableEntity, fiber.Map{"code": "invalid_amount"})
	case errors.Is(err, domain.ErrInvalidInput), strings.HasPrefix(err.Error(), "Invalid request"):
		return Error(c, err.Error(), fiber.StatusBadRequest, nil)
	}
	requestLogger(c).Error().Err(err).Str("path", c.Path()).Msg("unhandled error")
	return Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
}

// requestLogger prefers the trace-scoped logger installed by the tracing middleware.
func requestLogger(c *fiber.Ctx) *zerolog.Logger {
	if l := zerolog.Ctx(c.UserContext()); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &log.Logger
}
