package ledger

import (
	"showroom-backend/internal/application/access"
	"showroom-backend/internal/application/ledger"
	"showroom-backend/internal/domain"
	"showroom-backend/internal/pkg/request"
	"showroom-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type Handlers struct {
	Service *ledger.Service
	Access  access.Checker
}

type grantRequest struct {
	BrandID uuid.UUID `json:"brand_id" validate:"required"`
	Amount  int       `json:"amount" validate:"gt=0,lte=10000"`
}

// Balance GET /api/v1/ledger/brands/:brand_id: credits, reservations and recent movements. Brand owner only.
func (h *Handlers) Balance(c *fiber.Ctx) error {
	actor, err := request.Actor(c)
	if err != nil {
		return response.FromError(c, err)
	}
	brandID, err := request.UUIDParam(c, "brand_id")
	if err != nil {
		return response.FromError(c, err)
	}
	if err := access.RequireSide(c.UserContext(), h.Access, actor, domain.SideBrand, brandID); err != nil {
		return response.FromError(c, err)
	}
	bal, err := h.Service.Balance(c.UserContext(), brandID)
	if err != nil {
		return response.FromError(c, err)
	}
	history, err := h.Service.History(c.UserContext(), brandID, c.QueryInt("limit", 50))
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Balance fetched", fiber.Map{"balance": bal, "movements": history}, nil)
}

// Grant POST /api/v1/ledger/grant: add purchased credits to a brand. Admin only.
func (h *Handlers) Grant(c *fiber.Ctx) error {
	actor, err := request.Actor(c)
	if err != nil {
		return response.FromError(c, err)
	}
	var body grantRequest
	if err := request.Body(c, &body); err != nil {
		return response.FromError(c, err)
	}
	bal, err := h.Service.GrantCredits(c.UserContext(), body.BrandID, body.Amount)
	if err != nil {
		return response.FromError(c, err)
	}
	log.Info().
		Str("admin_id", actor.String()).
		Str("brand_id", body.BrandID.String()).
		Int("amount", body.Amount).
		Int("credits", bal.Credits).
		Msg("credits granted")
	return response.Success(c, "Credits granted", bal, nil)
}
