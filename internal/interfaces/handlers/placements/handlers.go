package placements

import (
	"errors"
	"fmt"

	"showroom-backend/internal/application/placements"
	"showroom-backend/internal/domain"
	"showroom-backend/internal/pkg/request"
	"showroom-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Handlers struct {
	Service *placements.Service
}

type proposeRequest struct {
	ProductID  uuid.UUID        `json:"product_id" validate:"required"`
	ShowroomID uuid.UUID        `json:"showroom_id" validate:"required"`
	Quantity   int              `json:"quantity" validate:"gt=0"`
	Rate       *decimal.Decimal `json:"commission_rate"`
	Side       domain.Side      `json:"side" validate:"required,side"`
}

type respondRequest struct {
	Side     domain.Side `json:"side" validate:"required,side"`
	Revision string      `json:"revision" validate:"required"`
}

type acceptRequest struct {
	respondRequest
	Quantities map[uuid.UUID]int `json:"quantities"`
}

type lineEdit struct {
	PlacementID uuid.UUID        `json:"placement_id" validate:"required"`
	Quantity    int              `json:"quantity" validate:"gte=0"`
	Rate        *decimal.Decimal `json:"commission_rate"`
}

type addition struct {
	ProductID uuid.UUID        `json:"product_id" validate:"required"`
	Quantity  int              `json:"quantity" validate:"gt=0"`
	Rate      *decimal.Decimal `json:"commission_rate"`
}

type counterRequest struct {
	respondRequest
	Edits     []lineEdit `json:"edits" validate:"dive"`
	Additions []addition `json:"additions" validate:"dive"`
}

type withdrawRequest struct {
	Side domain.Side `json:"side" validate:"required,side"`
}

type saleRequest struct {
	Quantity int `json:"quantity" validate:"gt=0"`
}

// Propose POST /api/v1/placements: offer one product line to a partner.
func (h *Handlers) Propose(c *fiber.Ctx) error {
	actor, err := request.Actor(c)
	if err != nil {
		return response.FromError(c, err)
	}
	var body proposeRequest
	if err := request.Body(c, &body); err != nil {
		return response.FromError(c, err)
	}
	th, err := h.Service.Propose(c.UserContext(), actor, placements.ProposeInput{
		ProductID:  body.ProductID,
		ShowroomID: body.ShowroomID,
		Quantity:   body.Quantity,
		Rate:       body.Rate,
		Side:       body.Side,
	})
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessCreated(c, "Placement proposed", th, nil)
}

// Threads GET /api/v1/placements/threads?side=&account_id=
func (h *Handlers) Threads(c *fiber.Ctx) error {
	actor, err := request.Actor(c)
	if err != nil {
		return response.FromError(c, err)
	}
	side, accountID, err := request.Account(c)
	if err != nil {
		return response.FromError(c, err)
	}
	threads, err := h.Service.ThreadsForAccount(c.UserContext(), actor, side, accountID)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Threads fetched", threads, fiber.Map{"count": len(threads)})
}

// Thread GET /api/v1/placements/threads/:brand_id/:showroom_id
func (h *Handlers) Thread(c *fiber.Ctx) error {
	actor, key, err := actorAndKey(c)
	if err != nil {
		return response.FromError(c, err)
	}
	th, err := h.Service.Thread(c.UserContext(), actor, key)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Thread fetched", th, nil)
}

// ThreadOf GET /api/v1/placements/:id/thread: the thread a placement belongs to, whatever its status.
func (h *Handlers) ThreadOf(c *fiber.Ctx) error {
	actor, err := request.Actor(c)
	if err != nil {
		return response.FromError(c, err)
	}
	id, err := request.UUIDParam(c, "id")
	if err != nil {
		return response.FromError(c, err)
	}
	key, err := h.Service.KeyOf(c.UserContext(), id)
	if errors.Is(err, domain.ErrNotFound) {
		// unknown and foreign placements both answer 403
		err = fmt.Errorf("%w: placement", domain.ErrUnauthorized)
	}
	if err != nil {
		return response.FromError(c, err)
	}
	th, err := h.Service.Thread(c.UserContext(), actor, key)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Thread fetched", th, nil)
}

// Lines GET /api/v1/placements/threads/:brand_id/:showroom_id/lines?status=active|sold
func (h *Handlers) Lines(c *fiber.Ctx) error {
	actor, key, err := actorAndKey(c)
	if err != nil {
		return response.FromError(c, err)
	}
	status := domain.PlacementStatus(c.Query("status", string(domain.PlacementActive)))
	switch status {
	case domain.PlacementPending, domain.PlacementActive, domain.PlacementSold:
	default:
		return response.Error(c, "Invalid request: status must be pending, active or sold", fiber.StatusBadRequest, nil)
	}
	lines, err := h.Service.Lines(c.UserContext(), actor, key, status)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Placements fetched", lines, fiber.Map{"count": len(lines)})
}

// Accept POST /api/v1/placements/threads/:brand_id/:showroom_id/accept
func (h *Handlers) Accept(c *fiber.Ctx) error {
	actor, key, err := actorAndKey(c)
	if err != nil {
		return response.FromError(c, err)
	}
	var body acceptRequest
	if err := request.Body(c, &body); err != nil {
		return response.FromError(c, err)
	}
	th, err := h.Service.Accept(c.UserContext(), actor, key, body.Side, body.Revision, body.Quantities)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Placements accepted", th, nil)
}

// Decline POST /api/v1/placements/threads/:brand_id/:showroom_id/decline
func (h *Handlers) Decline(c *fiber.Ctx) error {
	actor, key, err := actorAndKey(c)
	if err != nil {
		return response.FromError(c, err)
	}
	var body respondRequest
	if err := request.Body(c, &body); err != nil {
		return response.FromError(c, err)
	}
	th, err := h.Service.Decline(c.UserContext(), actor, key, body.Side, body.Revision)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Placements declined", th, nil)
}

// Counter POST /api/v1/placements/threads/:brand_id/:showroom_id/counter
func (h *Handlers) Counter(c *fiber.Ctx) error {
	actor, key, err := actorAndKey(c)
	if err != nil {
		return response.FromError(c, err)
	}
	var body counterRequest
	if err := request.Body(c, &body); err != nil {
		return response.FromError(c, err)
	}
	edits := make([]placements.LineEdit, 0, len(body.Edits))
	for _, e := range body.Edits {
		edits = append(edits, placements.LineEdit{PlacementID: e.PlacementID, Quantity: e.Quantity, Rate: e.Rate})
	}
	additions := make([]placements.Addition, 0, len(body.Additions))
	for _, a := range body.Additions {
		additions = append(additions, placements.Addition{ProductID: a.ProductID, Quantity: a.Quantity, Rate: a.Rate})
	}
	th, err := h.Service.Counter(c.UserContext(), actor, key, body.Side, body.Revision, edits, additions)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Counter-offer sent", th, nil)
}

// Withdraw POST /api/v1/placements/threads/:brand_id/:showroom_id/withdraw: drop the caller's own pending lines.
func (h *Handlers) Withdraw(c *fiber.Ctx) error {
	actor, key, err := actorAndKey(c)
	if err != nil {
		return response.FromError(c, err)
	}
	var body withdrawRequest
	if err := request.Body(c, &body); err != nil {
		return response.FromError(c, err)
	}
	th, err := h.Service.WithdrawOwn(c.UserContext(), actor, key, body.Side)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Offer withdrawn", th, nil)
}

// DeclareSale POST /api/v1/placements/:id/sale
func (h *Handlers) DeclareSale(c *fiber.Ctx) error {
	actor, err := request.Actor(c)
	if err != nil {
		return response.FromError(c, err)
	}
	id, err := request.UUIDParam(c, "id")
	if err != nil {
		return response.FromError(c, err)
	}
	var body saleRequest
	if err := request.Body(c, &body); err != nil {
		return response.FromError(c, err)
	}
	p, err := h.Service.DeclareSale(c.UserContext(), actor, id, body.Quantity)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Sale recorded", p, nil)
}

func actorAndKey(c *fiber.Ctx) (uuid.UUID, placements.Key, error) {
	actor, err := request.Actor(c)
	if err != nil {
		return uuid.Nil, placements.Key{}, err
	}
	brandID, err := request.UUIDParam(c, "brand_id")
	if err != nil {
		return uuid.Nil, placements.Key{}, err
	}
	showroomID, err := request.UUIDParam(c, "showroom_id")
	if err != nil {
		return uuid.Nil, placements.Key{}, err
	}
	return actor, placements.Key{BrandID: brandID, ShowroomID: showroomID}, nil
}
