package paymentrequests

import (
	"showroom-backend/internal/application/paymentrequests"
	"showroom-backend/internal/domain"
	"showroom-backend/internal/pkg/request"
	"showroom-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type Handlers struct {
	Service *paymentrequests.Service
}

// Amount and note are checked by the service so they map to 422 rather than 400.
type createRequest struct {
	Type               domain.PaymentRequestType `json:"type" validate:"required,oneof=rent sales"`
	AmountCents        int64                     `json:"amount_cents"`
	Side               domain.Side               `json:"initiator_side" validate:"required,side"`
	CandidatureID      *uuid.UUID                `json:"candidature_id"`
	PlacementID        *uuid.UUID                `json:"placement_id"`
	InitiatorAccountID *uuid.UUID                `json:"initiator_account_id"`
	CounterpartID      *uuid.UUID                `json:"counterpart_id"`
	Motif              *string                   `json:"motif" validate:"omitempty,max=2000"`
	AttachmentPath     *string                   `json:"attachment_path" validate:"omitempty,max=500"`
}

type contestRequest struct {
	Note string `json:"note" validate:"max=2000"`
}

// Create POST /api/v1/payment-requests
func (h *Handlers) Create(c *fiber.Ctx) error {
	actor, err := request.Actor(c)
	if err != nil {
		return response.FromError(c, err)
	}
	var body createRequest
	if err := request.Body(c, &body); err != nil {
		return response.FromError(c, err)
	}
	res, err := h.Service.Create(c.UserContext(), actor, paymentrequests.CreateInput{
		Type:               body.Type,
		AmountCents:        body.AmountCents,
		Side:               body.Side,
		CandidatureID:      body.CandidatureID,
		PlacementID:        body.PlacementID,
		InitiatorAccountID: body.InitiatorAccountID,
		CounterpartID:      body.CounterpartID,
		Motif:              body.Motif,
		AttachmentPath:     body.AttachmentPath,
	})
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessCreated(c, "Payment request created", res.Request, fiber.Map{"warnings": res.Warnings})
}

// List GET /api/v1/payment-requests?side=&account_id=&status=
func (h *Handlers) List(c *fiber.Ctx) error {
	actor, err := request.Actor(c)
	if err != nil {
		return response.FromError(c, err)
	}
	side, accountID, err := request.Account(c)
	if err != nil {
		return response.FromError(c, err)
	}
	views, err := h.Service.ListForAccount(c.UserContext(), actor, side, accountID, c.Query("status"))
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Payment requests fetched", views, fiber.Map{"count": len(views)})
}

// Get GET /api/v1/payment-requests/:id
func (h *Handlers) Get(c *fiber.Ctx) error {
	actor, id, err := actorAndID(c)
	if err != nil {
		return response.FromError(c, err)
	}
	v, err := h.Service.Get(c.UserContext(), actor, id)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Payment request fetched", v, nil)
}

// Accept POST /api/v1/payment-requests/:id/accept
func (h *Handlers) Accept(c *fiber.Ctx) error {
	actor, id, err := actorAndID(c)
	if err != nil {
		return response.FromError(c, err)
	}
	v, err := h.Service.Accept(c.UserContext(), actor, id)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Payment request accepted", v, nil)
}

// Contest POST /api/v1/payment-requests/:id/contest
func (h *Handlers) Contest(c *fiber.Ctx) error {
	actor, id, err := actorAndID(c)
	if err != nil {
		return response.FromError(c, err)
	}
	var body contestRequest
	if len(c.Body()) > 0 {
		if err := request.Body(c, &body); err != nil {
			return response.FromError(c, err)
		}
	}
	v, err := h.Service.Contest(c.UserContext(), actor, id, body.Note)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Payment request contested", v, nil)
}

func actorAndID(c *fiber.Ctx) (uuid.UUID, uuid.UUID, error) {
	actor, err := request.Actor(c)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	id, err := request.UUIDParam(c, "id")
	return actor, id, err
}
