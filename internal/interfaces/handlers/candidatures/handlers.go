package candidatures

import (
	"context"
	"time"

	candsvc "showroom-backend/internal/application/candidatures"
	"showroom-backend/internal/domain"
	"showroom-backend/internal/pkg/request"
	"showroom-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type Handlers struct {
	Service *candsvc.Service
}

type submitRequest struct {
	BrandID    uuid.UUID    `json:"brand_id" validate:"required"`
	ShowroomID uuid.UUID    `json:"showroom_id" validate:"required"`
	ListingID  *uuid.UUID   `json:"listing_id"`
	Offer      domain.Offer `json:"offer"`
	StartAt    *time.Time   `json:"partnership_start_at"`
	EndAt      *time.Time   `json:"partnership_end_at"`
	Message    string       `json:"message" validate:"max=4000"`
}

type editRequest struct {
	Offer   domain.Offer `json:"offer"`
	StartAt *time.Time   `json:"partnership_start_at"`
	EndAt   *time.Time   `json:"partnership_end_at"`
	Message *string      `json:"message" validate:"omitempty,max=4000"`
}

// Submit POST /api/v1/candidatures: reserve a credit and open a pending candidature.
func (h *Handlers) Submit(c *fiber.Ctx) error {
	actor, err := request.Actor(c)
	if err != nil {
		return response.FromError(c, err)
	}
	var body submitRequest
	if err := request.Body(c, &body); err != nil {
		return response.FromError(c, err)
	}
	view, err := h.Service.Submit(c.UserContext(), actor, candsvc.SubmitInput{
		BrandID:    body.BrandID,
		ShowroomID: body.ShowroomID,
		ListingID:  body.ListingID,
		Offer:      body.Offer,
		StartAt:    body.StartAt,
		EndAt:      body.EndAt,
		Message:    body.Message,
	})
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessCreated(c, "Candidature submitted", view, nil)
}

// List GET /api/v1/candidatures?side=&account_id=&status=
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
	return response.Success(c, "Candidatures fetched", views, fiber.Map{"count": len(views)})
}

// Get GET /api/v1/candidatures/:id
func (h *Handlers) Get(c *fiber.Ctx) error {
	actor, id, err := actorAndID(c)
	if err != nil {
		return response.FromError(c, err)
	}
	view, err := h.Service.Get(c.UserContext(), actor, id)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Candidature fetched", view, nil)
}

// Edit PATCH /api/v1/candidatures/:id: the brand replaces the offer and dates of a pending candidature.
func (h *Handlers) Edit(c *fiber.Ctx) error {
	actor, id, err := actorAndID(c)
	if err != nil {
		return response.FromError(c, err)
	}
	var body editRequest
	if err := request.Body(c, &body); err != nil {
		return response.FromError(c, err)
	}
	view, err := h.Service.Edit(c.UserContext(), actor, id, candsvc.EditInput{
		Offer:   body.Offer,
		StartAt: body.StartAt,
		EndAt:   body.EndAt,
		Message: body.Message,
	})
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Candidature updated", view, nil)
}

// Accept POST /api/v1/candidatures/:id/accept
func (h *Handlers) Accept(c *fiber.Ctx) error {
	return h.decide(c, h.Service.Accept, "Candidature accepted")
}

// Reject POST /api/v1/candidatures/:id/reject
func (h *Handlers) Reject(c *fiber.Ctx) error {
	return h.decide(c, h.Service.Reject, "Candidature rejected")
}

// Cancel POST /api/v1/candidatures/:id/cancel
func (h *Handlers) Cancel(c *fiber.Ctx) error {
	return h.decide(c, h.Service.Cancel, "Candidature cancelled")
}

type decision func(ctx context.Context, actor, id uuid.UUID) (*candsvc.View, error)

func (h *Handlers) decide(c *fiber.Ctx, fn decision, message string) error {
	actor, id, err := actorAndID(c)
	if err != nil {
		return response.FromError(c, err)
	}
	view, err := fn(c.UserContext(), actor, id)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, message, view, nil)
}

func actorAndID(c *fiber.Ctx) (uuid.UUID, uuid.UUID, error) {
	actor, err := request.Actor(c)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	id, err := request.UUIDParam(c, "id")
	return actor, id, err
}
