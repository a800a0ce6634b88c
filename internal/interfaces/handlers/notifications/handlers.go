package notifications

import (
	"showroom-backend/internal/application/access"
	"showroom-backend/internal/application/notifications"
	"showroom-backend/internal/pkg/request"
	"showroom-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type Handlers struct {
	Inbox  *notifications.ListSink
	DB     *gorm.DB
	Access access.Checker
}

// List GET /api/v1/notifications?side=&account_id=&limit=: recent events addressed to an account.
func (h *Handlers) List(c *fiber.Ctx) error {
	actor, err := request.Actor(c)
	if err != nil {
		return response.FromError(c, err)
	}
	side, accountID, err := request.Account(c)
	if err != nil {
		return response.FromError(c, err)
	}
	if err := access.RequireSide(c.UserContext(), h.Access, actor, side, accountID); err != nil {
		return response.FromError(c, err)
	}
	events, err := h.Inbox.Inbox(c.UserContext(), side, accountID, int64(c.QueryInt("limit", 20)))
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Notifications fetched", events, fiber.Map{"count": len(events)})
}

// History GET /api/v1/notifications/history/:brand_id/:showroom_id: the audit trail of one partnership.
func (h *Handlers) History(c *fiber.Ctx) error {
	actor, err := request.Actor(c)
	if err != nil {
		return response.FromError(c, err)
	}
	brandID, err := request.UUIDParam(c, "brand_id")
	if err != nil {
		return response.FromError(c, err)
	}
	showroomID, err := request.UUIDParam(c, "showroom_id")
	if err != nil {
		return response.FromError(c, err)
	}
	if err := access.RequireParty(c.UserContext(), h.Access, actor, brandID, showroomID); err != nil {
		return response.FromError(c, err)
	}
	rows, err := notifications.History(c.UserContext(), h.DB, brandID, showroomID, c.QueryInt("limit", 50))
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "History fetched", rows, fiber.Map{"count": len(rows)})
}
