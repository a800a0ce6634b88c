package listings

import (
	"time"

	listsvc "showroom-backend/internal/application/listings"
	"showroom-backend/internal/domain"
	"showroom-backend/internal/pkg/request"
	"showroom-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// Handlers serves the showroom catalog brands browse before applying.
type Handlers struct {
	Service *listsvc.Service
	Now     func() time.Time
}

type listingView struct {
	domain.Listing
	AcceptingApplications bool `json:"accepting_applications"`
}

func (h *Handlers) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now().UTC()
}

// ShowroomListings GET /api/v1/showrooms/:showroom_id/listings
func (h *Handlers) ShowroomListings(c *fiber.Ctx) error {
	showroomID, err := request.UUIDParam(c, "showroom_id")
	if err != nil {
		return response.FromError(c, err)
	}
	rows, err := h.Service.ShowroomListings(c.UserContext(), showroomID)
	if err != nil {
		return response.FromError(c, err)
	}
	now := h.now()
	out := make([]listingView, 0, len(rows))
	for _, l := range rows {
		out = append(out, listingView{Listing: l, AcceptingApplications: l.AcceptsApplicationsAt(now)})
	}
	return response.Success(c, "Listings fetched", out, fiber.Map{"count": len(out)})
}

// GetListing GET /api/v1/listings/:listing_id
func (h *Handlers) GetListing(c *fiber.Ctx) error {
	id, err := request.UUIDParam(c, "listing_id")
	if err != nil {
		return response.FromError(c, err)
	}
	l, err := h.Service.Listing(c.UserContext(), id)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Listing fetched", listingView{Listing: *l, AcceptingApplications: l.AcceptsApplicationsAt(h.now())}, nil)
}

// ShowroomOptions GET /api/v1/showrooms/:showroom_id/commission-options
func (h *Handlers) ShowroomOptions(c *fiber.Ctx) error {
	showroomID, err := request.UUIDParam(c, "showroom_id")
	if err != nil {
		return response.FromError(c, err)
	}
	opts, err := h.Service.ShowroomOptions(c.UserContext(), showroomID)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Commission options fetched", opts, fiber.Map{"count": len(opts)})
}
