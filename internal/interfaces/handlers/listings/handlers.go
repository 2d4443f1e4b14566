package listings

import (
	"usedplus-economy/internal/middleware"
	"usedplus-economy/internal/pkg/response"
	"usedplus-economy/internal/session"

	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Session *session.Session
}

func (h *Handlers) Register(r fiber.Router) {
	r.Get("/", h.List)
	r.Get("/:listing_id", h.Preview)
	r.Post("/:listing_id/purchase", h.Purchase)
}

// GET /api/v1/listings
func (h *Handlers) List(c *fiber.Ctx) error {
	view, err := h.Session.Farm(c.UserContext(), middleware.GetActor(c).FarmID)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Listings fetched", view.Listings, fiber.Map{"count": len(view.Listings)})
}

// GET /api/v1/listings/:listing_id
func (h *Handlers) Preview(c *fiber.Ctx) error {
	id, err := c.ParamsInt("listing_id")
	if err != nil {
		return response.Error(c, "Invalid listing id", fiber.StatusBadRequest, nil)
	}
	l, err := h.Session.Listing(c.UserContext(), middleware.GetActor(c).FarmID, int64(id))
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Listing fetched", l, nil)
}

// POST /api/v1/listings/:listing_id/purchase is sent once the player
// confirmed the purchase dialog.
func (h *Handlers) Purchase(c *fiber.Ctx) error {
	id, err := c.ParamsInt("listing_id")
	if err != nil {
		return response.Error(c, "Invalid listing id", fiber.StatusBadRequest, nil)
	}
	res, err := h.Session.PurchaseConfirmed(c.UserContext(), middleware.GetActor(c).FarmID, int64(id))
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessCreated(c, "Vehicle purchased", res, nil)
}
