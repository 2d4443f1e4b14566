package searches

import (
	"usedplus-economy/internal/application/search"
	"usedplus-economy/internal/middleware"
	"usedplus-economy/internal/pkg/response"
	"usedplus-economy/internal/session"

	"github.com/gofiber/fiber/v2"
)

const defaultHistoryLimit = 50

type Handlers struct {
	Session *session.Session
}

// Register mounts the search routes on r. The acting farm comes from the
// X-Farm-Id header.
func (h *Handlers) Register(r fiber.Router) {
	r.Get("/", h.Farm)
	r.Get("/history", h.History)
	r.Post("/quote", h.Quote)
	r.Post("/", h.Create)
	r.Post("/:id/cancel", h.Cancel)
	r.Post("/:id/renew", h.Renew)
	r.Post("/:id/decline", h.Decline)
}

func (h *Handlers) request(c *fiber.Ctx) (search.CreateRequest, error) {
	var req search.CreateRequest
	if err := c.BodyParser(&req); err != nil {
		return req, err
	}
	req.FarmID = middleware.GetActor(c).FarmID
	return req, nil
}

// POST /api/v1/searches/quote
func (h *Handlers) Quote(c *fiber.Ctx) error {
	req, err := h.request(c)
	if err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	q, err := h.Session.QuoteSearch(c.UserContext(), req)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Search quoted", q, nil)
}

// POST /api/v1/searches
func (h *Handlers) Create(c *fiber.Ctx) error {
	req, err := h.request(c)
	if err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	s, err := h.Session.CreateSearch(c.UserContext(), req)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessCreated(c, "Search started", s, nil)
}

// GET /api/v1/searches returns the farm's searches, listings and stats.
func (h *Handlers) Farm(c *fiber.Ctx) error {
	view, err := h.Session.Farm(c.UserContext(), middleware.GetActor(c).FarmID)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Searches fetched", view, fiber.Map{
		"searches": len(view.Searches),
		"listings": len(view.Listings),
	})
}

// GET /api/v1/searches/history?limit=
func (h *Handlers) History(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", defaultHistoryLimit)
	if limit <= 0 {
		return response.Error(c, "limit must be positive", fiber.StatusBadRequest, nil)
	}
	events, err := h.Session.SearchHistory(c.UserContext(), middleware.GetActor(c).FarmID, limit)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Search history fetched", events, nil)
}

// POST /api/v1/searches/:id/cancel
func (h *Handlers) Cancel(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return response.Error(c, "Invalid search id", fiber.StatusBadRequest, nil)
	}
	if err := h.Session.CancelSearch(c.UserContext(), middleware.GetActor(c).FarmID, int64(id)); err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Search cancelled", fiber.Map{"id": id}, nil)
}

// POST /api/v1/searches/:id/renew
func (h *Handlers) Renew(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return response.Error(c, "Invalid search id", fiber.StatusBadRequest, nil)
	}
	s, err := h.Session.RenewSearch(c.UserContext(), middleware.GetActor(c).FarmID, int64(id))
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Search renewed", s, nil)
}

// POST /api/v1/searches/:id/decline
func (h *Handlers) Decline(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return response.Error(c, "Invalid search id", fiber.StatusBadRequest, nil)
	}
	if err := h.Session.DeclineRenewal(c.UserContext(), middleware.GetActor(c).FarmID, int64(id)); err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Renewal declined", fiber.Map{"id": id}, nil)
}
