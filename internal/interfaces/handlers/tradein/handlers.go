package tradein

import (
	"strings"

	"usedplus-economy/internal/middleware"
	"usedplus-economy/internal/pkg/response"
	"usedplus-economy/internal/session"

	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Session *session.Session
}

func (h *Handlers) Register(r fiber.Router) {
	r.Get("/candidates", h.Candidates)
	r.Post("/quote", h.Quote)
	r.Post("/accept", h.Accept)
}

type tradeInBody struct {
	InstanceID string `json:"instance_id"`
	// TargetStoreKey is the item being bought; its brand decides the loyalty bonus.
	TargetStoreKey string `json:"target_store_key"`
}

func parse(c *fiber.Ctx) (tradeInBody, bool) {
	var b tradeInBody
	if err := c.BodyParser(&b); err != nil {
		return b, false
	}
	b.InstanceID = strings.TrimSpace(b.InstanceID)
	return b, b.InstanceID != ""
}

// GET /api/v1/tradein/candidates
func (h *Handlers) Candidates(c *fiber.Ctx) error {
	list, err := h.Session.TradeInCandidates(c.UserContext(), middleware.GetActor(c).FarmID)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Trade-in candidates fetched", list, fiber.Map{"count": len(list)})
}

// POST /api/v1/tradein/quote
func (h *Handlers) Quote(c *fiber.Ctx) error {
	b, ok := parse(c)
	if !ok {
		return response.Error(c, "Missing required field: instance_id", fiber.StatusBadRequest, nil)
	}
	q, err := h.Session.TradeInQuote(c.UserContext(), middleware.GetActor(c).FarmID, b.InstanceID, b.TargetStoreKey)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Trade-in quoted", q, nil)
}

// POST /api/v1/tradein/accept
func (h *Handlers) Accept(c *fiber.Ctx) error {
	b, ok := parse(c)
	if !ok {
		return response.Error(c, "Missing required field: instance_id", fiber.StatusBadRequest, nil)
	}
	q, err := h.Session.AcceptTradeIn(c.UserContext(), middleware.GetActor(c).FarmID, b.InstanceID, b.TargetStoreKey)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Trade-in accepted", q, nil)
}
