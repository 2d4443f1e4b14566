package credit

import (
	"usedplus-economy/internal/middleware"
	"usedplus-economy/internal/pkg/response"
	"usedplus-economy/internal/session"

	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Session *session.Session
}

// GET /api/v1/credit recomputes the acting farm's score with its breakdown.
func (h *Handlers) Report(c *fiber.Ctx) error {
	r, err := h.Session.CreditReport(c.UserContext(), middleware.GetActor(c).FarmID)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Credit report fetched", r, nil)
}
