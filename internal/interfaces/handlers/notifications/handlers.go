package notifications

import (
	"usedplus-economy/internal/middleware"
	"usedplus-economy/internal/pkg/response"
	"usedplus-economy/internal/session"

	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Session *session.Session
}

// GET /api/v1/notifications returns and clears the acting farm's queued
// notices and search result dialogs.
func (h *Handlers) Drain(c *fiber.Ctx) error {
	in, err := h.Session.Notifications(c.UserContext(), middleware.GetActor(c).FarmID)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Notifications fetched", in, nil)
}
