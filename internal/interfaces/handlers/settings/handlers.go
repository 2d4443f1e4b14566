package settings

import (
	settingssvc "usedplus-economy/internal/application/settings"
	"usedplus-economy/internal/middleware"
	"usedplus-economy/internal/pkg/response"
	"usedplus-economy/internal/session"

	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Session *session.Session
}

func (h *Handlers) Register(r fiber.Router) {
	r.Get("/", h.Get)
	r.Put("/", h.Change)
}

// GET /api/v1/settings
func (h *Handlers) Get(c *fiber.Ctx) error {
	values, err := h.Session.Settings(c.UserContext())
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Settings fetched", values, nil)
}

// PUT /api/v1/settings takes a change envelope:
// {"type": "single"|"bulk"|"preset", "payload": {...}}.
// Changes from senders without a valid X-Admin-Key are dropped and answered
// with 202 and no values.
func (h *Handlers) Change(c *fiber.Ctx) error {
	change, err := settingssvc.DecodeChange(c.Body())
	if err != nil {
		return response.FromError(c, err)
	}
	applied, err := h.Session.ApplySettings(c.UserContext(), middleware.GetActor(c), change)
	if err != nil {
		return response.FromError(c, err)
	}
	if applied == nil {
		return c.Status(fiber.StatusAccepted).JSON(response.SuccessBody{
			Status:  "success",
			Message: "Settings change ignored",
			Data:    fiber.Map{},
		})
	}
	return response.Success(c, "Settings changed", applied, nil)
}
