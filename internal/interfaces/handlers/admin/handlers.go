package admin

import (
	"usedplus-economy/internal/pkg/response"
	"usedplus-economy/internal/session"

	"github.com/gofiber/fiber/v2"
)

// maxAdvanceHours caps one advance request at thirty in-game days.
const maxAdvanceHours = 24 * 30

type Handlers struct {
	Session *session.Session
}

// Register mounts the session routes. Mutating routes need requireAdmin.
func (h *Handlers) Register(r fiber.Router, requireAdmin fiber.Handler) {
	r.Get("/status", h.Status)
	r.Post("/advance", requireAdmin, h.Advance)
	r.Post("/save", requireAdmin, h.Save)
	r.Post("/load", requireAdmin, h.Load)
}

// GET /api/v1/session/status
func (h *Handlers) Status(c *fiber.Ctx) error {
	st, err := h.Session.Status(c.UserContext())
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Session status", st, nil)
}

// POST /api/v1/session/advance {"hours": n}
func (h *Handlers) Advance(c *fiber.Ctx) error {
	var body struct {
		Hours int `json:"hours"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	if body.Hours <= 0 || body.Hours > maxAdvanceHours {
		return response.Error(c, "hours must be between 1 and 720", fiber.StatusBadRequest, nil)
	}
	st, err := h.Session.AdvanceHours(c.UserContext(), body.Hours)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Clock advanced", st, nil)
}

// POST /api/v1/session/save
func (h *Handlers) Save(c *fiber.Ctx) error {
	res, err := h.Session.Save(c.UserContext())
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Session saved", res, nil)
}

// POST /api/v1/session/load
func (h *Handlers) Load(c *fiber.Ctx) error {
	found, err := h.Session.Load(c.UserContext())
	if err != nil {
		return response.FromError(c, err)
	}
	if !found {
		return response.Error(c, "No save in this slot", fiber.StatusNotFound, nil)
	}
	return response.Success(c, "Session loaded", fiber.Map{"loaded": true}, nil)
}
