package middleware

import (
	"strconv"

	"usedplus-economy/internal/domain"
	"usedplus-economy/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

const (
	FarmIDHeader   = "X-Farm-Id"
	PlayerIDHeader = "X-Player-Id"
	AdminKeyHeader = "X-Admin-Key"

	actorLocal = "actor"
)

// Actor identifies the sender of a request from its headers. The sender is
// privileged when X-Admin-Key matches adminKeyHash (bcrypt). An empty hash
// disables privileged access.
func Actor(adminKeyHash string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var a domain.Actor
		if raw := c.Get(FarmIDHeader); raw != "" {
			id, err := strconv.Atoi(raw)
			if err != nil || id <= 0 {
				return response.Error(c, "Invalid farm id", fiber.StatusBadRequest, nil)
			}
			a.FarmID = id
		}
		a.PlayerID = c.Get(PlayerIDHeader)
		if key := c.Get(AdminKeyHeader); key != "" && adminKeyHash != "" {
			if err := bcrypt.CompareHashAndPassword([]byte(adminKeyHash), []byte(key)); err == nil {
				a.Privileged = true
			} else {
				log.Warn().Str("trace_id", GetTraceID(c)).Int("farm_id", a.FarmID).Msg("Admin key rejected")
			}
		}
		c.Locals(actorLocal, a)
		return c.Next()
	}
}

// GetActor returns the request's actor; the zero Actor when none was set.
func GetActor(c *fiber.Ctx) domain.Actor {
	a, _ := c.Locals(actorLocal).(domain.Actor)
	return a
}

// RequireFarm rejects requests that do not name a farm.
func RequireFarm() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if GetActor(c).FarmID == 0 {
			return response.Unauthorized(c, "Missing "+FarmIDHeader+" header")
		}
		return c.Next()
	}
}

// RequireAdmin rejects requests without a valid admin key.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !GetActor(c).Privileged {
			return response.Error(c, "User is Forbidden from performing this action", fiber.StatusForbidden, nil)
		}
		return c.Next()
	}
}
