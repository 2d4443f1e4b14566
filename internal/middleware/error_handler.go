package middleware

import (
	"usedplus-economy/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// ErrorHandler is the global error handler. Domain error kinds map to their
// HTTP status; everything else is a 500 with the standard error format.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := response.StatusFor(err)
	if code >= fiber.StatusInternalServerError {
		log.Error().Err(err).Str("trace_id", GetTraceID(c)).Str("path", c.Path()).Msg("Request failed")
	}
	return response.FromError(c, err)
}
