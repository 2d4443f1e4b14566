package middleware

import (
	"strings"

	"usedplus-economy/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

type CORSConfig struct {
	AllowedSuffix string
	DevPassword   string
	// AllowLocal admits localhost origins (development dashboards).
	AllowLocal bool
}

const allowedHeaders = "Content-Type, dev-password, " + FarmIDHeader + ", " + PlayerIDHeader + ", " + AdminKeyHeader + ", " + traceIDHeader

// CORS admits requests without an Origin (the game host itself), origins
// ending with AllowedSuffix, local origins when enabled, and requests that
// carry the dev-password header. Everything else gets 403.
func CORS(cfg CORSConfig) fiber.Handler {
	suffix := strings.ToLower(cfg.AllowedSuffix)
	return func(c *fiber.Ctx) error {
		origin := c.Get("Origin")
		if origin == "" {
			return c.Next()
		}
		allowed := (suffix != "" && strings.HasSuffix(strings.ToLower(origin), suffix)) ||
			(cfg.AllowLocal && isLocal(origin)) ||
			(cfg.DevPassword != "" && c.Get("dev-password") == cfg.DevPassword)
		if !allowed {
			return response.Error(c, "Not allowed by CORS", fiber.StatusForbidden, nil)
		}
		c.Set("Access-Control-Allow-Origin", origin)
		c.Set("Access-Control-Allow-Credentials", "true")
		c.Set("Access-Control-Allow-Headers", allowedHeaders)
		c.Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		if c.Method() == fiber.MethodOptions {
			return c.SendStatus(fiber.StatusNoContent)
		}
		return c.Next()
	}
}

func isLocal(origin string) bool {
	return strings.HasPrefix(origin, "http://localhost:") || strings.HasPrefix(origin, "http://127.0.0.1:")
}
