package middleware

import (
	"crypto/subtle"
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/tapcardhq/tapcard/internal/pkg/env"
)

// OperatorAuthMiddleware guards operator-only endpoints (manual payments,
// transaction listings, revenue analytics) with a shared key from the
// environment. A missing OPERATOR_API_KEY disables the surface entirely
// instead of leaving it open.
func OperatorAuthMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		expected := env.GetEnv("OPERATOR_API_KEY", "")
		if expected == "" {
			log.Print("operator middleware: OPERATOR_API_KEY not configured")
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"error":   "service_unavailable",
				"message": "Operator access not configured",
			})
		}

		key := extractOperatorKey(c)
		if key == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error":   "unauthorized",
				"message": "Missing operator key",
			})
		}

		if subtle.ConstantTimeCompare([]byte(key), []byte(expected)) != 1 {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error":   "unauthorized",
				"message": "Invalid operator key",
			})
		}

		return c.Next()
	}
}

func extractOperatorKey(c *fiber.Ctx) string {
	key := strings.TrimSpace(c.Get("X-Operator-Key"))
	if key != "" {
		return key
	}
	auth := strings.TrimSpace(c.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}
