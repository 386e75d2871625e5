// middleware/service_token.go
package middleware

import (
	"crypto/subtle"
	"log"
	"os"

	"github.com/gofiber/fiber/v2"
)

// ServiceTokenAuth guards operational endpoints (season settlement trigger)
// with a shared token from SERVICE_TRIGGER_TOKEN. The scheduler bypasses
// HTTP entirely; this is only for external triggers.
func ServiceTokenAuth() fiber.Handler {
	expectedToken := os.Getenv("SERVICE_TRIGGER_TOKEN")
	if expectedToken == "" {
		log.Fatal("SERVICE_TRIGGER_TOKEN is not set — settlement trigger cannot be exposed")
	}

	return func(c *fiber.Ctx) error {
		token := c.Get("X-Service-Token")
		if subtle.ConstantTimeCompare([]byte(token), []byte(expectedToken)) != 1 {
			log.Printf("[SERVICE_AUTH] Rejected trigger for %s", c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid service token"})
		}
		return c.Next()
	}
}
