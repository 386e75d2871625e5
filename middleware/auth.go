// middleware/auth.go
package middleware

import (
	"errors"
	"log"
	"strings"
	"time"

	"soltap-backend/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// SessionAuth resolves the Bearer token to a live session and attaches the
// user identity to the request context for handlers.
func SessionAuth(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Missing Authorization header"})
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		if token == authHeader || token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Authorization header must be a Bearer token"})
		}

		var session models.Session
		err := db.Preload("User").Where("access_token = ?", token).First(&session).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid session token"})
			}
			log.Printf("[AUTH] DB error resolving session: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to resolve session"})
		}

		if time.Now().After(session.ExpiresAt) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Session expired"})
		}

		c.Locals("user_id", session.UserID)
		c.Locals("wallet_address", session.User.WalletAddress)

		return c.Next()
	}
}
