// handlers/auth_routes.go
package handlers

import (
	"soltap-backend/services"

	"github.com/gofiber/fiber/v2"
)

func SetupAuthRoutes(app *fiber.App, authService *services.AuthService) {
	// Public: this is the entry point that mints sessions.
	app.Post("/auth/login", authService.Login)
}
