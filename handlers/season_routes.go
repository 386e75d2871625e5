// handlers/season_routes.go
package handlers

import (
	"soltap-backend/middleware"
	"soltap-backend/services"

	"github.com/gofiber/fiber/v2"
)

func SetupSeasonRoutes(app *fiber.App, seasonService *services.SeasonService) {
	app.Get("/seasons/current", seasonService.GetCurrentSeason)

	// External settlement trigger (a schedule hits this); the in-process
	// scheduler calls the service directly.
	admin := app.Group("/admin", middleware.ServiceTokenAuth())
	admin.Post("/seasons/process", seasonService.ProcessSeasons)
}
