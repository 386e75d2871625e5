// handlers/score_routes.go
package handlers

import (
	"soltap-backend/services"

	"github.com/gofiber/fiber/v2"
)

func SetupScoreRoutes(app *fiber.App, scoreService *services.ScoreService) {
	// Public: scores carry the wallet address directly, anonymous play is
	// allowed (settlement provisions users for winning wallets later).
	app.Post("/scores", scoreService.SubmitScore)
	app.Get("/leaderboard", scoreService.GetLeaderboard)
}
