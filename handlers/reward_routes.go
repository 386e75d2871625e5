// handlers/reward_routes.go
package handlers

import (
	"soltap-backend/middleware"
	"soltap-backend/services"

	"github.com/gofiber/fiber/v2"

	"gorm.io/gorm"
)

func SetupRewardRoutes(app *fiber.App, db *gorm.DB, claimService *services.ClaimService) {
	// Secured: both routes act on the authenticated user's rewards.
	secured := app.Group("/", middleware.SessionAuth(db))

	secured.Get("/user/rewards", claimService.GetUserRewards)
	secured.Post("/rewards/claim", claimService.ClaimReward)
}
