// services/score_service.go
package services

import (
	"log"

	"soltap-backend/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ScoreService struct {
	DB *gorm.DB
}

func NewScoreService(db *gorm.DB) *ScoreService {
	return &ScoreService{DB: db}
}

func validGameMode(mode string) bool {
	switch mode {
	case models.ModeReactionTest, models.ModeMultiZone, models.ModeProgressiveSpeed:
		return true
	}
	return false
}

// SubmitScore records one leaderboard entry together with the Solana Pay
// entry-fee signature the client reports. The payment watcher confirms the
// signature on-chain afterwards; the score row itself is immutable.
func (s *ScoreService) SubmitScore(c *fiber.Ctx) error {
	var req struct {
		TimeMs        int64  `json:"time_ms"`
		Score         int64  `json:"score"`
		WalletAddress string `json:"wallet_address"`
		TxSignature   string `json:"tx_signature"`
		GameMode      string `json:"game_mode"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if req.GameMode == "" {
		req.GameMode = models.ModeReactionTest
	}
	if !validGameMode(req.GameMode) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Unknown game mode"})
	}
	if req.WalletAddress == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing wallet_address"})
	}
	if req.GameMode == models.ModeProgressiveSpeed {
		if req.Score <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing score"})
		}
	} else if req.TimeMs <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing time_ms"})
	}

	score := models.Score{
		ID:            uuid.NewString(),
		TimeMs:        req.TimeMs,
		Score:         req.Score,
		WalletAddress: req.WalletAddress,
		GameMode:      req.GameMode,
		TxSignature:   req.TxSignature,
		PaymentStatus: models.PaymentPending,
	}
	if err := s.DB.Create(&score).Error; err != nil {
		log.Printf("[SCORE] DB error inserting score: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to submit score"})
	}

	return c.Status(fiber.StatusCreated).JSON(score)
}

// GetLeaderboard returns the top 50 entries for a mode. Timing modes rank
// ascending on time_ms; progressive_speed ranks descending on streak.
func (s *ScoreService) GetLeaderboard(c *fiber.Ctx) error {
	mode := c.Query("mode", models.ModeReactionTest)
	if !validGameMode(mode) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Unknown game mode"})
	}

	order := "time_ms ASC"
	if mode == models.ModeProgressiveSpeed {
		order = "score DESC"
	}

	var scores []models.Score
	if err := s.DB.Where("game_mode = ?", mode).
		Order(order).
		Limit(50).
		Find(&scores).Error; err != nil {
		log.Printf("[SCORE] DB error fetching leaderboard: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch leaderboard"})
	}

	return c.JSON(scores)
}
