package services

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"soltap-backend/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newScoreApp(t *testing.T) (*fiber.App, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	svc := NewScoreService(db)
	app := fiber.New()
	app.Post("/scores", svc.SubmitScore)
	app.Get("/leaderboard", svc.GetLeaderboard)
	return app, db
}

func postScore(t *testing.T, app *fiber.App, payload map[string]any) int {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	req := httptest.NewRequest("POST", "/scores", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	resp.Body.Close()
	return resp.StatusCode
}

func TestSubmitScoreValidation(t *testing.T) {
	app, db := newScoreApp(t)

	assert.Equal(t, fiber.StatusBadRequest, postScore(t, app, map[string]any{
		"time_ms": 120, // no wallet
	}))
	assert.Equal(t, fiber.StatusBadRequest, postScore(t, app, map[string]any{
		"wallet_address": "walletA", "game_mode": "warp_speed", "time_ms": 120,
	}))
	assert.Equal(t, fiber.StatusBadRequest, postScore(t, app, map[string]any{
		"wallet_address": "walletA", // timing mode, no time
	}))
	assert.Equal(t, fiber.StatusBadRequest, postScore(t, app, map[string]any{
		"wallet_address": "walletA", "game_mode": models.ModeProgressiveSpeed, // no streak
	}))

	assert.Equal(t, fiber.StatusCreated, postScore(t, app, map[string]any{
		"wallet_address": "walletA", "time_ms": 120, "tx_signature": "sig",
	}))

	var score models.Score
	require.NoError(t, db.First(&score).Error)
	assert.Equal(t, models.ModeReactionTest, score.GameMode) // defaulted
	assert.Equal(t, models.PaymentPending, score.PaymentStatus)
}

func TestLeaderboardOrderingPerMode(t *testing.T) {
	app, db := newScoreApp(t)

	for _, s := range []models.Score{
		{WalletAddress: "slow", TimeMs: 300, GameMode: models.ModeReactionTest},
		{WalletAddress: "fast", TimeMs: 90, GameMode: models.ModeReactionTest},
		{WalletAddress: "mid", TimeMs: 150, GameMode: models.ModeReactionTest},
		{WalletAddress: "short", Score: 3, GameMode: models.ModeProgressiveSpeed},
		{WalletAddress: "long", Score: 17, GameMode: models.ModeProgressiveSpeed},
	} {
		s.ID = uuid.NewString()
		require.NoError(t, db.Create(&s).Error)
	}

	fetch := func(url string) []models.Score {
		req := httptest.NewRequest("GET", url, nil)
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
		data, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		var scores []models.Score
		require.NoError(t, json.Unmarshal(data, &scores))
		return scores
	}

	timing := fetch("/leaderboard")
	require.Len(t, timing, 3)
	assert.Equal(t, "fast", timing[0].WalletAddress)
	assert.Equal(t, "mid", timing[1].WalletAddress)
	assert.Equal(t, "slow", timing[2].WalletAddress)

	streaks := fetch("/leaderboard?mode=progressive_speed")
	require.Len(t, streaks, 2)
	assert.Equal(t, "long", streaks[0].WalletAddress)
	assert.Equal(t, "short", streaks[1].WalletAddress)
}
