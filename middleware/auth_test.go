package middleware

import (
	"net/http/httptest"
	"testing"
	"time"

	"soltap-backend/models"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupAuthApp(t *testing.T) (*fiber.App, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Session{}))

	app := fiber.New()
	app.Get("/whoami", SessionAuth(db), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"user_id":        c.Locals("user_id"),
			"wallet_address": c.Locals("wallet_address"),
		})
	})
	return app, db
}

func seedSession(t *testing.T, db *gorm.DB, expiresAt time.Time) models.Session {
	t.Helper()
	user := models.User{
		ID:            uuid.NewString(),
		Email:         uuid.NewString() + "@soltap.app",
		WalletAddress: "walletA",
	}
	require.NoError(t, db.Create(&user).Error)

	session := models.Session{
		ID:          uuid.NewString(),
		UserID:      user.ID,
		AccessToken: uuid.NewString(),
		ExpiresAt:   expiresAt,
	}
	require.NoError(t, db.Create(&session).Error)
	session.User = user
	return session
}

func TestSessionAuth(t *testing.T) {
	app, db := setupAuthApp(t)
	live := seedSession(t, db, time.Now().Add(time.Hour))
	expired := seedSession(t, db, time.Now().Add(-time.Hour))

	get := func(authHeader string) int {
		req := httptest.NewRequest("GET", "/whoami", nil)
		if authHeader != "" {
			req.Header.Set("Authorization", authHeader)
		}
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		resp.Body.Close()
		return resp.StatusCode
	}

	assert.Equal(t, fiber.StatusUnauthorized, get(""))
	assert.Equal(t, fiber.StatusUnauthorized, get("Token abc"))
	assert.Equal(t, fiber.StatusUnauthorized, get("Bearer does-not-exist"))
	assert.Equal(t, fiber.StatusUnauthorized, get("Bearer "+expired.AccessToken))
	assert.Equal(t, fiber.StatusOK, get("Bearer "+live.AccessToken))
}
