package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"soltap-backend/handlers"
	"soltap-backend/models"
	"soltap-backend/services"
	"soltap-backend/utils"
	"soltap-backend/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading environment variables directly")
	}

	app := fiber.New(fiber.Config{})

	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	if allowedOrigins == "" {
		log.Println("ALLOWED_ORIGINS not set, allowing all origins")
		allowedOrigins = "*"
	}
	origins := strings.Split(allowedOrigins, ",")
	for i, origin := range origins {
		origins[i] = strings.TrimSpace(origin)
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(origins, ","),
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Service-Token",
	}))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.Session{},
		&models.Score{},
		&models.Season{},
		&models.RewardCampaign{},
		&models.RewardTier{},
		&models.RewardToken{},
		&models.UserReward{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	authSecret := os.Getenv("AUTH_SECRET")
	if authSecret == "" {
		log.Fatal("AUTH_SECRET environment variable not set")
	}

	rpcURL := os.Getenv("RPC_URL")
	if rpcURL == "" {
		log.Fatal("RPC_URL environment variable not set")
	}
	treasuryClient := utils.NewTreasuryClient(rpcURL)

	authService := services.NewAuthService(db, authSecret)
	scoreService := services.NewScoreService(db)
	seasonService := services.NewSeasonService(db, authService)
	claimService := services.NewClaimService(db, treasuryClient)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	watcher := workers.NewPaymentWatcher(db, treasuryClient)
	go workers.PollPayments(ctx, watcher, 2*time.Second)

	seasonService.StartSettlementScheduler()

	handlers.SetupAuthRoutes(app, authService)
	handlers.SetupScoreRoutes(app, scoreService)
	handlers.SetupRewardRoutes(app, db, claimService)
	handlers.SetupSeasonRoutes(app, seasonService)

	port := os.Getenv("PORT")
	if port == "" {
		port = "5300"
	}

	go func() {
		if err := app.Listen(":" + port); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Printf("Server running on http://localhost:%s", port)
	log.Println("Payment watcher running (every 2s)")
	log.Println("Season settlement scheduler running (every 5m)")

	<-ctx.Done()
	log.Println("Shutting down server...")
	if err := app.Shutdown(); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
}
