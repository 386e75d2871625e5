// services/season_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"soltap-backend/models"

	"github.com/go-co-op/gocron/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// scoreFetchCap bounds how many season scores one settlement run loads.
const scoreFetchCap = 1000

type SeasonService struct {
	DB   *gorm.DB
	Auth *AuthService // for provisioning users owed a reward on an anonymous score
}

func NewSeasonService(db *gorm.DB, auth *AuthService) *SeasonService {
	return &SeasonService{DB: db, Auth: auth}
}

// SettlementSummary reports what one ProcessNextSeason invocation did.
// Message is set for the two early-out cases instead of SeasonName.
type SettlementSummary struct {
	SeasonName       string `json:"season,omitempty"`
	RewardsGenerated int    `json:"rewards_generated"`
	RewardsDropped   int    `json:"rewards_dropped,omitempty"`
	Message          string `json:"message,omitempty"`
}

// ProcessNextSeason settles at most one elapsed season: ranks its scores,
// applies the campaign tiers, inserts reward rows, and marks the season
// processed with claims enabled. The whole run commits in a single
// transaction with the season row leased FOR UPDATE SKIP LOCKED, so a
// concurrent or re-run invocation cannot double-insert rewards — any error
// rolls everything back and the season is retried wholesale next run.
func (s *SeasonService) ProcessNextSeason(ctx context.Context) (*SettlementSummary, error) {
	summary := &SettlementSummary{}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()

		q := tx.Where("end_at < ? AND processed_at IS NULL AND rewards_enabled = ?", now, true).
			Order("end_at ASC")
		if tx.Dialector.Name() == "postgres" {
			// Lease the season row so overlapping invocations skip it.
			q = q.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"})
		}

		var season models.Season
		if err := q.First(&season).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				summary.Message = "No seasons to process"
				return nil
			}
			return fmt.Errorf("failed to select season: %w", err)
		}

		log.Printf("[SEASON] Processing season %q (%s)", season.Name, season.ID)
		summary.SeasonName = season.Name

		// Wallet → user id map, so anonymous scores can still earn rewards.
		var users []models.User
		if err := tx.Find(&users).Error; err != nil {
			return fmt.Errorf("failed to load users: %w", err)
		}
		walletToUserID := make(map[string]string, len(users))
		for _, u := range users {
			if u.WalletAddress != "" {
				walletToUserID[u.WalletAddress] = u.ID
			}
		}

		var campaigns []models.RewardCampaign
		if err := tx.Preload("Tiers.RewardToken").
			Where("season_id = ? AND active = ?", season.ID, true).
			Find(&campaigns).Error; err != nil {
			return fmt.Errorf("failed to load campaigns: %w", err)
		}
		if len(campaigns) == 0 {
			log.Printf("[SEASON] No active campaigns for %q, skipping rewards", season.Name)
			summary.Message = "No campaigns"
			return markProcessed(tx, season.ID)
		}

		// Timing modes only: progressive_speed stores a streak where higher
		// is better, which the time-ascending ranking policy cannot order.
		var entries []models.Score
		if err := tx.Where("created_at >= ? AND created_at <= ? AND game_mode <> ?",
			season.StartAt, season.EndAt, models.ModeProgressiveSpeed).
			Order("time_ms ASC").
			Limit(scoreFetchCap).
			Find(&entries).Error; err != nil {
			return fmt.Errorf("failed to load scores: %w", err)
		}

		// One reward slot per wallet per season: first entry in sorted order
		// is the wallet's best, later ones are discarded.
		seen := make(map[string]bool, len(entries))
		var ranked []models.Score
		for _, e := range entries {
			if seen[e.WalletAddress] {
				continue
			}
			seen[e.WalletAddress] = true
			ranked = append(ranked, e)
		}

		var rewards []models.UserReward
		dropped := 0

		for i, winner := range ranked {
			rank := i + 1
			for _, campaign := range campaigns {
				for _, tier := range campaign.Tiers {
					if rank < tier.RankMin || rank > tier.RankMax {
						continue
					}

					userID := walletToUserID[winner.WalletAddress]
					if userID == "" && winner.WalletAddress != "" {
						provisioned, err := s.provisionUser(tx, winner.WalletAddress)
						if err != nil {
							log.Printf("[SEASON] Could not provision user for %s: %v", winner.WalletAddress, err)
						} else {
							userID = provisioned.ID
							walletToUserID[winner.WalletAddress] = userID
						}
					}

					if userID == "" {
						dropped++
						continue
					}

					rewards = append(rewards, models.UserReward{
						ID:            uuid.NewString(),
						UserID:        userID,
						SeasonID:      season.ID,
						RewardTokenID: tier.RewardTokenID,
						WalletAddress: winner.WalletAddress,
						Amount:        tier.Amount,
						Claimed:       false,
					})
				}
			}
		}

		if dropped > 0 {
			log.Printf("[SEASON] Dropped %d staged rewards with no resolvable user id", dropped)
		}

		if len(rewards) > 0 {
			if err := tx.Create(&rewards).Error; err != nil {
				return fmt.Errorf("failed to insert rewards: %w", err)
			}
		}

		summary.RewardsGenerated = len(rewards)
		summary.RewardsDropped = dropped
		return markProcessed(tx, season.ID)
	})
	if err != nil {
		return nil, err
	}

	if summary.Message == "" {
		log.Printf("[SEASON] Settled %q: %d rewards generated", summary.SeasonName, summary.RewardsGenerated)
	}
	return summary, nil
}

// provisionUser creates an account for a wallet that placed on the
// leaderboard without ever logging in.
func (s *SeasonService) provisionUser(tx *gorm.DB, address string) (*models.User, error) {
	log.Printf("[SEASON] Provisioning user for %s", address)
	user := models.User{
		ID:             uuid.NewString(),
		Email:          SyntheticEmail(address),
		WalletAddress:  address,
		CredentialHash: s.Auth.walletCredential(address),
		EmailConfirmed: true,
	}
	if err := tx.Create(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// markProcessed stamps the season and opens claims, unconditionally — a
// season with zero generated rewards still transitions to claimable.
func markProcessed(tx *gorm.DB, seasonID string) error {
	now := time.Now()
	if err := tx.Model(&models.Season{}).Where("id = ?", seasonID).
		Updates(map[string]interface{}{
			"processed_at":   &now,
			"claims_enabled": true,
		}).Error; err != nil {
		return fmt.Errorf("failed to mark season processed: %w", err)
	}
	return nil
}

// ProcessSeasons handles the externally triggered settlement endpoint.
func (s *SeasonService) ProcessSeasons(c *fiber.Ctx) error {
	summary, err := s.ProcessNextSeason(c.Context())
	if err != nil {
		log.Printf("[SEASON] Settlement run failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Season processing failed", "details": err.Error()})
	}

	if summary.Message != "" {
		return c.JSON(fiber.Map{"message": summary.Message})
	}
	return c.JSON(fiber.Map{
		"success":           true,
		"season":            summary.SeasonName,
		"rewards_generated": summary.RewardsGenerated,
	})
}

// GetCurrentSeason returns the season that is live right now, if any.
func (s *SeasonService) GetCurrentSeason(c *fiber.Ctx) error {
	now := time.Now()
	var season models.Season
	err := s.DB.Where("start_at <= ? AND end_at > ?", now, now).
		Order("end_at ASC").
		First(&season).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.JSON(fiber.Map{"season": nil})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}
	return c.JSON(fiber.Map{"season": season})
}

// StartSettlementScheduler runs season settlement on an interval so the
// service needs no external cron to make progress.
func (s *SeasonService) StartSettlementScheduler() {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	_, _ = sched.NewJob(
		gocron.DurationJob(5*time.Minute),
		gocron.NewTask(func() {
			if _, err := s.ProcessNextSeason(context.Background()); err != nil {
				log.Printf("[SEASON] Scheduled settlement failed: %v", err)
			}
		}),
	)
}
