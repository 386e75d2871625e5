// services/claim_service.go
package services

import (
	"context"
	"errors"
	"log"
	"time"

	"soltap-backend/models"
	"soltap-backend/utils"

	"github.com/gagliardetto/solana-go"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// minTreasuryLamports is the fee floor the treasury must hold before a
// transfer is attempted (~0.003 SOL for rent + fees).
const minTreasuryLamports = 3_000_000

// ChainClient is the slice of the Solana client the claim executor needs.
type ChainClient interface {
	Balance(ctx context.Context, owner solana.PublicKey) (uint64, error)
	TransferTokens(ctx context.Context, treasury solana.PrivateKey, mint, recipient solana.PublicKey, amount uint64) (solana.Signature, error)
}

type ClaimService struct {
	DB    *gorm.DB
	Chain ChainClient

	// LoadKey resolves a reward token's treasury secret name to a keypair.
	LoadKey func(secretName string) (solana.PrivateKey, error)
}

func NewClaimService(db *gorm.DB, chain ChainClient) *ClaimService {
	return &ClaimService{DB: db, Chain: chain, LoadKey: utils.LoadTreasuryKey}
}

// claimError serializes a business rejection. Claim errors deliberately ship
// with HTTP 200 so the mobile client always gets a JSON body to inspect.
func claimError(c *fiber.Ctx, msg string, details string) error {
	body := fiber.Map{"error": msg}
	if details != "" {
		body["details"] = details
	}
	return c.JSON(body)
}

// ClaimReward handles POST /rewards/claim for the authenticated user:
// validates eligibility, moves the tokens on-chain, then marks the reward
// claimed with the transaction signature.
func (s *ClaimService) ClaimReward(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	var req struct {
		RewardID string `json:"reward_id"`
	}
	if err := c.BodyParser(&req); err != nil || req.RewardID == "" {
		return claimError(c, "Missing reward_id", "")
	}

	// Ownership check happens in the query predicate: a reward belonging to
	// someone else is indistinguishable from one that does not exist.
	var reward models.UserReward
	err := s.DB.Preload("Season").Preload("RewardToken").
		Where("id = ? AND user_id = ?", req.RewardID, userID).
		First(&reward).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return claimError(c, "Reward not found or access denied", "")
		}
		log.Printf("[CLAIM] DB error loading reward %s: %v", req.RewardID, err)
		return claimError(c, "Failed to load reward", err.Error())
	}

	if reward.Claimed {
		return claimError(c, "Reward already claimed", "")
	}
	if !reward.Season.ClaimsEnabled {
		return claimError(c, "Claims are currently disabled for this season", "")
	}

	// Stake an idempotency token before touching the chain. Zero rows
	// affected means another attempt claimed the reward or is in flight,
	// so a retried request after a timeout cannot pay twice.
	attemptID := uuid.NewString()
	stake := s.DB.Model(&models.UserReward{}).
		Where("id = ? AND claimed = ? AND claim_attempt_id IS NULL", reward.ID, false).
		Update("claim_attempt_id", attemptID)
	if stake.Error != nil {
		log.Printf("[CLAIM] Failed to stake attempt on reward %s: %v", reward.ID, stake.Error)
		return claimError(c, "Failed to start claim", stake.Error.Error())
	}
	if stake.RowsAffected == 0 {
		return claimError(c, "Reward already claimed", "a claim for this reward is already completed or in flight")
	}

	treasury, err := s.LoadKey(reward.RewardToken.TreasurySecretName)
	if err != nil {
		s.releaseStake(reward.ID, attemptID)
		log.Printf("[CLAIM] Treasury key unavailable for reward %s: %v", reward.ID, err)
		return claimError(c, "Server configuration error", err.Error())
	}

	mint, err := solana.PublicKeyFromBase58(reward.RewardToken.MintAddress)
	if err != nil {
		s.releaseStake(reward.ID, attemptID)
		return claimError(c, "Invalid reward token mint", err.Error())
	}
	recipient, err := solana.PublicKeyFromBase58(reward.WalletAddress)
	if err != nil {
		s.releaseStake(reward.ID, attemptID)
		return claimError(c, "Invalid recipient wallet", err.Error())
	}

	ctx := c.Context()

	balance, err := s.Chain.Balance(ctx, treasury.PublicKey())
	if err != nil {
		s.releaseStake(reward.ID, attemptID)
		return claimError(c, "Failed to check treasury balance", err.Error())
	}
	if balance < minTreasuryLamports {
		s.releaseStake(reward.ID, attemptID)
		log.Printf("[CLAIM] Treasury below fee floor: %d lamports", balance)
		return claimError(c, "Treasury insufficient SOL", "the treasury cannot cover network fees right now")
	}

	sig, err := s.Chain.TransferTokens(ctx, treasury, mint, recipient, reward.Amount)
	if err != nil {
		s.releaseStake(reward.ID, attemptID)
		log.Printf("[CLAIM] Transfer failed for reward %s: %v", reward.ID, err)
		return claimError(c, "Transfer failed", err.Error())
	}

	now := time.Now()
	update := s.DB.Model(&models.UserReward{}).
		Where("id = ?", reward.ID).
		Updates(map[string]interface{}{
			"claimed":          true,
			"claimed_at":       &now,
			"tx_hash":          sig.String(),
			"claim_attempt_id": nil,
		})
	if update.Error != nil {
		// Tokens are gone but the row says unclaimed. There is no automatic
		// reconciliation; the signature in the log is the recovery handle.
		log.Printf("[CLAIM] CRITICAL: reward %s paid on-chain (tx %s) but DB update failed: %v",
			reward.ID, sig, update.Error)
	}

	return c.JSON(fiber.Map{"success": true, "tx": sig.String()})
}

// releaseStake clears an in-flight attempt marker after a failed claim so
// the user can retry.
func (s *ClaimService) releaseStake(rewardID, attemptID string) {
	err := s.DB.Model(&models.UserReward{}).
		Where("id = ? AND claim_attempt_id = ?", rewardID, attemptID).
		Update("claim_attempt_id", nil).Error
	if err != nil {
		log.Printf("[CLAIM] Failed to release attempt %s on reward %s: %v", attemptID, rewardID, err)
	}
}

// GetUserRewards lists the authenticated user's rewards, newest first, with
// season and token context the client needs to render claim buttons.
func (s *ClaimService) GetUserRewards(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	var rewards []models.UserReward
	err := s.DB.Preload("Season").Preload("RewardToken").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&rewards).Error
	if err != nil {
		log.Printf("[CLAIM] DB error fetching rewards for %s: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch rewards"})
	}

	return c.JSON(rewards)
}
