package services

import (
	"context"
	"testing"
	"time"

	"soltap-backend/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seedEndedSeason(t *testing.T, db *gorm.DB) models.Season {
	t.Helper()
	now := time.Now()
	season := models.Season{
		ID:             uuid.NewString(),
		Name:           "Season 1",
		StartAt:        now.Add(-2 * time.Hour),
		EndAt:          now.Add(-1 * time.Minute),
		RewardsEnabled: true,
	}
	require.NoError(t, db.Create(&season).Error)
	return season
}

func seedCampaign(t *testing.T, db *gorm.DB, seasonID string, tiers ...models.RewardTier) models.RewardToken {
	t.Helper()
	token := models.RewardToken{
		ID:                 uuid.NewString(),
		MintAddress:        "So11111111111111111111111111111111111111112",
		Symbol:             "TAP",
		Decimals:           6,
		TreasurySecretName: "TREASURY_SECRET_TAP",
	}
	require.NoError(t, db.Create(&token).Error)

	campaign := models.RewardCampaign{
		ID:       uuid.NewString(),
		SeasonID: seasonID,
		Name:     "Top finishers",
		Active:   true,
	}
	require.NoError(t, db.Create(&campaign).Error)

	for i := range tiers {
		tiers[i].ID = uuid.NewString()
		tiers[i].CampaignID = campaign.ID
		tiers[i].RewardTokenID = token.ID
		require.NoError(t, db.Create(&tiers[i]).Error)
	}
	return token
}

func seedScore(t *testing.T, db *gorm.DB, wallet string, timeMs int64, at time.Time) {
	t.Helper()
	require.NoError(t, db.Create(&models.Score{
		ID:            uuid.NewString(),
		TimeMs:        timeMs,
		WalletAddress: wallet,
		GameMode:      models.ModeReactionTest,
		PaymentStatus: models.PaymentConfirmed,
		CreatedAt:     at,
	}).Error)
}

func newSeasonService(db *gorm.DB) *SeasonService {
	return NewSeasonService(db, NewAuthService(db, "test-secret"))
}

func TestSettlementRanksAndDeduplicates(t *testing.T) {
	db := newTestDB(t)
	svc := newSeasonService(db)

	season := seedEndedSeason(t, db)
	seedCampaign(t, db, season.ID, models.RewardTier{RankMin: 1, RankMax: 1, Amount: 500})

	inWindow := season.StartAt.Add(30 * time.Minute)
	seedScore(t, db, "walletA", 100, inWindow)
	seedScore(t, db, "walletB", 150, inWindow)
	seedScore(t, db, "walletA", 90, inWindow)

	summary, err := svc.ProcessNextSeason(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "Season 1", summary.SeasonName)
	assert.Equal(t, 1, summary.RewardsGenerated)

	var rewards []models.UserReward
	require.NoError(t, db.Find(&rewards).Error)
	require.Len(t, rewards, 1)
	assert.Equal(t, "walletA", rewards[0].WalletAddress)
	assert.EqualValues(t, 500, rewards[0].Amount)
	assert.False(t, rewards[0].Claimed)

	// walletA never logged in, so settlement provisioned an account for it.
	var user models.User
	require.NoError(t, db.Where("wallet_address = ?", "walletA").First(&user).Error)
	assert.Equal(t, user.ID, rewards[0].UserID)

	var processed models.Season
	require.NoError(t, db.First(&processed, "id = ?", season.ID).Error)
	assert.NotNil(t, processed.ProcessedAt)
	assert.True(t, processed.ClaimsEnabled)
}

func TestSettlementMultipleTiers(t *testing.T) {
	db := newTestDB(t)
	svc := newSeasonService(db)

	season := seedEndedSeason(t, db)
	seedCampaign(t, db, season.ID,
		models.RewardTier{RankMin: 1, RankMax: 1, Amount: 500},
		models.RewardTier{RankMin: 2, RankMax: 3, Amount: 100},
	)

	inWindow := season.StartAt.Add(10 * time.Minute)
	seedScore(t, db, "w1", 50, inWindow)
	seedScore(t, db, "w2", 60, inWindow)
	seedScore(t, db, "w3", 70, inWindow)
	seedScore(t, db, "w4", 80, inWindow)

	summary, err := svc.ProcessNextSeason(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, summary.RewardsGenerated)

	amounts := map[string]uint64{}
	var rewards []models.UserReward
	require.NoError(t, db.Find(&rewards).Error)
	for _, r := range rewards {
		amounts[r.WalletAddress] = r.Amount
	}
	assert.Equal(t, map[string]uint64{"w1": 500, "w2": 100, "w3": 100}, amounts)
}

func TestSettlementAlreadyProcessedIsNoop(t *testing.T) {
	db := newTestDB(t)
	svc := newSeasonService(db)

	season := seedEndedSeason(t, db)
	processedAt := time.Now().Add(-time.Minute)
	require.NoError(t, db.Model(&season).Update("processed_at", &processedAt).Error)

	summary, err := svc.ProcessNextSeason(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "No seasons to process", summary.Message)
}

func TestSettlementTwiceDoesNotDuplicate(t *testing.T) {
	db := newTestDB(t)
	svc := newSeasonService(db)

	season := seedEndedSeason(t, db)
	seedCampaign(t, db, season.ID, models.RewardTier{RankMin: 1, RankMax: 1, Amount: 500})
	seedScore(t, db, "walletA", 90, season.StartAt.Add(time.Minute))

	_, err := svc.ProcessNextSeason(context.Background())
	require.NoError(t, err)

	summary, err := svc.ProcessNextSeason(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "No seasons to process", summary.Message)

	var count int64
	require.NoError(t, db.Model(&models.UserReward{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestSettlementNoCampaignsStillMarksProcessed(t *testing.T) {
	db := newTestDB(t)
	svc := newSeasonService(db)

	season := seedEndedSeason(t, db)
	seedScore(t, db, "walletA", 90, season.StartAt.Add(time.Minute))

	summary, err := svc.ProcessNextSeason(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "No campaigns", summary.Message)

	var processed models.Season
	require.NoError(t, db.First(&processed, "id = ?", season.ID).Error)
	assert.NotNil(t, processed.ProcessedAt)
	assert.True(t, processed.ClaimsEnabled)

	var count int64
	require.NoError(t, db.Model(&models.UserReward{}).Count(&count).Error)
	assert.EqualValues(t, 0, count)
}

func TestSettlementIgnoresScoresOutsideWindow(t *testing.T) {
	db := newTestDB(t)
	svc := newSeasonService(db)

	season := seedEndedSeason(t, db)
	seedCampaign(t, db, season.ID, models.RewardTier{RankMin: 1, RankMax: 10, Amount: 100})

	seedScore(t, db, "early", 10, season.StartAt.Add(-time.Hour))
	seedScore(t, db, "late", 20, season.EndAt.Add(time.Hour))
	seedScore(t, db, "inside", 500, season.StartAt.Add(time.Minute))

	summary, err := svc.ProcessNextSeason(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.RewardsGenerated)

	var reward models.UserReward
	require.NoError(t, db.First(&reward).Error)
	assert.Equal(t, "inside", reward.WalletAddress)
}

func TestSettlementExcludesStreakMode(t *testing.T) {
	db := newTestDB(t)
	svc := newSeasonService(db)

	season := seedEndedSeason(t, db)
	seedCampaign(t, db, season.ID, models.RewardTier{RankMin: 1, RankMax: 1, Amount: 500})

	inWindow := season.StartAt.Add(time.Minute)
	// Streak entries store 0 in time_ms and would otherwise always win.
	require.NoError(t, db.Create(&models.Score{
		ID:            uuid.NewString(),
		TimeMs:        0,
		Score:         42,
		WalletAddress: "streaker",
		GameMode:      models.ModeProgressiveSpeed,
		PaymentStatus: models.PaymentConfirmed,
		CreatedAt:     inWindow,
	}).Error)
	seedScore(t, db, "tapper", 120, inWindow)

	summary, err := svc.ProcessNextSeason(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.RewardsGenerated)

	var reward models.UserReward
	require.NoError(t, db.First(&reward).Error)
	assert.Equal(t, "tapper", reward.WalletAddress)
}

func TestSettlementDropsUnresolvableEntries(t *testing.T) {
	db := newTestDB(t)
	svc := newSeasonService(db)

	season := seedEndedSeason(t, db)
	seedCampaign(t, db, season.ID, models.RewardTier{RankMin: 1, RankMax: 2, Amount: 100})

	inWindow := season.StartAt.Add(time.Minute)
	seedScore(t, db, "", 50, inWindow) // no wallet, no identity to pay
	seedScore(t, db, "walletA", 60, inWindow)

	summary, err := svc.ProcessNextSeason(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.RewardsGenerated)
	assert.Equal(t, 1, summary.RewardsDropped)
}
