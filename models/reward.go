package models

import (
	"time"
)

// RewardCampaign groups the payout tiers configured for one season.
type RewardCampaign struct {
	ID       string `gorm:"primaryKey;type:uuid" json:"id"`
	SeasonID string `gorm:"index;not null" json:"season_id"`
	Name     string `json:"name"`
	Active   bool   `gorm:"default:true;index" json:"active"`

	Tiers []RewardTier `json:"tiers,omitempty" gorm:"foreignKey:CampaignID"`
}

// RewardTier maps a leaderboard rank range to a token amount.
// Ranks are 1-based and inclusive on both ends.
type RewardTier struct {
	ID            string `gorm:"primaryKey;type:uuid" json:"id"`
	CampaignID    string `gorm:"index;not null" json:"campaign_id"`
	RankMin       int    `gorm:"not null" json:"rank_min"`
	RankMax       int    `gorm:"not null" json:"rank_max"`
	Amount        uint64 `gorm:"not null" json:"amount"` // raw token units (pre-decimals)
	RewardTokenID string `gorm:"not null" json:"reward_token_id"`

	RewardToken RewardToken `json:"reward_token,omitempty" gorm:"foreignKey:RewardTokenID"`
}

// RewardToken describes an SPL token a campaign pays out in. The treasury
// private key is never stored here — only the name of the env var holding it.
type RewardToken struct {
	ID                 string `gorm:"primaryKey;type:uuid" json:"id"`
	MintAddress        string `gorm:"not null" json:"mint_address"`
	Symbol             string `json:"symbol"`
	Decimals           int    `json:"decimals"`
	TreasurySecretName string `gorm:"not null" json:"-"`
}

// UserReward is one payout slot, created once by season settlement and
// mutated exactly once by a successful claim. Invariant: Claimed implies
// TxHash is set and the tokens left the treasury.
type UserReward struct {
	ID             string     `gorm:"primaryKey;type:uuid" json:"id"`
	UserID         string     `gorm:"index;not null" json:"user_id"`
	SeasonID       string     `gorm:"index;not null" json:"season_id"`
	RewardTokenID  string     `gorm:"not null" json:"reward_token_id"`
	WalletAddress  string     `gorm:"not null" json:"wallet_address"`
	Amount         uint64     `gorm:"not null" json:"amount"`
	Claimed        bool       `gorm:"default:false" json:"claimed"`
	ClaimedAt      *time.Time `json:"claimed_at,omitempty"`
	TxHash         string     `json:"tx_hash,omitempty"`
	ClaimAttemptID *string    `gorm:"index" json:"-"` // idempotency stake; non-nil while a transfer is in flight
	CreatedAt      time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt      time.Time  `json:"updated_at" gorm:"autoUpdateTime"`

	Season      Season      `json:"season,omitempty" gorm:"foreignKey:SeasonID"`
	RewardToken RewardToken `json:"reward_token,omitempty" gorm:"foreignKey:RewardTokenID"`
}
