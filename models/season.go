package models

import (
	"time"
)

// Season is a bounded leaderboard window. Lifecycle: open (between StartAt
// and EndAt) → ended → processed (ProcessedAt set by settlement) → claimable
// (ClaimsEnabled flipped on in the same settlement transaction).
type Season struct {
	ID             string     `gorm:"primaryKey;type:uuid" json:"id"`
	Name           string     `gorm:"not null" json:"name"`
	StartAt        time.Time  `gorm:"not null" json:"start_at"`
	EndAt          time.Time  `gorm:"not null;index" json:"end_at"`
	RewardsEnabled bool       `gorm:"default:false" json:"rewards_enabled"`
	ProcessedAt    *time.Time `json:"processed_at,omitempty"`
	ClaimsEnabled  bool       `gorm:"default:false" json:"claims_enabled"`
	CreatedAt      time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt      time.Time  `json:"updated_at" gorm:"autoUpdateTime"`
}
