package models

import (
	"time"
)

// Game modes the mobile client submits scores for.
const (
	ModeReactionTest     = "reaction_test"     // single tap, time_ms, lower is better
	ModeMultiZone        = "multi_zone"        // average time across zones, lower is better
	ModeProgressiveSpeed = "progressive_speed" // streak counter in Score, higher is better
)

// Payment status of the Solana Pay entry fee attached to a score.
const (
	PaymentPending   = "pending"
	PaymentConfirmed = "confirmed"
	PaymentFailed    = "failed"
)

// Score is one leaderboard entry. Rows are append-only: nothing ever updates
// a score after insert except the payment watcher flipping PaymentStatus.
type Score struct {
	ID            string    `gorm:"primaryKey;type:uuid" json:"id"`
	TimeMs        int64     `json:"time_ms"` // reaction/multi-zone result; 0 for progressive_speed
	Score         int64     `json:"score"`   // streak for progressive_speed; 0 otherwise
	WalletAddress string    `gorm:"index;not null" json:"wallet_address"`
	GameMode      string    `gorm:"index;not null;default:'reaction_test'" json:"game_mode"`
	TxSignature   string    `json:"tx_signature"` // Solana Pay entry-fee signature reported by the client
	PaymentStatus string    `gorm:"index;default:'pending'" json:"payment_status"`
	PaymentChecks int       `gorm:"default:0" json:"-"` // watcher poll count, bounded
	CreatedAt     time.Time `json:"created_at" gorm:"autoCreateTime"`
}
