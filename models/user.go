package models

import (
	"time"
)

// User is a wallet-backed identity. There is no signup form: users are
// provisioned by the login flow (or by season settlement for anonymous
// winners) with a synthetic email derived from the wallet address.
type User struct {
	ID             string    `gorm:"primaryKey;type:uuid" json:"id"`
	Email          string    `gorm:"uniqueIndex;not null" json:"email"`
	WalletAddress  string    `gorm:"index;not null" json:"wallet_address"` // base58 public key; indexed, NOT unique — see AuthService.ResolveUser
	CredentialHash string    `json:"-"`                                    // HMAC of the wallet-derived credential, never user-chosen
	EmailConfirmed bool      `gorm:"default:true" json:"email_confirmed"`
	CreatedAt      time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt      time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// Session is an opaque bearer token issued after a successful wallet login.
type Session struct {
	ID          string    `gorm:"primaryKey;type:uuid" json:"id"`
	UserID      string    `gorm:"index;not null" json:"user_id"`
	AccessToken string    `gorm:"uniqueIndex;not null" json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
	CreatedAt   time.Time `json:"created_at" gorm:"autoCreateTime"`

	User User `json:"user,omitempty" gorm:"foreignKey:UserID"`
}
