// services/auth_service.go
package services

import (
	"crypto/ed25519"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"time"

	"soltap-backend/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/mr-tron/base58"
	"gorm.io/gorm"
)

var (
	ErrInvalidSignature = errors.New("invalid signature")
	ErrBadCredentials   = errors.New("invalid credentials")
)

const sessionTTL = 7 * 24 * time.Hour

type AuthService struct {
	DB     *gorm.DB
	Secret string // server secret the deterministic wallet credential is derived from
}

func NewAuthService(db *gorm.DB, secret string) *AuthService {
	return &AuthService{DB: db, Secret: secret}
}

// VerifyWalletSignature checks that `signature` (base64) authenticates the
// exact bytes of `message` under the ed25519 public key encoded in `address`
// (base58). A bad signature is a hard rejection, never retried.
func (s *AuthService) VerifyWalletSignature(address, message, signature string) error {
	pubKey, err := base58.Decode(address)
	if err != nil || len(pubKey) != ed25519.PublicKeySize {
		return ErrInvalidSignature
	}

	sigBytes, err := base64.StdEncoding.DecodeString(signature)
	if err != nil || len(sigBytes) != ed25519.SignatureSize {
		return ErrInvalidSignature
	}

	if !ed25519.Verify(ed25519.PublicKey(pubKey), []byte(message), sigBytes) {
		return ErrInvalidSignature
	}
	return nil
}

// SyntheticEmail derives the stand-in email identity for a wallet.
func SyntheticEmail(address string) string {
	return fmt.Sprintf("%s@soltap.app", address)
}

// walletCredential derives the deterministic password stand-in for a wallet.
// This is a workaround for not having wallet-native auth: the credential is
// server-derived (HMAC under AUTH_SECRET), never user-chosen, and only
// exists so the username/password sign-in path has something to check.
func (s *AuthService) walletCredential(address string) string {
	mac := hmac.New(sha256.New, []byte(s.Secret))
	mac.Write([]byte(address))
	return hex.EncodeToString(mac.Sum(nil))
}

// ResolveUser maps a verified wallet address onto exactly one user,
// creating it if absent. Uniqueness is enforced by search-before-create
// only — wallet_address carries no unique constraint — so two concurrent
// first-time logins for the same wallet can still race and duplicate.
func (s *AuthService) ResolveUser(address string) (*models.User, error) {
	email := SyntheticEmail(address)
	credential := s.walletCredential(address)

	var user models.User
	err := s.DB.Where("wallet_address = ? OR email = ?", address, email).
		Order("created_at ASC").
		First(&user).Error

	if err == nil {
		// Idempotent refresh: keep email/credential in the current format
		// even for accounts created before this scheme.
		user.Email = email
		user.WalletAddress = address
		user.CredentialHash = credential
		user.EmailConfirmed = true
		if saveErr := s.DB.Save(&user).Error; saveErr != nil {
			return nil, fmt.Errorf("failed to update user %s: %w", user.ID, saveErr)
		}
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to search users: %w", err)
	}

	log.Printf("[AUTH] Creating new user for %s", address)
	user = models.User{
		ID:             uuid.NewString(),
		Email:          email,
		WalletAddress:  address,
		CredentialHash: credential,
		EmailConfirmed: true,
	}
	if err := s.DB.Create(&user).Error; err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return &user, nil
}

// SignIn checks the derived credential against the stored hash and issues a
// fresh session.
func (s *AuthService) SignIn(email, credential string) (*models.Session, error) {
	var user models.User
	if err := s.DB.Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBadCredentials
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if !hmac.Equal([]byte(user.CredentialHash), []byte(credential)) {
		return nil, ErrBadCredentials
	}

	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return nil, fmt.Errorf("failed to generate session token: %w", err)
	}

	session := models.Session{
		ID:          uuid.NewString(),
		UserID:      user.ID,
		AccessToken: hex.EncodeToString(tokenBytes),
		ExpiresAt:   time.Now().Add(sessionTTL),
	}
	if err := s.DB.Create(&session).Error; err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	session.User = user
	return &session, nil
}

// Login handles POST /auth/login: signature verification, user resolution,
// session issuance based on the derived credentials.
func (s *AuthService) Login(c *fiber.Ctx) error {
	var req struct {
		Address   string `json:"address"`
		Message   string `json:"message"`
		Signature string `json:"signature"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.Address == "" || req.Message == "" || req.Signature == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing address, message, or signature"})
	}

	if err := s.VerifyWalletSignature(req.Address, req.Message, req.Signature); err != nil {
		log.Printf("[AUTH] Signature rejected for %s", req.Address)
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid signature"})
	}

	user, err := s.ResolveUser(req.Address)
	if err != nil {
		log.Printf("[AUTH] Failed to resolve user for %s: %v", req.Address, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create user account"})
	}

	session, err := s.SignIn(user.Email, s.walletCredential(req.Address))
	if err != nil {
		log.Printf("[AUTH] Failed to create session for %s: %v", req.Address, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create session"})
	}

	return c.JSON(fiber.Map{
		"access_token": session.AccessToken,
		"token_type":   "bearer",
		"expires_at":   session.ExpiresAt,
		"user": fiber.Map{
			"id":             session.User.ID,
			"email":          session.User.Email,
			"wallet_address": session.User.WalletAddress,
		},
	})
}
