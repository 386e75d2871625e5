package workers

import (
	"context"
	"log"
	"time"

	"soltap-backend/models"

	"github.com/gagliardetto/solana-go"
	"gorm.io/gorm"
)

// SignatureChecker is the slice of the Solana client the watcher needs.
// utils.TreasuryClient satisfies it.
type SignatureChecker interface {
	SignatureStatus(ctx context.Context, sig solana.Signature) (confirmed bool, failed bool, err error)
}

// PaymentWatcher confirms the Solana Pay entry-fee signatures attached to
// submitted scores. The mobile client reports the signature it saw; the
// watcher is the server-side check that it actually landed.
type PaymentWatcher struct {
	DB        *gorm.DB
	Chain     SignatureChecker
	MaxChecks int // polls before a pending payment is written off as timed out
}

func NewPaymentWatcher(db *gorm.DB, chain SignatureChecker) *PaymentWatcher {
	return &PaymentWatcher{
		DB:        db,
		Chain:     chain,
		MaxChecks: 60, // 2 minutes at a 2s interval, matching the client's own budget
	}
}

// PollPayments runs the watcher until ctx is cancelled.
func PollPayments(ctx context.Context, w *PaymentWatcher, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Printf("[PAYMENTS] Watcher started (every %s)", interval)

	for {
		select {
		case <-ctx.Done():
			log.Println("[PAYMENTS] Watcher stopped")
			return
		case <-ticker.C:
			if err := w.CheckPending(ctx); err != nil {
				log.Printf("[PAYMENTS] Check run failed: %v", err)
			}
		}
	}
}

// CheckPending advances every pending score payment by one poll: confirmed
// and failed are terminal, anything else burns one check from the budget.
func (w *PaymentWatcher) CheckPending(ctx context.Context) error {
	var pending []models.Score
	err := w.DB.WithContext(ctx).
		Where("payment_status = ?", models.PaymentPending).
		Order("created_at ASC").
		Limit(100).
		Find(&pending).Error
	if err != nil {
		return err
	}

	for _, score := range pending {
		w.checkOne(ctx, score)
	}
	return nil
}

func (w *PaymentWatcher) checkOne(ctx context.Context, score models.Score) {
	if score.TxSignature == "" {
		w.setStatus(score.ID, models.PaymentFailed)
		return
	}

	sig, err := solana.SignatureFromBase58(score.TxSignature)
	if err != nil {
		log.Printf("[PAYMENTS] Unparseable signature on score %s: %v", score.ID, err)
		w.setStatus(score.ID, models.PaymentFailed)
		return
	}

	confirmed, failed, err := w.Chain.SignatureStatus(ctx, sig)
	if err != nil {
		// Transient RPC trouble: leave the row pending, it costs a check below.
		log.Printf("[PAYMENTS] RPC error checking score %s: %v", score.ID, err)
	}

	switch {
	case failed:
		log.Printf("[PAYMENTS] Payment for score %s failed on chain", score.ID)
		w.setStatus(score.ID, models.PaymentFailed)
	case confirmed:
		w.setStatus(score.ID, models.PaymentConfirmed)
	default:
		checks := score.PaymentChecks + 1
		if checks >= w.MaxChecks {
			log.Printf("[PAYMENTS] Payment for score %s timed out after %d checks", score.ID, checks)
			w.setStatus(score.ID, models.PaymentFailed)
			return
		}
		if err := w.DB.Model(&models.Score{}).Where("id = ?", score.ID).
			Update("payment_checks", checks).Error; err != nil {
			log.Printf("[PAYMENTS] Failed to bump check count for %s: %v", score.ID, err)
		}
	}
}

func (w *PaymentWatcher) setStatus(scoreID, status string) {
	if err := w.DB.Model(&models.Score{}).Where("id = ?", scoreID).
		Update("payment_status", status).Error; err != nil {
		log.Printf("[PAYMENTS] Failed to set %s on score %s: %v", status, scoreID, err)
	}
}
