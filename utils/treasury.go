// utils/treasury.go — thin wrapper around the Solana RPC client for the
// custodial treasury wallet. Holds no keys itself: treasury keypairs are
// loaded per reward token from the env var named in reward_tokens.
package utils

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/gagliardetto/solana-go"
	associatedtokenaccount "github.com/gagliardetto/solana-go/programs/associated-token-account"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/gagliardetto/solana-go/rpc"
)

type TreasuryClient struct {
	RPC *rpc.Client
}

func NewTreasuryClient(rpcURL string) *TreasuryClient {
	return &TreasuryClient{RPC: rpc.New(rpcURL)}
}

// LoadTreasuryKey reads a base58 private key from the env var the reward
// token points at.
func LoadTreasuryKey(secretName string) (solana.PrivateKey, error) {
	secret := os.Getenv(secretName)
	if secret == "" {
		return nil, fmt.Errorf("missing treasury secret for %s", secretName)
	}
	key, err := solana.PrivateKeyFromBase58(secret)
	if err != nil {
		return nil, fmt.Errorf("invalid treasury secret for %s: %w", secretName, err)
	}
	return key, nil
}

// Balance returns the owner's lamport balance.
func (t *TreasuryClient) Balance(ctx context.Context, owner solana.PublicKey) (uint64, error) {
	out, err := t.RPC.GetBalance(ctx, owner, rpc.CommitmentConfirmed)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch balance for %s: %w", owner, err)
	}
	return out.Value, nil
}

// TransferTokens moves `amount` raw units of `mint` from the treasury's
// associated token account to the recipient's, creating the recipient's
// account first when it does not exist yet. Blocks until the transaction is
// confirmed or the poll budget runs out.
func (t *TreasuryClient) TransferTokens(ctx context.Context, treasury solana.PrivateKey, mint, recipient solana.PublicKey, amount uint64) (solana.Signature, error) {
	payer := treasury.PublicKey()

	sourceATA, _, err := solana.FindAssociatedTokenAddress(payer, mint)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to derive treasury token account: %w", err)
	}
	destATA, _, err := solana.FindAssociatedTokenAddress(recipient, mint)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to derive recipient token account: %w", err)
	}

	var instrs []solana.Instruction

	// Recipient needs an associated token account before it can hold the mint.
	if _, err := t.RPC.GetAccountInfo(ctx, destATA); err != nil {
		if !errors.Is(err, rpc.ErrNotFound) {
			return solana.Signature{}, fmt.Errorf("failed to check recipient token account: %w", err)
		}
		instrs = append(instrs,
			associatedtokenaccount.NewCreateInstruction(payer, recipient, mint).Build())
	}

	instrs = append(instrs,
		token.NewTransferInstruction(amount, sourceATA, destATA, payer, nil).Build())

	recent, err := t.RPC.GetLatestBlockhash(ctx, rpc.CommitmentConfirmed)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to fetch recent blockhash: %w", err)
	}

	tx, err := solana.NewTransaction(instrs, recent.Value.Blockhash, solana.TransactionPayer(payer))
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to build transaction: %w", err)
	}

	if _, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(payer) {
			return &treasury
		}
		return nil
	}); err != nil {
		return solana.Signature{}, fmt.Errorf("failed to sign transaction: %w", err)
	}

	sig, err := t.RPC.SendTransaction(ctx, tx)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to send transaction: %w", err)
	}
	log.Printf("[TREASURY] Transaction sent: %s", sig)

	if err := t.awaitConfirmation(ctx, sig); err != nil {
		return sig, err
	}
	return sig, nil
}

// awaitConfirmation polls signature status until the cluster reports at
// least "confirmed". 30 polls at 2s matches the client-side payment watcher.
func (t *TreasuryClient) awaitConfirmation(ctx context.Context, sig solana.Signature) error {
	const maxAttempts = 30

	for attempt := 0; attempt < maxAttempts; attempt++ {
		confirmed, failed, err := t.SignatureStatus(ctx, sig)
		if err != nil {
			log.Printf("[TREASURY] Status poll error for %s: %v", sig, err)
		} else if failed {
			return fmt.Errorf("transaction %s failed on chain", sig)
		} else if confirmed {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}
	return fmt.Errorf("transaction %s not confirmed after %d polls", sig, maxAttempts)
}

// SignatureStatus reports whether a signature reached confirmed/finalized
// commitment (confirmed) or errored on chain (failed). Both false means the
// cluster does not know the signature yet.
func (t *TreasuryClient) SignatureStatus(ctx context.Context, sig solana.Signature) (confirmed bool, failed bool, err error) {
	out, err := t.RPC.GetSignatureStatuses(ctx, true, sig)
	if err != nil {
		return false, false, err
	}
	if len(out.Value) == 0 || out.Value[0] == nil {
		return false, false, nil
	}
	status := out.Value[0]
	if status.Err != nil {
		return false, true, nil
	}
	switch status.ConfirmationStatus {
	case rpc.ConfirmationStatusConfirmed, rpc.ConfirmationStatusFinalized:
		return true, false, nil
	}
	return false, false, nil
}
