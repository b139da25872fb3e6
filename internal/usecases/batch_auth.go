package usecases

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"scratch-card.backend/internal/domain/entities"
)

const batchMessageHeader = "scratch-your-card admin batch run"

// NormalizeBatchOptions fills every option that is absent or not a positive integer from defaults.
func NormalizeBatchOptions(in *entities.BatchOptionsInput, defaults entities.BatchOptions) entities.BatchOptions {
	if in == nil {
		return defaults
	}
	out := entities.BatchOptions{
		WalletCount:        entities.PositiveInt(in.WalletCount, defaults.WalletCount),
		MaxRoundsPerWallet: entities.PositiveInt(in.MaxRoundsPerWallet, defaults.MaxRoundsPerWallet),
		ReactivityPolls:    entities.PositiveInt(in.ReactivityPolls, defaults.ReactivityPolls),
		ReactivityPollMs:   entities.PositiveInt(in.ReactivityPollMs, defaults.ReactivityPollMs),
		SaveWallets:        defaults.SaveWallets,
	}
	if in.SaveWallets != nil {
		out.SaveWallets = *in.SaveWallets
	}
	return out
}

// BuildBatchSignatureMessage renders the exact text an owner signs to authorize a run.
func BuildBatchSignatureMessage(requester string, requestedAtMs int64, opts entities.BatchOptions, contract string) string {
	return strings.Join([]string{
		batchMessageHeader,
		"requester:" + strings.ToLower(strings.TrimSpace(requester)),
		fmt.Sprintf("requestedAt:%d", requestedAtMs),
		fmt.Sprintf("walletCount:%d", opts.WalletCount),
		fmt.Sprintf("maxRoundsPerWallet:%d", opts.MaxRoundsPerWallet),
		fmt.Sprintf("reactivityPolls:%d", opts.ReactivityPolls),
		fmt.Sprintf("reactivityPollMs:%d", opts.ReactivityPollMs),
		fmt.Sprintf("saveWallets:%t", opts.SaveWallets),
		"contract:" + strings.ToLower(strings.TrimSpace(contract)),
	}, "\n")
}

// SignatureReplayKey identifies an authorization by what was signed and who signed it.
// Re-encodings of one signature (v as 0/1 or 27/28, the high-s twin) map to the same key.
func SignatureReplayKey(message string, signer common.Address) string {
	return crypto.Keccak256Hash([]byte(message)).Hex() + ":" + strings.ToLower(signer.Hex())
}
