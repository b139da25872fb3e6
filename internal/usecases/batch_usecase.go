package usecases

import (
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/big"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"
	"scratch-card.backend/internal/domain/entities"
	domainerrors "scratch-card.backend/internal/domain/errors"
	"scratch-card.backend/internal/infrastructure/blockchain"
	"scratch-card.backend/internal/metrics"
	sigcrypto "scratch-card.backend/pkg/crypto"
	"scratch-card.backend/pkg/logger"
	"scratch-card.backend/pkg/utils"
	"scratch-card.backend/pkg/wei"
)

const (
	msgMissingAdminKey  = "Server missing BATCH_ADMIN_PRIVATE_KEY or ADMIN_PRIVATE_KEY"
	msgMissingBatchAuth = "Missing requester, requestedAt, or signature"
	msgRequestExpired   = "Request expired. Please retry from admin panel."
	msgSignatureFailed  = "Signature verification failed"
	msgNotOwner         = "Admin action blocked: requester is not contract owner"
	msgSignatureUsed    = "Signature already used. Sign a new request from admin panel."
	msgBatchRunning     = "A batch run is already in progress for this contract"
)

// TransactionIngester records scratch and claim events. *TransactionUsecase satisfies it.
type TransactionIngester interface {
	Record(ctx context.Context, input *entities.TransactionInput) (*entities.TransactionRecord, error)
}

// BatchSettings are the server-side parameters of batch runs.
type BatchSettings struct {
	AdminPrivateKey  string
	FundPerWalletEth string
	GasReserveEth    string
	Defaults         entities.BatchOptions
	MaxRequestAge    time.Duration
	LockTTL          time.Duration
}

// BatchUsecase runs owner-authorized scratch/claim batches with freshly generated wallets.
type BatchUsecase struct {
	contract ScratchCardContract
	chain    NativeChain
	ingest   TransactionIngester
	guard    RunGuard
	settings BatchSettings

	now    func() time.Time
	keygen func() (*ecdsa.PrivateKey, error)
}

func NewBatchUsecase(
	contract ScratchCardContract,
	chain NativeChain,
	ingest TransactionIngester,
	guard RunGuard,
	settings BatchSettings,
) *BatchUsecase {
	if settings.MaxRequestAge <= 0 {
		settings.MaxRequestAge = 5 * time.Minute
	}
	if settings.LockTTL <= 0 {
		settings.LockTTL = 30 * time.Minute
	}
	return &BatchUsecase{
		contract: contract,
		chain:    chain,
		ingest:   ingest,
		guard:    guard,
		settings: settings,
		now:      time.Now,
		keygen:   crypto.GenerateKey,
	}
}

// Defaults returns the options used when a request omits them.
func (u *BatchUsecase) Defaults() entities.BatchOptions { return u.settings.Defaults }

// ContractAddress is the contract the signed message must name.
func (u *BatchUsecase) ContractAddress() common.Address { return u.contract.Address() }

// Run authenticates req and executes the batch. A run that fails after provisioning returns the partial result
// together with the error.
func (u *BatchUsecase) Run(ctx context.Context, req *entities.BatchRunRequest) (*entities.BatchRunResult, error) {
	runID := utils.NewRunID()
	ctx = logger.WithRunID(ctx, runID)
	started := u.now()
	logger.Info(ctx, "Starting admin batch scratch run")

	result, err := u.run(ctx, runID, req)

	outcome := "success"
	if err != nil {
		outcome = "failed"
		var appErr *domainerrors.AppError
		if errors.As(err, &appErr) && appErr.Status < http.StatusInternalServerError {
			outcome = "rejected"
		}
		fields := []zap.Field{zap.Error(err)}
		if result != nil {
			fields = append(fields, zap.Int("total_scratches", result.TotalScratches), zap.Int("funded_wallets", len(result.FundedWallets)))
		}
		logger.Error(ctx, "Admin batch scratch run failed", fields...)
	} else {
		logger.Info(ctx, "Batch run complete",
			zap.Int("wallets", result.WalletCount),
			zap.Int("scratches", result.TotalScratches),
			zap.String("spent_wei", result.TotalSpentWei),
			zap.String("claims_wei", result.TotalClaimsWei),
			zap.String("net_wei", result.NetWei),
		)
	}
	metrics.BatchRunsTotal.WithLabelValues(outcome).Inc()
	metrics.BatchRunDuration.Observe(u.now().Sub(started).Seconds())
	return result, err
}

func (u *BatchUsecase) run(ctx context.Context, runID string, req *entities.BatchRunRequest) (*entities.BatchRunResult, error) {
	adminKey, err := u.adminKey()
	if err != nil {
		return nil, err
	}
	if req == nil {
		req = &entities.BatchRunRequest{}
	}

	requester := strings.ToLower(strings.TrimSpace(req.Requester))
	signature := strings.TrimSpace(req.Signature)
	requestedAt, ok := parseRequestedAt(req.RequestedAt)
	if requester == "" || signature == "" || !ok {
		return nil, domainerrors.BadRequest(msgMissingBatchAuth)
	}
	opts := NormalizeBatchOptions(req.Options, u.settings.Defaults)

	age := u.now().UnixMilli() - requestedAt
	if age < 0 {
		age = -age
	}
	if age > u.settings.MaxRequestAge.Milliseconds() {
		return nil, domainerrors.Expired(msgRequestExpired, domainerrors.ErrRequestExpired)
	}
	logger.Info(ctx, "Request validated",
		zap.String("requester", requester),
		zap.Int("wallet_count", opts.WalletCount),
		zap.Int("max_rounds_per_wallet", opts.MaxRoundsPerWallet),
	)

	contractAddr := u.contract.Address()
	message := BuildBatchSignatureMessage(requester, requestedAt, opts, contractAddr.Hex())
	recovered, err := sigcrypto.RecoverPersonal(message, signature)
	if err != nil || !strings.EqualFold(recovered.Hex(), requester) {
		logger.Warn(ctx, "Signature verification failed", zap.String("requester", requester), zap.String("recovered", strings.ToLower(recovered.Hex())))
		return nil, domainerrors.Forbidden(msgSignatureFailed, domainerrors.ErrSignatureMismatch)
	}

	if err := u.contract.EnsureDeployed(ctx); err != nil {
		if errors.Is(err, blockchain.ErrContractNotDeployed) {
			return nil, domainerrors.ChainError(fmt.Sprintf(
				"No contract found at %s. Set SCRATCH_CARD_CONTRACT or NEXT_PUBLIC_SCRATCH_CARD_CONTRACT.", contractAddr.Hex(),
			), err)
		}
		return nil, chainFailure("code lookup", err)
	}
	owner, err := u.contract.Owner(ctx)
	if err != nil {
		return nil, chainFailure("owner", err)
	}
	if !strings.EqualFold(owner.Hex(), requester) {
		logger.Warn(ctx, "Requester is not owner", zap.String("owner", strings.ToLower(owner.Hex())), zap.String("requester", requester))
		return nil, domainerrors.Forbidden(msgNotOwner, domainerrors.ErrNotContractOwner)
	}

	release, err := u.guard.Acquire(ctx, contractAddr.Hex(), u.settings.LockTTL)
	if errors.Is(err, domainerrors.ErrBatchInProgress) {
		return nil, domainerrors.Conflict(msgBatchRunning, err)
	}
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := release(context.Background()); err != nil {
			logger.Warn(ctx, "Failed to release batch lock", zap.Error(err))
		}
	}()

	// Either side of now is accepted, so a signature stays replayable for twice the window.
	fresh, err := u.guard.UseSignature(ctx, SignatureReplayKey(message, recovered), 2*u.settings.MaxRequestAge)
	if err != nil {
		return nil, err
	}
	if !fresh {
		return nil, domainerrors.Forbidden(msgSignatureUsed, domainerrors.ErrSignatureReplayed)
	}
	logger.Info(ctx, "Owner check passed", zap.String("owner", strings.ToLower(owner.Hex())))

	return u.execute(ctx, runID, adminKey, opts)
}

type batchTotals struct {
	scratches int
	spent     *big.Int
	claims    *big.Int
}

func (u *BatchUsecase) execute(ctx context.Context, runID string, adminKey *ecdsa.PrivateKey, opts entities.BatchOptions) (*entities.BatchRunResult, error) {
	fundPerWallet, err := wei.ParseEther(u.settings.FundPerWalletEth)
	if err != nil {
		return nil, domainerrors.InternalError(fmt.Errorf("BATCH_FUND_PER_WALLET_ETH: %w", err))
	}
	gasReserve, err := wei.ParseEther(u.settings.GasReserveEth)
	if err != nil {
		return nil, domainerrors.InternalError(fmt.Errorf("BATCH_GAS_RESERVE_ETH: %w", err))
	}
	price, err := u.contract.ScratchPrice(ctx)
	if err != nil {
		return nil, chainFailure("scratch price", err)
	}
	logger.Info(ctx, "Config loaded",
		zap.String("fund_per_wallet", wei.FormatEther(fundPerWallet)),
		zap.String("gas_reserve", wei.FormatEther(gasReserve)),
		zap.String("scratch_price", wei.FormatEther(price)),
	)

	keys := make([]*ecdsa.PrivateKey, 0, opts.WalletCount)
	for i := 0; i < opts.WalletCount; i++ {
		key, err := u.keygen()
		if err != nil {
			return nil, domainerrors.InternalError(fmt.Errorf("generate wallet: %w", err))
		}
		keys = append(keys, key)
	}

	adminAddr := crypto.PubkeyToAddress(adminKey.PublicKey)
	required := new(big.Int).Mul(fundPerWallet, big.NewInt(int64(opts.WalletCount)))
	adminBalance, err := u.chain.BalanceAt(ctx, adminAddr)
	if err != nil {
		return nil, chainFailure("admin balance", err)
	}
	if adminBalance.Cmp(required) < 0 {
		logger.Error(ctx, "Insufficient admin balance",
			zap.String("admin_wallet", adminAddr.Hex()),
			zap.String("admin_balance", wei.FormatEther(adminBalance)),
			zap.String("required", wei.FormatEther(required)),
		)
		return nil, domainerrors.ChainError(fmt.Sprintf(
			"Insufficient admin wallet balance. Need at least %s ETH for funding (gas not included).", wei.FormatEther(required),
		), domainerrors.ErrInsufficientFunds)
	}

	chainID, err := u.chain.ChainID(ctx)
	if err != nil {
		return nil, chainFailure("chain id", err)
	}
	result := &entities.BatchRunResult{
		RunID:              runID,
		Network:            blockchain.NetworkName(chainID),
		ChainID:            chainID.Int64(),
		AdminWallet:        adminAddr.Hex(),
		ContractAddress:    u.contract.Address().Hex(),
		WalletCount:        opts.WalletCount,
		MaxRoundsPerWallet: opts.MaxRoundsPerWallet,
		FundPerWalletWei:   fundPerWallet.String(),
		GasReserveWei:      gasReserve.String(),
		ScratchPriceWei:    price.String(),
		FundedWallets:      []entities.FundedWallet{},
		WalletSummaries:    []entities.BatchWalletSummary{},
	}
	if opts.SaveWallets {
		for i, key := range keys {
			result.GeneratedWallets = append(result.GeneratedWallets, entities.GeneratedWallet{
				Index:      i + 1,
				Address:    crypto.PubkeyToAddress(key.PublicKey).Hex(),
				PrivateKey: hexutil.Encode(crypto.FromECDSA(key)),
			})
		}
	}
	totals := &batchTotals{spent: new(big.Int), claims: new(big.Int)}
	summarize := func() {
		result.TotalScratches = totals.scratches
		result.TotalSpentWei = totals.spent.String()
		result.TotalClaimsWei = totals.claims.String()
		result.NetWei = new(big.Int).Sub(totals.claims, totals.spent).String()
	}
	summarize()
	logger.Info(ctx, "Network ready", zap.String("network", result.Network), zap.Int64("chain_id", result.ChainID), zap.String("admin_wallet", result.AdminWallet))

	for i, key := range keys {
		to := crypto.PubkeyToAddress(key.PublicKey)
		tx, err := u.chain.Transfer(ctx, adminKey, to, fundPerWallet)
		if err != nil {
			return result, chainFailure("fund wallet", err)
		}
		if _, err := tx.Wait(ctx); err != nil {
			return result, chainFailure("fund wallet", err)
		}
		result.FundedWallets = append(result.FundedWallets, entities.FundedWallet{Address: to.Hex(), TxHash: tx.Hash.Hex()})
		logger.Info(ctx, fmt.Sprintf("Funded %d/%d", i+1, len(keys)), zap.String("wallet", to.Hex()), zap.String("tx_hash", tx.Hash.Hex()))
	}

	for i, key := range keys {
		summary, err := u.playWallet(ctx, key, price, gasReserve, result.ChainID, opts, totals)
		result.WalletSummaries = append(result.WalletSummaries, summary)
		summarize()
		if err != nil {
			return result, err
		}
		logger.Info(ctx, fmt.Sprintf("Wallet %d summary", i+1),
			zap.String("wallet", summary.WalletAddress),
			zap.Int("rounds", summary.Rounds),
			zap.String("spent_wei", summary.SpentWei),
			zap.String("claimed_wei", summary.ClaimedWei),
		)
	}
	return result, nil
}

// playWallet scratches until the round limit or until the balance no longer covers price plus gas reserve.
func (u *BatchUsecase) playWallet(
	ctx context.Context,
	key *ecdsa.PrivateKey,
	price, gasReserve *big.Int,
	chainID int64,
	opts entities.BatchOptions,
	totals *batchTotals,
) (entities.BatchWalletSummary, error) {
	addr := crypto.PubkeyToAddress(key.PublicKey)
	spent, claimed := new(big.Int), new(big.Int)
	rounds := 0
	summary := func() entities.BatchWalletSummary {
		return entities.BatchWalletSummary{
			WalletAddress: addr.Hex(),
			Rounds:        rounds,
			SpentWei:      spent.String(),
			ClaimedWei:    claimed.String(),
		}
	}
	minBalance := new(big.Int).Add(price, gasReserve)

	for rounds < opts.MaxRoundsPerWallet {
		balance, err := u.chain.BalanceAt(ctx, addr)
		if err != nil {
			return summary(), chainFailure("wallet balance", err)
		}
		if balance.Cmp(minBalance) < 0 {
			logger.Info(ctx, "Wallet stopped (low balance)",
				zap.String("wallet", addr.Hex()),
				zap.String("balance", wei.FormatEther(balance)),
				zap.String("min_required", wei.FormatEther(minBalance)),
			)
			break
		}

		tx, err := u.contract.Scratch(ctx, key, price)
		if err != nil {
			return summary(), chainFailure("scratch", err)
		}
		receipt, err := tx.Wait(ctx)
		if err != nil {
			return summary(), chainFailure("scratch", err)
		}
		rounds++
		totals.scratches++
		spent.Add(spent, price)
		totals.spent.Add(totals.spent, price)
		metrics.BatchScratchesTotal.Inc()

		reward := u.contract.ScratchReward(receipt)
		if err := u.record(ctx, addr, tx.Hash, entities.ActionScratchReward, reward, chainID); err != nil {
			return summary(), err
		}

		status, err := u.contract.ClaimStatus(ctx, addr)
		if err != nil {
			return summary(), chainFailure("claim status", err)
		}
		if status.Claimable != nil && status.Claimable.Sign() > 0 {
			amount := new(big.Int).Set(status.Claimable)
			claimTx, err := u.contract.Claim(ctx, key, amount)
			if err != nil {
				return summary(), chainFailure("claim", err)
			}
			claimReceipt, err := claimTx.Wait(ctx)
			if err != nil {
				return summary(), chainFailure("claim", err)
			}
			claimed.Add(claimed, amount)
			totals.claims.Add(totals.claims, amount)
			metrics.BatchClaimsTotal.Inc()
			if err := u.record(ctx, addr, claimTx.Hash, entities.ActionClaim, amount, chainID); err != nil {
				return summary(), err
			}
			u.awaitSettlement(ctx, addr, claimReceipt.BlockNumber, opts)
		}

		logger.Info(ctx, "Round completed", zap.String("wallet", addr.Hex()), zap.Int("round", rounds), zap.String("reward_wei", reward.String()))
	}
	return summary(), nil
}

func (u *BatchUsecase) record(ctx context.Context, wallet common.Address, txHash common.Hash, action entities.TransactionAction, amount *big.Int, chainID int64) error {
	_, err := u.ingest.Record(ctx, &entities.TransactionInput{
		WalletAddress:   wallet.Hex(),
		TxHash:          txHash.Hex(),
		Action:          string(action),
		AmountWei:       entities.NumericText(amount.String()),
		ContractAddress: u.contract.Address().Hex(),
		ChainID:         entities.NumericText(strconv.FormatInt(chainID, 10)),
	})
	if err != nil {
		return fmt.Errorf("log %s %s: %w", action, txHash.Hex(), err)
	}
	return nil
}

// awaitSettlement waits for the RewardsClaimed event of a confirmed claim. Not observing it is not a failure.
func (u *BatchUsecase) awaitSettlement(ctx context.Context, wallet common.Address, block *big.Int, opts entities.BatchOptions) {
	from := uint64(0)
	if block != nil {
		from = block.Uint64()
	}
	interval := time.Duration(opts.ReactivityPollMs) * time.Millisecond
	ev, err := u.contract.WaitForRewardsClaimed(ctx, wallet, from, opts.ReactivityPolls, interval)
	switch {
	case err != nil:
		logger.Warn(ctx, "Settlement poll failed", zap.String("wallet", wallet.Hex()), zap.Error(err))
	case ev == nil:
		logger.Info(ctx, "Claim settlement not observed yet", zap.String("wallet", wallet.Hex()))
	default:
		logger.Debug(ctx, "Claim settled", zap.String("wallet", wallet.Hex()), zap.String("tx_hash", ev.TxHash), zap.String("amount_wei", ev.Amount.String()))
	}
}

func (u *BatchUsecase) adminKey() (*ecdsa.PrivateKey, error) {
	raw := strings.TrimSpace(u.settings.AdminPrivateKey)
	if raw == "" {
		return nil, domainerrors.Misconfigured(msgMissingAdminKey, domainerrors.ErrMissingAdminKey)
	}
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimPrefix(raw, "0x"), "0X"))
	if err != nil {
		return nil, domainerrors.InternalError(fmt.Errorf("admin private key: %w", err))
	}
	return key, nil
}

// parseRequestedAt accepts an integral millisecond timestamp.
func parseRequestedAt(n json.Number) (int64, bool) {
	s := strings.TrimSpace(n.String())
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) || f != math.Trunc(f) {
		return 0, false
	}
	return int64(f), true
}

// chainFailure surfaces decoded contract errors. Transport failures get the generic message;
// the cause stays on the error for the server log.
func chainFailure(step string, err error) error {
	var ce *blockchain.ContractError
	if errors.As(err, &ce) {
		return domainerrors.ChainError(ce.Error(), err)
	}
	return domainerrors.InternalError(fmt.Errorf("%s: %w", step, err))
}
