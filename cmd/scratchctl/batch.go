package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"scratch-card.backend/internal/config"
	"scratch-card.backend/internal/domain/entities"
	"scratch-card.backend/internal/infrastructure/blockchain"
	"scratch-card.backend/internal/infrastructure/datasources/postgres"
	"scratch-card.backend/internal/infrastructure/models"
	"scratch-card.backend/internal/infrastructure/repositories"
	"scratch-card.backend/internal/usecases"
	"scratch-card.backend/pkg/crypto"
	"scratch-card.backend/pkg/redis"
)

type batchRunner interface {
	Run(ctx context.Context, req *entities.BatchRunRequest) (*entities.BatchRunResult, error)
}

var (
	now    = time.Now
	openDB = func(cfg config.DatabaseConfig) (*gorm.DB, error) {
		sqlDB, err := postgres.NewConnection(cfg)
		if err != nil {
			return nil, err
		}
		return postgres.NewGorm(sqlDB)
	}
	initRedis      = redis.Init
	newBatchRunner = buildBatchRunner
)

// buildBatchRunner wires the in-process batch stack. On error everything opened so far is closed.
func buildBatchRunner(cfg *config.Config) (_ batchRunner, _ func(), err error) {
	if err := initRedis(cfg.Redis.URL, cfg.Redis.PASSWORD); err != nil {
		return nil, nil, fmt.Errorf("failed to initialize redis: %w", err)
	}
	closers := []func(){func() { _ = redis.Close() }}
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	defer func() {
		if err != nil {
			closeAll()
		}
	}()

	db, err := openDB(cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	closers = append(closers, func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	if err := models.AutoMigrate(db); err != nil {
		return nil, nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	if !common.IsHexAddress(cfg.Blockchain.ContractAddress) {
		return nil, nil, fmt.Errorf("invalid scratch card contract address %q", cfg.Blockchain.ContractAddress)
	}
	var chainID *big.Int
	if cfg.Blockchain.ChainID > 0 {
		chainID = big.NewInt(cfg.Blockchain.ChainID)
	}
	evm, err := blockchain.NewEVMClient(cfg.Blockchain.RPCURL, chainID)
	if err != nil {
		return nil, nil, err
	}
	closers = append(closers, evm.Close)

	contract := blockchain.NewScratchCardClient(evm, common.HexToAddress(cfg.Blockchain.ContractAddress))
	runner := usecases.NewBatchUsecase(
		contract,
		evm,
		usecases.NewTransactionUsecase(repositories.NewTransactionRepository(db)),
		usecases.NewRedisRunGuard(redis.GetClient()),
		batchSettings(cfg.Batch),
	)
	return runner, closeAll, nil
}

// batchFlags are the per-run options a request signs over. Unset flags take the configured defaults.
type batchFlags struct {
	key         string
	wallets     int
	rounds      int
	polls       int
	pollMs      int
	saveWallets bool
}

func (f *batchFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.key, "key", "", "owner private key (defaults to BATCH_ADMIN_PRIVATE_KEY)")
	cmd.Flags().IntVar(&f.wallets, "wallets", 0, "number of generated wallets")
	cmd.Flags().IntVar(&f.rounds, "rounds", 0, "max scratches per wallet")
	cmd.Flags().IntVar(&f.polls, "polls", 0, "settlement polls after each claim")
	cmd.Flags().IntVar(&f.pollMs, "poll-ms", 0, "milliseconds between settlement polls")
	cmd.Flags().BoolVar(&f.saveWallets, "save-wallets", false, "return generated wallet keys in the result")
}

func (f *batchFlags) input(cmd *cobra.Command) *entities.BatchOptionsInput {
	in := &entities.BatchOptionsInput{}
	number := func(flag string, v int) *json.Number {
		if !cmd.Flags().Changed(flag) {
			return nil
		}
		n := json.Number(strconv.Itoa(v))
		return &n
	}
	in.WalletCount = number("wallets", f.wallets)
	in.MaxRoundsPerWallet = number("rounds", f.rounds)
	in.ReactivityPolls = number("polls", f.polls)
	in.ReactivityPollMs = number("poll-ms", f.pollMs)
	if cmd.Flags().Changed("save-wallets") {
		save := f.saveWallets
		in.SaveWallets = &save
	}
	return in
}

// signedRequest builds a batch request signed now with the owner key. The options are sent fully
// populated so the server normalizes them to exactly what was signed.
func (a *app) signedRequest(cmd *cobra.Command, f *batchFlags) (*entities.BatchRunRequest, string, error) {
	key, err := a.signingKey(f.key)
	if err != nil {
		return nil, "", err
	}
	opts := usecases.NormalizeBatchOptions(f.input(cmd), batchSettings(a.cfg.Batch).Defaults)
	requester := ethcrypto.PubkeyToAddress(key.PublicKey).Hex()
	requestedAt := now().UnixMilli()

	message := usecases.BuildBatchSignatureMessage(requester, requestedAt, opts, a.cfg.Blockchain.ContractAddress)
	signature, err := crypto.SignPersonal(message, key)
	if err != nil {
		return nil, "", err
	}

	wallets := json.Number(strconv.Itoa(opts.WalletCount))
	rounds := json.Number(strconv.Itoa(opts.MaxRoundsPerWallet))
	polls := json.Number(strconv.Itoa(opts.ReactivityPolls))
	pollMs := json.Number(strconv.Itoa(opts.ReactivityPollMs))
	save := opts.SaveWallets
	return &entities.BatchRunRequest{
		Requester:   requester,
		RequestedAt: json.Number(strconv.FormatInt(requestedAt, 10)),
		Signature:   signature,
		Options: &entities.BatchOptionsInput{
			WalletCount:        &wallets,
			MaxRoundsPerWallet: &rounds,
			ReactivityPolls:    &polls,
			ReactivityPollMs:   &pollMs,
			SaveWallets:        &save,
		},
	}, message, nil
}

func signBatchCommand(a *app) *cobra.Command {
	f := &batchFlags{}
	var showMessage bool
	cmd := &cobra.Command{
		Use:   "sign-batch",
		Short: "Print a signed POST /api/admin/batch-scratch body",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req, message, err := a.signedRequest(cmd, f)
			if err != nil {
				return err
			}
			if showMessage {
				fmt.Fprintln(cmd.ErrOrStderr(), message)
			}
			return writeJSON(cmd.OutOrStdout(), req)
		},
	}
	f.register(cmd)
	cmd.Flags().BoolVar(&showMessage, "show-message", false, "print the signed message to stderr")
	return cmd
}

func batchCommand(a *app) *cobra.Command {
	f := &batchFlags{}
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Sign and run an admin batch in-process",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req, _, err := a.signedRequest(cmd, f)
			if err != nil {
				return err
			}
			ctx, cancel := a.context(cmd.Context())
			defer cancel()

			runner, closeFn, err := newBatchRunner(a.cfg)
			if err != nil {
				return err
			}
			if closeFn != nil {
				defer closeFn()
			}

			result, runErr := runner.Run(ctx, req)
			if result != nil {
				if err := writeJSON(cmd.OutOrStdout(), result); err != nil {
					return err
				}
			}
			return runErr
		},
	}
	f.register(cmd)
	return cmd
}

func batchSettings(cfg config.BatchConfig) usecases.BatchSettings {
	return usecases.BatchSettings{
		AdminPrivateKey:  cfg.AdminPrivateKey,
		FundPerWalletEth: cfg.FundPerWalletEth,
		GasReserveEth:    cfg.GasReserveEth,
		Defaults: entities.BatchOptions{
			WalletCount:        cfg.DefaultWalletCount,
			MaxRoundsPerWallet: cfg.DefaultMaxRoundsPerWallet,
			ReactivityPolls:    cfg.DefaultReactivityPolls,
			ReactivityPollMs:   cfg.DefaultReactivityPollMs,
			SaveWallets:        cfg.SaveWallets,
		},
		MaxRequestAge: cfg.MaxRequestAge,
		LockTTL:       cfg.LockTTL,
	}
}

func writeJSON(out io.Writer, v interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
