package main

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"scratch-card.backend/internal/config"
	"scratch-card.backend/internal/domain/entities"
	"scratch-card.backend/internal/infrastructure/blockchain"
	"scratch-card.backend/pkg/logger"
)

const programName = "scratchctl"

// scratchCardAPI is the part of the contract facade the CLI drives.
type scratchCardAPI interface {
	Address() common.Address
	ChainID(ctx context.Context) (*big.Int, error)
	EnsureDeployed(ctx context.Context) error
	Owner(ctx context.Context) (common.Address, error)
	ScratchPrice(ctx context.Context) (*big.Int, error)
	ContractBalance(ctx context.Context) (*big.Int, error)
	TotalPendingRewards(ctx context.Context) (*big.Int, error)
	LatestBlock(ctx context.Context) (uint64, error)
	ClaimStatus(ctx context.Context, player common.Address) (*entities.ClaimStatus, error)
	SetScratchPrice(ctx context.Context, key *ecdsa.PrivateKey, price *big.Int) (*blockchain.PendingTx, error)
	WithdrawProfit(ctx context.Context, key *ecdsa.PrivateKey, amount *big.Int) (*blockchain.PendingTx, error)
}

var (
	loadDotenv  = godotenv.Load
	loadCfg     = config.Load
	initLog     = logger.Init
	newContract = func(cfg *config.Config) (scratchCardAPI, func(), error) {
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
		return blockchain.NewScratchCardClient(evm, common.HexToAddress(cfg.Blockchain.ContractAddress)), evm.Close, nil
	}
)

type globalFlags struct {
	envFile  string
	rpcURL   string
	contract string
	debug    bool
	timeout  time.Duration
}

// app carries what PersistentPreRunE resolved to every subcommand.
type app struct {
	flags globalFlags
	cfg   *config.Config
}

func (a *app) context(parent context.Context) (context.Context, context.CancelFunc) {
	if a.flags.timeout <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, a.flags.timeout)
}

func (a *app) contract() (scratchCardAPI, func(), error) {
	c, closeFn, err := newContract(a.cfg)
	if err != nil {
		return nil, nil, err
	}
	if closeFn == nil {
		closeFn = func() {}
	}
	return c, closeFn, nil
}

// signingKey parses raw, falling back to the configured admin key.
func (a *app) signingKey(raw string) (*ecdsa.PrivateKey, error) {
	if strings.TrimSpace(raw) == "" {
		raw = a.cfg.Batch.AdminPrivateKey
	}
	raw = strings.TrimPrefix(strings.TrimSpace(raw), "0x")
	if raw == "" {
		return nil, errors.New("no signing key: pass --key or set BATCH_ADMIN_PRIVATE_KEY")
	}
	key, err := ethcrypto.HexToECDSA(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return key, nil
}

func newRootCommand() *cobra.Command {
	a := &app{}
	rootCmd := &cobra.Command{
		Use:           programName,
		Short:         "Operate the scratch card contract and admin batch runs",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if a.flags.envFile != "" {
				if err := loadDotenv(a.flags.envFile); err != nil {
					return fmt.Errorf("failed to load %s: %w", a.flags.envFile, err)
				}
			} else {
				_ = loadDotenv()
			}

			a.cfg = loadCfg()
			if a.flags.rpcURL != "" {
				a.cfg.Blockchain.RPCURL = a.flags.rpcURL
			}
			if a.flags.contract != "" {
				a.cfg.Blockchain.ContractAddress = a.flags.contract
			}

			level := a.cfg.Log.Level
			if a.flags.debug {
				level = "debug"
			}
			initLog(a.cfg.Server.Env, level)
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&a.flags.envFile, "env-file", "", "path to a .env file")
	rootCmd.PersistentFlags().StringVar(&a.flags.rpcURL, "rpc", "", "JSON-RPC endpoint (overrides BATCH_RPC_URL)")
	rootCmd.PersistentFlags().StringVar(&a.flags.contract, "contract", "", "scratch card contract (overrides SCRATCH_CARD_CONTRACT)")
	rootCmd.PersistentFlags().BoolVarP(&a.flags.debug, "debug", "D", false, "enable debug logging")
	rootCmd.PersistentFlags().DurationVar(&a.flags.timeout, "timeout", 0, "overall deadline, 0 for none")

	rootCmd.AddCommand(statusCommand(a))
	rootCmd.AddCommand(claimStatusCommand(a))
	rootCmd.AddCommand(setPriceCommand(a))
	rootCmd.AddCommand(withdrawCommand(a))
	rootCmd.AddCommand(signBatchCommand(a))
	rootCmd.AddCommand(batchCommand(a))
	rootCmd.AddCommand(selectorsCommand())
	return rootCmd
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		_ = logger.Sync()
		os.Exit(1)
	}
	_ = logger.Sync()
}
