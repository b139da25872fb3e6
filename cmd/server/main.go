package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"scratch-card.backend/internal/config"
	"scratch-card.backend/internal/domain/entities"
	"scratch-card.backend/internal/infrastructure/blockchain"
	"scratch-card.backend/internal/infrastructure/datasources/postgres"
	"scratch-card.backend/internal/infrastructure/jobs"
	"scratch-card.backend/internal/infrastructure/models"
	"scratch-card.backend/internal/infrastructure/repositories"
	"scratch-card.backend/internal/interfaces/http/handlers"
	"scratch-card.backend/internal/interfaces/http/middleware"
	"scratch-card.backend/internal/usecases"
	"scratch-card.backend/pkg/logger"
	"scratch-card.backend/pkg/redis"
)

const eventCursorPrefix = "scratchcard:sync:"

var (
	loadDotenv = godotenv.Load
	loadCfg    = config.Load
	initLog    = logger.Init
	initRedis  = redis.Init
	openDB     = func(cfg config.DatabaseConfig) (*gorm.DB, error) {
		sqlDB, err := postgres.NewConnection(cfg)
		if err != nil {
			return nil, err
		}
		return postgres.NewGorm(sqlDB)
	}
	migrate   = models.AutoMigrate
	dialChain = blockchain.NewEVMClient
	runServer = func(srv *http.Server) error { return srv.ListenAndServe() }
)

func main() {
	if err := runMainProcess(); err != nil {
		log.Fatal(err)
	}
}

func runMainProcess() error {
	if err := loadDotenv(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := loadCfg()

	initLog(cfg.Server.Env, cfg.Log.Level)
	defer func() { _ = logger.Sync() }()
	logger.Info(context.Background(), "Logger initialized", zap.String("env", cfg.Server.Env))

	if err := initRedis(cfg.Redis.URL, cfg.Redis.PASSWORD); err != nil {
		logger.Error(context.Background(), "Failed to initialize Redis", zap.Error(err))
		return fmt.Errorf("failed to initialize redis: %w", err)
	}
	defer func() { _ = redis.Close() }()
	logger.Info(context.Background(), "Redis initialized")

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := openDB(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get generic database object: %w", err)
	}
	defer sqlDB.Close()
	if err := migrate(db); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	logger.Info(context.Background(), "Connected to PostgreSQL via GORM")

	if !common.IsHexAddress(cfg.Blockchain.ContractAddress) {
		return fmt.Errorf("invalid scratch card contract address %q", cfg.Blockchain.ContractAddress)
	}
	var chainID *big.Int
	if cfg.Blockchain.ChainID > 0 {
		chainID = big.NewInt(cfg.Blockchain.ChainID)
	}
	evm, err := dialChain(cfg.Blockchain.RPCURL, chainID)
	if err != nil {
		return fmt.Errorf("failed to connect to chain rpc: %w", err)
	}
	defer evm.Close()
	scratchCard := blockchain.NewScratchCardClient(evm, common.HexToAddress(cfg.Blockchain.ContractAddress))

	// Repositories
	txRepo := repositories.NewTransactionRepository(db)

	// Usecases
	transactionUsecase := usecases.NewTransactionUsecase(txRepo)
	leaderboardUsecase := usecases.NewLeaderboardUsecase(txRepo)
	gameUsecase := usecases.NewGameUsecase(scratchCard, evm, cfg.Blockchain.EventLookbackBlocks)
	batchUsecase := usecases.NewBatchUsecase(
		scratchCard,
		evm,
		transactionUsecase,
		usecases.NewRedisRunGuard(redis.GetClient()),
		batchSettings(cfg.Batch),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var syncJob *jobs.EventSyncJob
	if cfg.EventSync.Enabled {
		syncJob = jobs.NewEventSyncJob(
			scratchCard,
			txRepo,
			redis.NewCursorStore(redis.GetClient(), eventCursorPrefix),
			cfg.EventSync.Interval,
			cfg.EventSync.LookbackBlocks,
			cfg.EventSync.MaxRange,
		)
		go syncJob.Start(ctx)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.LoggerMiddleware())
	r.Use(middleware.MetricsMiddleware())

	applyCORSMiddleware(r)
	registerHealthRoute(r, handlers.NewHealthHandler(sqlDB.PingContext))
	registerMetricsRoute(r)
	registerAPIRoutes(r, routeDeps{
		transactionHandler: handlers.NewTransactionHandler(transactionUsecase),
		leaderboardHandler: handlers.NewLeaderboardHandler(leaderboardUsecase),
		gameHandler:        handlers.NewGameHandler(gameUsecase),
		batchHandler:       handlers.NewBatchHandler(batchUsecase),
	})

	for _, route := range r.Routes() {
		logger.Debug(ctx, "Registered route", zap.String("method", route.Method), zap.String("path", route.Path))
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: r,
	}

	// Graceful shutdown
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)
		select {
		case <-quit:
		case <-ctx.Done():
			return
		}
		logger.Info(context.Background(), "Shutting down server")
		if syncJob != nil {
			syncJob.Stop()
		}
		cancel()
		shutdownCtx, done := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer done()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error(shutdownCtx, "Server shutdown failed", zap.Error(err))
		}
	}()

	logger.Info(ctx, "Scratch card backend starting",
		zap.String("port", cfg.Server.Port),
		zap.String("contract", cfg.Blockchain.ContractAddress),
		zap.String("rpc", cfg.Blockchain.RPCURL),
		zap.Bool("event_sync", cfg.EventSync.Enabled),
	)

	if err := runServer(srv); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
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
