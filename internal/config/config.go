package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultContractAddress = "0x91d1c6Aba776e827C0cA34627AE5cA1931855717"
	DefaultRPCURL          = "https://rpc.sepolia.org"
)

// Config holds all configuration values
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Blockchain BlockchainConfig
	Batch      BatchConfig
	EventSync  EventSyncConfig
	Log        LogConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port            string
	Env             string
	ShutdownTimeout time.Duration
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	DSN      string
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxOpen  int
	MaxIdle  int
}

// URL returns the database connection URL. An explicit DSN wins over the discrete fields.
func (c DatabaseConfig) URL() string {
	if c.DSN != "" {
		return c.DSN
	}
	return "postgres://" + c.User + ":" + c.Password + "@" + c.Host + ":" + strconv.Itoa(c.Port) + "/" + c.DBName + "?sslmode=" + c.SSLMode
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	URL      string
	PASSWORD string
}

// BlockchainConfig holds the RPC endpoint and game contract
type BlockchainConfig struct {
	RPCURL          string
	ContractAddress string
	// ChainID is optional; zero means ask the node.
	ChainID             int64
	EventLookbackBlocks uint64
}

// BatchConfig holds admin batch run settings
type BatchConfig struct {
	AdminPrivateKey           string
	FundPerWalletEth          string
	GasReserveEth             string
	DefaultWalletCount        int
	DefaultMaxRoundsPerWallet int
	DefaultReactivityPolls    int
	DefaultReactivityPollMs   int
	SaveWallets               bool
	MaxRequestAge             time.Duration
	LockTTL                   time.Duration
}

// EventSyncConfig holds the chain event sync job settings
type EventSyncConfig struct {
	Enabled        bool
	Interval       time.Duration
	LookbackBlocks uint64
	MaxRange       uint64
}

type LogConfig struct {
	Level string
}

// Load loads configuration from environment variables
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            getEnv("SERVER_PORT", "8080"),
			Env:             getEnv("SERVER_ENV", "development"),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Database: DatabaseConfig{
			DSN:      getEnv("DATABASE_URL", ""),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "scratchcard"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			MaxOpen:  getEnvAsInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdle:  getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
		},
		Redis: RedisConfig{
			URL:      getEnv("REDIS_URL", "redis://localhost:6379"),
			PASSWORD: getEnv("REDIS_PASSWORD", ""),
		},
		Blockchain: BlockchainConfig{
			RPCURL:              getEnv("BATCH_RPC_URL", DefaultRPCURL),
			ContractAddress:     getEnvFirst([]string{"SCRATCH_CARD_CONTRACT", "NEXT_PUBLIC_SCRATCH_CARD_CONTRACT"}, DefaultContractAddress),
			ChainID:             int64(getEnvAsInt("CHAIN_ID", 0)),
			EventLookbackBlocks: getEnvAsUint64("GAME_EVENT_LOOKBACK_BLOCKS", 120000),
		},
		Batch: BatchConfig{
			AdminPrivateKey:           getEnvFirst([]string{"BATCH_ADMIN_PRIVATE_KEY", "ADMIN_PRIVATE_KEY"}, ""),
			FundPerWalletEth:          getEnv("BATCH_FUND_PER_WALLET_ETH", "0.5"),
			GasReserveEth:             getEnv("BATCH_GAS_RESERVE_ETH", "0.01"),
			DefaultWalletCount:        getEnvAsPositiveInt("BATCH_WALLET_COUNT", 5),
			DefaultMaxRoundsPerWallet: getEnvAsPositiveInt("BATCH_MAX_ROUNDS_PER_WALLET", 10),
			DefaultReactivityPolls:    getEnvAsPositiveInt("BATCH_REACTIVITY_POLLS", 20),
			DefaultReactivityPollMs:   getEnvAsPositiveInt("BATCH_REACTIVITY_POLL_MS", 2000),
			SaveWallets:               os.Getenv("BATCH_SAVE_WALLETS") == "true",
			MaxRequestAge:             getEnvAsDuration("BATCH_MAX_REQUEST_AGE", 5*time.Minute),
			LockTTL:                   getEnvAsDuration("BATCH_LOCK_TTL", 30*time.Minute),
		},
		EventSync: EventSyncConfig{
			Enabled:        getEnvAsBool("EVENT_SYNC_ENABLED", false),
			Interval:       getEnvAsDuration("EVENT_SYNC_INTERVAL", 30*time.Second),
			LookbackBlocks: getEnvAsUint64("EVENT_SYNC_LOOKBACK_BLOCKS", 120000),
			MaxRange:       getEnvAsUint64("EVENT_SYNC_MAX_RANGE", 5000),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", ""),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFirst(keys []string, defaultValue string) string {
	for _, key := range keys {
		if value := strings.TrimSpace(os.Getenv(key)); value != "" {
			return value
		}
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsPositiveInt(key string, defaultValue int) int {
	if v := getEnvAsInt(key, defaultValue); v > 0 {
		return v
	}
	return defaultValue
}

func getEnvAsUint64(key string, defaultValue uint64) uint64 {
	if value := os.Getenv(key); value != "" {
		if v, err := strconv.ParseUint(value, 10, 64); err == nil {
			return v
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
