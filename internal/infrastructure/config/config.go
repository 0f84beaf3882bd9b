// internal/infrastructure/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"flightsurety-service/internal/domain/entity"
)

// Storage backends for the ledger journal
const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
	StorageMongo    = "mongo"
)

// Config holds all configuration for the application
type Config struct {
	// App
	AppVersion string

	// Server
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// Journal storage
	StorageBackend   string
	JournalBatchSize int
	PostgresDSN      string

	// MongoDB
	MongoURI      string
	MongoDB       string
	MongoUser     string
	MongoPassword string

	// Redis notifications; disabled when RedisAddr is empty
	RedisAddr          string
	RedisPassword      string
	RedisDB            int
	RedisChannelPrefix string

	// Ledger
	Admins             []entity.Account
	GenesisAirline     entity.Account
	GenesisAirlineName string
	EscrowAccount      entity.Account
	CallerAllowlist    []entity.Account
	ConsensusRule      entity.ConsensusRule
	RequestTTLBlocks   uint64

	// Chain clock
	BlockInterval time.Duration
	ChainGenesis  time.Time
	ChainSeed     string

	// Logging
	LogLevel      string
	LogFile       string
	LogMaxSizeMB  int
	LogMaxBackups int
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	// Load .env file if it exists
	godotenv.Load()

	// Set defaults and override with env vars
	config := &Config{
		AppVersion:   getEnv("APP_VERSION", "1.0.0"),
		Port:         getEnv("PORT", "8080"),
		ReadTimeout:  time.Duration(getEnvAsInt("READ_TIMEOUT", 30)) * time.Second,
		WriteTimeout: time.Duration(getEnvAsInt("WRITE_TIMEOUT", 30)) * time.Second,

		StorageBackend:   strings.ToLower(getEnv("STORAGE_BACKEND", StorageMemory)),
		JournalBatchSize: getEnvAsInt("JOURNAL_BATCH_SIZE", 100),
		PostgresDSN:      getEnv("POSTGRES_DSN", ""),

		MongoURI:      getEnv("MONGODB_DSN", "mongodb://localhost:27017"),
		MongoDB:       getEnv("MONGO_DB", "flightsurety"),
		MongoUser:     getEnv("MONGO_USER", ""),
		MongoPassword: getEnv("MONGO_PASSWORD", ""),

		RedisAddr:          getEnv("REDIS_ADDR", ""),
		RedisPassword:      getEnv("REDIS_PASSWORD", ""),
		RedisDB:            getEnvAsInt("REDIS_DB", 0),
		RedisChannelPrefix: getEnv("REDIS_CHANNEL_PREFIX", "flightsurety"),

		GenesisAirlineName: getEnv("GENESIS_AIRLINE_NAME", "Genesis Airline"),

		BlockInterval: time.Duration(getEnvAsInt("BLOCK_INTERVAL", 15)) * time.Second,
		ChainGenesis:  time.Unix(int64(getEnvAsInt("CHAIN_GENESIS", 1_700_000_000)), 0).UTC(),
		ChainSeed:     getEnv("CHAIN_SEED", "flightsurety"),

		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogFile:       getEnv("LOG_FILE", ""),
		LogMaxSizeMB:  getEnvAsInt("LOG_MAX_SIZE_MB", 100),
		LogMaxBackups: getEnvAsInt("LOG_MAX_BACKUPS", 5),
	}

	var err error
	if config.Admins, err = getEnvAsAccounts("ADMIN_ACCOUNT"); err != nil {
		return nil, err
	}
	if len(config.Admins) == 0 {
		return nil, fmt.Errorf("ADMIN_ACCOUNT is required")
	}
	if config.GenesisAirline, err = getEnvAsAccount("GENESIS_AIRLINE"); err != nil {
		return nil, err
	}
	if config.EscrowAccount, err = getEnvAsAccount("ESCROW_ACCOUNT"); err != nil {
		return nil, err
	}
	if config.CallerAllowlist, err = getEnvAsAccounts("CALLER_ALLOWLIST"); err != nil {
		return nil, err
	}
	if config.ConsensusRule, err = entity.ParseConsensusRule(getEnv("CONSENSUS_RULE", "")); err != nil {
		return nil, fmt.Errorf("CONSENSUS_RULE: %w", err)
	}

	switch config.StorageBackend {
	case StorageMemory, StorageMongo:
	case StoragePostgres:
		if config.PostgresDSN == "" {
			return nil, fmt.Errorf("POSTGRES_DSN is required for the postgres backend")
		}
	default:
		return nil, fmt.Errorf("unknown STORAGE_BACKEND %q", config.StorageBackend)
	}
	if config.BlockInterval <= 0 {
		return nil, fmt.Errorf("BLOCK_INTERVAL must be positive")
	}
	requestTTL := getEnvAsInt("REQUEST_TTL_BLOCKS", 0)
	if requestTTL < 0 {
		return nil, fmt.Errorf("REQUEST_TTL_BLOCKS must not be negative")
	}
	config.RequestTTLBlocks = uint64(requestTTL)

	return config, nil
}

// Helper functions to get environment variables
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsAccount(key string) (entity.Account, error) {
	value := getEnv(key, "")
	if value == "" {
		return entity.ZeroAccount, fmt.Errorf("%s is required", key)
	}
	account, err := entity.ParseAccount(value)
	if err != nil {
		return entity.ZeroAccount, fmt.Errorf("%s: %w", key, err)
	}
	return account, nil
}

func getEnvAsAccounts(key string) ([]entity.Account, error) {
	var out []entity.Account
	for _, part := range strings.Split(getEnv(key, ""), ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		account, err := entity.ParseAccount(part)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		out = append(out, account)
	}
	return out, nil
}
