package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store drivers
const (
	StoreDriverPostgres = "postgres"
	StoreDriverSQLite   = "sqlite"
	StoreDriverMemory   = "memory"
)

// Config holds all process configuration
// ⭐ SSOT: 모든 환경변수는 여기서만 읽음
type Config struct {
	// Server
	Port        string
	Env         string // development, staging, production
	CORSOrigins []string

	// Result store
	StoreDriver string
	Database    DatabaseConfig
	SQLitePath  string

	// Redis
	Redis RedisConfig

	// Data providers
	Tiingo   TiingoConfig
	FinMind  FinMindConfig
	TWSE     TWSEConfig
	Provider ProviderConfig

	// Backtest
	StrategyFile   string
	DataDir        string
	ArchiveMaxAge  time.Duration
	BacktestWorker int

	// Logging
	LogLevel  string
	LogFormat string
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// TiingoConfig holds Tiingo (US daily prices) configuration
type TiingoConfig struct {
	Token   string
	BaseURL string
}

// FinMindConfig holds FinMind (TW prices and dividends) configuration
type FinMindConfig struct {
	Token   string
	BaseURL string
}

// TWSEConfig holds the listed company page location
type TWSEConfig struct {
	ListedURL string
}

// ProviderConfig controls pacing of outbound provider requests
type ProviderConfig struct {
	MinInterval time.Duration
	Timeout     time.Duration
}

// Load reads configuration from environment variables
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		Port:        getEnv("PORT", "8089"),
		Env:         getEnv("ENV", "development"),
		CORSOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", "*"),

		StoreDriver: getEnv("STORE_DRIVER", StoreDriverSQLite),
		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 2),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},
		SQLitePath: getEnv("SQLITE_PATH", "data/db.sqlite"),

		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},

		Tiingo: TiingoConfig{
			Token:   getEnv("TIINGO_TOKEN", ""),
			BaseURL: getEnv("TIINGO_BASE_URL", "https://api.tiingo.com"),
		},
		FinMind: FinMindConfig{
			Token:   getEnv("FINMIND_TOKEN", ""),
			BaseURL: getEnv("FINMIND_BASE_URL", "https://api.finmindtrade.com/api/v4"),
		},
		TWSE: TWSEConfig{
			ListedURL: getEnv("TWSE_LISTED_URL", "https://isin.twse.com.tw/isin/C_public.jsp?strMode=2"),
		},
		Provider: ProviderConfig{
			MinInterval: getEnvAsDuration("PROVIDER_MIN_INTERVAL", "2s"),
			Timeout:     getEnvAsDuration("PROVIDER_TIMEOUT", "30s"),
		},

		StrategyFile:   getEnv("STRATEGY_FILE", "config/strategies.yaml"),
		DataDir:        getEnv("DATA_DIR", "data"),
		ArchiveMaxAge:  getEnvAsDuration("ARCHIVE_MAX_AGE", "23h"),
		BacktestWorker: getEnvAsInt("BACKTEST_WORKERS", 4),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	switch c.StoreDriver {
	case StoreDriverPostgres:
		if c.Database.URL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORE_DRIVER=postgres")
		}
	case StoreDriverSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required when STORE_DRIVER=sqlite")
		}
	case StoreDriverMemory:
	default:
		return fmt.Errorf("STORE_DRIVER must be one of: postgres, sqlite, memory")
	}

	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.BacktestWorker < 1 {
		return fmt.Errorf("BACKTEST_WORKERS must be at least 1")
	}

	return nil
}

// loadEnvFile tries to load .env from the working directory, then next to the executable
func loadEnvFile() {
	paths := []string{".env"}

	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsList(key string, defaultValue string) []string {
	var out []string
	for _, part := range strings.Split(getEnv(key, defaultValue), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
