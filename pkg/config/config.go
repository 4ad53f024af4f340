package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
// All environment variables are read here and nowhere else.
type Config struct {
	Env string // development, staging, production

	// Database
	Database DatabaseConfig

	// External data sources
	Tushare   TushareConfig
	Eastmoney EastmoneyConfig

	// Output directories
	DataDir   string
	ChartDir  string
	ReportDir string

	// Strategy config file (YAML)
	StrategyFile string

	// Logging
	LogLevel  string
	LogFormat string
}

// DatabaseConfig holds PostgreSQL configuration.
type DatabaseConfig struct {
	URL string

	// Connection pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// TushareConfig holds Tushare pro API configuration.
type TushareConfig struct {
	Token   string
	BaseURL string

	// Request pacing against the pro API, requests per second
	RateLimit float64
	RateBurst int
}

// EastmoneyConfig holds the secondary quote source used for cross-validation.
type EastmoneyConfig struct {
	BaseURL string
}

// Load reads configuration from environment variables.
// Only this function calls os.Getenv().
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		Env: getEnv("ENV", "development"),

		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 2),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		Tushare: TushareConfig{
			Token:     getEnv("TUSHARE_TOKEN", ""),
			BaseURL:   getEnv("TUSHARE_BASE_URL", "https://api.tushare.pro"),
			RateLimit: getEnvAsFloat("TUSHARE_RATE_LIMIT", 0.5),
			RateBurst: getEnvAsInt("TUSHARE_RATE_BURST", 1),
		},

		Eastmoney: EastmoneyConfig{
			BaseURL: getEnv("EASTMONEY_BASE_URL", "https://push2his.eastmoney.com"),
		},

		DataDir:   getEnv("DATA_DIR", "data"),
		ChartDir:  getEnv("CHART_DIR", "charts"),
		ReportDir: getEnv("REPORT_DIR", "reports"),

		StrategyFile: getEnv("STRATEGY_FILE", "configs/allweather.yaml"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "console"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set.
func (c *Config) validate() error {
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.Tushare.RateLimit <= 0 {
		return fmt.Errorf("TUSHARE_RATE_LIMIT must be > 0")
	}

	return nil
}

// EnsureDirectories creates the output directories if they do not exist.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.DataDir, c.ChartDir, c.ReportDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{
		".env",
	}

	// Also try relative to executable
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

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
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
