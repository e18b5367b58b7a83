package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
// ⭐ SSOT: 所有环境变量只在这里读取
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Database
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// Strategy
	Strategy StrategyConfig

	// Data sources
	Eastmoney EastmoneyConfig
	Sina      SinaConfig

	// Notification
	WeCom WeComConfig

	// Logging
	LogLevel  string
	LogFormat string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	URL      string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// StrategyConfig holds the decision engine parameters that vary per
// deployment. Rule thresholds stay in code; only capital, the benchmark
// index and schedule times live here.
type StrategyConfig struct {
	TotalCapital   float64
	StableCapital  float64
	AggroCapital   float64
	ArbCapital     float64
	Benchmark      string // index code used for market classification
	StrategySpec   string // cron spec for the daily strategy run
	PoolPushSpec   string // cron spec for the morning pool push
	PoolUpdateSpec string // cron spec for the weekly pool refresh
}

// EastmoneyConfig holds Eastmoney quote API configuration
type EastmoneyConfig struct {
	BaseURL string
	// 每秒请求数上限，超出部分排队
	RateLimit float64
}

// SinaConfig holds the Sina Finance fallback source configuration
type SinaConfig struct {
	BaseURL string
}

// WeComConfig holds the WeCom (企业微信) group bot configuration
type WeComConfig struct {
	WebhookURL string
	Enabled    bool
}

// Load reads configuration from environment variables
// ⭐ SSOT: 只有这个函数调用 os.Getenv()
func Load() (*Config, error) {
	// Try multiple paths for .env file
	loadEnvFile()

	cfg := &Config{
		// Server
		Port: getEnv("PORT", "8090"),
		Env:  getEnv("ENV", "development"),

		// Database
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			Name:            getEnv("DB_NAME", "fishbowl"),
			User:            getEnv("DB_USER", "fishbowl"),
			Password:        getEnv("DB_PASSWORD", ""),
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 2),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		// Redis
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", true),
		},

		// Strategy
		Strategy: StrategyConfig{
			TotalCapital:   getEnvAsFloat("STRATEGY_TOTAL_CAPITAL", 100000),
			StableCapital:  getEnvAsFloat("STRATEGY_STABLE_CAPITAL", 60000),
			AggroCapital:   getEnvAsFloat("STRATEGY_AGGRO_CAPITAL", 30000),
			ArbCapital:     getEnvAsFloat("STRATEGY_ARB_CAPITAL", 10000),
			Benchmark:      getEnv("STRATEGY_BENCHMARK", "000300"),
			// 六段 cron（带秒），工作日14:00跑策略，11:00推送ETF池，周五16:00刷新
			StrategySpec:   getEnv("STRATEGY_CRON", "0 0 14 * * 1-5"),
			PoolPushSpec:   getEnv("POOL_PUSH_CRON", "0 0 11 * * 1-5"),
			PoolUpdateSpec: getEnv("POOL_UPDATE_CRON", "0 0 16 * * 5"),
		},

		// Data sources
		Eastmoney: EastmoneyConfig{
			BaseURL:   getEnv("EASTMONEY_BASE_URL", "https://push2.eastmoney.com"),
			RateLimit: getEnvAsFloat("EASTMONEY_RATE_LIMIT", 5),
		},

		Sina: SinaConfig{
			BaseURL: getEnv("SINA_BASE_URL", "https://finance.sina.com.cn"),
		},

		// Notification
		WeCom: WeComConfig{
			WebhookURL: getEnv("WECOM_WEBHOOK_URL", ""),
			Enabled:    getEnvAsBool("WECOM_ENABLED", true),
		},

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "debug"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	// Database URL is required
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	// Validate environment
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.Strategy.TotalCapital <= 0 {
		return fmt.Errorf("STRATEGY_TOTAL_CAPITAL must be positive")
	}
	sum := c.Strategy.StableCapital + c.Strategy.AggroCapital + c.Strategy.ArbCapital
	if sum > c.Strategy.TotalCapital {
		return fmt.Errorf("sleeve capital (%.0f) exceeds total capital (%.0f)", sum, c.Strategy.TotalCapital)
	}

	return nil
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	// Try paths in order of priority
	paths := []string{
		".env", // Current directory
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

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		// Fallback to default
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
