package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration loaded from environment.
type Config struct {
	Server    ServerConfig
	GoTo      GoToConfig
	Checkout  CheckoutConfig
	Messaging MessagingConfig
	State     StateConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	AWS       AWSConfig
	Log       LogConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port               string
	ReadTimeout        int
	WriteTimeout       int
	CORSAllowedOrigins string // comma-separated, or "*" for all
	StaticDir          string // built dashboard; skipped when the directory is missing
}

// GoToConfig holds the GoToWebinar OAuth client and API endpoints.
type GoToConfig struct {
	ClientID       string
	ClientSecret   string
	RedirectURI    string
	AuthorizeURL   string
	TokenURL       string
	APIBase        string
	HTTPTimeoutSec int

	// Seed tokens, overridden by persisted state when present.
	AccessToken  string
	RefreshToken string
	OrganizerKey string
}

// HTTPTimeout returns the outbound request timeout.
func (c GoToConfig) HTTPTimeout() time.Duration {
	if c.HTTPTimeoutSec <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.HTTPTimeoutSec) * time.Second
}

// CheckoutConfig holds the checkout link defaults.
type CheckoutConfig struct {
	BaseURL string
}

// MessagingConfig controls bulk-send pacing.
// RatePerSec > 0 switches from the fixed delay to a token bucket.
type MessagingConfig struct {
	DelayMS    int
	RatePerSec float64
	Burst      int
}

// StateConfig selects where tokens and settings are persisted.
type StateConfig struct {
	Backend     string // file, memory, redis, postgres, s3
	Dir         string
	TokensKey   string
	SettingsKey string
	S3Bucket    string
	S3Prefix    string
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	URL      string // if set, used as-is
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	// PubSub fans progress events out to other instances when true.
	PubSub bool
}

// AWSConfig holds AWS credentials for the S3 state backend.
type AWSConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level string
}

// DSN returns the PostgreSQL connection string.
// If DatabaseConfig.URL is set (e.g. DATABASE_URL env), it is used as-is; otherwise built from components.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

// Load reads configuration from environment, with optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()      // .env
	_ = godotenv.Load("env") // env (no leading dot)

	cfg := &Config{
		Server: ServerConfig{
			Port:               getEnv("PORT", "3000"),
			ReadTimeout:        getEnvInt("READ_TIMEOUT_SEC", 30),
			WriteTimeout:       getEnvInt("WRITE_TIMEOUT_SEC", 300),
			CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
			StaticDir:          getEnv("STATIC_DIR", "dist"),
		},
		GoTo: GoToConfig{
			ClientID:       getEnv("GTW_CLIENT_ID", ""),
			ClientSecret:   getEnv("GTW_CLIENT_SECRET", ""),
			RedirectURI:    getEnv("GTW_REDIRECT_URI", "http://localhost:3000/oauth-callback"),
			AuthorizeURL:   getEnv("GTW_AUTHORIZE_URL", "https://api.getgo.com/oauth/v2/authorize"),
			TokenURL:       getEnv("GTW_TOKEN_URL", "https://authentication.logmeininc.com/oauth/token"),
			APIBase:        getEnv("GTW_API_BASE", "https://api.getgo.com/G2W/rest/v2"),
			HTTPTimeoutSec: getEnvInt("GTW_HTTP_TIMEOUT_SEC", 30),
			AccessToken:    getEnv("GTW_ACCESS_TOKEN", ""),
			RefreshToken:   getEnv("GTW_REFRESH_TOKEN", ""),
			OrganizerKey:   getEnv("GTW_ORGANIZER_KEY", ""),
		},
		Checkout: CheckoutConfig{
			BaseURL: getEnv("BASE_CHECKOUT_URL", "https://example.com/checkout"),
		},
		Messaging: MessagingConfig{
			DelayMS:    getEnvInt("MESSAGE_DELAY_MS", 300),
			RatePerSec: getEnvFloat("MESSAGE_RATE_PER_SEC", 0),
			Burst:      getEnvInt("MESSAGE_RATE_BURST", 1),
		},
		State: StateConfig{
			Backend:     strings.ToLower(getEnv("STATE_BACKEND", "file")),
			Dir:         getEnv("STATE_DIR", "."),
			TokensKey:   getEnv("TOKENS_KEY", ".tokens.json"),
			SettingsKey: getEnv("SETTINGS_KEY", ".settings.json"),
			S3Bucket:    getEnv("STATE_S3_BUCKET", ""),
			S3Prefix:    getEnv("STATE_S3_PREFIX", "gtw-tools"),
		},
		Database: DatabaseConfig{
			URL:      getEnv("DATABASE_URL", ""),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "gtw_tools"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
			PubSub:   getEnvBool("REDIS_PUBSUB", false),
		},
		AWS: AWSConfig{
			Region:          getEnv("AWS_REGION", "us-east-1"),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}

	switch cfg.State.Backend {
	case "file", "memory", "redis", "postgres", "s3":
	default:
		return nil, fmt.Errorf("unknown STATE_BACKEND %q", cfg.State.Backend)
	}
	if cfg.State.Backend == "s3" && cfg.State.S3Bucket == "" {
		return nil, fmt.Errorf("STATE_S3_BUCKET is required for the s3 state backend")
	}
	return cfg, nil
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
