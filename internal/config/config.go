package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Auth     AuthConfig
	Email    EmailConfig
}

type ServerConfig struct {
	Port            string
	Env             string // dev or prod
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	TrustedOrigins  []string // CORS allowed origins
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// AuthConfig holds the knobs for session signing and the login/token policies.
type AuthConfig struct {
	// TokenBackend selects the session token format: "jwt" or "paseto".
	TokenBackend string
	// SessionSecret signs JWT sessions (any length) or encrypts PASETO
	// sessions (must be exactly 32 bytes for v4.local).
	SessionSecret []byte
	// SessionDuration is the absolute session lifetime. No refresh mechanism.
	SessionDuration time.Duration
	// TokenStaleness is how long a verification or reset token stays redeemable.
	TokenStaleness time.Duration
	// LockoutWindow is the trailing window over which failed logins are counted.
	LockoutWindow time.Duration
	// MaxStrikes is the failed-login count at which logins are refused.
	MaxStrikes int
}

type EmailConfig struct {
	SMTPHost     string
	SMTPPort     string
	SMTPUser     string
	SMTPPassword string
	FrontendURL  string // base URL for verification/reset links
}

// Load reads configuration from environment variables, optionally seeded from
// a .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv("SERVER_PORT", "8888"),
			Env:             getEnv("APP_ENV", "dev"),
			ReadTimeout:     getDurationEnv("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getDurationEnv("SERVER_WRITE_TIMEOUT", 10*time.Second),
			ShutdownTimeout: getDurationEnv("SERVER_SHUTDOWN_TIMEOUT", 15*time.Second),
			TrustedOrigins:  getSliceEnv("TRUSTED_ORIGINS", []string{"http://localhost:3000"}),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "authapi"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
		},
		Auth: AuthConfig{
			TokenBackend:    getEnv("SESSION_TOKEN_BACKEND", "jwt"),
			SessionSecret:   []byte(getEnv("SESSION_SECRET", "")),
			SessionDuration: getDurationEnv("SESSION_DURATION", 24*time.Hour),
			TokenStaleness:  getDurationEnv("TOKEN_STALENESS", 4*time.Hour),
			LockoutWindow:   getDurationEnv("LOCKOUT_WINDOW", time.Hour),
			MaxStrikes:      getIntEnv("MAX_LOGIN_STRIKES", 5),
		},
		Email: EmailConfig{
			SMTPHost:     getEnv("SMTP_HOST", ""),
			SMTPPort:     getEnv("SMTP_PORT", "587"),
			SMTPUser:     getEnv("SMTP_USER", ""),
			SMTPPassword: getEnv("SMTP_PASS", ""),
			FrontendURL:  getEnv("FRONTEND_URL", "http://localhost:3000"),
		},
	}

	if len(cfg.Auth.SessionSecret) == 0 {
		return nil, fmt.Errorf("SESSION_SECRET must be set")
	}

	switch cfg.Auth.TokenBackend {
	case "jwt":
	case "paseto":
		// v4.local requires a 32-byte symmetric key
		if len(cfg.Auth.SessionSecret) != 32 {
			return nil, fmt.Errorf("SESSION_SECRET must be exactly 32 bytes for paseto, got %d", len(cfg.Auth.SessionSecret))
		}
	default:
		return nil, fmt.Errorf("SESSION_TOKEN_BACKEND must be jwt or paseto, got %q", cfg.Auth.TokenBackend)
	}

	if cfg.Auth.MaxStrikes < 1 {
		return nil, fmt.Errorf("MAX_LOGIN_STRIKES must be at least 1, got %d", cfg.Auth.MaxStrikes)
	}

	return cfg, nil
}

// ConnectionString builds a lib/pq connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// Address returns the Redis connection address (host:port).
func (c *RedisConfig) Address() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// IsDevelopment returns true if the environment is set to dev.
func (c *ServerConfig) IsDevelopment() bool {
	return c.Env == "dev"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	seconds, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return time.Duration(seconds) * time.Second
}

func getSliceEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}

	if len(result) == 0 {
		return defaultValue
	}

	return result
}
