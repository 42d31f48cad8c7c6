package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// ErrMissingSecret is returned when no token signing secret is configured.
var ErrMissingSecret = errors.New("config: JWT_SECRET must be set")

// Config holds the application configuration.
type Config struct {
	ServerPort      int
	DatabasePath    string
	Env             string // "development" or "production"
	LogLevel        string
	ShutdownTimeout time.Duration

	// Token signing, loaded once at startup.
	JWTSecret      string
	JWTAlgorithm   string
	JWTIssuer      string
	AccessTokenTTL time.Duration

	BcryptCost int

	CORSAllowedOrigins []string

	LoginRatePerMinute int
	LoginBurst         int

	MaintenanceCron string // empty disables the scheduler
}

// IsProduction reports whether the app runs with production settings.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Load loads configuration from environment variables or sets defaults.
func Load() (*Config, error) {
	port, err := getEnvInt("PORT", 8080)
	if err != nil {
		return nil, err
	}
	ttl, err := getEnvDuration("ACCESS_TOKEN_TTL", 30*time.Minute)
	if err != nil {
		return nil, err
	}
	shutdown, err := getEnvDuration("SHUTDOWN_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}
	cost, err := getEnvInt("BCRYPT_COST", 0)
	if err != nil {
		return nil, err
	}
	rpm, err := getEnvInt("LOGIN_RATE_PER_MINUTE", 10)
	if err != nil {
		return nil, err
	}
	burst, err := getEnvInt("LOGIN_BURST", 5)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		ServerPort:         port,
		DatabasePath:       getEnv("DATABASE_PATH", "./accounts.db"),
		Env:                getEnv("APP_ENV", "development"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		ShutdownTimeout:    shutdown,
		JWTSecret:          getEnv("JWT_SECRET", os.Getenv("TOKEN")),
		JWTAlgorithm:       getEnv("JWT_ALGORITHM", getEnv("ALGORYTM", "HS256")),
		JWTIssuer:          os.Getenv("JWT_ISSUER"),
		AccessTokenTTL:     ttl,
		BcryptCost:         cost,
		CORSAllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		LoginRatePerMinute: rpm,
		LoginBurst:         burst,
		MaintenanceCron:    getEnv("MAINTENANCE_CRON", "@hourly"),
	}

	if cfg.JWTSecret == "" {
		return nil, ErrMissingSecret
	}
	return cfg, nil
}

// Helper to get an environment variable with a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("config: invalid %s: %w", key, err)
	}
	return n, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("config: invalid %s: %w", key, err)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
