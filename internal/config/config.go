package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the API server configuration.
type Config struct {
	// Server
	Port       string
	Env        string
	LogLevel   string
	CORSOrigin string

	// Database
	DBDriver   string
	DBPath     string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
}

// ClientConfig holds settings for the spendwise command line client.
type ClientConfig struct {
	APIURL         string
	RequestTimeout time.Duration
	MaxAttempts    int
	RetryBackoff   time.Duration
}

// Load loads the server configuration from the environment, reading a .env
// file first when one is present.
func Load() (*Config, error) {
	loadDotEnv()

	cfg := &Config{
		Port:       getEnv("PORT", "3001"),
		Env:        getEnv("ENV", "development"),
		LogLevel:   getEnv("LOG_LEVEL", ""),
		CORSOrigin: getEnv("CORS_ORIGIN", "*"),

		DBDriver:   strings.ToLower(getEnv("DB_DRIVER", "sqlite")),
		DBPath:     getEnv("DB_PATH", "expenses.db"),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "spendwise"),
		DBPassword: getEnv("DB_PASSWORD", "spendwise"),
		DBName:     getEnv("DB_NAME", "spendwise"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),
	}

	switch cfg.DBDriver {
	case "sqlite", "postgres":
	default:
		return nil, fmt.Errorf("invalid DB_DRIVER %q: must be sqlite or postgres", cfg.DBDriver)
	}

	return cfg, nil
}

// LoadClient loads the command line client configuration.
func LoadClient() (*ClientConfig, error) {
	loadDotEnv()

	cfg := &ClientConfig{
		APIURL: getEnv("SPENDWISE_API_URL", "http://localhost:3001"),
	}

	timeout, err := parseDuration("REQUEST_TIMEOUT", getEnv("REQUEST_TIMEOUT", "10s"))
	if err != nil {
		return nil, err
	}
	cfg.RequestTimeout = timeout

	backoff, err := parseDuration("RETRY_BACKOFF", getEnv("RETRY_BACKOFF", "250ms"))
	if err != nil {
		return nil, err
	}
	cfg.RetryBackoff = backoff

	attempts, err := strconv.Atoi(getEnv("MAX_ATTEMPTS", "3"))
	if err != nil || attempts < 1 {
		return nil, fmt.Errorf("invalid MAX_ATTEMPTS %q: must be a positive integer", os.Getenv("MAX_ATTEMPTS"))
	}
	cfg.MaxAttempts = attempts

	return cfg, nil
}

func loadDotEnv() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}
}

func parseDuration(name, s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", name, s, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %v", name, d)
	}
	return d, nil
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
