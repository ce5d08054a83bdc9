package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Rhymond/go-money"
	"github.com/joho/godotenv"
)

// AppConfig holds all configuration for the application.
// The values are loaded from environment variables.
type AppConfig struct {
	// Core settings
	Port         string
	DatabasePath string
	LogLevel     string

	// Security settings
	JWTSecret         string
	AccessTokenExpiry time.Duration
	AdminUserIDs      []int64

	// Ledger settings
	Currency              string
	OverdraftAccountTypes []string

	// Summary report cache
	SummaryCacheExpiration time.Duration
	CacheCleanupInterval   time.Duration

	// HTTP surface
	AllowedOrigins     []string
	RateLimitPerSecond float64
	RateLimitBurst     int
}

// Cfg is a global instance of the AppConfig.
var Cfg *AppConfig

const minJWTSecretLength = 32

// LoadConfig loads configuration from environment variables or a .env file
// into Cfg. It terminates the process when the configuration is unusable.
func LoadConfig() {
	errEnv := godotenv.Load()
	if errEnv != nil {
		// common when running from a subdirectory
		errEnv = godotenv.Load("../.env")
	}

	if errEnv != nil {
		if os.IsNotExist(errEnv) {
			log.Println("Info: No .env file found in current or parent directory. Relying on OS environment variables.")
		} else {
			log.Printf("Warning: Error loading .env file: %v. Relying on OS environment variables.", errEnv)
		}
	} else {
		log.Println(".env file loaded successfully.")
	}

	log.Println("Loading application configuration...")
	cfg, err := Load()
	if err != nil {
		log.Fatalf("FATAL: %v", err)
	}
	Cfg = cfg

	log.Printf("Configuration loaded: Port=%s, LogLevel=%s, DBPath=%s, Currency=%s",
		Cfg.Port, Cfg.LogLevel, Cfg.DatabasePath, Cfg.Currency)
	log.Printf("Admin users loaded: %d", len(Cfg.AdminUserIDs))
}

// Load builds an AppConfig from the process environment without touching Cfg.
func Load() (*AppConfig, error) {
	jwtSecret, err := getRequiredEnv("JWT_SECRET")
	if err != nil {
		return nil, err
	}
	if len(jwtSecret) < minJWTSecretLength {
		return nil, fmt.Errorf("JWT_SECRET must be at least %d characters", minJWTSecretLength)
	}

	currency := strings.ToUpper(getEnv("LEDGER_CURRENCY", "EUR"))
	if c := money.GetCurrency(currency); c == nil || c.Fraction != 2 {
		log.Printf("WARNING: Unsupported LEDGER_CURRENCY '%s' (needs 2 fractional digits). Using EUR.", currency)
		currency = "EUR"
	}

	adminIDs, err := getEnvAsInt64List("ADMIN_USER_IDS")
	if err != nil {
		return nil, err
	}

	return &AppConfig{
		Port:         getEnv("PORT", "8080"),
		DatabasePath: getEnv("DATABASE_PATH", "./ledger.db"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),

		JWTSecret:         jwtSecret,
		AccessTokenExpiry: getEnvAsDuration("ACCESS_TOKEN_EXPIRY", 60*time.Minute),
		AdminUserIDs:      adminIDs,

		Currency:              currency,
		OverdraftAccountTypes: getEnvAsList("OVERDRAFT_ACCOUNT_TYPES", "liability,equity,income,expense"),

		SummaryCacheExpiration: getEnvAsDuration("SUMMARY_CACHE_EXPIRATION", 15*time.Minute),
		CacheCleanupInterval:   getEnvAsDuration("CACHE_CLEANUP_INTERVAL", 30*time.Minute),

		AllowedOrigins:     getEnvAsList("CORS_ALLOWED_ORIGINS", "http://localhost:3000"),
		RateLimitPerSecond: getEnvAsFloat("RATE_LIMIT_PER_SECOND", 10),
		RateLimitBurst:     getEnvAsInt("RATE_LIMIT_BURST", 30),
	}, nil
}

// getEnv retrieves an environment variable or returns a fallback value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getRequiredEnv(key string) (string, error) {
	value, exists := os.LookupEnv(key)
	if !exists || strings.TrimSpace(value) == "" {
		return "", fmt.Errorf("required environment variable %s is not set or is empty", key)
	}
	return value, nil
}

// getEnvAsInt retrieves an environment variable as an integer or returns a fallback.
func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	log.Printf("Invalid integer value for %s ('%s'), using default: %d", key, valueStr, fallback)
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil && value > 0 {
		return value
	}
	log.Printf("Invalid float value for %s ('%s'), using default: %g", key, valueStr, fallback)
	return fallback
}

// getEnvAsDuration retrieves an environment variable as a time.Duration or returns a fallback.
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	log.Printf("Invalid duration value for %s ('%s'), using default: %s", key, valueStr, fallback.String())
	return fallback
}

// getEnvAsList splits a comma-separated variable, dropping blanks and lower-casing entries.
func getEnvAsList(key, fallback string) []string {
	raw := getEnv(key, fallback)
	out := []string{}
	for _, item := range strings.Split(raw, ",") {
		item = strings.ToLower(strings.TrimSpace(item))
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}

func getEnvAsInt64List(key string) ([]int64, error) {
	ids := []int64{}
	for _, item := range getEnvAsList(key, "") {
		id, err := strconv.ParseInt(item, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid id '%s' in %s: %w", item, key, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
