// internal/infrastructure/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreDriverMongo  = "mongo"
	StoreDriverMemory = "memory"
)

// Config holds all configuration for the application
type Config struct {
	// App
	AppVersion string
	LogLevel   string

	// Server
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// Ingestion endpoint
	IngestRateLimit float64
	IngestRateBurst int

	// Record store
	StoreDriver         string
	MongoURI            string
	MongoDB             string
	MongoUser           string
	MongoPassword       string
	MongoConnectTimeout time.Duration

	// Run history; disabled when empty
	PostgresURI string

	// Fare provider
	FareAPIURL       string
	FareAPIToken     string
	FareAPIVersion   string
	FareRateLimit    float64
	FareRateBurst    int
	FareQuoteTimeout time.Duration
	QuoteCacheTTL    time.Duration

	// Reconciliation
	ReconcileEnabled      bool
	ReconcileInterval     time.Duration
	ReconcileConcurrency  int
	ReconcileWriteTimeout time.Duration

	// Gmail; disabled when the refresh token is empty
	GmailClientID     string
	GmailClientSecret string
	GmailRefreshToken string
	GmailPollInterval time.Duration
	GmailQuery        string

	// RabbitMQ; disabled when the URL is empty
	RabbitMQURL        string
	RabbitMQQueue      string
	RabbitMQRetryDelay time.Duration
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	// Load .env file if it exists
	godotenv.Load()

	config := &Config{
		AppVersion: getEnv("APP_VERSION", "1.0.0"),
		LogLevel:   getEnv("LOG_LEVEL", "info"),

		Port:         getEnv("PORT", "8080"),
		ReadTimeout:  time.Duration(getEnvAsInt("READ_TIMEOUT", 30)) * time.Second,
		WriteTimeout: time.Duration(getEnvAsInt("WRITE_TIMEOUT", 30)) * time.Second,

		IngestRateLimit: getEnvAsFloat("INGEST_RATE_LIMIT_PER_SEC", 10),
		IngestRateBurst: getEnvAsInt("INGEST_RATE_BURST", 5),

		StoreDriver:         strings.ToLower(getEnv("STORE_DRIVER", StoreDriverMongo)),
		MongoURI:            getEnv("MONGODB_DSN", "mongodb://localhost:27017"),
		MongoDB:             getEnv("MONGO_DB", "jetback"),
		MongoUser:           getEnv("MONGO_USER", ""),
		MongoPassword:       getEnv("MONGO_PASSWORD", ""),
		MongoConnectTimeout: time.Duration(getEnvAsInt("MONGO_CONNECT_TIMEOUT", 10)) * time.Second,

		PostgresURI: getEnv("POSTGRES_URI", ""),

		FareAPIURL:       getEnv("FARE_API_URL", "https://api.duffel.com"),
		FareAPIToken:     getEnv("FARE_API_TOKEN", ""),
		FareAPIVersion:   getEnv("FARE_API_VERSION", "v2"),
		FareRateLimit:    getEnvAsFloat("FARE_RATE_LIMIT_PER_SEC", 2),
		FareRateBurst:    getEnvAsInt("FARE_RATE_BURST", 1),
		FareQuoteTimeout: time.Duration(getEnvAsInt("FARE_QUOTE_TIMEOUT", 30)) * time.Second,
		QuoteCacheTTL:    time.Duration(getEnvAsInt("QUOTE_CACHE_TTL", 600)) * time.Second,

		ReconcileEnabled:      getEnvAsBool("RECONCILE_ENABLED", true),
		ReconcileInterval:     time.Duration(getEnvAsInt("RECONCILE_INTERVAL", 6*60*60)) * time.Second,
		ReconcileConcurrency:  getEnvAsInt("RECONCILE_CONCURRENCY", 4),
		ReconcileWriteTimeout: time.Duration(getEnvAsInt("RECONCILE_WRITE_TIMEOUT", 10)) * time.Second,

		GmailClientID:     getEnv("GMAIL_CLIENT_ID", ""),
		GmailClientSecret: getEnv("GMAIL_CLIENT_SECRET", ""),
		GmailRefreshToken: getEnv("GMAIL_REFRESH_TOKEN", ""),
		GmailPollInterval: time.Duration(getEnvAsInt("GMAIL_POLL_INTERVAL", 60)) * time.Second,
		GmailQuery:        getEnv("GMAIL_QUERY", `subject:(confirmation) newer_than:7d`),

		RabbitMQURL:        getEnv("RABBITMQ_URL", ""),
		RabbitMQQueue:      getEnv("RABBITMQ_QUEUE", "jetback.inbound-emails"),
		RabbitMQRetryDelay: time.Duration(getEnvAsInt("RABBITMQ_RETRY_DELAY", 5)) * time.Second,
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks option combinations that cannot work at runtime
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case StoreDriverMongo, StoreDriverMemory:
	default:
		return fmt.Errorf("unsupported STORE_DRIVER %q", c.StoreDriver)
	}

	if c.ReconcileInterval <= 0 {
		return fmt.Errorf("RECONCILE_INTERVAL must be positive")
	}
	if c.ReconcileConcurrency < 1 {
		return fmt.Errorf("RECONCILE_CONCURRENCY must be at least 1")
	}
	if c.FareQuoteTimeout <= 0 {
		return fmt.Errorf("FARE_QUOTE_TIMEOUT must be positive")
	}
	if c.ReconcileEnabled && c.FareAPIToken == "" {
		return fmt.Errorf("FARE_API_TOKEN is required when reconciliation is enabled")
	}

	return nil
}

// GmailEnabled reports whether the Gmail ingestion source is configured
func (c *Config) GmailEnabled() bool {
	return c.GmailRefreshToken != "" && c.GmailClientID != ""
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

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}
