package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds service configuration
type Config struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	MaxBodySize     int64

	// StorageDir is where persisted analysis and batch state lives
	StorageDir string

	// DNS over HTTPS providers
	DoHPrimaryURL  string
	DoHFallbackURL string
	DNSTimeout     time.Duration
	DNSCacheTTL    time.Duration

	// RDAP registration lookups
	RDAPBaseURL  string
	RDAPTimeout  time.Duration
	RDAPCacheTTL time.Duration

	// Scoring model
	ModelEndpoint string
	ModelName     string
	ModelAPIKey   string
	ModelTimeout  time.Duration

	// Batch processing
	BatchCooldown  time.Duration
	TabLoadTimeout time.Duration

	// Completion webhook
	WebhookURL     string
	WebhookAuth    string
	WebhookEnabled bool
}

// New creates a new configuration from environment variables
func New() *Config {
	return &Config{
		Port:            getEnv("SCAMOMETER_PORT", "8080"),
		ReadTimeout:     getDurationEnv("SCAMOMETER_READ_TIMEOUT", 30*time.Second),
		WriteTimeout:    getDurationEnv("SCAMOMETER_WRITE_TIMEOUT", 30*time.Second),
		ShutdownTimeout: getDurationEnv("SCAMOMETER_SHUTDOWN_TIMEOUT", 30*time.Second),
		MaxBodySize:     getInt64Env("SCAMOMETER_MAX_BODY_SIZE", 1024*1024), // 1MB

		StorageDir: getEnv("SCAMOMETER_STORAGE_DIR", "data"),

		DoHPrimaryURL:  getEnv("SCAMOMETER_DOH_PRIMARY_URL", "https://dns.google/resolve"),
		DoHFallbackURL: getEnv("SCAMOMETER_DOH_FALLBACK_URL", "https://cloudflare-dns.com/dns-query"),
		DNSTimeout:     getDurationEnv("SCAMOMETER_DNS_TIMEOUT", 12*time.Second),
		DNSCacheTTL:    getDurationEnv("SCAMOMETER_DNS_CACHE_TTL", 24*time.Hour),

		RDAPBaseURL:  getEnv("SCAMOMETER_RDAP_BASE_URL", "https://rdap.org"),
		RDAPTimeout:  getDurationEnv("SCAMOMETER_RDAP_TIMEOUT", 12*time.Second),
		RDAPCacheTTL: getDurationEnv("SCAMOMETER_RDAP_CACHE_TTL", 24*time.Hour),

		ModelEndpoint: getEnv("SCAMOMETER_MODEL_ENDPOINT", "https://generativelanguage.googleapis.com/v1beta"),
		ModelName:     getEnv("SCAMOMETER_MODEL_NAME", "gemini-2.5-flash"),
		ModelAPIKey:   getEnv("SCAMOMETER_MODEL_API_KEY", ""),
		ModelTimeout:  getDurationEnv("SCAMOMETER_MODEL_TIMEOUT", 20*time.Second),

		BatchCooldown:  getDurationEnv("SCAMOMETER_BATCH_COOLDOWN", 1*time.Second),
		TabLoadTimeout: getDurationEnv("SCAMOMETER_TAB_LOAD_TIMEOUT", 30*time.Second),

		WebhookURL:     getEnv("SCAMOMETER_WEBHOOK_URL", ""),
		WebhookAuth:    getEnv("SCAMOMETER_WEBHOOK_AUTH", ""),
		WebhookEnabled: getBoolEnv("SCAMOMETER_WEBHOOK_ENABLED", false),
	}
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getDurationEnv gets a duration environment variable with a default value
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getInt64Env gets an int64 environment variable with a default value
func getInt64Env(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getBoolEnv gets a boolean environment variable with a default value
func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
