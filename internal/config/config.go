package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string

	Logger LoggerConfig

	HTTPAddr string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int

	RateLimit RateLimitConfig
	Admission AdmissionConfig
	Webhook   WebhookConfig
}

type LoggerConfig struct {
	Level string
}

// RateLimitConfig drives the hourly sliding-window limiter.
type RateLimitConfig struct {
	Store         string // memory | redis
	Window        time.Duration
	SweepInterval time.Duration
	// IPHourlyLimit caps requests per source address on the public ingestion
	// surface, before the endpoint and its tenant are resolved. Zero disables
	// the per-address gate.
	IPHourlyLimit int
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// AdmissionConfig controls quota enforcement behavior.
type AdmissionConfig struct {
	// DegradedMode lets requests through on usage-store outages, gated only by
	// the in-process hourly limiter. Off by default: outages fail closed.
	DegradedMode bool
}

type WebhookConfig struct {
	// AllowPrivateTargets permits delivery to loopback/RFC1918 addresses.
	// Meant for local development only.
	AllowPrivateTargets bool
	MaxResponseBytes    int
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		AppName:     getenv("APP_SERVICE", "inlet"),
		AppVersion:  getenv("APP_VERSION", "0.1.0"),
		Environment: getenv("ENVIRONMENT", "development"),
		Logger: LoggerConfig{
			Level: getenv("LOG_LEVEL", "info"),
		},
		HTTPAddr:          getenv("HTTP_ADDR", ":8080"),
		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "inlet"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 4),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 32),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 1800),
		RateLimit: RateLimitConfig{
			Store:         strings.ToLower(getenv("RATE_LIMIT_STORE", "memory")),
			Window:        getenvDuration("RATE_LIMIT_WINDOW", time.Hour),
			SweepInterval: getenvDuration("RATE_LIMIT_SWEEP_INTERVAL", 5*time.Minute),
			IPHourlyLimit: getenvInt("RATE_LIMIT_IP_HOURLY", 3600),
			RedisAddr:     strings.TrimSpace(getenv("RATE_LIMIT_REDIS_ADDR", "")),
			RedisPassword: strings.TrimSpace(getenv("RATE_LIMIT_REDIS_PASSWORD", "")),
			RedisDB:       getenvInt("RATE_LIMIT_REDIS_DB", 0),
		},
		Admission: AdmissionConfig{
			DegradedMode: getenvBool("ADMISSION_DEGRADED_MODE", false),
		},
		Webhook: WebhookConfig{
			AllowPrivateTargets: getenvBool("WEBHOOK_ALLOW_PRIVATE_TARGETS", false),
			MaxResponseBytes:    getenvInt("WEBHOOK_MAX_RESPONSE_BYTES", 2000),
		},
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return def
	}
	return parsed
}
