// Package config provides application configuration management.
package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/oremus-labs/watchdesk/internal/logutil"
)

// DefaultAPIURL is used when API_URL is unset.
const DefaultAPIURL = "http://localhost:3001"

// Config holds all application configuration.
type Config struct {
	// Server configuration
	ServerPort     string
	DashboardToken string

	// Remote service configuration
	APIURL         string
	APIToken       string
	RequestTimeout time.Duration
	RetryAttempts  int
	RetryDelay     time.Duration
	RetryPolicy    string
	HealthInterval time.Duration

	// Logging
	LogLevel  string
	LogFormat string

	// Activity log persistence
	StatePath       string
	DataStoreDriver string
	DataStoreDSN    string
	ActivityLimit   int

	// Redis / revalidation configuration
	RedisAddr         string
	RedisUsername     string
	RedisPassword     string
	RedisDB           int
	RedisTLSEnabled   bool
	RedisTLSInsecure  bool
	RevalidateChannel string
}

// LoadDotEnv preloads variables from a .env file when one exists.
// Variables already present in the environment win.
func LoadDotEnv(paths ...string) {
	if err := godotenv.Load(paths...); err != nil {
		slog.Debug("No .env file found", "error", err)
	}
}

// Load loads configuration from environment variables with defaults.
func Load() *Config {
	statePath := getEnv("STATE_PATH", "./state")
	dataStoreDriver := strings.ToLower(getEnv("DATASTORE_DRIVER", "sqlite"))
	dataStoreDSN := getEnv("DATASTORE_DSN", "")
	if dataStoreDSN == "" {
		switch dataStoreDriver {
		case "sqlite":
			dataStoreDSN = filepath.Join(statePath, "watchdesk.db")
		case "postgres":
			dataStoreDSN = os.Getenv("POSTGRES_DSN")
		}
	}
	return &Config{
		ServerPort:        getEnv("SERVER_PORT", "8080"),
		DashboardToken:    os.Getenv("DASHBOARD_API_TOKEN"),
		APIURL:            strings.TrimRight(getEnv("API_URL", DefaultAPIURL), "/"),
		APIToken:          os.Getenv("API_TOKEN"),
		RequestTimeout:    getEnvDuration("REQUEST_TIMEOUT", 10*time.Second),
		RetryAttempts:     getEnvInt("RETRY_ATTEMPTS", 3),
		RetryDelay:        getEnvDuration("RETRY_DELAY", time.Second),
		RetryPolicy:       strings.ToLower(getEnv("RETRY_POLICY", "transient")),
		HealthInterval:    getEnvDuration("HEALTH_INTERVAL", 30*time.Second),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		LogFormat:         getEnv("LOG_FORMAT", "text"),
		StatePath:         statePath,
		DataStoreDriver:   dataStoreDriver,
		DataStoreDSN:      dataStoreDSN,
		ActivityLimit:     getEnvInt("ACTIVITY_LIMIT", 100),
		RedisAddr:         getEnv("REDIS_ADDR", ""),
		RedisUsername:     getEnv("REDIS_USERNAME", ""),
		RedisPassword:     os.Getenv("REDIS_PASSWORD"),
		RedisDB:           getEnvInt("REDIS_DB", 0),
		RedisTLSEnabled:   getEnvBool("REDIS_TLS_ENABLED", false),
		RedisTLSInsecure:  getEnvBool("REDIS_TLS_INSECURE_SKIP_VERIFY", false),
		RevalidateChannel: getEnv("REVALIDATE_CHANNEL", "watchdesk-revalidate"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil && d >= 0 {
			return d
		}
		logutil.Warn("Invalid duration, using default", map[string]interface{}{"key": key, "value": value, "default": defaultValue})
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
		logutil.Warn("Invalid int, using default", map[string]interface{}{"key": key, "value": value, "default": defaultValue})
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		switch strings.ToLower(value) {
		case "1", "true", "yes", "y":
			return true
		case "0", "false", "no", "n":
			return false
		default:
			logutil.Warn("Invalid bool, using default", map[string]interface{}{"key": key, "value": value, "default": defaultValue})
		}
	}
	return defaultValue
}
