package config

import (
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server struct {
		Port    string
		Env     string
		Timeout time.Duration
		BaseURL string
	}

	// Store configuration
	Store struct {
		// Path is the bbolt database file holding table snapshots.
		Path string
		// UploadsDir is where avatars and shared images land on disk.
		UploadsDir string
		// QueueDepth bounds each table's pending-snapshot queue.
		QueueDepth int
	}

	// Admin configuration
	Admin struct {
		// Password is the shared admin credential. A bcrypt hash
		// (starting with "$2") is accepted in place of plaintext.
		Password    string
		JWTSecret   string
		TokenExpiry time.Duration
	}

	// Security configuration
	Security struct {
		RateLimit      float64
		RateLimitBurst int
		AllowedOrigins []string
		MaxUploadSize  int64
	}

	// Logging configuration
	Logging struct {
		Level  string
		Format string
	}

	// Table defaults
	Tables struct {
		DefaultTheme     string
		DefaultLanguage  string
		DefaultLanguages []string
		MinNameLength    int
		MaxNameLength    int
	}
}

var (
	instance *Config
	once     sync.Once
)

// New creates a new Config instance with values from environment variables.
// Uses singleton pattern to ensure only one instance exists
func New() *Config {
	once.Do(func() {
		// Load .env file if exists
		godotenv.Load()

		instance = &Config{}

		// Server config
		instance.Server.Port = getEnvString("PORT", "8081")
		instance.Server.Env = getEnvString("APP_ENV", "development")
		instance.Server.Timeout = getEnvDuration("SERVER_TIMEOUT", 30*time.Second)
		instance.Server.BaseURL = getEnvString("BASE_URL", "http://localhost:"+instance.Server.Port)

		// Store config
		instance.Store.Path = getEnvString("STORE_PATH", "data/tables.db")
		instance.Store.UploadsDir = getEnvString("UPLOADS_DIR", "data/uploads")
		instance.Store.QueueDepth = getEnvInt("STORE_QUEUE_DEPTH", 64)

		// Admin config
		instance.Admin.Password = getEnvString("ADMIN_PASSWORD", "TTadmin")
		instance.Admin.JWTSecret = getEnvString("ADMIN_JWT_SECRET", "default-admin-secret-do-not-use-in-production")
		instance.Admin.TokenExpiry = getEnvDuration("ADMIN_TOKEN_EXPIRY", 12*time.Hour)

		// Security config
		instance.Security.RateLimit = float64(getEnvInt("RATE_LIMIT", 20))
		instance.Security.RateLimitBurst = getEnvInt("RATE_LIMIT_BURST", 40)
		instance.Security.AllowedOrigins = getEnvStringSlice("ALLOWED_ORIGINS", []string{"*"})
		instance.Security.MaxUploadSize = getEnvInt64("MAX_UPLOAD_SIZE", 5<<20) // 5MB

		// Logging config
		instance.Logging.Level = getEnvString("LOG_LEVEL", "info")
		instance.Logging.Format = getEnvString("LOG_FORMAT", "json")

		// Table defaults
		instance.Tables.DefaultTheme = getEnvString("TABLE_DEFAULT_THEME", "fantasy")
		instance.Tables.DefaultLanguage = getEnvString("TABLE_DEFAULT_LANGUAGE", "Common")
		instance.Tables.DefaultLanguages = getEnvStringSlice("TABLE_LANGUAGES", []string{
			"Common", "Elvish", "Dwarvish", "Orcish", "Celestial",
			"Infernal", "Draconic", "Abyssal", "Primordial", "Undercommon",
		})
		instance.Tables.MinNameLength = getEnvInt("TABLE_MIN_NAME_LENGTH", 3)
		instance.Tables.MaxNameLength = getEnvInt("TABLE_MAX_NAME_LENGTH", 50)
	})

	return instance
}

// Get returns the singleton Config instance
func Get() *Config {
	if instance == nil {
		return New()
	}
	return instance
}

// Helper functions to read environment variables with default values

func getEnvString(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvStringSlice(key string, defaultValue []string) []string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}
