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
		Port     string
		GRPCPort string
		Env      string
		Timeout  time.Duration
		BaseURL  string
	}

	// Database configuration. Transcript persistence is disabled when Enabled is false.
	Database struct {
		Enabled  bool
		Host     string
		Port     string
		User     string
		Password string
		Name     string
		SSLMode  string
		MaxConns int
		Retries  int
		Timeout  time.Duration
	}

	// Redis configuration for session snapshots
	Redis struct {
		Enabled  bool
		Addr     string
		Password string
		DB       int
	}

	// LLM provider configuration
	LLM struct {
		Provider      string
		BaseURL       string
		Model         string
		APIKey        string
		Temperature   float64
		Timeout       time.Duration
		UseLocalModel bool
		LocalModelURL string
	}

	// Chat configuration
	Chat struct {
		// RemoteEndpoint, when set, makes sessions call a remote /api/chat instead of the in-process service
		RemoteEndpoint string
	}

	// Session configuration
	Session struct {
		WindowSize  int
		IdleTTL     time.Duration
		SnapshotTTL time.Duration
		MaxSessions int
		PurgeWindow time.Duration
	}

	// JWT configuration for session tokens
	JWT struct {
		Secret string
		Expiry time.Duration
	}

	// Security configuration
	Security struct {
		RateLimit      float64
		RateLimitBurst int
		AllowedOrigins []string
		TrustedProxies []string
		MaxBodySize    int64
	}

	// Logging configuration
	Logging struct {
		Level  string
		Format string
	}

	// Observability configuration
	Observability struct {
		ServiceName   string
		EnableTracing bool
	}

	// Vault configuration for the LLM API key
	Vault struct {
		Enabled    bool
		Address    string
		Token      string
		MountPath  string
		SecretPath string
	}
}

var (
	instance *Config
	once     sync.Once
)

// New creates a new Config instance with values from environment variables
// Uses singleton pattern to ensure only one instance exists
func New() *Config {
	once.Do(func() {
		// Load .env file if exists
		_ = godotenv.Load()

		instance = Load()
	})

	return instance
}

// Load reads the configuration from the environment without caching it
func Load() *Config {
	cfg := &Config{}

	// Server config
	cfg.Server.Port = getEnvString("PORT", "8081")
	cfg.Server.GRPCPort = getEnvString("GRPC_PORT", "9091")
	cfg.Server.Env = getEnvString("APP_ENV", "development")
	cfg.Server.Timeout = getEnvDuration("SERVER_TIMEOUT", 90*time.Second)
	cfg.Server.BaseURL = getEnvString("BASE_URL", "http://localhost:"+cfg.Server.Port)

	// Database config
	cfg.Database.Enabled = getEnvBool("DB_ENABLED", false)
	cfg.Database.Host = getEnvString("DB_HOST", "localhost")
	cfg.Database.Port = getEnvString("DB_PORT", "5432")
	cfg.Database.User = getEnvString("DB_USER", "postgres")
	cfg.Database.Password = getEnvString("DB_PASSWORD", "postgres")
	cfg.Database.Name = getEnvString("DB_NAME", "text-rpg")
	cfg.Database.SSLMode = getEnvString("DB_SSL_MODE", "disable")
	cfg.Database.MaxConns = getEnvInt("DB_MAX_CONNS", 20)
	cfg.Database.Retries = getEnvInt("DB_RETRIES", 5)
	cfg.Database.Timeout = getEnvDuration("DB_TIMEOUT", 5*time.Second)

	// Redis config
	cfg.Redis.Enabled = getEnvBool("REDIS_ENABLED", false)
	cfg.Redis.Addr = getEnvString("REDIS_URL", "localhost:6379")
	cfg.Redis.Password = getEnvString("REDIS_PASSWORD", "")
	cfg.Redis.DB = getEnvInt("REDIS_DB", 0)

	// LLM config
	cfg.LLM.Provider = getEnvString("LLM_PROVIDER", "openai")
	cfg.LLM.BaseURL = getEnvString("OPENAI_BASE_URL", "https://api.openai.com/v1")
	cfg.LLM.Model = getEnvString("LLM_MODEL", "gpt-4.1")
	cfg.LLM.APIKey = getEnvString("OPENAI_API_KEY", "")
	cfg.LLM.Temperature = getEnvFloat("LLM_TEMPERATURE", 0.8)
	cfg.LLM.Timeout = getEnvDuration("LLM_TIMEOUT", 60*time.Second)
	cfg.LLM.UseLocalModel = getEnvBool("USE_LOCAL_MODEL", false)
	cfg.LLM.LocalModelURL = getEnvString("LOCAL_MODEL_URL", "")

	// Chat config
	cfg.Chat.RemoteEndpoint = getEnvString("CHAT_ENDPOINT", "")

	// Session config
	cfg.Session.WindowSize = getEnvInt("MESSAGE_WINDOW_SIZE", 12)
	cfg.Session.IdleTTL = getEnvDuration("SESSION_IDLE_TTL", 30*time.Minute)
	cfg.Session.SnapshotTTL = getEnvDuration("SESSION_SNAPSHOT_TTL", 7*24*time.Hour)
	cfg.Session.MaxSessions = getEnvInt("SESSION_MAX", 1000)
	cfg.Session.PurgeWindow = getEnvDuration("SESSION_PURGE_WINDOW", time.Minute)

	// JWT config
	cfg.JWT.Secret = getEnvString("JWT_SECRET", "default-jwt-secret-do-not-use-in-production")
	cfg.JWT.Expiry = getEnvDuration("JWT_EXPIRY", 24*time.Hour)

	// Security config
	cfg.Security.RateLimit = getEnvFloat("RATE_LIMIT", 5)
	cfg.Security.RateLimitBurst = getEnvInt("RATE_LIMIT_BURST", 10)
	cfg.Security.AllowedOrigins = getEnvStringSlice("ALLOWED_ORIGINS", []string{"*"})
	cfg.Security.TrustedProxies = getEnvStringSlice("TRUSTED_PROXIES", []string{"127.0.0.1"})
	cfg.Security.MaxBodySize = getEnvInt64("MAX_BODY_SIZE", 1<<20) // 1MB

	// Logging config
	cfg.Logging.Level = getEnvString("LOG_LEVEL", "info")
	cfg.Logging.Format = getEnvString("LOG_FORMAT", "json")

	// Observability config
	cfg.Observability.ServiceName = getEnvString("SERVICE_NAME", "text-rpg-backend")
	cfg.Observability.EnableTracing = getEnvBool("ENABLE_TRACING", false)

	// Vault config
	cfg.Vault.Enabled = getEnvBool("VAULT_ENABLED", false)
	cfg.Vault.Address = getEnvString("VAULT_ADDR", "http://localhost:8200")
	cfg.Vault.Token = getEnvString("VAULT_TOKEN", "")
	cfg.Vault.MountPath = getEnvString("VAULT_MOUNT_PATH", "secret")
	cfg.Vault.SecretPath = getEnvString("VAULT_SECRET_PATH", "text-rpg")

	return cfg
}

// Get returns the singleton Config instance
func Get() *Config {
	if instance == nil {
		return New()
	}
	return instance
}

// IsDevelopment reports whether the server runs in the development environment
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
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

func getEnvFloat(key string, defaultValue float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
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
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return defaultValue
}
