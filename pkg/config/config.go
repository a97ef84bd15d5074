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
	Server struct {
		Port    string
		Env     string
		Timeout time.Duration
	}

	Database struct {
		Host     string
		Port     string
		User     string
		Password string
		Name     string
		SSLMode  string
		MaxConns int
		Retries  int
	}

	// JWT verifies operator tokens minted by the login service.
	JWT struct {
		Secret string
		Expiry time.Duration
	}

	Facebook struct {
		VerifyToken    string
		AppSecret      string
		GraphAPIURL    string
		ProfileTimeout time.Duration
	}

	Ingestion struct {
		EventTimeout time.Duration
		LockTTL      time.Duration
	}

	Security struct {
		RateLimit      float64
		RateLimitBurst int
		AllowedOrigins []string
		MaxBodySize    int64
	}

	Logging struct {
		Level  string
		Format string
	}

	Redis struct {
		URL string
	}

	// Cache settings for the page credential cache
	Cache struct {
		TTL     time.Duration
		MaxSize int
	}

	Breaker struct {
		FailureThreshold uint
		RetryTimeout     time.Duration
	}

	Observability struct {
		ServiceName    string
		TracingEnabled bool
		OpenAPISchema  string
	}
}

var (
	instance *Config
	once     sync.Once
)

// New returns the process-wide Config, loading it from the environment on first use.
func New() *Config {
	once.Do(func() {
		// A missing .env file is normal outside local development.
		_ = godotenv.Load()
		instance = Load()
	})
	return instance
}

// Get returns the singleton Config instance
func Get() *Config {
	return New()
}

// Load builds a fresh Config from the current environment.
func Load() *Config {
	cfg := &Config{}

	cfg.Server.Port = getEnvString("PORT", "5000")
	cfg.Server.Env = getEnvString("APP_ENV", "development")
	cfg.Server.Timeout = getEnvDuration("SERVER_TIMEOUT", 30*time.Second)

	cfg.Database.Host = getEnvString("DB_HOST", "localhost")
	cfg.Database.Port = getEnvString("DB_PORT", "5432")
	cfg.Database.User = getEnvString("DB_USER", "postgres")
	cfg.Database.Password = getEnvString("DB_PASSWORD", "postgres")
	cfg.Database.Name = getEnvString("DB_NAME", "helpdesk")
	cfg.Database.SSLMode = getEnvString("DB_SSL_MODE", "disable")
	cfg.Database.MaxConns = getEnvInt("DB_MAX_CONNS", 20)
	cfg.Database.Retries = getEnvInt("DB_CONNECT_RETRIES", 5)

	cfg.JWT.Secret = getEnvString("JWT_SECRET", "")
	cfg.JWT.Expiry = getEnvDuration("JWT_EXPIRY", 24*time.Hour)

	cfg.Facebook.VerifyToken = getEnvString("FB_WEBHOOK_VERIFY_TOKEN", "")
	cfg.Facebook.AppSecret = getEnvString("FB_APP_SECRET", "")
	cfg.Facebook.GraphAPIURL = strings.TrimRight(getEnvString("FB_GRAPH_API_URL", "https://graph.facebook.com/v19.0"), "/")
	cfg.Facebook.ProfileTimeout = getEnvDuration("FB_PROFILE_TIMEOUT", 5*time.Second)

	cfg.Ingestion.EventTimeout = getEnvDuration("INGEST_EVENT_TIMEOUT", 10*time.Second)
	cfg.Ingestion.LockTTL = getEnvDuration("INGEST_LOCK_TTL", 15*time.Second)

	cfg.Security.RateLimit = getEnvFloat("RATE_LIMIT", 20)
	cfg.Security.RateLimitBurst = getEnvInt("RATE_LIMIT_BURST", 40)
	cfg.Security.AllowedOrigins = getEnvStringSlice("ALLOWED_ORIGINS", []string{
		"http://localhost:3000",
		"*.vercel.app",
		"*.onrender.com",
	})
	cfg.Security.MaxBodySize = getEnvInt64("MAX_BODY_SIZE", 1<<20)

	cfg.Logging.Level = getEnvString("LOG_LEVEL", "info")
	cfg.Logging.Format = getEnvString("LOG_FORMAT", "json")

	cfg.Redis.URL = getEnvString("REDIS_URL", "")

	cfg.Cache.TTL = getEnvDuration("PAGE_CACHE_TTL", 5*time.Minute)
	cfg.Cache.MaxSize = getEnvInt("PAGE_CACHE_MAX_SIZE", 1000)

	cfg.Breaker.FailureThreshold = uint(getEnvInt("GRAPH_BREAKER_FAILURES", 5))
	cfg.Breaker.RetryTimeout = getEnvDuration("GRAPH_BREAKER_RETRY", 30*time.Second)

	cfg.Observability.ServiceName = getEnvString("SERVICE_NAME", "helpdesk-inbox")
	cfg.Observability.TracingEnabled = getEnvBool("TRACING_ENABLED", false)
	cfg.Observability.OpenAPISchema = getEnvString("OPENAPI_SCHEMA_PATH", "")

	return cfg
}

// IsProduction reports whether the service runs with APP_ENV=production.
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

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
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out
	}
	return defaultValue
}
