package config

import (
	"os"
	"strconv"
	"time"
)

// DatabaseConfig holds PostgreSQL database connection settings.
type DatabaseConfig struct {
	Host               string
	Port               string
	User               string
	Password           string
	Name               string
	SSLMode            string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeSec int
}

// MinIOConfig holds object storage settings for the S3-compatible backend.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// LocalStorageConfig holds settings for the local filesystem backend.
type LocalStorageConfig struct {
	// Root is the directory under which all local objects are stored.
	Root string
	// BaseURL is prepended to stored paths when building download URLs.
	BaseURL string
}

// SessionConfig holds settings for the external session cache (Redis).
// The cache is written by the session issuer; this service only reads it.
type SessionConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	// KeyPrefix is prepended to the bearer token to form the cache key.
	KeyPrefix string
	// LookupTimeout bounds a single session lookup; a timed-out lookup is
	// treated the same as a cache miss (deny).
	LookupTimeout time.Duration
}

// Addr returns the host:port address of the session cache.
func (c SessionConfig) Addr() string {
	return c.Host + ":" + c.Port
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables. Sensitive values are not hardcoded.
type AppConfig struct {
	AppHost      string
	Port         string
	Database     DatabaseConfig
	MinIO        MinIOConfig
	LocalStorage LocalStorageConfig
	Session      SessionConfig
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// This function does not require a .env file; real environment variables take precedence.
func Load() *AppConfig {
	return &AppConfig{
		AppHost: getEnv("APP_HOST", "localhost:8080"),
		Port:    getEnv("PORT", "8080"), // default only for non-sensitive value
		Database: DatabaseConfig{
			Host:               getEnv("DB_HOST", ""),
			Port:               getEnv("DB_PORT", "5432"),
			User:               getEnv("DB_USER", ""),
			Password:           getEnv("DB_PASSWORD", ""),
			Name:               getEnv("DB_NAME", ""),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetimeSec: getEnvInt("DB_CONN_MAX_LIFETIME_SEC", 300),
		},
		MinIO: MinIOConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", ""),
			AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey: getEnv("MINIO_SECRET_KEY", ""),
			Bucket:    getEnv("MINIO_BUCKET", ""),
			UseSSL:    getEnvBool("MINIO_USE_SSL", false),
		},
		LocalStorage: LocalStorageConfig{
			Root:    getEnv("LOCAL_STORAGE_ROOT", "storage"),
			BaseURL: getEnv("LOCAL_STORAGE_BASE_URL", "/storage"),
		},
		Session: SessionConfig{
			Host:          getEnv("REDIS_HOST", "127.0.0.1"),
			Port:          getEnv("REDIS_PORT", "6379"),
			Password:      getEnv("REDIS_PASSWORD", ""),
			DB:            getEnvInt("REDIS_DB", 0),
			KeyPrefix:     getEnv("SESSION_KEY_PREFIX", "session:"),
			LookupTimeout: time.Duration(getEnvInt("SESSION_LOOKUP_TIMEOUT_MS", 500)) * time.Millisecond,
		},
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}
