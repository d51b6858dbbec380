// Package config provides application configuration loaded from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	App      AppConfig
	Auth     AuthConfig
	Storage  StorageConfig
	Log      LogConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string
	ReadTimeout  int // seconds
	WriteTimeout int // seconds
	IdleTimeout  int // seconds
}

// DatabaseConfig holds connection settings. Driver is "postgres" or "sqlite".
type DatabaseConfig struct {
	Driver         string
	Host           string
	Port           int
	User           string
	Password       string
	DBName         string
	SSLMode        string
	SQLitePath     string
	ConnectRetries int
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Dev        bool
	Migrations bool

	// Optional bootstrap administrator created by seeding.
	SeedAdminUsername string
	SeedAdminEmail    string
	SeedAdminPassword string
}

// AuthConfig holds session, token and profile cache settings.
type AuthConfig struct {
	SessionSecret    string
	JWTSecret        string
	AccessTTL        time.Duration
	RefreshTTL       time.Duration
	PasswordResetTTL time.Duration
	ProfileCacheTTL  time.Duration
	ProfileCacheSize int
	// TokenRateLimit uses the limiter format "<limit>-<period>", e.g. "10-M".
	TokenRateLimit string
}

// StorageConfig holds the root directory for uploaded documents and reports.
type StorageConfig struct {
	Dir string
}

type LogConfig struct {
	Level string
	JSON  bool
}

// DSN returns the PostgreSQL connection string in key=value format.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// URL returns the PostgreSQL connection string in URL format.
func (d DatabaseConfig) URL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

// Load reads configuration from environment variables.
// It uses sensible defaults for local development.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			ReadTimeout:  getEnvInt("SERVER_READ_TIMEOUT", 15),
			WriteTimeout: getEnvInt("SERVER_WRITE_TIMEOUT", 15),
			IdleTimeout:  getEnvInt("SERVER_IDLE_TIMEOUT", 60),
		},
		Database: DatabaseConfig{
			Driver:         getEnv("DB_DRIVER", "postgres"),
			Host:           getEnv("DB_HOST", "localhost"),
			Port:           getEnvInt("DB_PORT", 5432),
			User:           getEnv("DB_USER", "sgm"),
			Password:       getEnv("DB_PASSWORD", "sgm123"),
			DBName:         getEnv("DB_NAME", "sgm"),
			SSLMode:        getEnv("DB_SSLMODE", "disable"),
			SQLitePath:     getEnv("SQLITE_PATH", "sgm.db"),
			ConnectRetries: getEnvInt("DB_CONNECT_RETRIES", 5),
		},
		App: AppConfig{
			Dev:               getEnvBool("DEV", true),
			Migrations:        getEnvBool("MIGRATIONS", false),
			SeedAdminUsername: getEnv("SEED_ADMIN_USERNAME", ""),
			SeedAdminEmail:    getEnv("SEED_ADMIN_EMAIL", ""),
			SeedAdminPassword: getEnv("SEED_ADMIN_PASSWORD", ""),
		},
		Auth: AuthConfig{
			SessionSecret:    getEnv("SESSION_SECRET", "devsessionsecret"),
			JWTSecret:        getEnv("JWT_SECRET", "devjwtsecret"),
			AccessTTL:        getEnvDuration("JWT_ACCESS_TTL", 60*time.Minute),
			RefreshTTL:       getEnvDuration("JWT_REFRESH_TTL", 24*time.Hour),
			PasswordResetTTL: getEnvDuration("PASSWORD_RESET_TTL", time.Hour),
			ProfileCacheTTL:  getEnvDuration("PROFILE_CACHE_TTL", 5*time.Minute),
			ProfileCacheSize: getEnvInt("PROFILE_CACHE_SIZE", 1024),
			TokenRateLimit:   getEnv("TOKEN_RATE_LIMIT", "10-M"),
		},
		Storage: StorageConfig{
			Dir: getEnv("STORAGE_DIR", "media"),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
			JSON:  getEnvBool("LOG_JSON", false),
		},
	}
}

// getEnv returns the value of an environment variable or a default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns the integer value of an environment variable or a default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

// getEnvBool returns the boolean value of an environment variable or a default.
// Accepts "1", "true", "yes" as true; everything else is false.
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "1" || value == "true" || value == "yes"
}

// getEnvDuration parses a time.Duration ("15m", "24h") or returns the default.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
