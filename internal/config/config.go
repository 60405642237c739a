package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
)

// Create a new instance of the logger
// Configure it to log at the desired level
// and format it as JSON for structured logging
var log = logrus.New()

func init() {
	log.SetFormatter(&logrus.JSONFormatter{})
	environment := GetEnvWithDefault("APP_ENV", "development")
	switch environment {
	case "development":
		log.SetLevel(logrus.DebugLevel)
	case "production":
		log.SetLevel(logrus.ErrorLevel)
	default:
		// Default to info level for other environments
		log.SetLevel(logrus.InfoLevel)
	}
}

// Config used for the application configuration, loading the input from environment variables
type Config struct {
	// Server Configuration
	Environment string `json:"environment"`
	Port        int    `json:"port"`
	Host        string `json:"host"`

	// Database configuration
	DBDriver   string `json:"db_driver"`
	DBPath     string `json:"db_path"`
	DBHost     string `json:"db_host"`
	DBPort     string `json:"db_port"`
	DBName     string `json:"db_name"`
	DBUser     string `json:"db_user"`
	DBPassword string `json:"db_password"`
	DBSSLMode  string `json:"db_sslmode"`

	// Redis configuration, shared by the L2 cache and the invalidation publisher
	RedisEnabled  bool   `json:"redis_enabled"`
	RedisAddr     string `json:"redis_addr"`
	RedisPassword string `json:"redis_password"`
	RedisDB       int    `json:"redis_db"`

	// Cache configuration
	CachePrefix          string        `json:"cache_prefix"`
	MemoryCacheEnabled   bool          `json:"memory_cache_enabled"`
	MemoryCacheSize      int           `json:"memory_cache_size"`
	MemoryCacheTTL       time.Duration `json:"memory_cache_ttl"`
	SharedCacheTTL       time.Duration `json:"shared_cache_ttl"`
	CacheCleanupInterval time.Duration `json:"cache_cleanup_interval"`

	// Token lifecycle
	AccessTokenTTL     time.Duration `json:"access_token_ttl"`
	RefreshTokenTTL    time.Duration `json:"refresh_token_ttl"`
	TokenSweepInterval time.Duration `json:"token_sweep_interval"`
	DefaultScope       string        `json:"default_scope"`
	TokenAudience      string        `json:"token_audience"`

	// Invalidation
	InvalidationChannel string `json:"invalidation_channel"`
	InvalidationPayload string `json:"invalidation_payload"`

	// Logging configuration
	LogLevel string `json:"log_level"`

	// Security Configuration
	JWTSecret string `json:"jwt_secret"`
}

// String returns a string representation of Config with sensitive data masked
func (c *Config) String() string {
	return fmt.Sprintf("Config{Environment: %s, Port: %d, Host: %s, DBDriver: %s, DBPath: %s, DBHost: %s, DBName: %s, DBUser: %s, DBPassword: [REDACTED], "+
		"RedisEnabled: %t, RedisAddr: %s, RedisPassword: [REDACTED], CachePrefix: %s, MemoryCacheSize: %d, MemoryCacheTTL: %s, SharedCacheTTL: %s, "+
		"AccessTokenTTL: %s, RefreshTokenTTL: %s, InvalidationChannel: %s, LogLevel: %s, JWTSecret: [REDACTED]}",
		c.Environment, c.Port, c.Host, c.DBDriver, c.DBPath, c.DBHost, c.DBName, c.DBUser,
		c.RedisEnabled, c.RedisAddr, c.CachePrefix, c.MemoryCacheSize, c.MemoryCacheTTL, c.SharedCacheTTL,
		c.AccessTokenTTL, c.RefreshTokenTTL, c.InvalidationChannel, c.LogLevel)
}

// Validate checks the values that would otherwise break the exchange at runtime
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("APP_PORT out of range: %d", c.Port)
	}
	if c.AccessTokenTTL <= 0 {
		return fmt.Errorf("ACCESS_TOKEN_TTL must be positive, got %s", c.AccessTokenTTL)
	}
	if c.RefreshTokenTTL < 0 {
		return fmt.Errorf("REFRESH_TOKEN_TTL must not be negative, got %s", c.RefreshTokenTTL)
	}
	if c.MemoryCacheEnabled && c.MemoryCacheSize <= 0 {
		return fmt.Errorf("MEMORY_CACHE_SIZE must be positive when the memory cache is enabled, got %d", c.MemoryCacheSize)
	}
	if c.RedisEnabled && c.RedisAddr == "" {
		return fmt.Errorf("REDIS_ADDR is required when REDIS_ENABLED is true")
	}
	switch c.DBDriver {
	case "sqlite", "postgres", "postgresql":
	default:
		return fmt.Errorf("unsupported DB_DRIVER: %s", c.DBDriver)
	}
	return nil
}

// LoadConfig read the proper configuration from environment variables and returns a Config struct
// Returns an error if any variable is present but invalid
func LoadConfig() (*Config, error) {
	log.Info("Loading configuration from environment variables")
	port, err := strconv.Atoi(GetEnvWithDefault("APP_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid APP_PORT: %w", err)
	}

	config := &Config{
		Environment: GetEnvWithDefault("APP_ENV", "development"),
		Port:        port,
		Host:        GetEnvWithDefault("APP_HOST", "localhost"),

		DBDriver:   GetEnvWithDefault("DB_DRIVER", "sqlite"),
		DBPath:     GetEnvWithDefault("DB_PATH", "token_exchange.sqlite"),
		DBHost:     GetEnvWithDefault("DB_HOST", "localhost"),
		DBPort:     GetEnvWithDefault("DB_PORT", "5432"),
		DBName:     GetEnvWithDefault("DB_NAME", "token_exchange"),
		DBUser:     GetEnvWithDefault("DB_USER", "user"),
		DBPassword: GetEnvWithDefault("DB_PASSWORD", "password"),
		DBSSLMode:  GetEnvWithDefault("DB_SSLMODE", "disable"),

		RedisEnabled:  GetEnvAsType("REDIS_ENABLED", true),
		RedisAddr:     GetEnvWithDefault("REDIS_ADDR", "localhost:6379"),
		RedisPassword: GetEnvAsType("REDIS_PASSWORD", ""),
		RedisDB:       GetEnvAsType("REDIS_DB", 0),

		CachePrefix:          GetEnvWithDefault("CACHE_PREFIX", "oauth2_cache:"),
		MemoryCacheEnabled:   GetEnvAsType("MEMORY_CACHE_ENABLED", true),
		MemoryCacheSize:      GetEnvAsType("MEMORY_CACHE_SIZE", 1000),
		MemoryCacheTTL:       GetEnvAsType("MEMORY_CACHE_TTL", 5*time.Minute),
		SharedCacheTTL:       GetEnvAsType("SHARED_CACHE_TTL", time.Hour),
		CacheCleanupInterval: GetEnvAsType("CACHE_CLEANUP_INTERVAL", time.Minute),

		AccessTokenTTL:     GetEnvAsType("ACCESS_TOKEN_TTL", time.Hour),
		RefreshTokenTTL:    GetEnvAsType("REFRESH_TOKEN_TTL", 24*time.Hour),
		TokenSweepInterval: GetEnvAsType("TOKEN_SWEEP_INTERVAL", 5*time.Minute),
		DefaultScope:       GetEnvWithDefault("DEFAULT_SCOPE", "https://www.googleapis.com/auth/cloud-platform"),
		TokenAudience:      GetEnvWithDefault("TOKEN_AUDIENCE", "https://oauth2.googleapis.com/token"),

		InvalidationChannel: GetEnvWithDefault("INVALIDATION_CHANNEL", "oauth2:cmd:job:trigger"),
		InvalidationPayload: GetEnvWithDefault("INVALIDATION_PAYLOAD", "db_sync_job"),

		LogLevel:  GetEnvWithDefault("LOG_LEVEL", "info"),
		JWTSecret: GetEnvWithDefault("JWT_SECRET", "secret"),
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	log.Infof("Configuration loaded: %s", config.String())
	return config, nil
}

// Helper to get environment with default values
func GetEnvWithDefault(key, defaultValue string) string {
	log.Tracef("Getting environment variable: %s", key)
	value := os.Getenv(key)
	if value == "" {
		log.Debugf("Environment variable %s not set, using default value: %s", key, defaultValue)
		return defaultValue
	}
	return value
}

// GetEnvAsType retrieves an environment variable and converts it to the specified type
// using generic type handling.
// Durations accept Go duration strings ("90s", "5m") or a bare number of seconds.
func GetEnvAsType[T any](key string, defaultValue T) T {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var result T
	switch any(result).(type) {
	case int:
		intValue, err := strconv.Atoi(value)
		if err != nil {
			return defaultValue
		}
		return any(intValue).(T)
	case string:
		return any(value).(T)
	case bool:
		boolValue, err := strconv.ParseBool(value)
		if err != nil {
			return defaultValue
		}
		return any(boolValue).(T)
	case time.Duration:
		if seconds, err := strconv.Atoi(value); err == nil {
			return any(time.Duration(seconds) * time.Second).(T)
		}
		d, err := time.ParseDuration(value)
		if err != nil {
			return defaultValue
		}
		return any(d).(T)
	default:
		return defaultValue // Fallback for unsupported types
	}
}
