package config

import (
	"os"
	"strings"
	"testing"
	"time"
)

func TestGetEnvWithDefault(t *testing.T) {
	testCases := []struct {
		name         string
		key          string
		defaultValue string
		envValue     string
		expected     string
	}{
		{
			name:         "should return env value when set",
			key:          "TEST_KEY",
			defaultValue: "default",
			envValue:     "from_env",
			expected:     "from_env",
		},
		{
			name:         "should return default when env not set",
			key:          "MISSING_KEY",
			defaultValue: "default_value",
			envValue:     "",
			expected:     "default_value",
		},
		{
			name:         "should return empty string default",
			key:          "EMPTY_KEY",
			defaultValue: "",
			envValue:     "",
			expected:     "",
		},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				t.Setenv(tt.key, tt.envValue)
			} else {
				os.Unsetenv(tt.key)
			}

			result := GetEnvWithDefault(tt.key, tt.defaultValue)

			if result != tt.expected {
				t.Errorf("GetEnvWithDefault() = %v, expected %v", result, tt.expected)
			}
		})
	}
}

func TestGetEnvAsDuration(t *testing.T) {
	testCases := []struct {
		name     string
		envValue string
		expected time.Duration
	}{
		{name: "bare seconds", envValue: "90", expected: 90 * time.Second},
		{name: "go duration", envValue: "5m", expected: 5 * time.Minute},
		{name: "invalid falls back to default", envValue: "soon", expected: time.Hour},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_DURATION", tt.envValue)

			result := GetEnvAsType("TEST_DURATION", time.Hour)

			if result != tt.expected {
				t.Errorf("GetEnvAsType() = %v, expected %v", result, tt.expected)
			}
		})
	}
}

func TestLoadConfig(t *testing.T) {
	vars := []string{
		"APP_PORT", "APP_HOST", "LOG_LEVEL", "JWT_SECRET", "DB_DRIVER",
		"ACCESS_TOKEN_TTL", "REDIS_ENABLED", "REDIS_ADDR", "MEMORY_CACHE_SIZE",
	}
	cleanupTestEnv := func() {
		for _, v := range vars {
			os.Unsetenv(v)
		}
	}

	t.Run("successful config load with all env vars", func(t *testing.T) {
		cleanupTestEnv()
		t.Setenv("APP_PORT", "9000")
		t.Setenv("APP_HOST", "0.0.0.0")
		t.Setenv("LOG_LEVEL", "debug")
		t.Setenv("JWT_SECRET", "super_secret_jwt_key")
		t.Setenv("ACCESS_TOKEN_TTL", "600")
		t.Setenv("REDIS_ENABLED", "false")

		config, err := LoadConfig()
		if err != nil {
			t.Fatalf("LoadConfig() returned error: %v", err)
		}

		if config.Port != 9000 {
			t.Errorf("Port = %d, expected 9000", config.Port)
		}
		if config.Host != "0.0.0.0" {
			t.Errorf("Host = %s, expected 0.0.0.0", config.Host)
		}
		if config.LogLevel != "debug" {
			t.Errorf("LogLevel = %s, expected debug", config.LogLevel)
		}
		if config.AccessTokenTTL != 10*time.Minute {
			t.Errorf("AccessTokenTTL = %s, expected 10m", config.AccessTokenTTL)
		}
		if config.RedisEnabled {
			t.Error("RedisEnabled should be false")
		}
	})

	t.Run("should fail with invalid port", func(t *testing.T) {
		cleanupTestEnv()
		t.Setenv("APP_PORT", "not_a_number")

		config, err := LoadConfig()

		if err == nil {
			t.Error("LoadConfig() should return error when APP_PORT is invalid")
		}
		if config != nil {
			t.Error("Config should be nil when error occurs")
		}
	})

	t.Run("should fail with unsupported driver", func(t *testing.T) {
		cleanupTestEnv()
		t.Setenv("DB_DRIVER", "oracle")

		if _, err := LoadConfig(); err == nil {
			t.Error("LoadConfig() should reject unknown DB_DRIVER")
		}
	})

	t.Run("should fail with empty memory cache", func(t *testing.T) {
		cleanupTestEnv()
		t.Setenv("MEMORY_CACHE_SIZE", "0")

		if _, err := LoadConfig(); err == nil {
			t.Error("LoadConfig() should reject a zero sized memory cache")
		}
	})

	t.Run("should use defaults when optional env vars not set", func(t *testing.T) {
		cleanupTestEnv()

		config, err := LoadConfig()
		if err != nil {
			t.Fatalf("LoadConfig() returned unexpected error: %v", err)
		}

		if config.Port != 8080 {
			t.Errorf("Port = %d, expected default 8080", config.Port)
		}
		if config.Host != "localhost" {
			t.Errorf("Host = %s, expected default localhost", config.Host)
		}
		if config.CachePrefix != "oauth2_cache:" {
			t.Errorf("CachePrefix = %s, expected default oauth2_cache:", config.CachePrefix)
		}
		if config.AccessTokenTTL != time.Hour || config.RefreshTokenTTL != 24*time.Hour {
			t.Errorf("unexpected token TTL defaults: %s / %s", config.AccessTokenTTL, config.RefreshTokenTTL)
		}
		if config.InvalidationChannel != "oauth2:cmd:job:trigger" {
			t.Errorf("InvalidationChannel = %s", config.InvalidationChannel)
		}
	})
}

func TestConfigStringRedactsSecrets(t *testing.T) {
	c := &Config{DBPassword: "hunter2", RedisPassword: "redis-pass", JWTSecret: "jwt-secret"}

	s := c.String()

	for _, secret := range []string{"hunter2", "redis-pass", "jwt-secret"} {
		if strings.Contains(s, secret) {
			t.Errorf("String() leaked %q", secret)
		}
	}
}

func BenchmarkGetEnvWithDefault(b *testing.B) {
	os.Setenv("BENCH_KEY", "test_value")
	defer os.Unsetenv("BENCH_KEY")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		GetEnvWithDefault("BENCH_KEY", "default")
	}
}
