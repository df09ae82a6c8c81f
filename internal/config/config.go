// Package config loads service settings from the environment (and an optional .env file).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	HTTP      HTTPConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Kafka     KafkaConfig
	LogLevel  string
}

type HTTPConfig struct {
	Port           string
	AllowedOrigins []string // CORS
}

type AuthConfig struct {
	JWTSecret  string
	TokenTTL   time.Duration
	BcryptCost int
}

// RateLimitConfig covers both limiters: the fixed window in front of /books and the token
// bucket in front of /users and /login.
type RateLimitConfig struct {
	Limit             int
	Window            time.Duration
	AuthRatePerSecond float64
	AuthBurst         int
}

// KafkaConfig enables book event publishing when Brokers is non-empty.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// Load reads .env if present, then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv builds the config from the process environment only.
func FromEnv() (*Config, error) {
	var errs []string
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err.Error())
		}
	}

	cfg := &Config{
		HTTP: HTTPConfig{
			Port:           getEnv("PORT", "8080"),
			AllowedOrigins: getEnvList("ALLOWED_ORIGINS"),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
		},
		Kafka: KafkaConfig{
			Brokers: getEnvList("KAFKA_BROKERS"),
			Topic:   getEnv("KAFKA_TOPIC", "book-events"),
		},
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	var err error
	cfg.Auth.TokenTTL, err = getEnvDuration("TOKEN_TTL", time.Hour)
	collect(err)
	cfg.Auth.BcryptCost, err = getEnvInt("BCRYPT_COST", 12)
	collect(err)
	cfg.RateLimit.Limit, err = getEnvInt("RATE_LIMIT", 100)
	collect(err)
	cfg.RateLimit.Window, err = getEnvDuration("RATE_WINDOW", time.Minute)
	collect(err)
	cfg.RateLimit.AuthRatePerSecond, err = getEnvFloat("AUTH_RATE_PER_SECOND", 1)
	collect(err)
	cfg.RateLimit.AuthBurst, err = getEnvInt("AUTH_RATE_BURST", 10)
	collect(err)

	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid configuration: %s", strings.Join(errs, "; "))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks settings the service cannot run without.
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET environment variable is not set")
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("TOKEN_TTL must be positive")
	}
	if c.RateLimit.Limit <= 0 || c.RateLimit.Window <= 0 {
		return fmt.Errorf("RATE_LIMIT and RATE_WINDOW must be positive")
	}
	if c.RateLimit.AuthRatePerSecond <= 0 || c.RateLimit.AuthBurst <= 0 {
		return fmt.Errorf("AUTH_RATE_PER_SECOND and AUTH_RATE_BURST must be positive")
	}
	return nil
}

// String returns a string representation of the config (sensitive values are masked).
func (c *Config) String() string {
	return fmt.Sprintf("Config{Port: %s, Origins: %v, TokenTTL: %s, Rate: %d/%s, Kafka: %v/%s, Auth: *** (masked) ***}",
		c.HTTP.Port, c.HTTP.AllowedOrigins, c.Auth.TokenTTL, c.RateLimit.Limit, c.RateLimit.Window, c.Kafka.Brokers, c.Kafka.Topic)
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultVal
}

// getEnvList splits a comma separated variable, dropping empty entries.
func getEnvList(key string) []string {
	var out []string
	for _, v := range strings.Split(os.Getenv(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func getEnvInt(key string, defaultVal int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid integer for %s: %w", key, err)
	}
	return n, nil
}

func getEnvFloat(key string, defaultVal float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultVal, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number for %s: %w", key, err)
	}
	return f, nil
}

func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid duration for %s: %w", key, err)
	}
	return d, nil
}
