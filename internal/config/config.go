package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Host        string
	Port        string
	User        string
	Password    string
	DBName      string
	SSLMode     string
	DatabaseURL string
	MaxConns    int

	RedisURL      string
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration

	HTTPAddr    string
	JWTSecret   string
	CORSOrigins []string
	LogLevel    slog.Level

	PaymentDelay time.Duration

	CloudinaryCloud string
	AssetBaseURL    string
}

// LoadConfig reads .env (when present) and the process environment.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	level, err := parseLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		return nil, err
	}

	return &Config{
		Host:            getEnv("DB_HOST", "localhost"),
		Port:            getEnv("DB_PORT", "5432"),
		User:            getEnv("DB_USER", "app_user"),
		Password:        getEnv("DB_PASSWORD", "postgres_password"),
		DBName:          getEnv("DB_NAME", "shopsphere"),
		SSLMode:         getEnv("DB_SSLMODE", "disable"),
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		MaxConns:        getEnvAsInt("DB_MAX_CONNS", 10),
		RedisURL:        getEnv("REDIS_URL", "localhost:6379"),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		RedisDB:         getEnvAsInt("REDIS_DB", 0),
		CacheTTL:        getEnvAsDuration("CACHE_TTL", 5*time.Minute),
		HTTPAddr:        getEnv("HTTP_ADDR", ":8000"),
		JWTSecret:       getEnv("JWT_SECRET", ""),
		CORSOrigins:     splitList(getEnv("CORS_ORIGINS", "http://localhost:3000")),
		LogLevel:        level,
		PaymentDelay:    getEnvAsDuration("PAYMENT_DELAY", 1500*time.Millisecond),
		CloudinaryCloud: getEnv("ASSET_PROVIDER_CLOUDINARY", ""),
		AssetBaseURL:    getEnv("ASSET_BASE_URL", "http://localhost:8000/media/"),
	}, nil
}

// DSN returns DATABASE_URL when set, otherwise a keyword/value string built from the DB_* parts.
func (c *Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host,
		c.Port,
		c.User,
		c.Password,
		c.DBName,
		c.SSLMode,
	)
}

// ValidateServe checks the settings the HTTP server cannot run without.
func (c *Config) ValidateServe() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.PaymentDelay < 0 {
		return errors.New("PAYMENT_DELAY cannot be negative")
	}
	return nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return level, fmt.Errorf("invalid LOG_LEVEL %q: %w", s, err)
	}
	return level, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
