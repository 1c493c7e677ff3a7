package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const defaultJWTSecret = "default_super_secret_key"

// Config holds everything main needs to wire the server.
type Config struct {
	Port         string
	GinMode      string
	DatabaseDSN  string
	RedisAddr    string
	RedisDB      int
	JWTSecret    []byte
	TokenTTL     time.Duration
	CORSOrigins  []string
	LogLevel     string
	LogFormat    string
	SeedDefaults bool

	// SuperAdminEmail and SuperAdminPassword bootstrap the platform operator when both are set.
	SuperAdminEmail    string
	SuperAdminPassword string
}

// Load reads configs/.env when present, then the process environment.
func Load() (*Config, error) {
	// a missing file is fine, the environment may already be set
	_ = godotenv.Load("configs/.env")

	cfg := &Config{
		Port:         getenv("PORT", "8080"),
		GinMode:      getenv("GIN_MODE", "debug"),
		RedisAddr:    getenv("REDIS_ADDR", "localhost:6379"),
		LogLevel:     getenv("LOG_LEVEL", "info"),
		LogFormat:    getenv("LOG_FORMAT", "json"),
		CORSOrigins:  splitList(getenv("CORS_ORIGINS", "http://localhost:3000,http://localhost:5173")),
		SeedDefaults: getenv("SEED_DEFAULTS", "true") == "true",

		SuperAdminEmail:    os.Getenv("SUPERADMIN_EMAIL"),
		SuperAdminPassword: os.Getenv("SUPERADMIN_PASSWORD"),
	}

	cfg.DatabaseDSN = "postgres://" + getenv("DB_USER", "postgres") + ":" + getenv("DB_PASSWORD", "postgres") +
		"@" + getenv("DB_HOST", "localhost") + ":" + getenv("DB_PORT", "5432") +
		"/" + getenv("DB_NAME", "postgres") + "?sslmode=" + getenv("DB_SSLMODE", "disable")

	redisDB, err := strconv.Atoi(getenv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}
	cfg.RedisDB = redisDB

	ttl, err := time.ParseDuration(getenv("TOKEN_TTL", "24h"))
	if err != nil {
		return nil, fmt.Errorf("invalid TOKEN_TTL: %w", err)
	}
	cfg.TokenTTL = ttl

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		if cfg.GinMode == "release" {
			return nil, fmt.Errorf("JWT_SECRET is required in release mode")
		}
		secret = defaultJWTSecret // development only
	}
	cfg.JWTSecret = []byte(secret)

	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
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
