package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultAppEnv            = "dev"
	defaultDatabaseURL       = "realestate.db"
	defaultHTTPAddr          = ":8080"
	defaultJWTSecret         = "change-me-jwt-secret"
	defaultJWTAccessTTL      = "24h"
	defaultRequestTimeout    = "10s"
	defaultApproveMaxRetries = "1"
	defaultResetTokenPepper  = "change-me-reset-pepper"
	defaultResetTokenTTL     = "72h"

	maxApproveRetries = 1
)

type Config struct {
	AppEnv             string
	DatabaseURL        string
	HTTPAddr           string
	JWTSecret          string
	JWTAccessTTL       time.Duration
	RequestTimeout     time.Duration
	ApproveMaxRetries  int
	CORSAllowedOrigins []string
	ResetTokenPepper   string
	ResetTokenTTL      time.Duration
}

func Load() (*Config, error) {
	cfg := &Config{}

	appEnv := strings.TrimSpace(os.Getenv("APP_ENV"))
	if appEnv == "" {
		appEnv = strings.TrimSpace(os.Getenv("ENV"))
	}
	if appEnv == "" {
		appEnv = defaultAppEnv
	}
	cfg.AppEnv = strings.ToLower(appEnv)

	cfg.DatabaseURL = strings.TrimSpace(getEnv("DATABASE_URL", defaultDatabaseURL))
	cfg.HTTPAddr = strings.TrimSpace(getEnv("HTTP_ADDR", defaultHTTPAddr))
	cfg.JWTSecret = strings.TrimSpace(getEnv("JWT_SECRET", defaultJWTSecret))

	var err error
	cfg.JWTAccessTTL, err = parseDurationEnv("JWT_ACCESS_TTL", defaultJWTAccessTTL)
	if err != nil {
		return nil, err
	}

	cfg.RequestTimeout, err = parseDurationEnv("REQUEST_TIMEOUT", defaultRequestTimeout)
	if err != nil {
		return nil, err
	}

	cfg.ApproveMaxRetries, err = parseIntEnv("APPROVE_MAX_RETRIES", defaultApproveMaxRetries)
	if err != nil {
		return nil, err
	}

	cfg.CORSAllowedOrigins = splitList(os.Getenv("CORS_ALLOWED_ORIGINS"))
	cfg.ResetTokenPepper = strings.TrimSpace(getEnv("PASSWORD_RESET_PEPPER", defaultResetTokenPepper))

	cfg.ResetTokenTTL, err = parseDurationEnv("PASSWORD_RESET_TTL", defaultResetTokenTTL)
	if err != nil {
		return nil, err
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	log.Printf("config loaded: env=%s addr=%s request_timeout=%s approve_max_retries=%d",
		cfg.AppEnv, cfg.HTTPAddr, cfg.RequestTimeout, cfg.ApproveMaxRetries)

	return cfg, nil
}

func (c *Config) IsProduction() bool {
	return isProdLike(c.AppEnv)
}

func validateConfig(cfg *Config) error {
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL must not be empty")
	}
	if cfg.HTTPAddr == "" {
		return fmt.Errorf("HTTP_ADDR must not be empty")
	}
	if cfg.JWTAccessTTL <= 0 {
		return fmt.Errorf("JWT_ACCESS_TTL must be > 0")
	}
	if cfg.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be > 0")
	}
	if cfg.ResetTokenTTL <= 0 {
		return fmt.Errorf("PASSWORD_RESET_TTL must be > 0")
	}
	if cfg.ApproveMaxRetries < 0 || cfg.ApproveMaxRetries > maxApproveRetries {
		return fmt.Errorf("APPROVE_MAX_RETRIES must be between 0 and %d", maxApproveRetries)
	}

	for _, origin := range cfg.CORSAllowedOrigins {
		if !strings.HasPrefix(origin, "http://") && !strings.HasPrefix(origin, "https://") {
			return fmt.Errorf("CORS_ALLOWED_ORIGINS entry %q must start with http:// or https://", origin)
		}
	}

	if isProdLike(cfg.AppEnv) {
		if isEmptyOrDefault(cfg.JWTSecret, defaultJWTSecret) {
			return fmt.Errorf("in prod/release JWT_SECRET must be set and not default")
		}
		if isEmptyOrDefault(cfg.ResetTokenPepper, defaultResetTokenPepper) {
			return fmt.Errorf("in prod/release PASSWORD_RESET_PEPPER must be set and not default")
		}
		if !strings.HasPrefix(cfg.DatabaseURL, "postgres://") && !strings.HasPrefix(cfg.DatabaseURL, "postgresql://") {
			return fmt.Errorf("in prod/release DATABASE_URL must point to PostgreSQL")
		}
	}

	return nil
}

func isProdLike(env string) bool {
	env = strings.ToLower(strings.TrimSpace(env))
	return env == "prod" || env == "production" || env == "release"
}

func isEmptyOrDefault(v, def string) bool {
	trimmed := strings.TrimSpace(v)
	return trimmed == "" || trimmed == def
}

func parseDurationEnv(name, fallback string) (time.Duration, error) {
	value := strings.TrimSpace(getEnv(name, fallback))
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return d, nil
}

func parseIntEnv(name, fallback string) (int, error) {
	value := strings.TrimSpace(getEnv(name, fallback))
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return n, nil
}

func getEnv(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}

// splitList parses a comma separated list, dropping blanks.
func splitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
