package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, name := range []string{
		"APP_ENV", "ENV", "DATABASE_URL", "HTTP_ADDR", "JWT_SECRET",
		"JWT_ACCESS_TTL", "REQUEST_TIMEOUT", "APPROVE_MAX_RETRIES", "CORS_ALLOWED_ORIGINS",
		"PASSWORD_RESET_PEPPER", "PASSWORD_RESET_TTL",
	} {
		t.Setenv(name, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "dev", cfg.AppEnv)
	assert.Equal(t, "realestate.db", cfg.DatabaseURL)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, 24*time.Hour, cfg.JWTAccessTTL)
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 1, cfg.ApproveMaxRetries)
	assert.Equal(t, 72*time.Hour, cfg.ResetTokenTTL)
	assert.False(t, cfg.IsProduction())
}

func TestLoad_InvalidDuration(t *testing.T) {
	clearEnv(t)
	t.Setenv("REQUEST_TIMEOUT", "soon")

	_, err := Load()
	assert.ErrorContains(t, err, "REQUEST_TIMEOUT")
}

func TestLoad_RetriesOutOfRange(t *testing.T) {
	clearEnv(t)
	t.Setenv("APPROVE_MAX_RETRIES", "2")

	_, err := Load()
	assert.ErrorContains(t, err, "APPROVE_MAX_RETRIES")

	t.Setenv("APPROVE_MAX_RETRIES", "0")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Zero(t, cfg.ApproveMaxRetries)
}

func TestLoad_ResetTokenTTL(t *testing.T) {
	clearEnv(t)
	t.Setenv("PASSWORD_RESET_TTL", "0s")

	_, err := Load()
	assert.ErrorContains(t, err, "PASSWORD_RESET_TTL")

	t.Setenv("PASSWORD_RESET_TTL", "30m")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Minute, cfg.ResetTokenTTL)
}

func TestLoad_ProdRequiresSecretAndPostgres(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_ENV", "production")

	_, err := Load()
	assert.ErrorContains(t, err, "JWT_SECRET")

	t.Setenv("JWT_SECRET", "a-real-secret")
	_, err = Load()
	assert.ErrorContains(t, err, "PASSWORD_RESET_PEPPER")

	t.Setenv("PASSWORD_RESET_PEPPER", "a-real-pepper")
	_, err = Load()
	assert.ErrorContains(t, err, "PostgreSQL")

	t.Setenv("DATABASE_URL", "postgres://app@db/realestate")
	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
}

func TestLoad_CORSOrigins(t *testing.T) {
	clearEnv(t)
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://admin.example.com, ,https://app.example.com ")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"https://admin.example.com", "https://app.example.com"}, cfg.CORSAllowedOrigins)
}

func TestLoad_CORSOriginMustBeURL(t *testing.T) {
	clearEnv(t)
	t.Setenv("CORS_ALLOWED_ORIGINS", "admin.example.com")

	_, err := Load()
	assert.ErrorContains(t, err, "CORS_ALLOWED_ORIGINS")
}
