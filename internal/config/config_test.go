package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SESSION_SECRET", "test-secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8888", cfg.Server.Port)
	assert.Equal(t, "dev", cfg.Server.Env)
	assert.True(t, cfg.Server.IsDevelopment())

	assert.Equal(t, "jwt", cfg.Auth.TokenBackend)
	assert.Equal(t, []byte("test-secret"), cfg.Auth.SessionSecret)
	assert.Equal(t, 24*time.Hour, cfg.Auth.SessionDuration)
	assert.Equal(t, 4*time.Hour, cfg.Auth.TokenStaleness)
	assert.Equal(t, time.Hour, cfg.Auth.LockoutWindow)
	assert.Equal(t, 5, cfg.Auth.MaxStrikes)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("SESSION_SECRET", "test-secret")
	t.Setenv("SERVER_PORT", "9999")
	t.Setenv("APP_ENV", "prod")
	t.Setenv("SESSION_DURATION", "3600")
	t.Setenv("MAX_LOGIN_STRIKES", "3")
	t.Setenv("TRUSTED_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9999", cfg.Server.Port)
	assert.False(t, cfg.Server.IsDevelopment())
	assert.Equal(t, time.Hour, cfg.Auth.SessionDuration)
	assert.Equal(t, 3, cfg.Auth.MaxStrikes)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.TrustedOrigins)
}

func TestLoad_MissingSecret(t *testing.T) {
	t.Setenv("SESSION_SECRET", "")

	_, err := Load()
	assert.ErrorContains(t, err, "SESSION_SECRET")
}

func TestLoad_PasetoKeyLength(t *testing.T) {
	t.Setenv("SESSION_TOKEN_BACKEND", "paseto")
	t.Setenv("SESSION_SECRET", "too-short")

	_, err := Load()
	require.ErrorContains(t, err, "32 bytes")

	t.Setenv("SESSION_SECRET", "0123456789abcdef0123456789abcdef")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "paseto", cfg.Auth.TokenBackend)
}

func TestLoad_UnknownBackend(t *testing.T) {
	t.Setenv("SESSION_SECRET", "test-secret")
	t.Setenv("SESSION_TOKEN_BACKEND", "cookies")

	_, err := Load()
	assert.ErrorContains(t, err, "SESSION_TOKEN_BACKEND")
}

func TestLoad_InvalidStrikes(t *testing.T) {
	t.Setenv("SESSION_SECRET", "test-secret")
	t.Setenv("MAX_LOGIN_STRIKES", "0")

	_, err := Load()
	assert.ErrorContains(t, err, "MAX_LOGIN_STRIKES")
}

func TestDatabaseConnectionString(t *testing.T) {
	t.Parallel()

	db := DatabaseConfig{
		Host:     "db.internal",
		Port:     "5433",
		User:     "svc",
		Password: "pw",
		DBName:   "auth",
		SSLMode:  "require",
	}
	assert.Equal(t,
		"host=db.internal port=5433 user=svc password=pw dbname=auth sslmode=require",
		db.ConnectionString(),
	)

	redis := RedisConfig{Host: "cache.internal", Port: "6380"}
	assert.Equal(t, "cache.internal:6380", redis.Address())
}
