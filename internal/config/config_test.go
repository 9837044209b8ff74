package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "dev", cfg.Server.Env)
	assert.True(t, cfg.Server.IsDevelopment())
	assert.Equal(t, 10*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.Server.TrustedOrigins)

	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, "5432", cfg.Database.Port)

	assert.Equal(t, "auth-api", cfg.Auth.Issuer)
	assert.Equal(t, "auth-api-clients", cfg.Auth.Audience)
	assert.Equal(t, time.Hour, cfg.Auth.AccessTokenDuration)
	assert.Equal(t, 7*24*time.Hour, cfg.Auth.RefreshTokenDuration)
}

func TestLoad_RequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	assert.Error(t, err)

	t.Setenv("JWT_SECRET", "too-short")

	_, err = Load()
	assert.Error(t, err)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("APP_ENV", "prod")
	t.Setenv("ACCESS_TOKEN_DURATION", "900")
	t.Setenv("TRUSTED_ORIGINS", "https://app.example.com, https://admin.example.com")
	t.Setenv("REDIS_DB", "3")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.False(t, cfg.Server.IsDevelopment())
	assert.Equal(t, 15*time.Minute, cfg.Auth.AccessTokenDuration)
	assert.Equal(t, []string{"https://app.example.com", "https://admin.example.com"}, cfg.Server.TrustedOrigins)
	assert.Equal(t, 3, cfg.Redis.DB)
}

func TestDatabaseConnectionString(t *testing.T) {
	cfg := DatabaseConfig{
		Host:     "db",
		Port:     "5432",
		User:     "app",
		Password: "pw",
		DBName:   "authapi",
		SSLMode:  "require",
	}

	assert.Equal(t,
		"host=db port=5432 user=app password=pw dbname=authapi sslmode=require",
		cfg.ConnectionString(),
	)
}

func TestRedisAddress(t *testing.T) {
	cfg := RedisConfig{Host: "cache", Port: "6380"}
	assert.Equal(t, "cache:6380", cfg.Address())
}
