package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("DB_DSN", "postgres://localhost/reservations")
	t.Setenv("JWT_SECRET", "secret")
}

func TestFromEnvDefaults(t *testing.T) {
	setRequired(t)
	for _, key := range []string{"APP_ENV", "HTTP_ADDR", "DB_MAX_CONNS", "DB_AUTO_MIGRATE", "JWT_ACCESS_TOKEN_TTL", "BCRYPT_COST", "REDIS_ADDR"} {
		t.Setenv(key, "")
	}

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.False(t, cfg.IsProduction)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, 10, cfg.DBMaxConns)
	assert.True(t, cfg.DBAutoMigrate)
	assert.Equal(t, 15*time.Minute, cfg.JWTAccessTokenTTL)
	assert.Equal(t, 12, cfg.BcryptCost)
	assert.False(t, cfg.Redis.Enabled())
}

func TestFromEnvOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("APP_ENV", "prod")
	t.Setenv("PROD_ORIGINS", "https://app.example")
	t.Setenv("JWT_ACCESS_TOKEN_TTL", "1h")
	t.Setenv("DB_AUTO_MIGRATE", "false")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("ADMIN_EMAIL", "root@example.com")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction)
	assert.Equal(t, "https://app.example", cfg.ProdOrigins)
	assert.Equal(t, time.Hour, cfg.JWTAccessTokenTTL)
	assert.False(t, cfg.DBAutoMigrate)
	assert.True(t, cfg.Redis.Enabled())
	assert.Equal(t, 2, cfg.Redis.DB)
	assert.Equal(t, "root@example.com", cfg.AdminEmail)
}

func TestFromEnvErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing dsn", map[string]string{"DB_DSN": "", "JWT_SECRET": "s"}},
		{"missing secret", map[string]string{"DB_DSN": "x", "JWT_SECRET": ""}},
		{"bad ttl", map[string]string{"DB_DSN": "x", "JWT_SECRET": "s", "JWT_ACCESS_TOKEN_TTL": "soon"}},
		{"negative ttl", map[string]string{"DB_DSN": "x", "JWT_SECRET": "s", "JWT_ACCESS_TOKEN_TTL": "-1m"}},
		{"bad cost", map[string]string{"DB_DSN": "x", "JWT_SECRET": "s", "BCRYPT_COST": "high"}},
		{"bad max conns", map[string]string{"DB_DSN": "x", "JWT_SECRET": "s", "DB_MAX_CONNS": "many"}},
		{"bad migrate flag", map[string]string{"DB_DSN": "x", "JWT_SECRET": "s", "DB_AUTO_MIGRATE": "maybe"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := FromEnv()
			assert.Error(t, err)
		})
	}
}
