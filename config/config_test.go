package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configKeys = []string{
	"STORAGE_DRIVER", "DATABASE_URL", "JWT_SECRET_KEY", "SERVER_PORT",
	"SCHEDULER_INTERVAL", "CORS_ALLOWED_ORIGINS", "SUBMIT_RATE_PER_MINUTE", "LOG_LEVEL",
	"R2_ACCOUNT_ID", "R2_ACCESS_KEY_ID", "R2_SECRET_ACCESS_KEY", "R2_BUCKET_NAME", "R2_PUBLIC_BASE_URL",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range configKeys {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/tournaments")
	t.Setenv("JWT_SECRET_KEY", "secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, StorageDriverPostgres, cfg.StorageDriver)
	assert.Equal(t, 8080, cfg.ServerPort)
	assert.Equal(t, 5*time.Minute, cfg.SchedulerInterval)
	assert.Equal(t, []string{"*"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, 30, cfg.SubmitRatePerMinute)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.False(t, cfg.R2.Enabled())
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("JWT_SECRET_KEY", "secret")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("SCHEDULER_INTERVAL", "30s")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("SUBMIT_RATE_PER_MINUTE", "5")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("R2_ACCOUNT_ID", "acc")
	t.Setenv("R2_ACCESS_KEY_ID", "key")
	t.Setenv("R2_SECRET_ACCESS_KEY", "secret")
	t.Setenv("R2_BUCKET_NAME", "evidence")
	t.Setenv("R2_PUBLIC_BASE_URL", "https://cdn.example")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, StorageDriverMemory, cfg.StorageDriver)
	assert.Empty(t, cfg.DatabaseURL)
	assert.Equal(t, 9090, cfg.ServerPort)
	assert.Equal(t, 30*time.Second, cfg.SchedulerInterval)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, 5, cfg.SubmitRatePerMinute)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.True(t, cfg.R2.Enabled())
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing database url", map[string]string{"JWT_SECRET_KEY": "s"}},
		{"missing jwt secret", map[string]string{"DATABASE_URL": "postgres://x"}},
		{"unknown driver", map[string]string{"STORAGE_DRIVER": "mysql", "JWT_SECRET_KEY": "s"}},
		{"bad port", map[string]string{"DATABASE_URL": "postgres://x", "JWT_SECRET_KEY": "s", "SERVER_PORT": "70000"}},
		{"bad interval", map[string]string{"DATABASE_URL": "postgres://x", "JWT_SECRET_KEY": "s", "SCHEDULER_INTERVAL": "soon"}},
		{"negative interval", map[string]string{"DATABASE_URL": "postgres://x", "JWT_SECRET_KEY": "s", "SCHEDULER_INTERVAL": "-1m"}},
		{"bad rate", map[string]string{"DATABASE_URL": "postgres://x", "JWT_SECRET_KEY": "s", "SUBMIT_RATE_PER_MINUTE": "0"}},
		{"bad log level", map[string]string{"DATABASE_URL": "postgres://x", "JWT_SECRET_KEY": "s", "LOG_LEVEL": "loud"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
