package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv unsets every key Load reads so the host environment cannot leak
// into a test. t.Setenv restores the original values afterwards.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"CONFIG_FILE", "PORT", "DB_PATH", "JWT_SECRET", "SECURE_COOKIES",
		"GITHUB_CLIENT_ID", "GITHUB_CLIENT_SECRET", "GITHUB_CALLBACK_URL",
		"ADMIN_LOGINS", "CORS_ORIGINS", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST",
		"REDIS_URL", "CRON_SECRET", "AUDIT_RETENTION", "CLEANUP_INTERVAL",
		"MAIL_MODE", "LOG_LEVEL", "LOG_FILE",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "data/gthanks.db", cfg.DBPath)
	assert.Equal(t, "http://localhost:8080/auth/github/callback", cfg.GitHub.CallbackURL)
	assert.Equal(t, 90*24*time.Hour, cfg.AuditRetention.Std())
	assert.Equal(t, 24*time.Hour, cfg.CleanupInterval.Std())
	assert.Equal(t, "log", cfg.MailMode)
	assert.Equal(t, slog.LevelInfo, cfg.Log.Level)
}

func TestLoad_FileThenEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	t.Chdir(dir)

	file := filepath.Join(dir, "custom.toml")
	require.NoError(t, os.WriteFile(file, []byte(`
port = 9000
db_path = "/tmp/file.db"
admin_logins = ["octocat"]
audit_retention = "720h"

[rate_limit]
rps = 5.0
burst = 20

[log]
level = "debug"
`), 0o644))

	t.Setenv("CONFIG_FILE", file)
	t.Setenv("DB_PATH", "/tmp/env.db")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, "/tmp/env.db", cfg.DBPath, "env overrides the file")
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.Equal(t, 720*time.Hour, cfg.AuditRetention.Std())
	assert.Equal(t, 5.0, cfg.RateLimit.RPS)
	assert.Equal(t, 20, cfg.RateLimit.Burst)
	assert.Equal(t, slog.LevelDebug, cfg.Log.Level)
	assert.True(t, cfg.IsAdminLogin("OctoCat"))
	assert.False(t, cfg.IsAdminLogin("someone"))
}

func TestLoad_DotEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("PORT=7070\nCRON_SECRET=shh\n"), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("PORT")
		os.Unsetenv("CRON_SECRET")
	})

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Port)
	assert.Equal(t, "shh", cfg.CronSecret)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())
	t.Setenv("CONFIG_FILE", "does-not-exist.toml")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"bad port", "PORT", "eighty"},
		{"port out of range", "PORT", "70000"},
		{"bad duration", "AUDIT_RETENTION", "forever"},
		{"bad bool", "SECURE_COOKIES", "maybe"},
		{"bad mail mode", "MAIL_MODE", "smtp"},
		{"bad log level", "LOG_LEVEL", "loud"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Chdir(t.TempDir())
			t.Setenv(tt.key, tt.val)

			_, err := Load()
			assert.Error(t, err)
		})
	}
}
