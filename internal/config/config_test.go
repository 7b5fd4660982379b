package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every variable Load reads so the host environment can't leak in
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"MEMBERDESK_CONFIG", "API_BASE_URL", "API_TIMEOUT", "WEB_ADDRESS", "WEB_ALLOW_ORIGINS", "WEB_SECURE_COOKIES",
		"STORAGE_DRIVER", "DATABASE_URL", "STORAGE_FILE", "MEMBERDESK_STORAGE_KEY",
		"SESSION_REVALIDATE_SCHEDULE", "GUARD_SETTLE_WAIT", "LOG_LEVEL", "LOG_FORMAT",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8000", cfg.API.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.API.Timeout)
	assert.Equal(t, "127.0.0.1:8080", cfg.Web.Address, "loopback unless configured otherwise")
	assert.False(t, cfg.Web.SecureCookies)
	assert.Equal(t, "memberdesk.sqlite", cfg.Storage.DatabaseURL)
	assert.Equal(t, DefaultSettleWait, cfg.Session.GuardSettleWait)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, DriverKeyring, cfg.StorageDriver(DriverKeyring))
}

func TestLoad_FileThenEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	t.Chdir(dir)

	yamlData := `
api:
  base_url: https://members.example.org
  timeout: 10s
web:
  address: ":9090"
  allow_origins: ["https://admin.example.org"]
  secure_cookies: true
storage:
  driver: file
session:
  revalidate_schedule: "*/15 * * * *"
logging:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), []byte(yamlData), 0644))

	t.Setenv("API_TIMEOUT", "5s")
	t.Setenv("LOG_FORMAT", "console")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://members.example.org", cfg.API.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.API.Timeout, "env overrides file")
	assert.Equal(t, ":9090", cfg.Web.Address)
	assert.Equal(t, []string{"https://admin.example.org"}, cfg.Web.AllowOrigins)
	assert.True(t, cfg.Web.SecureCookies)
	assert.Equal(t, DriverFile, cfg.StorageDriver(DriverSQLite))
	assert.Equal(t, "*/15 * * * *", cfg.Session.RevalidateSchedule)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
}

func TestLoad_FindsFileInParentDirectory(t *testing.T) {
	clearEnv(t)
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, ConfigFileName), []byte("api:\n  base_url: http://parent:8000\n"), 0644))
	t.Chdir(nested)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "http://parent:8000", cfg.API.BaseURL)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "bad timeout", key: "API_TIMEOUT", value: "soon"},
		{name: "negative settle wait", key: "GUARD_SETTLE_WAIT", value: "-1s"},
		{name: "unknown driver", key: "STORAGE_DRIVER", value: "redis"},
		{name: "secure cookies not a bool", key: "WEB_SECURE_COOKIES", value: "sometimes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Chdir(t.TempDir())
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			require.Error(t, err)
		})
	}
}

func TestLoad_AllowOriginsFromEnv(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())
	t.Setenv("WEB_ALLOW_ORIGINS", "http://a.test, ,http://b.test")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.Web.AllowOrigins)
}
