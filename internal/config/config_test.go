package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, `
session_key: "0123456789abcdef"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8000", cfg.Listen)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "learnlog_session", cfg.SessionName)
	assert.Equal(t, 30*24*60*60, cfg.RememberMaxAge)
	assert.False(t, cfg.SecureCookies)
	assert.Equal(t, DatabaseDriverSQLite, cfg.Database.Driver)
	assert.Equal(t, "./data/learnlog.db", cfg.Database.Path)
	assert.Equal(t, CacheTypeMemory, cfg.Cache.Type)
	assert.False(t, cfg.Gravatar.Enabled)
	assert.False(t, cfg.Admin.Enabled)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
listen: " 127.0.0.1:9000 "
log_level: DEBUG
session_key: "0123456789abcdef"
remember_max_age: 600
database:
  driver: postgres
  dsn: "host=localhost user=learnlog dbname=learnlog"
cache:
  type: redis
  redis_url: "redis://localhost:6379/0"
admin:
  enabled: true
  username: " Admin "
  email: "Admin@Admin.com"
  password: "password"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.Listen)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 600, cfg.RememberMaxAge)
	assert.Equal(t, DatabaseDriverPostgres, cfg.Database.Driver)
	assert.Equal(t, CacheTypeRedis, cfg.Cache.Type)
	assert.Equal(t, "admin", cfg.Admin.Username)
	assert.Equal(t, "admin@admin.com", cfg.Admin.Email)
}

func TestLoad_EnvOverride(t *testing.T) {
	path := writeConfig(t, `
session_key: "0123456789abcdef"
`)
	t.Setenv("LEARNLOG_LISTEN", "127.0.0.1:1234")
	t.Setenv("LEARNLOG_DATABASE_PATH", "/tmp/learnlog-test.db")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:1234", cfg.Listen)
	assert.Equal(t, "/tmp/learnlog-test.db", cfg.Database.Path)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		errMsg  string
	}{
		{
			name:    "missing session key",
			content: `listen: ":8000"`,
			errMsg:  "session key is required",
		},
		{
			name:    "short session key",
			content: `session_key: "short"`,
			errMsg:  "at least 16 characters",
		},
		{
			name: "bad remember max age",
			content: `
session_key: "0123456789abcdef"
remember_max_age: 0`,
			errMsg: "remember max age",
		},
		{
			name: "unknown driver",
			content: `
session_key: "0123456789abcdef"
database:
  driver: mysql`,
			errMsg: "unsupported database driver",
		},
		{
			name: "postgres without dsn",
			content: `
session_key: "0123456789abcdef"
database:
  driver: postgres`,
			errMsg: "DSN is required",
		},
		{
			name: "redis without url",
			content: `
session_key: "0123456789abcdef"
cache:
  type: redis`,
			errMsg: "Redis URL is required",
		},
		{
			name: "admin without password",
			content: `
session_key: "0123456789abcdef"
admin:
  enabled: true`,
			errMsg: "admin password is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yml"))
	assert.Error(t, err)
}
