package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCreatesDefaultFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:8080", cfg.Listen)
	assert.Equal(t, DriverMemory, cfg.Database.Driver)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestLoadFillsMissingValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
listen: ":9000"
log_level: LOUD
database:
  driver: Postgres
  url: postgres://calpin@localhost/calpin?sslmode=disable
export:
  path: /var/lib/calpin/calendar.ics
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Listen)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, "/var/lib/calpin/calendar.ics", cfg.Export.Path)
	assert.Equal(t, "*/15 * * * *", cfg.Export.Cron)
	assert.Equal(t, 300, cfg.Redis.TTLSeconds)
	assert.Equal(t, DefaultMaxBodyBytes, cfg.MaxBodyBytes)
	assert.False(t, cfg.AllowURLImport, "URL import is opt-in")
	assert.NoError(t, cfg.Validate())
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen: [unterminated"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := DefaultConfig()
	cfg.BasicAuth = BasicAuthConfig{Username: "admin", Password: "s3cret"}
	cfg.Redis.Addr = "localhost:6379"
	require.NoError(t, cfg.Save(path))

	back, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, back)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("CALPIN_LISTEN", ":7070")
	t.Setenv("CALPIN_DATABASE_DRIVER", "postgres")
	t.Setenv("CALPIN_DATABASE_URL", "postgres://example")
	t.Setenv("CALPIN_REDIS_TTL_SECONDS", "60")
	t.Setenv("CALPIN_BASIC_AUTH_USERNAME", "ops")
	t.Setenv("CALPIN_ALLOW_URL_IMPORT", "true")
	t.Setenv("CALPIN_MAX_BODY_BYTES", "4096")

	cfg := DefaultConfig()
	cfg.Export.Name = "from file"
	require.NoError(t, cfg.ApplyEnv())

	assert.Equal(t, ":7070", cfg.Listen)
	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, "postgres://example", cfg.Database.URL)
	assert.Equal(t, 60, cfg.Redis.TTLSeconds)
	assert.Equal(t, "from file", cfg.Export.Name, "unset variables keep file values")
	assert.True(t, cfg.BasicAuth.Enabled())
	assert.True(t, cfg.AllowURLImport)
	assert.Equal(t, int64(4096), cfg.MaxBodyBytes)
	assert.Error(t, cfg.Validate(), "username without password")
}

func TestApplyEnvBadNumber(t *testing.T) {
	t.Setenv("CALPIN_REDIS_DB", "zero")
	cfg := DefaultConfig()
	assert.Error(t, cfg.ApplyEnv())
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, cfg.Validate())

	cfg.Database.Driver = DriverPostgres
	assert.Error(t, cfg.Validate())

	cfg.Database.Driver = "sqlite"
	assert.Error(t, cfg.Validate())
}
