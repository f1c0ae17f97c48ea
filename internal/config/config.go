package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Database drivers.
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// BasicAuthConfig holds HTTP Basic Auth credentials for the API. Auth is
// off while Username is empty.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username" env:"CALPIN_BASIC_AUTH_USERNAME"`
	Password string `yaml:"password" json:"password" env:"CALPIN_BASIC_AUTH_PASSWORD"`
}

// Enabled reports whether credentials are configured.
func (b BasicAuthConfig) Enabled() bool {
	return b.Username != ""
}

// DatabaseConfig selects the storage backend.
type DatabaseConfig struct {
	// Driver is "postgres" or "memory".
	Driver string `yaml:"driver" json:"driver" env:"CALPIN_DATABASE_DRIVER"`
	// URL is a lib/pq connection string; unused by the memory driver.
	URL string `yaml:"url" json:"url" env:"CALPIN_DATABASE_URL"`
}

// RedisConfig enables the event cache when Addr is set.
type RedisConfig struct {
	Addr       string `yaml:"addr" json:"addr" env:"CALPIN_REDIS_ADDR"`
	Password   string `yaml:"password" json:"password" env:"CALPIN_REDIS_PASSWORD"`
	DB         int    `yaml:"db" json:"db" env:"CALPIN_REDIS_DB"`
	TTLSeconds int    `yaml:"ttl_seconds" json:"ttl_seconds" env:"CALPIN_REDIS_TTL_SECONDS"`
}

// ExportConfig controls the iCalendar feed and its on-disk snapshot.
type ExportConfig struct {
	// Name is written as X-WR-CALNAME.
	Name string `yaml:"name" json:"name" env:"CALPIN_EXPORT_NAME"`
	// Path, if set, receives a snapshot of the feed on every Cron tick.
	Path string `yaml:"path" json:"path" env:"CALPIN_EXPORT_PATH"`
	Cron string `yaml:"cron" json:"cron" env:"CALPIN_EXPORT_CRON"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the API.
	Listen string `yaml:"listen" json:"listen" env:"CALPIN_LISTEN"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" json:"log_level" env:"CALPIN_LOG_LEVEL"`

	Database DatabaseConfig `yaml:"database" json:"database"`
	Redis    RedisConfig    `yaml:"redis" json:"redis"`
	Export   ExportConfig   `yaml:"export" json:"export"`

	// ICSCacheDir holds conditional-request metadata for URL imports.
	ICSCacheDir string `yaml:"ics_cache_dir" json:"ics_cache_dir" env:"CALPIN_ICS_CACHE_DIR"`

	// AllowURLImport lets POST /api/events/import?url= fetch remote feeds.
	// The server will reach any http(s) address it can route to, so leave
	// it off unless callers are trusted.
	AllowURLImport bool `yaml:"allow_url_import" json:"allow_url_import" env:"CALPIN_ALLOW_URL_IMPORT"`

	// MaxBodyBytes caps request bodies; larger requests get 413.
	MaxBodyBytes int64 `yaml:"max_body_bytes" json:"max_body_bytes" env:"CALPIN_MAX_BODY_BYTES"`

	// BasicAuth protects every endpoint except /health once a username is set.
	BasicAuth BasicAuthConfig `yaml:"basic_auth" json:"basic_auth"`
}

// DefaultMaxBodyBytes is the request body cap when none is configured.
const DefaultMaxBodyBytes int64 = 1 << 20

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:   "127.0.0.1:8080",
		LogLevel: "info",
		Database: DatabaseConfig{Driver: DriverMemory},
		Redis:    RedisConfig{TTLSeconds: 300},
		Export: ExportConfig{
			Name: "calpin",
			Cron: "*/15 * * * *",
		},
		MaxBodyBytes: DefaultMaxBodyBytes,
	}
}

// Normalize fills in missing values so partially written files still work.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = "127.0.0.1:8080"
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
		c.LogLevel = strings.ToLower(c.LogLevel)
	default:
		c.LogLevel = "info"
	}
	c.Database.Driver = strings.ToLower(strings.TrimSpace(c.Database.Driver))
	if c.Database.Driver == "" {
		c.Database.Driver = DriverMemory
	}
	if c.Redis.TTLSeconds <= 0 {
		c.Redis.TTLSeconds = 300
	}
	if c.Export.Name == "" {
		c.Export.Name = "calpin"
	}
	if c.Export.Cron == "" {
		c.Export.Cron = "*/15 * * * *"
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = DefaultMaxBodyBytes
	}
}

// Validate reports settings that cannot work together.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverMemory:
	case DriverPostgres:
		if c.Database.URL == "" {
			return errors.New("database.url is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}
	if c.BasicAuth.Enabled() && c.BasicAuth.Password == "" {
		return errors.New("basic_auth.password is required when basic_auth.username is set")
	}
	return nil
}

// ApplyEnv overrides fields from CALPIN_* environment variables. Unset
// variables leave the file values alone.
func (c *Config) ApplyEnv() error {
	if err := env.Parse(c); err != nil {
		return fmt.Errorf("parse environment: %w", err)
	}
	c.Normalize()
	return nil
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - return the default config
//   - If the file exists:
//   - read YAML and unmarshal into Config
//   - normalize defaults
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.Normalize()

	return cfg, nil
}

// Save writes cfg to path atomically with 0600 permissions, creating the
// parent directory (0700) when needed.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".calpin-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// Save delegates to the package-level Save.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
