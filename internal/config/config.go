package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cyp0633/libslots/recurrence"
	"github.com/cyp0633/libslots/slot"
	"github.com/cyp0633/libslots/storage"
)

// Storage drivers.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
)

const (
	defaultListen   = "127.0.0.1:8080"
	defaultTimezone = "Asia/Tokyo"
	defaultLogLevel = "info"
	defaultDSN      = "slots.db"
)

// StorageConfig selects the slot store.
type StorageConfig struct {
	// Driver is "memory" or "sqlite".
	Driver string `yaml:"driver"`
	// DSN is the SQLite database file. Ignored by the memory driver.
	DSN string `yaml:"dsn"`
}

// PreviewCacheConfig controls memoisation of recurrence previews.
type PreviewCacheConfig struct {
	Enabled    bool          `yaml:"enabled"`
	TTL        time.Duration `yaml:"ttl"`
	MaxEntries int           `yaml:"max_entries"`
}

// UserConfig is a Basic auth account.
type UserConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	ReadOnly bool   `yaml:"read_only"`
}

// TokenConfig is a bearer token for service clients.
type TokenConfig struct {
	ID       string `yaml:"id"`
	Token    string `yaml:"token"`
	ReadOnly bool   `yaml:"read_only"`
}

// AuthConfig enables authentication on every endpoint except /health.
type AuthConfig struct {
	Realm  string        `yaml:"realm"`
	Users  []UserConfig  `yaml:"users"`
	Tokens []TokenConfig `yaml:"tokens"`
}

// Config is the daemon configuration.
type Config struct {
	// Listen is the HTTP listen address.
	Listen string `yaml:"listen"`

	// Timezone is the IANA zone every slot is read and written in.
	Timezone string `yaml:"timezone"`

	// Locale of month headers and range labels: "ja" or "en".
	Locale string `yaml:"locale"`

	// Summary is the event title of calendar exports.
	Summary string `yaml:"summary"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	Storage StorageConfig `yaml:"storage"`

	// CompletionSweep is the cron spec (with seconds) of the job that marks
	// ended slots as completed. Empty disables it.
	CompletionSweep string `yaml:"completion_sweep"`

	PreviewCache PreviewCacheConfig `yaml:"preview_cache"`

	// Auth, if non-nil, requires credentials.
	Auth *AuthConfig `yaml:"auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:          defaultListen,
		Timezone:        defaultTimezone,
		Locale:          string(slot.LocaleJapanese),
		LogLevel:        defaultLogLevel,
		Storage:         StorageConfig{Driver: DriverSQLite, DSN: defaultDSN},
		CompletionSweep: storage.DefaultSweepSpec,
		PreviewCache: PreviewCacheConfig{
			Enabled:    true,
			TTL:        recurrence.DefaultCacheConfig.TTL,
			MaxEntries: recurrence.DefaultCacheConfig.MaxEntries,
		},
	}
}

// Normalize fills in missing values so partially filled files still work.
// Unknown locales and log levels fall back to their defaults.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.Timezone == "" {
		c.Timezone = defaultTimezone
	}
	if locale, err := slot.ParseLocale(c.Locale); err == nil {
		c.Locale = string(locale)
	} else {
		c.Locale = string(slot.LocaleJapanese)
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
		c.LogLevel = strings.ToLower(c.LogLevel)
	default:
		c.LogLevel = defaultLogLevel
	}

	switch strings.ToLower(c.Storage.Driver) {
	case DriverMemory, DriverSQLite:
		c.Storage.Driver = strings.ToLower(c.Storage.Driver)
	default:
		c.Storage.Driver = DriverSQLite
	}
	if c.Storage.Driver == DriverSQLite && c.Storage.DSN == "" {
		c.Storage.DSN = defaultDSN
	}

	if c.PreviewCache.TTL <= 0 {
		c.PreviewCache.TTL = recurrence.DefaultCacheConfig.TTL
	}
	if c.PreviewCache.MaxEntries <= 0 {
		c.PreviewCache.MaxEntries = recurrence.DefaultCacheConfig.MaxEntries
	}
}

// Validate reports settings that cannot be defaulted.
func (c *Config) Validate() error {
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	if c.Auth != nil && len(c.Auth.Users)+len(c.Auth.Tokens) == 0 {
		return errors.New("auth is enabled without users or tokens")
	}
	return nil
}

// SlogLevel converts LogLevel for a slog handler.
func (c *Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// CacheConfig converts the preview cache settings for the engine.
func (c *Config) CacheConfig() recurrence.CacheConfig {
	return recurrence.CacheConfig{
		TTL:             c.PreviewCache.TTL,
		MaxEntries:      c.PreviewCache.MaxEntries,
		CleanupInterval: recurrence.DefaultCacheConfig.CleanupInterval,
	}
}

// Load reads the YAML file at path. A missing file is created with the
// defaults and 0600 permissions.
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

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes cfg to path through a temp file and rename.
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

	tmp, err := os.CreateTemp(dir, ".slotd-config-*.tmp")
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

// Save writes c to path.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
