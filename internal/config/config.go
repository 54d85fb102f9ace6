// ABOUTME: Configuration loading and parsing for coven-settings
// ABOUTME: YAML or TOML files with environment variable expansion, defaults and viper overrides

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/hashicorp/go-multierror"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/2389/coven-settings/internal/settings"
	"github.com/2389/coven-settings/internal/store"
)

// Supported database drivers
const (
	DriverSQLite   = store.DriverSQLite
	DriverSQLite3  = store.DriverSQLite3
	DriverPostgres = "postgres"
)

// EnvPrefix prefixes every environment override, e.g. SETTINGS_TABLE
const EnvPrefix = "SETTINGS"

// Config represents the complete coven-settings configuration
type Config struct {
	Database DatabaseConfig           `yaml:"database" toml:"database"`
	Cache    CacheConfig              `yaml:"cache" toml:"cache"`
	Logging  LoggingConfig            `yaml:"logging" toml:"logging"`
	Defaults map[string]DefaultConfig `yaml:"defaults" toml:"defaults"`
}

// DatabaseConfig selects the settings store backend
type DatabaseConfig struct {
	Driver string `yaml:"driver" toml:"driver"`
	Path   string `yaml:"path" toml:"path"` // sqlite file
	DSN    string `yaml:"dsn" toml:"dsn"`   // postgres connection string
	Table  string `yaml:"table" toml:"table"`
}

// CacheConfig holds settings cache configuration
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" toml:"enabled"`
	KeyPrefix string        `yaml:"key_prefix" toml:"key_prefix"`
	TTL       time.Duration `yaml:"-" toml:"-"` // zero caches until invalidated

	// Raw string value for unmarshaling
	TTLRaw string `yaml:"ttl" toml:"ttl"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// DefaultConfig declares a setting with its initial value. Declarations are
// checked when loading but not written to the store.
type DefaultConfig struct {
	Value       any    `yaml:"value" toml:"value"`
	Type        string `yaml:"type" toml:"type"`
	Scope       string `yaml:"scope" toml:"scope"`
	Rules       string `yaml:"rules" toml:"rules"`
	Description string `yaml:"description" toml:"description"`
	Editable    *bool  `yaml:"editable" toml:"editable"`
}

// Default returns the configuration used when no file is given
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver: DriverSQLite,
			Path:   "settings.db",
			Table:  store.DefaultTable,
		},
		Cache: CacheConfig{
			Enabled:   true,
			KeyPrefix: settings.DefaultCachePrefix,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Files ending in .toml are parsed as TOML, everything else as YAML.
// Environment variables in the format ${VAR_NAME} are expanded.
// Fields missing from the file keep the values from Default.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the raw content
	expanded := expandEnvVars(string(data))

	cfg := Default()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.Decode(expanded, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	default:
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := parseDurations(cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	if cfg.Cache.TTLRaw == "" {
		return nil
	}

	ttl, err := time.ParseDuration(cfg.Cache.TTLRaw)
	if err != nil {
		return fmt.Errorf("parsing cache.ttl %q: %w", cfg.Cache.TTLRaw, err)
	}
	cfg.Cache.TTL = ttl
	return nil
}

// Validate checks every field and reports all problems at once.
func (c *Config) Validate() error {
	var result *multierror.Error

	switch c.Database.Driver {
	case DriverSQLite, DriverSQLite3:
		if c.Database.Path == "" {
			result = multierror.Append(result, fmt.Errorf("database.path is required for driver %q", c.Database.Driver))
		}
	case DriverPostgres:
		if c.Database.DSN == "" {
			result = multierror.Append(result, fmt.Errorf("database.dsn is required for driver %q", c.Database.Driver))
		}
	default:
		result = multierror.Append(result, fmt.Errorf("database.driver %q is not one of sqlite, sqlite3, postgres", c.Database.Driver))
	}

	if err := store.ValidateTableName(c.Database.Table); err != nil {
		result = multierror.Append(result, fmt.Errorf("database.table: %w", err))
	}

	if c.Cache.TTL < 0 {
		result = multierror.Append(result, fmt.Errorf("cache.ttl must not be negative"))
	}
	if c.Cache.Enabled && c.Cache.KeyPrefix == "" {
		result = multierror.Append(result, fmt.Errorf("cache.key_prefix is required when the cache is enabled"))
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		result = multierror.Append(result, fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level))
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		result = multierror.Append(result, fmt.Errorf("logging.format %q is not one of text, json", c.Logging.Format))
	}

	for key, def := range c.Defaults {
		typ := def.Type
		if typ == "" {
			typ = string(settings.TypeString)
		}
		if _, err := settings.ParseType(typ); err != nil {
			result = multierror.Append(result, fmt.Errorf("defaults.%s: %w", key, err))
		}
	}

	return result.ErrorOrNil()
}

// CacheSettings converts the cache section into the registry's cache configuration.
func (c *Config) CacheSettings() settings.CacheConfig {
	return settings.CacheConfig{
		Enabled: c.Cache.Enabled,
		Prefix:  c.Cache.KeyPrefix,
		TTL:     c.Cache.TTL,
	}
}

// Override keys understood by NewViper and ApplyOverrides. Each one is also
// read from the environment as SETTINGS_<KEY>, e.g. SETTINGS_CACHE_TTL.
const (
	KeyConfig       = "config"
	KeyDriver       = "driver"
	KeyDB           = "db"
	KeyDSN          = "dsn"
	KeyTable        = "table"
	KeyCacheEnabled = "cache_enabled"
	KeyCachePrefix  = "cache_prefix"
	KeyCacheTTL     = "cache_ttl"
	KeyLogLevel     = "log_level"
	KeyLogFormat    = "log_format"
	KeyLogFile      = "log_file"
)

var overrideKeys = []string{
	KeyConfig, KeyDriver, KeyDB, KeyDSN, KeyTable,
	KeyCacheEnabled, KeyCachePrefix, KeyCacheTTL,
	KeyLogLevel, KeyLogFormat, KeyLogFile,
}

// NewViper returns a viper instance reading SETTINGS_* environment variables
// for every override key. Callers bind command-line flags on top.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	for _, key := range overrideKeys {
		_ = v.BindEnv(key)
	}
	return v
}

// ApplyOverrides copies every override set in v (by flag or environment)
// onto cfg and validates the result.
func ApplyOverrides(cfg *Config, v *viper.Viper) error {
	if v.IsSet(KeyDriver) {
		cfg.Database.Driver = v.GetString(KeyDriver)
	}
	if v.IsSet(KeyDB) {
		cfg.Database.Path = v.GetString(KeyDB)
	}
	if v.IsSet(KeyDSN) {
		cfg.Database.DSN = v.GetString(KeyDSN)
	}
	if v.IsSet(KeyTable) {
		cfg.Database.Table = v.GetString(KeyTable)
	}
	if v.IsSet(KeyCacheEnabled) {
		cfg.Cache.Enabled = v.GetBool(KeyCacheEnabled)
	}
	if v.IsSet(KeyCachePrefix) {
		cfg.Cache.KeyPrefix = v.GetString(KeyCachePrefix)
	}
	if v.IsSet(KeyCacheTTL) {
		cfg.Cache.TTLRaw = v.GetString(KeyCacheTTL)
		cfg.Cache.TTL = 0
		if err := parseDurations(cfg); err != nil {
			return err
		}
	}
	if v.IsSet(KeyLogLevel) {
		cfg.Logging.Level = v.GetString(KeyLogLevel)
	}
	if v.IsSet(KeyLogFormat) {
		cfg.Logging.Format = v.GetString(KeyLogFormat)
	}

	return cfg.Validate()
}
