// Package config handles configuration loading for coven-settings.
//
// # Overview
//
// Configuration is loaded from a YAML or TOML file (chosen by extension)
// with environment variable expansion, then overridden by SETTINGS_*
// environment variables and command-line flags through viper.
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	database:
//	  dsn: "${DATABASE_URL}"
//
// Syntax: ${VAR_NAME}
//
// # Configuration Sections
//
// Database:
//
//	database:
//	  driver: "sqlite"            # sqlite, sqlite3, postgres
//	  path: "/var/lib/coven/settings.db"
//	  dsn: ""                     # postgres only
//	  table: "settings"
//
// Cache:
//
//	cache:
//	  enabled: true
//	  key_prefix: "settings"      # entries are <prefix>.all and <prefix>.rules
//	  ttl: "10m"                  # omit to cache until invalidated
//
// Logging:
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
//
// Declared defaults (checked, never written to the store):
//
//	defaults:
//	  site_name:
//	    value: "Coven"
//	    type: "string"
//	    scope: "general"
//
// # Overrides
//
// NewViper binds SETTINGS_DRIVER, SETTINGS_DB, SETTINGS_DSN, SETTINGS_TABLE,
// SETTINGS_CACHE_ENABLED, SETTINGS_CACHE_PREFIX, SETTINGS_CACHE_TTL,
// SETTINGS_LOG_LEVEL, SETTINGS_LOG_FORMAT, SETTINGS_LOG_FILE and
// SETTINGS_CONFIG. ApplyOverrides copies whatever is set onto a Config.
// Flags bound to the same viper instance take precedence over the
// environment.
//
// # Validation
//
// Validate reports every problem at once (hashicorp/go-multierror):
// unknown drivers, missing path or DSN, invalid table names, negative TTLs,
// unknown log levels and formats, and unknown types in defaults.
package config
