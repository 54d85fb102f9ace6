// ABOUTME: Root cobra command with persistent flags for config, store and logging
// ABOUTME: Builds the store and settings registry before any subcommand runs

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/2389/coven-settings/internal/config"
	"github.com/2389/coven-settings/internal/settings"
	"github.com/2389/coven-settings/internal/store"
)

// app carries what the subcommands share for one invocation
type app struct {
	v        *viper.Viper
	cfg      *config.Config
	store    store.Store
	registry *settings.Registry
	closers  []func() error
}

// newRootCmd builds the command tree. Callers close the returned app once
// Execute returns.
func newRootCmd() (*cobra.Command, *app) {
	a := &app{v: config.NewViper()}

	root := &cobra.Command{
		Use:   "coven-settings",
		Short: "Inspect and edit typed application settings",
		Long: `coven-settings manages a table of typed key/value settings.
Each setting declares a type (string, integer, boolean, array, regex),
optional validation rules, a scope and an editable flag.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.open(cmd.Context())
		},
	}

	flags := root.PersistentFlags()
	flags.String("config", "", "config file (YAML or TOML) [$SETTINGS_CONFIG]")
	flags.String("driver", "", "store driver: sqlite, sqlite3 or postgres [$SETTINGS_DRIVER]")
	flags.String("db", "", "sqlite database path [$SETTINGS_DB]")
	flags.String("dsn", "", "postgres connection string [$SETTINGS_DSN]")
	flags.String("table", "", "settings table name [$SETTINGS_TABLE]")
	flags.Bool("cache", true, "cache settings in memory [$SETTINGS_CACHE_ENABLED]")
	flags.String("cache-prefix", "", "cache entry prefix [$SETTINGS_CACHE_PREFIX]")
	flags.String("cache-ttl", "", "cache lifetime, e.g. 10m; empty caches until invalidated [$SETTINGS_CACHE_TTL]")
	flags.String("log-level", "", "log level: debug, info, warn, error [$SETTINGS_LOG_LEVEL]")
	flags.String("log-format", "", "log format: text or json [$SETTINGS_LOG_FORMAT]")
	flags.String("log-file", "", "also write JSON logs to this file [$SETTINGS_LOG_FILE]")

	for key, flag := range map[string]string{
		config.KeyConfig:       "config",
		config.KeyDriver:       "driver",
		config.KeyDB:           "db",
		config.KeyDSN:          "dsn",
		config.KeyTable:        "table",
		config.KeyCacheEnabled: "cache",
		config.KeyCachePrefix:  "cache-prefix",
		config.KeyCacheTTL:     "cache-ttl",
		config.KeyLogLevel:     "log-level",
		config.KeyLogFormat:    "log-format",
		config.KeyLogFile:      "log-file",
	} {
		_ = a.v.BindPFlag(key, flags.Lookup(flag))
	}

	root.AddCommand(
		newListCmd(a),
		newGetCmd(a),
		newSetCmd(a),
		newRemoveCmd(a),
		newCacheFlushCmd(a),
	)

	return root, a
}

// open loads configuration, installs the logger and connects the store
func (a *app) open(ctx context.Context) error {
	cfg := config.Default()
	if path := a.v.GetString(config.KeyConfig); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if err := config.ApplyOverrides(cfg, a.v); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	a.cfg = cfg

	logger, closeLog, err := setupLogger(cfg.Logging, a.v.GetString(config.KeyLogFile), os.Stderr)
	if err != nil {
		return err
	}
	a.closers = append(a.closers, closeLog)
	slog.SetDefault(logger)

	st, err := openStore(ctx, cfg.Database)
	if err != nil {
		return err
	}
	a.store = st
	a.closers = append(a.closers, st.Close)

	a.registry = settings.New(st, settings.NewCache(nil, cfg.CacheSettings()))
	settings.SetDefault(a.registry)
	return nil
}

func (a *app) close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// openStore connects the backend named by the database section
func openStore(ctx context.Context, db config.DatabaseConfig) (store.Store, error) {
	switch db.Driver {
	case config.DriverPostgres:
		st, err := store.NewPostgresStore(ctx, db.DSN, store.WithTable(db.Table))
		if err != nil {
			return nil, fmt.Errorf("opening postgres store: %w", err)
		}
		return st, nil
	case config.DriverSQLite, config.DriverSQLite3:
		st, err := store.NewSQLiteStore(db.Path, store.WithTable(db.Table), store.WithDriver(db.Driver))
		if err != nil {
			return nil, fmt.Errorf("opening sqlite store: %w", err)
		}
		return st, nil
	default:
		return nil, fmt.Errorf("unsupported driver %q", db.Driver)
	}
}
