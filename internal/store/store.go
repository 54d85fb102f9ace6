// ABOUTME: Store interface and row type for the settings table
// ABOUTME: Defines Setting and the Store interface implemented by every backend

package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"
)

// ErrNotFound is returned when a requested setting does not exist
var ErrNotFound = errors.New("not found")

// ErrDuplicateKey is returned when creating a setting whose key already exists
var ErrDuplicateKey = errors.New("setting already exists")

// DefaultTable is the table name used when none is configured
const DefaultTable = "settings"

// Setting is one row of the settings table.
//
// Value holds the encoded representation. Every encoding produced by the
// settings engine is non-empty, so an empty Value is stored as NULL and a NULL
// column is read back as "". The same applies to Scope, Rules and Description.
type Setting struct {
	Key         string
	Value       string
	Type        string
	Scope       string
	Editable    bool
	Rules       string
	Description string
}

// Clone returns a copy of the row
func (s *Setting) Clone() *Setting {
	c := *s
	return &c
}

// Store defines persistence for settings rows
type Store interface {
	// GetSetting returns the row for key, or ErrNotFound
	GetSetting(ctx context.Context, key string) (*Setting, error)

	// ListSettings returns every row ordered by key
	ListSettings(ctx context.Context) ([]*Setting, error)

	// ListSettingsByScope returns the rows whose scope equals scope, ordered by key
	ListSettingsByScope(ctx context.Context, scope string) ([]*Setting, error)

	// CreateSetting inserts a row, returning ErrDuplicateKey if the key exists
	CreateSetting(ctx context.Context, setting *Setting) error

	// UpdateSetting replaces every column of an existing row, or returns ErrNotFound
	UpdateSetting(ctx context.Context, setting *Setting) error

	// DeleteSetting removes a row, or returns ErrNotFound
	DeleteSetting(ctx context.Context, key string) error

	// ValidationRules computes "<rules>|<type>" (or "<type>" when rules is
	// empty) for every row in a single query, keyed by setting key
	ValidationRules(ctx context.Context) (map[string]string, error)

	// Close releases any resources held by the store
	Close() error
}

// Option configures a store backend
type Option func(*options)

type options struct {
	table  string
	driver string
}

// WithTable overrides the settings table name
func WithTable(table string) Option {
	return func(o *options) {
		if table != "" {
			o.table = table
		}
	}
}

// WithDriver selects the database/sql driver used by SQLiteStore:
// "sqlite" (modernc.org/sqlite, the default) or "sqlite3" (mattn/go-sqlite3)
func WithDriver(driver string) Option {
	return func(o *options) {
		if driver != "" {
			o.driver = driver
		}
	}
}

func buildOptions(opts []Option) (options, error) {
	o := options{
		table:  DefaultTable,
		driver: DriverSQLite,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if err := ValidateTableName(o.table); err != nil {
		return o, err
	}
	return o, nil
}

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}$`)

// ValidateTableName rejects anything that is not a plain SQL identifier.
// The table name is interpolated into statements, so this is the only guard.
func ValidateTableName(name string) error {
	if !identRe.MatchString(name) {
		return fmt.Errorf("invalid table name %q", name)
	}
	return nil
}

// nullString returns nil for empty strings, otherwise the string
func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
