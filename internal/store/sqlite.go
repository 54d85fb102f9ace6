// ABOUTME: SQLite implementation of the Store interface using modernc.org/sqlite
// ABOUTME: Creates the settings table and its indexes on open; mattn/go-sqlite3 is selectable

package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"
)

// Driver names accepted by WithDriver
const (
	DriverSQLite  = "sqlite"
	DriverSQLite3 = "sqlite3"
)

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db     *sql.DB
	table  string
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite store at the given path.
// The settings table is automatically created if it doesn't exist.
// Parent directories are created if needed.
func NewSQLiteStore(path string, opts ...Option) (*SQLiteStore, error) {
	o, err := buildOptions(opts)
	if err != nil {
		return nil, err
	}
	if o.driver != DriverSQLite && o.driver != DriverSQLite3 {
		return nil, fmt.Errorf("unsupported sqlite driver %q", o.driver)
	}

	logger := slog.Default().With("component", "store", "backend", "sqlite")

	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open(o.driver, path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// A single connection keeps :memory: databases coherent and serialises writers
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		table:  o.table,
		logger: logger,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("SQLite store initialized", "path", path, "table", o.table, "driver", o.driver)
	return s, nil
}

// createSchema creates the settings table and its indexes if they don't exist
func (s *SQLiteStore) createSchema() error {
	schema := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %[1]s (
			"key"       TEXT PRIMARY KEY,
			"value"     TEXT,
			type        TEXT NOT NULL,
			scope       TEXT,
			editable    BOOLEAN NOT NULL DEFAULT 1,
			rules       TEXT,
			description TEXT
		);

		CREATE INDEX IF NOT EXISTS idx_%[1]s_scope ON %[1]s(scope);
		CREATE INDEX IF NOT EXISTS idx_%[1]s_type ON %[1]s(type);
		CREATE INDEX IF NOT EXISTS idx_%[1]s_scope_type ON %[1]s(scope, type);
	`, s.table)

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	s.logger.Info("closing SQLite store")
	return s.db.Close()
}

// isConstraintViolation checks if the error is a SQLite UNIQUE constraint violation
func isConstraintViolation(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "UNIQUE constraint failed") ||
		strings.Contains(errStr, "constraint failed")
}

func (s *SQLiteStore) columns() string {
	return `"key", "value", type, scope, editable, rules, description`
}

// scanner is satisfied by *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...any) error
}

func scanSetting(row scanner) (*Setting, error) {
	var setting Setting
	var value, scope, rules, description sql.NullString
	var editable sql.NullBool

	if err := row.Scan(
		&setting.Key,
		&value,
		&setting.Type,
		&scope,
		&editable,
		&rules,
		&description,
	); err != nil {
		return nil, err
	}

	setting.Value = value.String
	setting.Scope = scope.String
	setting.Rules = rules.String
	setting.Description = description.String
	// NULL editable reads as editable
	setting.Editable = !editable.Valid || editable.Bool

	return &setting, nil
}

// GetSetting retrieves a setting by key.
// Returns ErrNotFound if the setting doesn't exist.
func (s *SQLiteStore) GetSetting(ctx context.Context, key string) (*Setting, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE "key" = ?`, s.columns(), s.table)

	setting, err := scanSetting(s.db.QueryRowContext(ctx, query, key))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying setting: %w", err)
	}
	return setting, nil
}

// ListSettings returns every setting ordered by key
func (s *SQLiteStore) ListSettings(ctx context.Context) ([]*Setting, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s ORDER BY "key"`, s.columns(), s.table)
	return s.querySettings(ctx, query)
}

// ListSettingsByScope returns the settings with the given scope ordered by key
func (s *SQLiteStore) ListSettingsByScope(ctx context.Context, scope string) ([]*Setting, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE scope = ? ORDER BY "key"`, s.columns(), s.table)
	return s.querySettings(ctx, query, scope)
}

func (s *SQLiteStore) querySettings(ctx context.Context, query string, args ...any) ([]*Setting, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying settings: %w", err)
	}
	defer rows.Close()

	var settings []*Setting
	for rows.Next() {
		setting, err := scanSetting(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning setting: %w", err)
		}
		settings = append(settings, setting)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating settings: %w", err)
	}

	return settings, nil
}

// CreateSetting inserts a new setting.
// Returns ErrDuplicateKey if the key already exists.
func (s *SQLiteStore) CreateSetting(ctx context.Context, setting *Setting) error {
	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (?, ?, ?, ?, ?, ?, ?)`, s.table, s.columns())

	_, err := s.db.ExecContext(ctx, query,
		setting.Key,
		nullString(setting.Value),
		setting.Type,
		nullString(setting.Scope),
		setting.Editable,
		nullString(setting.Rules),
		nullString(setting.Description),
	)
	if err != nil {
		if isConstraintViolation(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("inserting setting: %w", err)
	}

	s.logger.Debug("created setting", "key", setting.Key, "type", setting.Type)
	return nil
}

// UpdateSetting replaces the columns of an existing setting.
// Returns ErrNotFound if the setting doesn't exist.
func (s *SQLiteStore) UpdateSetting(ctx context.Context, setting *Setting) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET "value" = ?, type = ?, scope = ?, editable = ?, rules = ?, description = ?
		WHERE "key" = ?
	`, s.table)

	result, err := s.db.ExecContext(ctx, query,
		nullString(setting.Value),
		setting.Type,
		nullString(setting.Scope),
		setting.Editable,
		nullString(setting.Rules),
		nullString(setting.Description),
		setting.Key,
	)
	if err != nil {
		return fmt.Errorf("updating setting: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	s.logger.Debug("updated setting", "key", setting.Key)
	return nil
}

// DeleteSetting removes a setting.
// Returns ErrNotFound if the setting doesn't exist.
func (s *SQLiteStore) DeleteSetting(ctx context.Context, key string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE "key" = ?`, s.table)

	result, err := s.db.ExecContext(ctx, query, key)
	if err != nil {
		return fmt.Errorf("deleting setting: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	s.logger.Debug("deleted setting", "key", key)
	return nil
}

// ValidationRules builds the key -> effective rule map with SQLite's printf
func (s *SQLiteStore) ValidationRules(ctx context.Context) (map[string]string, error) {
	query := fmt.Sprintf(`
		SELECT "key",
			CASE WHEN rules IS NULL OR rules = '' THEN type
			ELSE printf('%%s|%%s', rules, type) END
		FROM %s
	`, s.table)

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying validation rules: %w", err)
	}
	defer rows.Close()

	rules := make(map[string]string)
	for rows.Next() {
		var key, rule string
		if err := rows.Scan(&key, &rule); err != nil {
			return nil, fmt.Errorf("scanning validation rule: %w", err)
		}
		rules[key] = rule
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating validation rules: %w", err)
	}

	return rules, nil
}
