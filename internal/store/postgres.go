// ABOUTME: PostgreSQL implementation of the Store interface using a pgx connection pool
// ABOUTME: Creates the settings table and indexes on connect and maps pgx errors to store sentinels

package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// pgUniqueViolation is the SQLSTATE for unique_violation
const pgUniqueViolation = "23505"

// PostgresStore implements the Store interface on PostgreSQL
type PostgresStore struct {
	pool   *pgxpool.Pool
	table  string
	logger *slog.Logger
}

// NewPostgresStore connects to the database at connString and ensures the
// settings table exists.
func NewPostgresStore(ctx context.Context, connString string, opts ...Option) (*PostgresStore, error) {
	o, err := buildOptions(opts)
	if err != nil {
		return nil, err
	}

	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	s := &PostgresStore{
		pool:   pool,
		table:  o.table,
		logger: slog.Default().With("component", "store", "backend", "postgres"),
	}

	if err := s.createSchema(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	s.logger.Info("Postgres store initialized", "host", cfg.ConnConfig.Host, "database", cfg.ConnConfig.Database, "table", o.table)
	return s, nil
}

func (s *PostgresStore) createSchema(ctx context.Context) error {
	statements := []string{
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				"key"       TEXT PRIMARY KEY,
				"value"     TEXT,
				type        TEXT NOT NULL,
				scope       TEXT,
				editable    BOOLEAN NOT NULL DEFAULT TRUE,
				rules       TEXT,
				description TEXT
			)`, s.table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%[1]s_scope ON %[1]s (scope)`, s.table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%[1]s_type ON %[1]s (type)`, s.table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%[1]s_scope_type ON %[1]s (scope, type)`, s.table),
	}

	for _, stmt := range statements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the connection pool
func (s *PostgresStore) Close() error {
	s.logger.Info("closing Postgres store")
	s.pool.Close()
	return nil
}

func (s *PostgresStore) columns() string {
	return `"key", "value", type, scope, editable, rules, description`
}

func scanPgSetting(row pgx.Row) (*Setting, error) {
	var setting Setting
	var value, scope, rules, description *string
	var editable *bool

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

	setting.Value = deref(value)
	setting.Scope = deref(scope)
	setting.Rules = deref(rules)
	setting.Description = deref(description)
	setting.Editable = editable == nil || *editable

	return &setting, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// GetSetting retrieves a setting by key.
// Returns ErrNotFound if the setting doesn't exist.
func (s *PostgresStore) GetSetting(ctx context.Context, key string) (*Setting, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE "key" = $1`, s.columns(), s.table)

	setting, err := scanPgSetting(s.pool.QueryRow(ctx, query, key))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying setting: %w", err)
	}
	return setting, nil
}

// ListSettings returns every setting ordered by key
func (s *PostgresStore) ListSettings(ctx context.Context) ([]*Setting, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s ORDER BY "key"`, s.columns(), s.table)
	return s.querySettings(ctx, query)
}

// ListSettingsByScope returns the settings with the given scope ordered by key
func (s *PostgresStore) ListSettingsByScope(ctx context.Context, scope string) ([]*Setting, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE scope = $1 ORDER BY "key"`, s.columns(), s.table)
	return s.querySettings(ctx, query, scope)
}

func (s *PostgresStore) querySettings(ctx context.Context, query string, args ...any) ([]*Setting, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying settings: %w", err)
	}
	defer rows.Close()

	var settings []*Setting
	for rows.Next() {
		setting, err := scanPgSetting(rows)
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
func (s *PostgresStore) CreateSetting(ctx context.Context, setting *Setting) error {
	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES ($1, $2, $3, $4, $5, $6, $7)`, s.table, s.columns())

	_, err := s.pool.Exec(ctx, query,
		setting.Key,
		nullString(setting.Value),
		setting.Type,
		nullString(setting.Scope),
		setting.Editable,
		nullString(setting.Rules),
		nullString(setting.Description),
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return ErrDuplicateKey
		}
		return fmt.Errorf("inserting setting: %w", err)
	}

	s.logger.Debug("created setting", "key", setting.Key, "type", setting.Type)
	return nil
}

// UpdateSetting replaces the columns of an existing setting.
// Returns ErrNotFound if the setting doesn't exist.
func (s *PostgresStore) UpdateSetting(ctx context.Context, setting *Setting) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET "value" = $1, type = $2, scope = $3, editable = $4, rules = $5, description = $6
		WHERE "key" = $7
	`, s.table)

	tag, err := s.pool.Exec(ctx, query,
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
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	s.logger.Debug("updated setting", "key", setting.Key)
	return nil
}

// DeleteSetting removes a setting.
// Returns ErrNotFound if the setting doesn't exist.
func (s *PostgresStore) DeleteSetting(ctx context.Context, key string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE "key" = $1`, s.table)

	tag, err := s.pool.Exec(ctx, query, key)
	if err != nil {
		return fmt.Errorf("deleting setting: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	s.logger.Debug("deleted setting", "key", key)
	return nil
}

// ValidationRules builds the key -> effective rule map with concat_ws
func (s *PostgresStore) ValidationRules(ctx context.Context) (map[string]string, error) {
	query := fmt.Sprintf(`
		SELECT "key", concat_ws('|', NULLIF(rules, ''), type)
		FROM %s
	`, s.table)

	rows, err := s.pool.Query(ctx, query)
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
