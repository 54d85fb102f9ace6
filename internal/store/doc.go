// Package store provides persistent storage for settings rows.
//
// # Architecture
//
// The Store interface covers primary-key reads, writes and deletes on a single
// table, plus the two listing queries the settings engine needs:
//
//   - SQLiteStore: database/sql on modernc.org/sqlite (driver "sqlite") or
//     mattn/go-sqlite3 (driver "sqlite3")
//   - PostgresStore: pgx/v5 connection pool
//   - MockStore: in-memory implementation that also counts calls
//
// # Table Layout
//
//	key         TEXT PRIMARY KEY
//	value       TEXT NULL      -- encoded value
//	type        TEXT NOT NULL  -- string, integer, boolean, array, regex (or an alias)
//	scope       TEXT NULL
//	editable    BOOLEAN NOT NULL DEFAULT TRUE
//	rules       TEXT NULL      -- pipe-delimited validation rules
//	description TEXT NULL
//
// Indexes are created on scope, type and (scope, type). The table name
// defaults to "settings" and can be changed with WithTable; it must be a
// plain SQL identifier.
//
// # Error Handling
//
//   - ErrNotFound: the key does not exist (get, update, delete)
//   - ErrDuplicateKey: create on an existing key
//
// All methods accept context.Context for cancellation support.
//
// # Testing
//
// Use NewMockStore() for unit tests and NewSQLiteStore on a file in
// t.TempDir() for integration tests. PostgresStore tests run against a
// gnomock container when SETTINGS_TEST_POSTGRES=1.
package store
