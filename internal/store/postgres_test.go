// ABOUTME: Integration tests for PostgresStore against a gnomock PostgreSQL container
// ABOUTME: Skipped unless SETTINGS_TEST_POSTGRES=1 because they need a Docker daemon

package store

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/orlangure/gnomock"
	pgpreset "github.com/orlangure/gnomock/preset/postgres"
	"github.com/stretchr/testify/require"
)

func startPostgres(t *testing.T) string {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}
	if os.Getenv("SETTINGS_TEST_POSTGRES") != "1" {
		t.Skip("set SETTINGS_TEST_POSTGRES=1 to run postgres integration tests")
	}

	preset := pgpreset.Preset(
		pgpreset.WithUser("settings", "settings"),
		pgpreset.WithDatabase("settings_test"),
	)

	container, err := gnomock.Start(preset)
	require.NoError(t, err, "starting postgres container")
	t.Cleanup(func() {
		_ = gnomock.Stop(container)
	})

	return fmt.Sprintf("postgres://settings:settings@%s/settings_test?sslmode=disable",
		container.DefaultAddress())
}

func TestPostgresStore_Contract(t *testing.T) {
	dsn := startPostgres(t)

	// Each subtest gets its own table so they don't see each other's rows
	n := 0
	runStoreSuite(t, func(t *testing.T) Store {
		n++
		s, err := NewPostgresStore(context.Background(), dsn, WithTable(fmt.Sprintf("settings_%d", n)))
		require.NoError(t, err)
		t.Cleanup(func() { s.Close() })
		return s
	})
}

func TestPostgresStore_InvalidTable(t *testing.T) {
	_, err := NewPostgresStore(context.Background(), "postgres://localhost/none", WithTable("bad name"))
	require.Error(t, err)
}
