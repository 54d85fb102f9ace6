// ABOUTME: Tests for the settings registry against MockStore and SQLite
// ABOUTME: Covers lookups, writes, type immutability, validation, scopes and removal

package settings

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/coven-settings/internal/store"
)

func newTestRegistry(t *testing.T) (*Registry, *store.MockStore) {
	t.Helper()
	ms := store.NewMockStore()
	return New(ms, NewCache(nil, CacheConfig{Enabled: true})), ms
}

func newSQLiteRegistry(t *testing.T) *Registry {
	t.Helper()
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "settings.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return New(s, NewCache(nil, CacheConfig{Enabled: true}))
}

func boolPtr(b bool) *bool { return &b }

func TestRegistry_SetCreatesWithDefaults(t *testing.T) {
	r, ms := newTestRegistry(t)
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, "site_name", "Coven", Attributes{}))

	row, err := ms.GetSetting(ctx, "site_name")
	require.NoError(t, err)
	assert.Equal(t, "string", row.Type)
	assert.True(t, row.Editable)
	assert.Equal(t, `"Coven"`, row.Value)

	v, err := r.Value(ctx, "site_name", nil)
	require.NoError(t, err)
	assert.Equal(t, "Coven", v)
}

func TestRegistry_SetUpdatesKeepingAttributes(t *testing.T) {
	r, _ := newTestRegistry(t)
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, "port", 80, Attributes{
		Type: "integer", Scope: "http", Rules: "min:1", Description: "listen port", Editable: boolPtr(false),
	}))
	require.NoError(t, r.Set(ctx, "port", 8080, Attributes{}))

	s, err := r.Get(ctx, "port")
	require.NoError(t, err)
	assert.Equal(t, int64(8080), s.Value)
	assert.Equal(t, Type("integer"), s.Type)
	assert.Equal(t, "http", s.Scope)
	assert.Equal(t, "min:1", s.Rules)
	assert.Equal(t, "listen port", s.Description)
	assert.False(t, s.Editable)
}

func TestRegistry_SetRejectsTypeChange(t *testing.T) {
	r, _ := newTestRegistry(t)
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, "retries", 3, Attributes{Type: "integer"}))

	err := r.Set(ctx, "retries", "three", Attributes{Type: "string"})
	require.Error(t, err)

	var cfgErr *ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "retries", cfgErr.Key)
	assert.ErrorIs(t, err, ErrTypeChange)

	s, err := r.Get(ctx, "retries")
	require.NoError(t, err)
	assert.Equal(t, Type("integer"), s.Type)
	assert.Equal(t, int64(3), s.Value)
}

func TestRegistry_SetAcceptsTypeAlias(t *testing.T) {
	r, _ := newTestRegistry(t)
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, "count", 1, Attributes{Type: "int"}))
	require.NoError(t, r.Set(ctx, "count", 2, Attributes{Type: "integer"}))

	v, err := r.Value(ctx, "count", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), v)
}

func TestRegistry_SetRejectsUnknownType(t *testing.T) {
	r, ms := newTestRegistry(t)
	ctx := context.Background()

	err := r.Set(ctx, "ratio", 0.5, Attributes{Type: "float"})
	assert.ErrorIs(t, err, ErrUnknownType)

	var cfgErr *ConfigurationError
	assert.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, 0, ms.Calls("CreateSetting"))
}

func TestRegistry_SetValidatesAgainstDeclaredRules(t *testing.T) {
	r, _ := newTestRegistry(t)
	ctx := context.Background()

	err := r.Set(ctx, "email", "nope", Attributes{Rules: "email"})
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))

	has, err := r.Has(ctx, "email")
	require.NoError(t, err)
	assert.False(t, has)
}

func TestRegistry_SetWithoutValueDeclaresKey(t *testing.T) {
	r, _ := newTestRegistry(t)
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, "banner", nil, Attributes{Rules: "required"}))

	has, err := r.Has(ctx, "banner")
	require.NoError(t, err)
	assert.True(t, has)

	hasValue, err := r.HasValue(ctx, "banner")
	require.NoError(t, err)
	assert.False(t, hasValue)
}

func TestRegistry_HasValue(t *testing.T) {
	r, _ := newTestRegistry(t)
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, "flag", false, Attributes{Type: "boolean"}))
	require.NoError(t, r.Set(ctx, "zero", 0, Attributes{Type: "integer"}))
	require.NoError(t, r.Set(ctx, "empty", "", Attributes{Type: "string"}))
	require.NoError(t, r.Set(ctx, "unset", nil, Attributes{Type: "string"}))
	require.NoError(t, r.Set(ctx, "list", []any{}, Attributes{Type: "array"}))

	for key, want := range map[string]bool{
		"flag":    true,
		"zero":    true,
		"empty":   true,
		"unset":   false,
		"list":    false,
		"missing": false,
	} {
		got, err := r.HasValue(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, want, got, key)
	}
}

func TestRegistry_ValueDefaults(t *testing.T) {
	r, _ := newTestRegistry(t)
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, "unset", nil, Attributes{}))
	require.NoError(t, r.Set(ctx, "off", false, Attributes{Type: "bool"}))

	v, err := r.Value(ctx, "unset", "fallback")
	require.NoError(t, err)
	assert.Equal(t, "fallback", v)

	// false is a value, so the default is not used
	v, err = r.Value(ctx, "off", true)
	require.NoError(t, err)
	assert.Equal(t, false, v)
}

func TestRegistry_KeyNotFound(t *testing.T) {
	r, _ := newTestRegistry(t)
	ctx := context.Background()

	_, err := r.Value(ctx, "ghost", "default")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrKeyNotFound)

	var nf *KeyNotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "ghost", nf.Key)

	_, err = r.ValueAsString(ctx, "ghost", "")
	assert.ErrorIs(t, err, ErrKeyNotFound)

	assert.ErrorIs(t, r.SetValue(ctx, "ghost", 1, true), ErrKeyNotFound)
	assert.ErrorIs(t, r.Remove(ctx, "ghost"), ErrKeyNotFound)

	_, err = r.IsEditable(ctx, "ghost")
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestRegistry_ValueAsString(t *testing.T) {
	r, _ := newTestRegistry(t)
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, "tags", []any{"a", "b"}, Attributes{Type: "array"}))
	require.NoError(t, r.Set(ctx, "debug", true, Attributes{Type: "boolean"}))
	require.NoError(t, r.Set(ctx, "limit", 10, Attributes{Type: "integer"}))
	require.NoError(t, r.Set(ctx, "unset", nil, Attributes{}))

	for key, want := range map[string]string{
		"tags":  `["a","b"]`,
		"debug": "true",
		"limit": "10",
		"unset": "n/a",
	} {
		got, err := r.ValueAsString(ctx, key, "n/a")
		require.NoError(t, err)
		assert.Equal(t, want, got, key)
	}
}

func TestRegistry_SetValueCoercesCommandLineText(t *testing.T) {
	r, _ := newTestRegistry(t)
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, "enabled", true, Attributes{Type: "boolean"}))
	require.NoError(t, r.Set(ctx, "workers", 1, Attributes{Type: "integer"}))

	require.NoError(t, r.SetValue(ctx, "enabled", "false", true))
	require.NoError(t, r.SetValue(ctx, "workers", "16", true))

	v, err := r.Value(ctx, "enabled", nil)
	require.NoError(t, err)
	assert.Equal(t, false, v)

	v, err = r.Value(ctx, "workers", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(16), v)
}

func TestRegistry_SetValueValidation(t *testing.T) {
	r, ms := newTestRegistry(t)
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, "max_upload", 100, Attributes{Type: "integer", Rules: "nullable"}))

	require.NoError(t, r.SetValue(ctx, "max_upload", 344, true))

	err := r.SetValue(ctx, "max_upload", "abc", true)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "max_upload", verr.Key)
	require.NotEmpty(t, verr.Messages)
	assert.Contains(t, verr.Messages[0], "max_upload")
	assert.Contains(t, verr.Messages[0], `"abc"`)
	assert.Contains(t, verr.Messages[0], "(string)")

	v, err := r.Value(ctx, "max_upload", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(344), v)

	row, err := ms.GetSetting(ctx, "max_upload")
	require.NoError(t, err)
	assert.Equal(t, "344", row.Value)

	// nullable allows clearing the value
	require.NoError(t, r.SetValue(ctx, "max_upload", nil, true))
	hasValue, err := r.HasValue(ctx, "max_upload")
	require.NoError(t, err)
	assert.False(t, hasValue)
}

func TestRegistry_SetValueWithoutValidation(t *testing.T) {
	r, _ := newTestRegistry(t)
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, "name", "a", Attributes{Rules: "max:3"}))
	require.NoError(t, r.SetValue(ctx, "name", "much too long", false))

	v, err := r.Value(ctx, "name", nil)
	require.NoError(t, err)
	assert.Equal(t, "much too long", v)
}

func TestRegistry_SetValueDoesNotEnforceEditable(t *testing.T) {
	r, _ := newTestRegistry(t)
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, "locked", "a", Attributes{Editable: boolPtr(false)}))
	require.NoError(t, r.SetValue(ctx, "locked", "b", true))

	editable, err := r.IsEditable(ctx, "locked")
	require.NoError(t, err)
	assert.False(t, editable)
}

func TestRegistry_SetEditable(t *testing.T) {
	r, _ := newTestRegistry(t)
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, "theme", "dark", Attributes{}))

	editable, err := r.IsEditable(ctx, "theme")
	require.NoError(t, err)
	assert.True(t, editable)

	require.NoError(t, r.SetEditable(ctx, "theme", false))

	editable, err = r.IsEditable(ctx, "theme")
	require.NoError(t, err)
	assert.False(t, editable)
}

func TestRegistry_ByScope(t *testing.T) {
	r, _ := newTestRegistry(t)
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, "a", "1", Attributes{Scope: "admin"}))
	require.NoError(t, r.Set(ctx, "b", "2", Attributes{Scope: "user"}))
	require.NoError(t, r.Set(ctx, "c", "3", Attributes{Scope: "admin"}))

	got, err := r.ByScope(ctx, "admin")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].Key)
	assert.Equal(t, "c", got[1].Key)

	none, err := r.ByScope(ctx, "billing")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestRegistry_RemoveLeavesOthers(t *testing.T) {
	r, _ := newTestRegistry(t)
	ctx := context.Background()

	for _, key := range []string{"one", "two", "three"} {
		require.NoError(t, r.Set(ctx, key, key, Attributes{}))
	}
	require.NoError(t, r.Remove(ctx, "two"))

	all, err := r.All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	has, err := r.Has(ctx, "two")
	require.NoError(t, err)
	assert.False(t, has)
}

func TestRegistry_AllOrderedByKey(t *testing.T) {
	r, _ := newTestRegistry(t)
	ctx := context.Background()

	for _, key := range []string{"zeta", "alpha", "mid"} {
		require.NoError(t, r.Set(ctx, key, nil, Attributes{}))
	}

	all, err := r.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"alpha", "mid", "zeta"}, []string{all[0].Key, all[1].Key, all[2].Key})
}

func TestRegistry_RegexSurvivesSQLite(t *testing.T) {
	r := newSQLiteRegistry(t)
	ctx := context.Background()

	pattern := `#\d{3}/[0-9]#`
	require.NoError(t, r.Set(ctx, "order_pattern", pattern, Attributes{Type: "regex", Rules: "max:3"}))

	v, err := r.Value(ctx, "order_pattern", nil)
	require.NoError(t, err)
	assert.Equal(t, pattern, v)

	s, err := r.ValueAsString(ctx, "order_pattern", "")
	require.NoError(t, err)
	assert.Equal(t, pattern, s)

	// A fresh registry decodes the stored text the same way
	fresh := New(r.store, nil)
	v, err = fresh.Value(ctx, "order_pattern", nil)
	require.NoError(t, err)
	assert.Equal(t, pattern, v)
}

func TestRegistry_SQLiteRoundTrip(t *testing.T) {
	r := newSQLiteRegistry(t)
	ctx := context.Background()

	values := map[string]struct {
		typ   string
		value any
	}{
		"s":   {"string", "héllo"},
		"i":   {"integer", int64(0)},
		"b":   {"boolean", false},
		"arr": {"array", []any{int64(1), []any{"x", "y"}}},
	}

	for key, v := range values {
		require.NoError(t, r.Set(ctx, key, v.value, Attributes{Type: v.typ}))
	}
	for key, v := range values {
		got, err := r.Value(ctx, key, "default")
		require.NoError(t, err)
		assert.Equal(t, v.value, got, key)
	}
}

func TestRegistry_StoreErrorsPropagate(t *testing.T) {
	r, ms := newTestRegistry(t)
	ctx := context.Background()
	ms.Err = errors.New("disk on fire")

	_, err := r.Has(ctx, "x")
	assert.ErrorContains(t, err, "disk on fire")
	assert.NotErrorIs(t, err, ErrKeyNotFound)
}
