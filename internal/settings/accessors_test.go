// ABOUTME: Tests for the default-registry accessors and the generic Get
// ABOUTME: Missing keys fall back to defaults; other failures are returned

package settings

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withDefault(t *testing.T, r *Registry) {
	t.Helper()
	prev := Default()
	SetDefault(r)
	t.Cleanup(func() { SetDefault(prev) })
}

func TestLookup_NoDefaultRegistry(t *testing.T) {
	withDefault(t, nil)

	v, err := Lookup(context.Background(), "x", "def")
	assert.ErrorIs(t, err, ErrNoDefaultRegistry)
	assert.Equal(t, "def", v)
}

func TestLookup_MissingKeyReturnsDefault(t *testing.T) {
	r, _ := newTestRegistry(t)
	withDefault(t, r)
	ctx := context.Background()

	v, err := Lookup(ctx, "never_created", "fallback")
	require.NoError(t, err)
	assert.Equal(t, "fallback", v)

	s, err := LookupString(ctx, "never_created", "fallback")
	require.NoError(t, err)
	assert.Equal(t, "fallback", s)
}

func TestLookup_ReturnsValues(t *testing.T) {
	r, _ := newTestRegistry(t)
	withDefault(t, r)
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, "limit", 25, Attributes{Type: "integer"}))

	v, err := Lookup(ctx, "limit", 0)
	require.NoError(t, err)
	assert.Equal(t, int64(25), v)

	s, err := LookupString(ctx, "limit", "")
	require.NoError(t, err)
	assert.Equal(t, "25", s)
}

func TestLookup_StoreErrorsAreNotSwallowed(t *testing.T) {
	r, ms := newTestRegistry(t)
	withDefault(t, r)
	ms.Err = errors.New("connection refused")

	_, err := Lookup(context.Background(), "limit", 0)
	assert.ErrorContains(t, err, "connection refused")
}

func TestGet_Typed(t *testing.T) {
	r, _ := newTestRegistry(t)
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, "workers", 8, Attributes{Type: "integer"}))
	require.NoError(t, r.Set(ctx, "name", "coven", Attributes{}))
	require.NoError(t, r.Set(ctx, "unset", nil, Attributes{Type: "boolean"}))

	n, err := Get(ctx, r, "workers", 1)
	require.NoError(t, err)
	assert.Equal(t, 8, n)

	n64, err := Get[int64](ctx, r, "workers", 0)
	require.NoError(t, err)
	assert.Equal(t, int64(8), n64)

	name, err := Get(ctx, r, "name", "")
	require.NoError(t, err)
	assert.Equal(t, "coven", name)

	flag, err := Get(ctx, r, "unset", true)
	require.NoError(t, err)
	assert.True(t, flag)

	_, err = Get(ctx, r, "name", 0)
	assert.Error(t, err)

	_, err = Get(ctx, r, "missing", "")
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestGet_RejectsOutOfRangeIntegers(t *testing.T) {
	r, _ := newTestRegistry(t)
	ctx := context.Background()
	require.NoError(t, r.Set(ctx, "big", int64(5_000_000_000), Attributes{Type: "integer"}))
	require.NoError(t, r.Set(ctx, "negative", -3, Attributes{Type: "integer"}))

	n32, err := Get[int32](ctx, r, "big", 7)
	assert.Error(t, err)
	assert.Equal(t, int32(7), n32)

	f, err := Get[float64](ctx, r, "big", 0)
	require.NoError(t, err)
	assert.Equal(t, float64(5_000_000_000), f)

	u, err := Get[uint](ctx, r, "negative", 1)
	assert.Error(t, err)
	assert.Equal(t, uint(1), u)

	small, err := Get[int32](ctx, r, "negative", 0)
	require.NoError(t, err)
	assert.Equal(t, int32(-3), small)
}
