// ABOUTME: Tests for effective rules and the probe and strict validation modes
// ABOUTME: Includes malformed stored rules surfacing as configuration errors

package settings

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/coven-settings/internal/store"
)

func TestEffectiveRule(t *testing.T) {
	assert.Equal(t, "integer", EffectiveRule(TypeInteger, ""))
	assert.Equal(t, "nullable|min:1|integer", EffectiveRule(TypeInteger, "nullable|min:1"))
	assert.Equal(t, "string", EffectiveRule(TypeRegex, "max:3"))
}

func TestValidate_ProbeAndStrict(t *testing.T) {
	r, _ := newTestRegistry(t)
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, "level", "info", Attributes{Rules: "in:debug,info,warn"}))

	ok, err := r.IsValid(ctx, "level", "warn")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = r.IsValid(ctx, "level", "loud")
	require.NoError(t, err)
	assert.False(t, ok)

	err = r.Validate(ctx, "level", "loud")
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Len(t, verr.Messages, 1)
	assert.Contains(t, err.Error(), "level")
}

func TestValidate_MissingKey(t *testing.T) {
	r, _ := newTestRegistry(t)

	_, err := r.IsValid(context.Background(), "nope", 1)
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestValidate_MalformedStoredRules(t *testing.T) {
	ms := store.NewMockStore()
	ctx := context.Background()
	require.NoError(t, ms.CreateSetting(ctx, &store.Setting{
		Key: "bad", Value: `"x"`, Type: "string", Editable: true, Rules: "shiny",
	}))
	r := New(ms, NewCache(nil, CacheConfig{Enabled: true}))

	err := r.SetValue(ctx, "bad", "y", true)
	var cfgErr *ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "bad", cfgErr.Key)

	// Validation can be skipped explicitly
	require.NoError(t, r.SetValue(ctx, "bad", "y", false))
}

func TestValidate_CorruptStoredTypeFailsReads(t *testing.T) {
	ms := store.NewMockStore()
	ctx := context.Background()
	require.NoError(t, ms.CreateSetting(ctx, &store.Setting{Key: "odd", Value: "1", Type: "float", Editable: true}))
	r := New(ms, nil)

	_, err := r.Has(ctx, "odd")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownType)
	assert.Contains(t, err.Error(), `decoding setting "odd"`)
}
