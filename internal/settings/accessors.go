// ABOUTME: Convenience accessors over a process-wide default registry
// ABOUTME: Lookup and LookupString swallow ErrKeyNotFound and return the caller's default

package settings

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync/atomic"
)

var defaultRegistry atomic.Pointer[Registry]

// SetDefault installs r as the registry behind Lookup and LookupString.
func SetDefault(r *Registry) {
	defaultRegistry.Store(r)
}

// Default returns the registry installed by SetDefault, or nil.
func Default() *Registry {
	return defaultRegistry.Load()
}

// Lookup returns the value of key from the default registry, or def when
// the key is missing or has no value.
func Lookup(ctx context.Context, key string, def any) (any, error) {
	r := Default()
	if r == nil {
		return def, ErrNoDefaultRegistry
	}
	v, err := r.Value(ctx, key, def)
	if errors.Is(err, ErrKeyNotFound) {
		return def, nil
	}
	return v, err
}

// LookupString is Lookup rendered as a string.
func LookupString(ctx context.Context, key string, def string) (string, error) {
	r := Default()
	if r == nil {
		return def, ErrNoDefaultRegistry
	}
	v, err := r.ValueAsString(ctx, key, def)
	if errors.Is(err, ErrKeyNotFound) {
		return def, nil
	}
	return v, err
}

// Get returns the value of key as T, or def when the key has no value.
// Integers convert to int, int32, uint or float64 when they fit; other
// values must already be of type T.
func Get[T any](ctx context.Context, r *Registry, key string, def T) (T, error) {
	v, err := r.Value(ctx, key, nil)
	if err != nil {
		return def, err
	}
	if v == nil {
		return def, nil
	}

	if out, ok := v.(T); ok {
		return out, nil
	}

	var out T
	if n, ok := v.(int64); ok {
		switch p := any(&out).(type) {
		case *int:
			if n >= math.MinInt && n <= math.MaxInt {
				*p = int(n)
				return out, nil
			}
		case *int32:
			if n >= math.MinInt32 && n <= math.MaxInt32 {
				*p = int32(n)
				return out, nil
			}
		case *uint:
			if n >= 0 && uint64(n) <= math.MaxUint {
				*p = uint(n)
				return out, nil
			}
		case *float64:
			*p = float64(n)
			return out, nil
		}
	}

	return def, fmt.Errorf("setting %q holds %T, not %T", key, v, out)
}
