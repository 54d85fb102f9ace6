// ABOUTME: Validation layer: effective rules per key and value checks
// ABOUTME: The rule map is computed by the store in one query and memoized by the cache

package settings

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// EffectiveRule combines declared rules with the type: "<rules>|<type>", or
// the type alone. Regex settings only have to be strings.
func EffectiveRule(t Type, declared string) string {
	if t == TypeRegex {
		return "string"
	}
	declared = strings.TrimSpace(declared)
	if declared == "" {
		return string(t)
	}
	return declared + "|" + string(t)
}

// Rules returns the effective rule of every key.
func (r *Registry) Rules(ctx context.Context) (map[string]string, error) {
	m, err := r.cache.rules(ctx, r.loadRules)
	if err != nil {
		return nil, err
	}

	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out, nil
}

func (r *Registry) loadRules(ctx context.Context) (map[string]string, error) {
	m, err := r.store.ValidationRules(ctx)
	if err != nil {
		return nil, fmt.Errorf("building validation rules: %w", err)
	}

	for key, rule := range m {
		parts := strings.Split(rule, "|")
		if t, err := ParseType(parts[len(parts)-1]); err == nil && t == TypeRegex {
			m[key] = EffectiveRule(TypeRegex, "")
		}
	}
	return m, nil
}

// Validate checks value against the effective rule of key and returns a
// *ValidationError listing every violated constraint.
func (r *Registry) Validate(ctx context.Context, key string, value any) error {
	has, err := r.Has(ctx, key)
	if err != nil {
		return err
	}
	if !has {
		return notFound(key)
	}

	m, err := r.cache.rules(ctx, r.loadRules)
	if err != nil {
		return err
	}
	rule, ok := m[key]
	if !ok {
		// Row created by another process after the rule map was cached
		s, err := r.Get(ctx, key)
		if err != nil {
			return err
		}
		t, err := ParseType(string(s.Type))
		if err != nil {
			return &ConfigurationError{Key: key, Reason: "invalid type", Err: err}
		}
		rule = EffectiveRule(t, s.Rules)
	}

	return checkRule(key, rule, value)
}

// IsValid reports whether value passes the effective rule of key.
// Store and rule parsing failures are returned as errors.
func (r *Registry) IsValid(ctx context.Context, key string, value any) (bool, error) {
	err := r.Validate(ctx, key, value)
	if err == nil {
		return true, nil
	}
	var verr *ValidationError
	if errors.As(err, &verr) {
		return false, nil
	}
	return false, err
}
