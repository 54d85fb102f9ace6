// ABOUTME: Settings registry orchestrating the store, codec, validation and cache
// ABOUTME: Has/Value/SetValue/Set/Remove/ByScope plus listing, rule and cache helpers

package settings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/2389/coven-settings/internal/rules"
	"github.com/2389/coven-settings/internal/store"
)

// Setting is a decoded settings row.
type Setting struct {
	Key string
	// Value is nil when the setting has no value. Arrays decode to []any
	// or map[string]any, integers to int64.
	Value       any
	Type        Type // as declared; may be an alias such as "int"
	Scope       string
	Editable    bool
	Rules       string
	Description string
}

// clone copies s including nested arrays and objects, so callers never
// share a collection with the cached snapshot.
func (s *Setting) clone() *Setting {
	c := *s
	c.Value = copyValue(s.Value)
	return &c
}

func copyValue(v any) any {
	switch val := v.(type) {
	case []any:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = copyValue(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, e := range val {
			out[k] = copyValue(e)
		}
		return out
	}
	return v
}

// Attributes are the declared fields of a setting passed to Set. For a new
// key, empty fields fall back to type "string" and editable true. For an
// existing key, empty fields keep the stored values.
type Attributes struct {
	Type        string
	Scope       string
	Rules       string
	Description string
	Editable    *bool
}

// Registry is the settings API over a store and a cache handle.
type Registry struct {
	store  store.Store
	cache  *Cache
	logger *slog.Logger
}

// New creates a registry. A nil cache disables caching.
func New(s store.Store, c *Cache) *Registry {
	if c == nil {
		c = NewCache(nil, CacheConfig{Enabled: false})
	}
	return &Registry{
		store:  s,
		cache:  c,
		logger: slog.Default().With("component", "settings"),
	}
}

// Cache returns the registry's cache handle.
func (r *Registry) Cache() *Cache {
	return r.cache
}

func (r *Registry) snapshot(ctx context.Context) (snapshot, error) {
	return r.cache.settings(ctx, r.loadSnapshot)
}

func (r *Registry) loadSnapshot(ctx context.Context) (snapshot, error) {
	rows, err := r.store.ListSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing settings: %w", err)
	}

	snap := make(snapshot, len(rows))
	for _, row := range rows {
		s, err := decodeRow(row)
		if err != nil {
			return nil, err
		}
		snap[s.Key] = s
	}
	return snap, nil
}

func decodeRow(row *store.Setting) (*Setting, error) {
	t, err := ParseType(row.Type)
	if err != nil {
		return nil, fmt.Errorf("decoding setting %q: %w", row.Key, err)
	}
	v, err := t.Decode(row.Value)
	if err != nil {
		return nil, fmt.Errorf("decoding setting %q: %w", row.Key, err)
	}
	return &Setting{
		Key:         row.Key,
		Value:       v,
		Type:        Type(row.Type),
		Scope:       row.Scope,
		Editable:    row.Editable,
		Rules:       row.Rules,
		Description: row.Description,
	}, nil
}

// Has reports whether key exists.
func (r *Registry) Has(ctx context.Context, key string) (bool, error) {
	snap, err := r.snapshot(ctx)
	if err != nil {
		return false, err
	}
	_, ok := snap[key]
	return ok, nil
}

// HasValue reports whether key exists and holds a value. false, 0 and ""
// count as values; nil and empty collections do not.
func (r *Registry) HasValue(ctx context.Context, key string) (bool, error) {
	snap, err := r.snapshot(ctx)
	if err != nil {
		return false, err
	}
	s, ok := snap[key]
	if !ok {
		return false, nil
	}
	return hasValue(s.Value), nil
}

func hasValue(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case []any:
		return len(val) > 0
	case map[string]any:
		return len(val) > 0
	}
	return true
}

// Get returns the decoded setting for key.
func (r *Registry) Get(ctx context.Context, key string) (*Setting, error) {
	snap, err := r.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	s, ok := snap[key]
	if !ok {
		return nil, notFound(key)
	}
	return s.clone(), nil
}

// Value returns the typed value of key, or def when the key has no value.
// A key that does not exist is an error matching ErrKeyNotFound.
func (r *Registry) Value(ctx context.Context, key string, def any) (any, error) {
	s, err := r.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if !hasValue(s.Value) {
		return def, nil
	}
	return s.Value, nil
}

// ValueAsString is Value rendered for display, or def when the key has no
// value.
func (r *Registry) ValueAsString(ctx context.Context, key string, def string) (string, error) {
	s, err := r.Get(ctx, key)
	if err != nil {
		return "", err
	}
	if !hasValue(s.Value) {
		return def, nil
	}
	t, err := ParseType(string(s.Type))
	if err != nil {
		return "", &ConfigurationError{Key: key, Reason: "invalid type", Err: err}
	}
	return t.Format(s.Value), nil
}

// SetValue replaces the value of an existing key. With validate set, the
// value is checked against the key's effective rule first and a rejected
// value leaves the stored one untouched.
func (r *Registry) SetValue(ctx context.Context, key string, value any, validate bool) error {
	row, err := r.row(ctx, key)
	if err != nil {
		return err
	}

	t, err := ParseType(row.Type)
	if err != nil {
		return &ConfigurationError{Key: key, Reason: "invalid type", Err: err}
	}
	value = t.coerce(value)

	if validate {
		if err := r.Validate(ctx, key, value); err != nil {
			return err
		}
	}

	encoded, err := t.Encode(value)
	if err != nil {
		return fmt.Errorf("encoding setting %q: %w", key, err)
	}

	row.Value = encoded
	if err := r.store.UpdateSetting(ctx, row); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return notFound(key)
		}
		return fmt.Errorf("updating setting %q: %w", key, err)
	}
	r.cache.Invalidate()

	r.logger.Debug("set setting value", "key", key, "type", row.Type)
	return nil
}

// Set creates key or updates it. Declaring an existing key with another type
// fails with a ConfigurationError and leaves the row unchanged. A non-nil
// value is validated against the effective rule of the final attributes.
func (r *Registry) Set(ctx context.Context, key string, value any, attrs Attributes) error {
	existing, err := r.store.GetSetting(ctx, key)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("getting setting %q: %w", key, err)
	}

	row := &store.Setting{Key: key, Type: string(TypeString), Editable: true}
	if existing != nil {
		row = existing.Clone()
	}
	if attrs.Type != "" {
		row.Type = attrs.Type
	}
	if attrs.Scope != "" {
		row.Scope = attrs.Scope
	}
	if attrs.Rules != "" {
		row.Rules = attrs.Rules
	}
	if attrs.Description != "" {
		row.Description = attrs.Description
	}
	if attrs.Editable != nil {
		row.Editable = *attrs.Editable
	}

	t, err := ParseType(row.Type)
	if err != nil {
		return &ConfigurationError{Key: key, Reason: "invalid type", Err: err}
	}

	if existing != nil {
		old, err := ParseType(existing.Type)
		if err != nil {
			return &ConfigurationError{Key: key, Reason: "invalid stored type", Err: err}
		}
		if old != t {
			return &ConfigurationError{
				Key:    key,
				Reason: fmt.Sprintf("declared as %s, got %s", existing.Type, attrs.Type),
				Err:    ErrTypeChange,
			}
		}
	}

	value = t.coerce(value)
	if value != nil {
		if err := checkRule(key, EffectiveRule(t, row.Rules), value); err != nil {
			return err
		}
	}

	encoded, err := t.Encode(value)
	if err != nil {
		return fmt.Errorf("encoding setting %q: %w", key, err)
	}
	row.Value = encoded

	if existing == nil {
		err = r.store.CreateSetting(ctx, row)
	} else {
		err = r.store.UpdateSetting(ctx, row)
	}
	if err != nil {
		return fmt.Errorf("saving setting %q: %w", key, err)
	}
	r.cache.Invalidate()

	r.logger.Info("saved setting", "key", key, "type", row.Type, "created", existing == nil)
	return nil
}

// Remove deletes key.
func (r *Registry) Remove(ctx context.Context, key string) error {
	if err := r.store.DeleteSetting(ctx, key); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return notFound(key)
		}
		return fmt.Errorf("deleting setting %q: %w", key, err)
	}
	r.cache.Invalidate()

	r.logger.Info("removed setting", "key", key)
	return nil
}

// ByScope returns the settings whose scope equals scope, ordered by key.
func (r *Registry) ByScope(ctx context.Context, scope string) ([]*Setting, error) {
	rows, err := r.store.ListSettingsByScope(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("listing scope %q: %w", scope, err)
	}

	out := make([]*Setting, 0, len(rows))
	for _, row := range rows {
		s, err := decodeRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// All returns every setting ordered by key.
func (r *Registry) All(ctx context.Context) ([]*Setting, error) {
	snap, err := r.snapshot(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]*Setting, 0, len(snap))
	for _, s := range snap {
		out = append(out, s.clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// IsEditable reports the editable flag of key.
func (r *Registry) IsEditable(ctx context.Context, key string) (bool, error) {
	s, err := r.Get(ctx, key)
	if err != nil {
		return false, err
	}
	return s.Editable, nil
}

// SetEditable updates the editable flag of key.
func (r *Registry) SetEditable(ctx context.Context, key string, editable bool) error {
	row, err := r.row(ctx, key)
	if err != nil {
		return err
	}

	row.Editable = editable
	if err := r.store.UpdateSetting(ctx, row); err != nil {
		return fmt.Errorf("updating setting %q: %w", key, err)
	}
	r.cache.Invalidate()
	return nil
}

// FlushCache drops every cached aggregate.
func (r *Registry) FlushCache() {
	r.cache.Invalidate()
}

func (r *Registry) row(ctx context.Context, key string) (*store.Setting, error) {
	row, err := r.store.GetSetting(ctx, key)
	if errors.Is(err, store.ErrNotFound) {
		return nil, notFound(key)
	}
	if err != nil {
		return nil, fmt.Errorf("getting setting %q: %w", key, err)
	}
	return row, nil
}

// checkRule runs value against rule and wraps failures as typed errors.
func checkRule(key, rule string, value any) error {
	msgs, err := rules.Check(rule, key, value)
	if err != nil {
		return &ConfigurationError{Key: key, Reason: "invalid rules", Err: err}
	}
	if len(msgs) > 0 {
		return &ValidationError{Key: key, Messages: msgs}
	}
	return nil
}
