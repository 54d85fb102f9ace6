// ABOUTME: Mock Store implementation for testing
// ABOUTME: Allows tests to run without SQLite and counts backend calls for cache assertions

package store

import (
	"context"
	"sort"
	"sync"
)

// MockStore is an in-memory Store implementation for testing.
type MockStore struct {
	mu       sync.RWMutex
	settings map[string]*Setting // keyed by setting key
	calls    map[string]int      // keyed by method name

	// Err, when set, is returned by every method
	Err error
}

// NewMockStore creates a new MockStore.
func NewMockStore() *MockStore {
	return &MockStore{
		settings: make(map[string]*Setting),
		calls:    make(map[string]int),
	}
}

// Calls returns how many times the named method has been invoked.
func (m *MockStore) Calls(method string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.calls[method]
}

func (m *MockStore) record(method string) {
	m.calls[method]++
}

// GetSetting retrieves a setting by key.
func (m *MockStore) GetSetting(ctx context.Context, key string) (*Setting, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("GetSetting")

	if m.Err != nil {
		return nil, m.Err
	}

	s, ok := m.settings[key]
	if !ok {
		return nil, ErrNotFound
	}
	return s.Clone(), nil
}

// ListSettings returns every setting ordered by key.
func (m *MockStore) ListSettings(ctx context.Context) ([]*Setting, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("ListSettings")

	if m.Err != nil {
		return nil, m.Err
	}
	return m.sortedLocked(func(*Setting) bool { return true }), nil
}

// ListSettingsByScope returns the settings with the given scope ordered by key.
func (m *MockStore) ListSettingsByScope(ctx context.Context, scope string) ([]*Setting, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("ListSettingsByScope")

	if m.Err != nil {
		return nil, m.Err
	}
	return m.sortedLocked(func(s *Setting) bool { return s.Scope == scope }), nil
}

func (m *MockStore) sortedLocked(keep func(*Setting) bool) []*Setting {
	var result []*Setting
	for _, s := range m.settings {
		if keep(s) {
			result = append(result, s.Clone())
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Key < result[j].Key
	})
	return result
}

// CreateSetting stores a new setting.
func (m *MockStore) CreateSetting(ctx context.Context, setting *Setting) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("CreateSetting")

	if m.Err != nil {
		return m.Err
	}
	if _, exists := m.settings[setting.Key]; exists {
		return ErrDuplicateKey
	}

	m.settings[setting.Key] = setting.Clone()
	return nil
}

// UpdateSetting replaces an existing setting.
func (m *MockStore) UpdateSetting(ctx context.Context, setting *Setting) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("UpdateSetting")

	if m.Err != nil {
		return m.Err
	}
	if _, exists := m.settings[setting.Key]; !exists {
		return ErrNotFound
	}

	m.settings[setting.Key] = setting.Clone()
	return nil
}

// DeleteSetting removes a setting.
func (m *MockStore) DeleteSetting(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("DeleteSetting")

	if m.Err != nil {
		return m.Err
	}
	if _, exists := m.settings[key]; !exists {
		return ErrNotFound
	}

	delete(m.settings, key)
	return nil
}

// ValidationRules builds the key -> effective rule map.
func (m *MockStore) ValidationRules(ctx context.Context) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("ValidationRules")

	if m.Err != nil {
		return nil, m.Err
	}

	rules := make(map[string]string, len(m.settings))
	for key, s := range m.settings {
		if s.Rules == "" {
			rules[key] = s.Type
		} else {
			rules[key] = s.Rules + "|" + s.Type
		}
	}
	return rules, nil
}

// Close is a no-op for MockStore.
func (m *MockStore) Close() error {
	return nil
}

// Ensure MockStore implements Store.
var _ Store = (*MockStore)(nil)
