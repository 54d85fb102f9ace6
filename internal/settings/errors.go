// ABOUTME: Error taxonomy for the settings registry
// ABOUTME: KeyNotFound, validation and configuration errors, matched with errors.Is and errors.As

package settings

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrKeyNotFound matches any *KeyNotFoundError
	ErrKeyNotFound = errors.New("setting not found")

	// ErrUnknownType is wrapped when a type name is not recognised
	ErrUnknownType = errors.New("unknown setting type")

	// ErrTypeChange is wrapped when an existing setting is redeclared with another type
	ErrTypeChange = errors.New("setting type cannot be changed")

	// ErrNoDefaultRegistry is returned by the package-level accessors before SetDefault
	ErrNoDefaultRegistry = errors.New("no default settings registry")
)

// KeyNotFoundError reports a key that is not in the store.
type KeyNotFoundError struct {
	Key string
}

func (e *KeyNotFoundError) Error() string {
	return fmt.Sprintf("setting %q not found", e.Key)
}

// Is makes errors.Is(err, ErrKeyNotFound) match.
func (e *KeyNotFoundError) Is(target error) bool {
	return target == ErrKeyNotFound
}

// ValidationError carries one rendered message per violated constraint.
type ValidationError struct {
	Key      string
	Messages []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid value for setting %q: %s", e.Key, strings.Join(e.Messages, "; "))
}

// ConfigurationError reports a malformed declaration: an unknown type, a
// forbidden type change or rules that cannot be parsed.
type ConfigurationError struct {
	Key    string
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("setting %q: %s: %v", e.Key, e.Reason, e.Err)
	}
	return fmt.Sprintf("setting %q: %s", e.Key, e.Reason)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

func notFound(key string) error {
	return &KeyNotFoundError{Key: key}
}
