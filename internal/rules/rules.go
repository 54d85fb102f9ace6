// ABOUTME: Pipe-delimited validation rule engine ("nullable|integer|min:1")
// ABOUTME: Parses rule strings once and checks values, reporting one message per failed constraint

package rules

import (
	"fmt"
	"reflect"
	"strings"
	"unicode/utf8"
)

// Set is a parsed rule string.
type Set struct {
	raw         string
	nullable    bool
	numeric     bool // size rules compare numbers instead of lengths
	constraints []constraint
}

// constraint is one rule of a Set.
type constraint struct {
	name  string
	check func(v any, numeric bool) bool
	// describe completes "<field> must ..."
	describe string
}

// Parse parses a pipe-delimited rule string. Unknown rule names and
// malformed arguments are reported as errors.
func Parse(rule string) (*Set, error) {
	s := &Set{raw: rule}

	for _, part := range splitRules(rule) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		name, arg, _ := strings.Cut(part, ":")
		name = strings.ToLower(strings.TrimSpace(name))

		switch name {
		case "nullable":
			s.nullable = true
			continue
		case "sometimes", "bail", "present":
			continue
		case "integer", "int", "numeric":
			s.numeric = true
		}

		build, ok := builders[name]
		if !ok {
			return nil, fmt.Errorf("unknown rule %q in %q", name, rule)
		}
		c, err := build(arg)
		if err != nil {
			return nil, fmt.Errorf("rule %q: %w", part, err)
		}
		c.name = name
		s.constraints = append(s.constraints, c)
	}

	return s, nil
}

// String returns the rule string the Set was parsed from.
func (s *Set) String() string {
	return s.raw
}

// Nullable reports whether nil values are accepted.
func (s *Set) Nullable() bool {
	return s.nullable
}

// Check validates value and returns one message per violated constraint.
// An empty result means the value passed.
func (s *Set) Check(field string, value any) []string {
	if value == nil && s.nullable {
		return nil
	}

	var messages []string
	for _, c := range s.constraints {
		if c.check(value, s.numeric) {
			continue
		}
		messages = append(messages, fmt.Sprintf("%s must %s, got %s (%s)",
			field, c.describe, Summarize(value), Kind(value)))
	}
	return messages
}

// Check parses rule and validates value against it in one call.
func Check(rule, field string, value any) ([]string, error) {
	s, err := Parse(rule)
	if err != nil {
		return nil, err
	}
	return s.Check(field, value), nil
}

// splitRules splits on '|' but keeps regex patterns that contain '|' intact:
// a regex segment absorbs following segments until its closing delimiter.
func splitRules(rule string) []string {
	parts := strings.Split(rule, "|")
	var out []string

	for i := 0; i < len(parts); i++ {
		part := parts[i]
		name, pattern, ok := strings.Cut(part, ":")
		name = strings.ToLower(strings.TrimSpace(name))
		if ok && (name == "regex" || name == "not_regex") && pattern != "" {
			for !closesPattern(pattern) && i+1 < len(parts) {
				i++
				pattern += "|" + parts[i]
			}
			part = name + ":" + pattern
		}
		out = append(out, part)
	}
	return out
}

// closesPattern reports whether a delimited pattern like /a|b/i is complete
func closesPattern(pattern string) bool {
	if len(pattern) < 2 {
		return false
	}
	closing := closingDelimiter(pattern[0])
	body := strings.TrimRight(pattern[1:], "imsxuU")
	return len(body) > 0 && body[len(body)-1] == closing
}

const maxSummary = 40

// Summarize renders a short, single-line description of a value for messages.
// Long strings are truncated; collections are reduced to their kind and size.
func Summarize(v any) string {
	if v == nil {
		return "null"
	}

	switch val := v.(type) {
	case string:
		if utf8.RuneCountInString(val) > maxSummary {
			r := []rune(val)
			return fmt.Sprintf("%q", string(r[:maxSummary-3])+"...")
		}
		return fmt.Sprintf("%q", val)
	case bool:
		if val {
			return "true"
		}
		return "false"
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		return fmt.Sprintf("array(%d)", rv.Len())
	case reflect.Map:
		return fmt.Sprintf("object(%d)", rv.Len())
	}

	s := fmt.Sprintf("%v", v)
	if utf8.RuneCountInString(s) > maxSummary {
		r := []rune(s)
		s = string(r[:maxSummary-3]) + "..."
	}
	return s
}

// Kind names the runtime kind of a value using the settings vocabulary.
func Kind(v any) string {
	if v == nil {
		return "null"
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String:
		return "string"
	case reflect.Bool:
		return "boolean"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "integer"
	case reflect.Float32, reflect.Float64:
		return "float"
	case reflect.Slice, reflect.Array:
		return "array"
	case reflect.Map:
		return "object"
	default:
		return rv.Type().String()
	}
}
