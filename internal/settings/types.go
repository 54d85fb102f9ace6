// ABOUTME: Declared setting types and the codec between stored text and typed values
// ABOUTME: JSON-based encoding with canonicalisation, plus the regex placeholder escaping

package settings

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Type is the declared type of a setting.
type Type string

// Canonical setting types
const (
	TypeString  Type = "string"
	TypeInteger Type = "integer"
	TypeBoolean Type = "boolean"
	TypeArray   Type = "array"
	TypeRegex   Type = "regex"
)

var typeAliases = map[string]Type{
	"string":  TypeString,
	"integer": TypeInteger,
	"int":     TypeInteger,
	"boolean": TypeBoolean,
	"bool":    TypeBoolean,
	"array":   TypeArray,
	"arr":     TypeArray,
	"regex":   TypeRegex,
}

// ParseType resolves a type name, accepting the short aliases int, bool and arr.
func ParseType(name string) (Type, error) {
	t, ok := typeAliases[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownType, name)
	}
	return t, nil
}

// Placeholders substituted for backslash and slash in regex values before
// JSON encoding, so patterns are stored without escape sequences.
const (
	backslashPlaceholder = "@@S3TT1NGS-BSL@@"
	slashPlaceholder     = "@@S3TT1NGS-FSL@@"
)

var (
	regexEscaper   = strings.NewReplacer(`\`, backslashPlaceholder, `/`, slashPlaceholder)
	regexUnescaper = strings.NewReplacer(backslashPlaceholder, `\`, slashPlaceholder, `/`)
)

// Encode converts a typed value into its stored text. A nil value encodes to
// the empty string, which the store persists as NULL.
func (t Type) Encode(value any) (string, error) {
	if value == nil {
		return "", nil
	}

	switch t {
	case TypeString, TypeArray:
		return marshal(value)
	case TypeInteger:
		return marshal(canonicalInteger(value))
	case TypeBoolean:
		return marshal(canonicalBoolean(value))
	case TypeRegex:
		s, ok := value.(string)
		if !ok {
			s = fmt.Sprint(value)
		}
		return marshal(regexEscaper.Replace(s))
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownType, string(t))
	}
}

// Decode converts stored text back into a typed value. Empty text decodes
// to nil.
func (t Type) Decode(text string) (any, error) {
	if text == "" {
		return nil, nil
	}

	switch t {
	case TypeArray:
		return decodeJSON(text)
	case TypeInteger:
		return leadingInteger(text), nil
	case TypeBoolean:
		return text != "false", nil
	case TypeRegex:
		return regexUnescaper.Replace(unquote(text)), nil
	case TypeString:
		return unquote(text), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, string(t))
	}
}

// Format renders a decoded value for display: collections as compact JSON,
// integers in decimal, booleans as true/false and strings unchanged.
func (t Type) Format(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		if t == TypeRegex {
			return regexUnescaper.Replace(v)
		}
		return v
	case bool:
		if v {
			return "true"
		}
		return "false"
	case int64:
		return strconv.FormatInt(v, 10)
	case int:
		return strconv.Itoa(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}

	s, err := marshal(value)
	if err != nil {
		return fmt.Sprint(value)
	}
	return s
}

// Cast converts command-line text into a value of type t. Booleans accept
// 1/true/on/yes, integers parse the leading digits, arrays parse JSON and
// fall back to a one-element array holding the raw text.
func (t Type) Cast(raw string) (any, error) {
	switch t {
	case TypeBoolean:
		switch strings.ToLower(strings.TrimSpace(raw)) {
		case "1", "true", "on", "yes":
			return true, nil
		}
		return false, nil
	case TypeInteger:
		return leadingInteger(raw), nil
	case TypeArray:
		v, err := decodeJSON(raw)
		if err != nil {
			return []any{raw}, nil
		}
		if _, ok := v.([]any); ok {
			return v, nil
		}
		if _, ok := v.(map[string]any); ok {
			return v, nil
		}
		return []any{raw}, nil
	case TypeString, TypeRegex:
		return raw, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, string(t))
	}
}

// coerce applies the light conversion done before validating a new value:
// "true"/"false" become booleans and all-digit text becomes an integer.
func (t Type) coerce(value any) any {
	s, ok := value.(string)
	if !ok {
		return value
	}

	switch t {
	case TypeBoolean:
		switch s {
		case "true":
			return true
		case "false":
			return false
		}
	case TypeInteger:
		if digitsRe.MatchString(s) {
			if n, err := strconv.ParseInt(s, 10, 64); err == nil {
				return n
			}
		}
	}
	return value
}

var (
	digitsRe         = regexp.MustCompile(`^\d+$`)
	leadingIntegerRe = regexp.MustCompile(`^[+-]?\d+`)
)

// leadingInteger parses the integer prefix of s, ignoring surrounding
// whitespace. Text without one yields 0; out-of-range values saturate.
func leadingInteger(s string) int64 {
	m := leadingIntegerRe.FindString(strings.TrimSpace(s))
	if m == "" {
		return 0
	}
	n, err := strconv.ParseInt(m, 10, 64)
	if err != nil {
		if strings.HasPrefix(m, "-") {
			return math.MinInt64
		}
		return math.MaxInt64
	}
	return n
}

func canonicalInteger(value any) any {
	switch v := value.(type) {
	case string:
		if leadingIntegerRe.MatchString(strings.TrimSpace(v)) {
			return leadingInteger(v)
		}
	case float64:
		if v == math.Trunc(v) && math.Abs(v) < math.MaxInt64 {
			return int64(v)
		}
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return n
		}
	}
	return value
}

func canonicalBoolean(value any) any {
	switch v := value.(type) {
	case string:
		switch v {
		case "1", "true":
			return true
		case "0", "false", "":
			return false
		}
	case int:
		return v != 0
	case int64:
		return v != 0
	case float64:
		return v != 0
	}
	return value
}

// marshal encodes value as compact JSON without HTML escaping, so non-ASCII
// text and characters like < and & are stored literally.
func marshal(value any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(value); err != nil {
		return "", fmt.Errorf("encoding value: %w", err)
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

// decodeJSON parses text, turning integral numbers into int64 and the rest
// into float64.
func decodeJSON(text string) (any, error) {
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("decoding JSON: %w", err)
	}
	return normalizeNumbers(v), nil
}

func normalizeNumbers(v any) any {
	switch val := v.(type) {
	case json.Number:
		if n, err := val.Int64(); err == nil {
			return n
		}
		f, _ := val.Float64()
		return f
	case []any:
		for i := range val {
			val[i] = normalizeNumbers(val[i])
		}
		return val
	case map[string]any:
		for k := range val {
			val[k] = normalizeNumbers(val[k])
		}
		return val
	}
	return v
}

// unquote reads a JSON string, falling back to trimming quote characters
// for text that is not valid JSON.
func unquote(text string) string {
	var s string
	if err := json.Unmarshal([]byte(text), &s); err == nil {
		return s
	}
	return strings.Trim(text, `"`)
}
