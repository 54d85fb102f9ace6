// ABOUTME: Built-in rule constructors for the validation engine
// ABOUTME: Type rules, size rules, membership, regex and validator-backed format rules

package rules

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

type builder func(arg string) (constraint, error)

var builders map[string]builder

func init() {
	builders = map[string]builder{
		"required":  noArg(isPresent, "be present"),
		"filled":    noArg(isPresent, "be present"),
		"string":    noArg(isString, "be a string"),
		"integer":   noArg(isInteger, "be an integer"),
		"int":       noArg(isInteger, "be an integer"),
		"numeric":   noArg(isNumeric, "be numeric"),
		"boolean":   noArg(isBoolean, "be a boolean"),
		"bool":      noArg(isBoolean, "be a boolean"),
		"array":     noArg(isArray, "be an array"),
		"arr":       noArg(isArray, "be an array"),
		"min":       sizeRule(func(n, a float64) bool { return n >= a }, "be at least %s"),
		"max":       sizeRule(func(n, a float64) bool { return n <= a }, "be at most %s"),
		"size":      sizeRule(func(n, a float64) bool { return n == a }, "have size %s"),
		"between":   betweenRule,
		"in":        inRule(true),
		"not_in":    inRule(false),
		"regex":     regexRule(true),
		"not_regex": regexRule(false),
	}

	builders["alpha_dash"] = noArg(matchString(alphaDashRe),
		"contain only letters, numbers, dashes and underscores")

	for name, tag := range formatTags {
		builders[name] = formatRule(tag, formatDescriptions[name])
	}
}

// formatTags maps rule names onto go-playground/validator tags
var formatTags = map[string]string{
	"email":     "email",
	"url":       "url",
	"uuid":      "uuid",
	"ip":        "ip",
	"ipv4":      "ipv4",
	"ipv6":      "ipv6",
	"alpha":     "alphaunicode",
	"alpha_num": "alphanumunicode",
	"json":      "json",
	"lowercase": "lowercase",
	"uppercase": "uppercase",
	"timezone":  "timezone",
}

var formatDescriptions = map[string]string{
	"email":     "be a valid email address",
	"url":       "be a valid URL",
	"uuid":      "be a valid UUID",
	"ip":        "be a valid IP address",
	"ipv4":      "be a valid IPv4 address",
	"ipv6":      "be a valid IPv6 address",
	"alpha":     "contain only letters",
	"alpha_num": "contain only letters and numbers",
	"json":      "be a valid JSON string",
	"lowercase": "be lowercase",
	"uppercase": "be uppercase",
	"timezone":  "be a valid timezone",
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func formatValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

func noArg(check func(any) bool, describe string) builder {
	return func(arg string) (constraint, error) {
		if arg != "" {
			return constraint{}, fmt.Errorf("takes no arguments")
		}
		return constraint{
			check:    func(v any, _ bool) bool { return check(v) },
			describe: describe,
		}, nil
	}
}

func formatRule(tag, describe string) builder {
	return noArg(func(v any) bool {
		s, ok := v.(string)
		if !ok {
			return false
		}
		return formatValidator().Var(s, tag) == nil
	}, describe)
}

func matchString(re *regexp.Regexp) func(any) bool {
	return func(v any) bool {
		s, ok := v.(string)
		return ok && re.MatchString(s)
	}
}

func isPresent(v any) bool {
	if v == nil {
		return false
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) != ""
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return rv.Len() > 0
	}
	return true
}

func isString(v any) bool {
	_, ok := v.(string)
	return ok
}

var (
	integerRe   = regexp.MustCompile(`^[+-]?\d+$`)
	alphaDashRe = regexp.MustCompile(`^[\pL\pM\pN_-]+$`)
)

func isInteger(v any) bool {
	switch val := v.(type) {
	case string:
		return integerRe.MatchString(val)
	case float64:
		return val == math.Trunc(val) && !math.IsInf(val, 0)
	case float32:
		return float64(val) == math.Trunc(float64(val))
	}
	switch reflect.ValueOf(v).Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}
	return false
}

func isNumeric(v any) bool {
	if s, ok := v.(string); ok {
		_, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		return err == nil
	}
	_, ok := toFloat(v)
	return ok
}

func isBoolean(v any) bool {
	switch val := v.(type) {
	case bool:
		return true
	case string:
		return val == "0" || val == "1"
	}
	if f, ok := toFloat(v); ok {
		return f == 0 || f == 1
	}
	return false
}

func isArray(v any) bool {
	if v == nil {
		return false
	}
	switch reflect.ValueOf(v).Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return true
	}
	return false
}

// toFloat converts Go numeric kinds to float64
func toFloat(v any) (float64, bool) {
	if v == nil {
		return 0, false
	}
	if n, ok := v.(json.Number); ok {
		f, err := n.Float64()
		return f, err == nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return 0, false
}

// sizeOf measures a value the way size rules compare it: numbers by value
// (numeric strings too when the set is numeric), strings by rune count,
// collections by length.
func sizeOf(v any, numeric bool) (float64, bool) {
	if f, ok := toFloat(v); ok {
		return f, true
	}
	switch val := v.(type) {
	case string:
		if numeric {
			if f, err := strconv.ParseFloat(strings.TrimSpace(val), 64); err == nil {
				return f, true
			}
		}
		return float64(utf8.RuneCountInString(val)), true
	}
	if v == nil {
		return 0, false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return float64(rv.Len()), true
	}
	return 0, false
}

func parseNumber(arg string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(arg), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", arg)
	}
	return f, nil
}

func sizeRule(cmp func(n, arg float64) bool, describe string) builder {
	return func(arg string) (constraint, error) {
		limit, err := parseNumber(arg)
		if err != nil {
			return constraint{}, err
		}
		return constraint{
			check: func(v any, numeric bool) bool {
				n, ok := sizeOf(v, numeric)
				return ok && cmp(n, limit)
			},
			describe: fmt.Sprintf(describe, strings.TrimSpace(arg)),
		}, nil
	}
}

func betweenRule(arg string) (constraint, error) {
	lo, hi, ok := strings.Cut(arg, ",")
	if !ok {
		return constraint{}, fmt.Errorf("needs two arguments")
	}
	low, err := parseNumber(lo)
	if err != nil {
		return constraint{}, err
	}
	high, err := parseNumber(hi)
	if err != nil {
		return constraint{}, err
	}
	return constraint{
		check: func(v any, numeric bool) bool {
			n, ok := sizeOf(v, numeric)
			return ok && n >= low && n <= high
		},
		describe: fmt.Sprintf("be between %s and %s", strings.TrimSpace(lo), strings.TrimSpace(hi)),
	}, nil
}

func inRule(want bool) builder {
	return func(arg string) (constraint, error) {
		if arg == "" {
			return constraint{}, fmt.Errorf("needs at least one value")
		}
		options := strings.Split(arg, ",")
		set := make(map[string]struct{}, len(options))
		for _, o := range options {
			set[strings.TrimSpace(o)] = struct{}{}
		}

		describe := "be one of " + strings.Join(options, ", ")
		if !want {
			describe = "not be one of " + strings.Join(options, ", ")
		}

		return constraint{
			check: func(v any, _ bool) bool {
				if v == nil || isArray(v) {
					return false
				}
				_, found := set[fmt.Sprint(v)]
				return found == want
			},
			describe: describe,
		}, nil
	}
}

// regexRule accepts delimited patterns such as /^\d+$/i or #\d{3}#
func regexRule(want bool) builder {
	return func(arg string) (constraint, error) {
		re, err := compileDelimited(arg)
		if err != nil {
			return constraint{}, err
		}

		describe := "match " + arg
		if !want {
			describe = "not match " + arg
		}

		return constraint{
			check: func(v any, _ bool) bool {
				var s string
				switch val := v.(type) {
				case string:
					s = val
				default:
					if _, ok := toFloat(v); !ok {
						return false
					}
					s = fmt.Sprint(v)
				}
				return re.MatchString(s) == want
			},
			describe: describe,
		}, nil
	}
}

func compileDelimited(pattern string) (*regexp.Regexp, error) {
	if len(pattern) < 2 {
		return nil, fmt.Errorf("invalid pattern %q", pattern)
	}

	delim := pattern[0]
	if isAlnum(delim) || delim == '\\' || delim == ' ' {
		return nil, fmt.Errorf("pattern %q needs delimiters", pattern)
	}

	end := strings.LastIndexByte(pattern, closingDelimiter(delim))
	if end <= 0 {
		return nil, fmt.Errorf("pattern %q is missing its closing delimiter", pattern)
	}

	body := pattern[1:end]
	flags := pattern[end+1:]

	var goFlags strings.Builder
	for _, f := range flags {
		switch f {
		case 'i', 'm', 's':
			goFlags.WriteRune(f)
		case 'u', 'x', 'U':
			// unicode is always on in Go; extended and ungreedy are not supported
			if f != 'u' {
				return nil, fmt.Errorf("unsupported pattern flag %q", f)
			}
		default:
			return nil, fmt.Errorf("unknown pattern flag %q", f)
		}
	}
	if goFlags.Len() > 0 {
		body = "(?" + goFlags.String() + ")" + body
	}

	re, err := regexp.Compile(body)
	if err != nil {
		return nil, fmt.Errorf("compiling pattern %q: %w", pattern, err)
	}
	return re, nil
}

// closingDelimiter pairs bracket delimiters; any other delimiter closes itself
func closingDelimiter(open byte) byte {
	switch open {
	case '(':
		return ')'
	case '[':
		return ']'
	case '{':
		return '}'
	case '<':
		return '>'
	}
	return open
}

func isAlnum(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}
