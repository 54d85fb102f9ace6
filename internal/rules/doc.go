// Package rules implements the pipe-delimited validation rules attached to
// settings, for example "nullable|integer|min:1" or "required|email".
//
// A rule string is parsed once into a Set and can then check any number of
// values:
//
//	set, err := rules.Parse("nullable|integer|between:1,65535")
//	msgs := set.Check("http_port", 8080) // nil: valid
//
// Supported rules:
//
//	nullable            nil values pass every other rule
//	required, filled    value must be non-nil and non-empty
//	string, integer, numeric, boolean, array
//	min:N, max:N, size:N, between:A,B
//	                    numbers compare by value, strings by length,
//	                    arrays by element count; numeric strings compare
//	                    by value when the set also names integer or numeric
//	in:a,b,c, not_in:a,b,c
//	regex:/pattern/flags, not_regex:/pattern/flags
//	email, url, uuid, ip, ipv4, ipv6, alpha, alpha_num, alpha_dash,
//	json, lowercase, uppercase, timezone
//
// Format rules delegate to github.com/go-playground/validator/v10 and only
// accept strings. Regex patterns may contain '|' as long as they are
// delimited.
package rules
