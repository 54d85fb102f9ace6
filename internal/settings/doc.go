// Package settings implements a typed key/value settings registry on top of
// a store.Store.
//
// Every setting declares a Type (string, integer, boolean, array or regex)
// that controls how its value is encoded to and decoded from the stored
// text, an optional pipe-delimited rule string checked before values are
// written, a scope tag and an editable flag.
//
// Reads are served from a Cache that memoizes two aggregates: the decoded
// snapshot of every setting ("<prefix>.all") and the effective rule map
// ("<prefix>.rules"). Every create, update and delete invalidates both
// before returning, so a read after a write in the same process always
// observes the write.
//
// Errors are typed: a missing key matches ErrKeyNotFound, a rejected value
// is a *ValidationError, and an unknown or changed type is a
// *ConfigurationError.
package settings
