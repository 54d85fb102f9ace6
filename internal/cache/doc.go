// Package cache provides the shared cache backend used to memoize settings
// aggregates, with a ttlcache-backed in-process implementation.
package cache
