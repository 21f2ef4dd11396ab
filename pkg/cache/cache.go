// Package cache memoises validation results by pipeline content.
//
// The validation service analyses the same pipeline JSON many times while a
// user iterates on a canvas. Results are stored under a key derived from the
// SHA-256 of the submitted document, so identical submissions skip the cycle
// check.
//
// Backends:
//   - [RedisCache] for shared deployments (go-redis)
//   - [FileCache] for a single service instance with a local directory
//   - [NullCache] when caching is disabled
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Cache stores opaque byte values with an optional TTL.
type Cache interface {
	// Get returns the value for key and whether it was present.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A zero ttl never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases the backend.
	Close() error
}

// KeyTypeParse labels parse results in cache hooks.
const KeyTypeParse = "parse"

// ParseKey returns the cache key for the analysis of a pipeline document.
// Documents that differ only in whitespace get different keys.
func ParseKey(document []byte) string {
	return KeyTypeParse + ":" + Hash(document)
}

// Hash returns the hex-encoded SHA-256 of data.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
