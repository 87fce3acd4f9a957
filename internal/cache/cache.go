// Package cache provides the shared response cache: content-hash keyed,
// namespaced, TTL'd, with validation delegated to callers on read.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync/atomic"
	"time"
)

// Cache is the response cache contract. Implementations must make Set
// idempotent: racing workers writing the same key with the same payload
// are harmless.
type Cache interface {
	// Get returns the cached payload for key. The second return is false
	// when the key is absent or expired.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores payload under key with the given TTL.
	Set(ctx context.Context, key string, payload []byte, ttl time.Duration) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}

// Key derives a content-addressed cache key: identical content in the same
// namespace always maps to the same key.
func Key(namespace string, content []byte) string {
	h := sha256.New()
	h.Write([]byte(namespace))
	h.Write([]byte{0})
	h.Write(content)
	return namespace + ":" + hex.EncodeToString(h.Sum(nil))
}

// KeyString is Key for string content.
func KeyString(namespace, content string) string {
	return Key(namespace, []byte(content))
}

// Counting wraps a Cache and tracks hit/miss counts for run statistics.
type Counting struct {
	Cache

	hits   atomic.Int64
	misses atomic.Int64
}

// NewCounting wraps inner with hit/miss accounting.
func NewCounting(inner Cache) *Counting {
	return &Counting{Cache: inner}
}

// Get delegates to the wrapped cache and records the outcome.
func (c *Counting) Get(ctx context.Context, key string) ([]byte, bool, error) {
	payload, ok, err := c.Cache.Get(ctx, key)
	if err == nil && ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return payload, ok, err
}

// Hits returns the number of cache hits observed.
func (c *Counting) Hits() int { return int(c.hits.Load()) }

// Misses returns the number of cache misses observed.
func (c *Counting) Misses() int { return int(c.misses.Load()) }
