// Package cache provides explicit, concurrency-safe memoization for the
// overlay engine's pure computations.
package cache

import (
	"errors"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/couchcryptid/quake-overlay-service/internal/observability"
)

// Policy selects how a cache bounds its entries.
type Policy string

const (
	// PolicyUnbounded keeps every entry for the lifetime of the cache.
	PolicyUnbounded Policy = "unbounded"
	// PolicyLRU keeps at most MaxEntries, evicting the least recently used.
	PolicyLRU Policy = "lru"
)

// Options configures a Cache.
type Options struct {
	Policy     Policy
	MaxEntries int
}

// ErrInvalidOptions is returned by New for an unknown policy or an LRU
// cache without a positive size.
var ErrInvalidOptions = errors.New("invalid cache options")

type store[K comparable, V any] interface {
	get(key K) (V, bool)
	put(key K, value V)
	len() int
}

// Cache memoizes values by key. Entries never expire; under PolicyLRU they
// may be evicted. Safe for concurrent use.
type Cache[K comparable, V any] struct {
	name    string
	store   store[K, V]
	metrics *observability.Metrics
}

// New creates a named cache. The name labels its Prometheus series.
// A nil metrics disables instrumentation.
func New[K comparable, V any](name string, opts Options, metrics *observability.Metrics) (*Cache[K, V], error) {
	var s store[K, V]
	switch opts.Policy {
	case "", PolicyUnbounded:
		s = &mapStore[K, V]{entries: make(map[K]V)}
	case PolicyLRU:
		if opts.MaxEntries <= 0 {
			return nil, fmt.Errorf("%w: lru cache %q needs MaxEntries > 0", ErrInvalidOptions, name)
		}
		l, err := lru.New[K, V](opts.MaxEntries)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidOptions, err)
		}
		s = &lruStore[K, V]{entries: l}
	default:
		return nil, fmt.Errorf("%w: unknown policy %q", ErrInvalidOptions, opts.Policy)
	}

	return &Cache[K, V]{name: name, store: s, metrics: metrics}, nil
}

// Get returns the cached value for key, if present.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	v, ok := c.store.get(key)
	c.record(ok)
	return v, ok
}

// Put stores value under key, replacing any previous value.
func (c *Cache[K, V]) Put(key K, value V) {
	c.store.put(key, value)
	c.observeLen()
}

// GetOrCompute returns the cached value for key, calling fn and storing its
// result on a miss. fn runs outside any lock, so concurrent misses on the
// same key may each compute; the last write wins.
func (c *Cache[K, V]) GetOrCompute(key K, fn func() V) V {
	if v, ok := c.Get(key); ok {
		return v
	}
	v := fn()
	c.Put(key, v)
	return v
}

// GetOrTry is GetOrCompute for fallible computations. Errors are returned
// to the caller and never cached.
func (c *Cache[K, V]) GetOrTry(key K, fn func() (V, error)) (V, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}
	v, err := fn()
	if err != nil {
		return v, err
	}
	c.Put(key, v)
	return v, nil
}

// Len returns the number of cached entries.
func (c *Cache[K, V]) Len() int {
	return c.store.len()
}

func (c *Cache[K, V]) record(hit bool) {
	if c.metrics == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	c.metrics.CacheLookups.WithLabelValues(c.name, result).Inc()
}

func (c *Cache[K, V]) observeLen() {
	if c.metrics == nil {
		return
	}
	c.metrics.CacheEntries.WithLabelValues(c.name).Set(float64(c.store.len()))
}

// mapStore is the unbounded policy.
type mapStore[K comparable, V any] struct {
	mu      sync.RWMutex
	entries map[K]V
}

func (s *mapStore[K, V]) get(key K) (V, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.entries[key]
	return v, ok
}

func (s *mapStore[K, V]) put(key K, value V) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = value
}

func (s *mapStore[K, V]) len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// lruStore delegates to golang-lru, which does its own locking.
type lruStore[K comparable, V any] struct {
	entries *lru.Cache[K, V]
}

func (s *lruStore[K, V]) get(key K) (V, bool) { return s.entries.Get(key) }
func (s *lruStore[K, V]) put(key K, value V)  { s.entries.Add(key, value) }
func (s *lruStore[K, V]) len() int            { return s.entries.Len() }
