// Package cache holds the process-wide read-through cache. Staleness is
// envelope-wide: a stale envelope is rebuilt wholesale from the store on
// the next read, while individual writes keep it live in between.
package cache

import (
	"sync"
	"time"
)

const DefaultTTL = time.Hour

// Envelope maps ids to records of one entity class plus the time of the last
// full refresh. One instance exists per entity class for the process lifetime.
type Envelope[T any] struct {
	mu              sync.RWMutex
	entries         map[string]T
	lastRefreshedAt time.Time
	ttl             time.Duration
}

func NewEnvelope[T any](ttl time.Duration) *Envelope[T] {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Envelope[T]{ttl: ttl}
}

// Get returns a copy of the cached set when the envelope is fresh at now.
// ok is false when the envelope was never refreshed or the TTL has elapsed;
// the caller must refresh from the store and call Replace.
func (e *Envelope[T]) Get(now time.Time) (map[string]T, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.entries == nil || now.Sub(e.lastRefreshedAt) > e.ttl {
		return nil, false
	}
	return copyEntries(e.entries), true
}

// Lookup reads a single key regardless of envelope freshness. Incremental
// upserts keep individual keys valid between full refreshes.
func (e *Envelope[T]) Lookup(key string) (T, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	v, ok := e.entries[key]
	return v, ok
}

// Replace swaps the whole set and is the only operation that resets the
// refresh timestamp.
func (e *Envelope[T]) Replace(entries map[string]T, now time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.entries = copyEntries(entries)
	e.lastRefreshedAt = now
}

// Upsert stores a single record without touching the refresh timestamp:
// it reflects a write the cache itself caused, independent of the read TTL.
func (e *Envelope[T]) Upsert(key string, v T) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.entries == nil {
		e.entries = make(map[string]T)
	}
	e.entries[key] = v
}

// Remove drops a single record without touching the refresh timestamp.
func (e *Envelope[T]) Remove(key string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	delete(e.entries, key)
}

// Snapshot returns the current values regardless of freshness. The retention
// sweeper reads from this, never from the store.
func (e *Envelope[T]) Snapshot() []T {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]T, 0, len(e.entries))
	for _, v := range e.entries {
		out = append(out, v)
	}
	return out
}

func copyEntries[T any](src map[string]T) map[string]T {
	dst := make(map[string]T, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
