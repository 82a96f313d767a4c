// Package locks provides named mutual exclusion: one mutex per logical key,
// so serializing post-metadata fetches does not block unrelated work.
package locks

import "sync"

// FetchPostMeta is the scope serializing all post-metadata pagination.
// Forward and backward fetches recompute the oldest/newest-known watermarks
// from the store, so two interleaved fetches could corrupt each other's
// pagination window; only one runs at a time process-wide.
const FetchPostMeta = "fetch-post-meta"

// Keyed hands out one mutex per key. Locks for distinct keys never contend.
// Keys are never evicted; the expected key space (a handful of named scopes)
// is tiny.
type Keyed struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewKeyed returns an empty keyed-mutex set.
func NewKeyed() *Keyed {
	return &Keyed{locks: make(map[string]*sync.Mutex)}
}

func (k *Keyed) get(key string) *sync.Mutex {
	k.mu.Lock()
	defer k.mu.Unlock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	return m
}

// Do runs fn while holding the mutex for key.
func (k *Keyed) Do(key string, fn func() error) error {
	m := k.get(key)
	m.Lock()
	defer m.Unlock()
	return fn()
}

// Lock acquires the mutex for key and returns its unlock function.
func (k *Keyed) Lock(key string) func() {
	m := k.get(key)
	m.Lock()
	return m.Unlock
}
