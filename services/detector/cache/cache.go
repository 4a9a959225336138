// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package cache provides the bounded LRU cache for detection results,
// keyed by the hashed header signature of a request.
package cache

import (
	"container/list"
	"sync"
	"sync/atomic"
	"time"

	"github.com/AleutianAI/Kodiak/pkg/hashing"
	"github.com/AleutianAI/Kodiak/services/detector/datatypes"
)

// Default sizing. A thousand distinct header signatures covers the
// realistic browser/device population of a busy edge node.
const (
	DefaultMaxSize     = 1000
	DefaultPruneAmount = 100
	DefaultTTL         = 5 * time.Minute
)

// Options configures a ResultCache.
type Options struct {
	// MaxSize is the entry count that triggers a prune. The cache
	// never holds more than MaxSize entries after an insert returns.
	MaxSize int

	// PruneAmount is how many least-recently-used entries a single
	// prune removes. Batching keeps the eviction cost off the common
	// insert path.
	PruneAmount int

	// TTL bounds entry age. Expired entries are treated as misses and
	// removed on access; zero disables expiry.
	TTL time.Duration

	// Hasher digests signatures into fixed-size keys.
	Hasher hashing.Hasher
}

// Option mutates Options.
type Option func(*Options)

// WithMaxSize sets the maximum entry count.
func WithMaxSize(n int) Option {
	return func(o *Options) { o.MaxSize = n }
}

// WithPruneAmount sets the batch eviction size.
func WithPruneAmount(n int) Option {
	return func(o *Options) { o.PruneAmount = n }
}

// WithTTL sets the entry time-to-live.
func WithTTL(d time.Duration) Option {
	return func(o *Options) { o.TTL = d }
}

// WithHasher sets the signature hashing algorithm.
func WithHasher(h hashing.Hasher) Option {
	return func(o *Options) { o.Hasher = h }
}

type entry struct {
	caps       *datatypes.ClientCapabilities
	storedAt   time.Time
	lruElement *list.Element
}

// ResultCache is a bounded LRU of detection results.
//
// Thread Safety:
//
//	Safe for concurrent use. A single RWMutex guards the map and the
//	LRU list; stat counters are atomics so Stats never takes the lock.
type ResultCache struct {
	mu      sync.RWMutex
	entries map[string]*entry
	lru     *list.List // front = most recently used; values are hashed keys
	opts    Options

	hits       int64
	misses     int64
	evictions  int64
	insertions int64
}

// Stats is a point-in-time snapshot of cache counters.
type Stats struct {
	Size       int     `json:"size"`
	MaxSize    int     `json:"maxSize"`
	Hits       int64   `json:"hits"`
	Misses     int64   `json:"misses"`
	Evictions  int64   `json:"evictions"`
	Insertions int64   `json:"insertions"`
	HitRate    float64 `json:"hitRate"`
}

// New creates a ResultCache. Zero or negative sizes fall back to the
// defaults; a missing hasher falls back to hashing.Default().
func New(opts ...Option) *ResultCache {
	options := Options{
		MaxSize:     DefaultMaxSize,
		PruneAmount: DefaultPruneAmount,
		TTL:         DefaultTTL,
	}
	for _, opt := range opts {
		opt(&options)
	}
	if options.MaxSize <= 0 {
		options.MaxSize = DefaultMaxSize
	}
	if options.PruneAmount <= 0 {
		options.PruneAmount = DefaultPruneAmount
	}
	if options.PruneAmount > options.MaxSize {
		options.PruneAmount = options.MaxSize
	}
	if options.Hasher == nil {
		options.Hasher = hashing.Default()
	}

	return &ResultCache{
		entries: make(map[string]*entry),
		lru:     list.New(),
		opts:    options,
	}
}

// Get returns the cached capabilities for a header signature. Expired
// entries are removed and reported as misses.
func (c *ResultCache) Get(signature string) (*datatypes.ClientCapabilities, bool) {
	key := c.opts.Hasher.Sum(signature)

	c.mu.RLock()
	e, ok := c.entries[key]
	if !ok {
		c.mu.RUnlock()
		atomic.AddInt64(&c.misses, 1)
		return nil, false
	}
	if c.expired(e) {
		c.mu.RUnlock()
		c.removeExpired(key)
		atomic.AddInt64(&c.misses, 1)
		return nil, false
	}
	caps := e.caps
	c.mu.RUnlock()

	c.touch(key)
	atomic.AddInt64(&c.hits, 1)
	return caps, true
}

// Put stores a detection result under a header signature. When the
// insert pushes the cache past MaxSize, the PruneAmount least recently
// used entries are evicted in one pass.
func (c *ResultCache) Put(signature string, caps *datatypes.ClientCapabilities) {
	key := c.opts.Hasher.Sum(signature)

	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.caps = caps
		e.storedAt = time.Now()
		c.lru.MoveToFront(e.lruElement)
		return
	}

	e := &entry{caps: caps, storedAt: time.Now()}
	e.lruElement = c.lru.PushFront(key)
	c.entries[key] = e
	atomic.AddInt64(&c.insertions, 1)

	if len(c.entries) > c.opts.MaxSize {
		c.pruneLocked()
	}
}

// Clear empties the cache. Counters are preserved.
func (c *ResultCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*entry)
	c.lru.Init()
}

// Len returns the current entry count.
func (c *ResultCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Stats returns a counter snapshot.
func (c *ResultCache) Stats() Stats {
	hits := atomic.LoadInt64(&c.hits)
	misses := atomic.LoadInt64(&c.misses)
	s := Stats{
		Size:       c.Len(),
		MaxSize:    c.opts.MaxSize,
		Hits:       hits,
		Misses:     misses,
		Evictions:  atomic.LoadInt64(&c.evictions),
		Insertions: atomic.LoadInt64(&c.insertions),
	}
	if total := hits + misses; total > 0 {
		s.HitRate = float64(hits) / float64(total)
	}
	return s
}

// pruneLocked evicts the PruneAmount oldest entries. Caller holds mu.
func (c *ResultCache) pruneLocked() {
	for i := 0; i < c.opts.PruneAmount; i++ {
		back := c.lru.Back()
		if back == nil {
			return
		}
		key := back.Value.(string)
		c.lru.Remove(back)
		delete(c.entries, key)
		atomic.AddInt64(&c.evictions, 1)
	}
}

func (c *ResultCache) expired(e *entry) bool {
	return c.opts.TTL > 0 && time.Since(e.storedAt) > c.opts.TTL
}

// removeExpired re-checks expiry under the write lock before removing;
// a concurrent Put may have refreshed the entry.
func (c *ResultCache) removeExpired(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok || !c.expired(e) {
		return
	}
	c.lru.Remove(e.lruElement)
	delete(c.entries, key)
	atomic.AddInt64(&c.evictions, 1)
}

func (c *ResultCache) touch(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		c.lru.MoveToFront(e.lruElement)
	}
}
