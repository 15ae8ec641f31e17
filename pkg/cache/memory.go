// Copyright 2025 The ragd Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cache

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/youngouk/RAG-Standard-sub002/pkg/search"
)

// MemoryCache is a bounded LRU with per-entry TTL and lazy expiry.
// Get and Set are O(1) amortized under an exclusive lock.
type MemoryCache struct {
	mu      sync.Mutex
	maxSize int
	ttl     time.Duration

	entries map[string]*list.Element
	lru     *list.List // front = most recently used

	// missAt remembers when a key last missed so a following Set can
	// record how long the pipeline took to build the entry; hits then
	// account that as saved time.
	missAt map[string]time.Time

	hits          int64
	misses        int64
	sets          int64
	invalidations int64
	savedTimeMS   int64
}

type memoryEntry struct {
	key       string
	results   []search.Result
	expiresAt time.Time
	buildTime time.Duration
}

var _ Manager = (*MemoryCache)(nil)

// NewMemoryCache creates an LRU cache. maxSize <= 0 defaults to 1000,
// ttl <= 0 defaults to one hour.
func NewMemoryCache(maxSize int, ttl time.Duration) *MemoryCache {
	if maxSize <= 0 {
		maxSize = 1000
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &MemoryCache{
		maxSize: maxSize,
		ttl:     ttl,
		entries: make(map[string]*list.Element),
		lru:     list.New(),
		missAt:  make(map[string]time.Time),
	}
}

// Get returns a copy of the cached list, expiring the entry lazily.
func (c *MemoryCache) Get(ctx context.Context, key string) ([]search.Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[key]
	if !ok {
		c.recordMiss(key)
		return nil, false
	}

	entry := elem.Value.(*memoryEntry)
	if time.Now().After(entry.expiresAt) {
		c.removeLocked(elem)
		c.recordMiss(key)
		return nil, false
	}

	c.lru.MoveToFront(elem)
	c.hits++
	c.savedTimeMS += entry.buildTime.Milliseconds()
	return search.CloneResults(entry.results), true
}

// Set stores a copy of results under key, evicting the LRU tail when full.
func (c *MemoryCache) Set(ctx context.Context, key string, results []search.Result, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.ttl
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	var buildTime time.Duration
	if missed, ok := c.missAt[key]; ok {
		buildTime = time.Since(missed)
		delete(c.missAt, key)
	}

	entry := &memoryEntry{
		key:       key,
		results:   search.CloneResults(results),
		expiresAt: time.Now().Add(ttl),
		buildTime: buildTime,
	}

	if elem, ok := c.entries[key]; ok {
		elem.Value = entry
		c.lru.MoveToFront(elem)
	} else {
		c.entries[key] = c.lru.PushFront(entry)
		for c.lru.Len() > c.maxSize {
			c.removeLocked(c.lru.Back())
		}
	}
	c.sets++
	return nil
}

// Invalidate drops one key.
func (c *MemoryCache) Invalidate(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.entries[key]; ok {
		c.removeLocked(elem)
		c.invalidations++
	}
	return nil
}

// Clear drops every entry.
func (c *MemoryCache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*list.Element)
	c.lru.Init()
	c.missAt = make(map[string]time.Time)
	return nil
}

// Stats returns a snapshot.
func (c *MemoryCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Hits:          c.hits,
		Misses:        c.misses,
		Sets:          c.sets,
		Invalidations: c.invalidations,
		Entries:       len(c.entries),
		HitRate:       hitRate(c.hits, c.misses),
		SavedTimeMS:   c.savedTimeMS,
		Provider:      "memory",
	}
}

// Close is a no-op for the in-memory cache.
func (c *MemoryCache) Close() error { return nil }

func (c *MemoryCache) recordMiss(key string) {
	c.misses++
	// Bound the miss tracker; a full reset is cheap and rare.
	if len(c.missAt) > c.maxSize {
		c.missAt = make(map[string]time.Time)
	}
	c.missAt[key] = time.Now()
}

func (c *MemoryCache) removeLocked(elem *list.Element) {
	if elem == nil {
		return
	}
	entry := elem.Value.(*memoryEntry)
	delete(c.entries, entry.key)
	c.lru.Remove(elem)
}
