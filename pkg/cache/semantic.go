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
	"context"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/youngouk/RAG-Standard-sub002/pkg/llm"
	"github.com/youngouk/RAG-Standard-sub002/pkg/search"
)

// QueryAware is the extension the semantic cache adds over Manager: lookups
// keyed by query meaning rather than by exact fingerprint. The orchestrator
// uses these paths when the configured cache supports them.
type QueryAware interface {
	GetByQuery(ctx context.Context, query string) ([]search.Result, bool)
	SetByQuery(ctx context.Context, query, key string, results []search.Result, ttl time.Duration) error
}

// SemanticCache matches queries by embedding similarity: a get hits when
// the cosine similarity against any stored non-expired query embedding
// reaches the threshold. Eviction is LRU over max entries; the similarity
// scan is linear, acceptable up to roughly a thousand entries.
type SemanticCache struct {
	mu        sync.Mutex
	embedder  llm.Embedder
	threshold float64
	maxSize   int
	ttl       time.Duration
	logger    *slog.Logger

	byKey map[string]*semanticEntry

	hits          int64
	misses        int64
	sets          int64
	invalidations int64
}

type semanticEntry struct {
	key        string
	query      string
	embedding  []float32
	results    []search.Result
	expiresAt  time.Time
	lastAccess time.Time
}

var (
	_ Manager    = (*SemanticCache)(nil)
	_ QueryAware = (*SemanticCache)(nil)
)

// NewSemanticCache creates a semantic cache. threshold <= 0 defaults to
// 0.92, maxSize <= 0 to 1000, ttl <= 0 to one hour.
func NewSemanticCache(embedder llm.Embedder, threshold float64, maxSize int, ttl time.Duration) *SemanticCache {
	if threshold <= 0 {
		threshold = 0.92
	}
	if maxSize <= 0 {
		maxSize = 1000
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &SemanticCache{
		embedder:  embedder,
		threshold: threshold,
		maxSize:   maxSize,
		ttl:       ttl,
		logger:    slog.Default().With("component", "semantic_cache"),
		byKey:     make(map[string]*semanticEntry),
	}
}

// Get does an exact fingerprint lookup. Similarity matching goes through
// GetByQuery.
func (c *SemanticCache) Get(ctx context.Context, key string) ([]search.Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.byKey[key]
	if !ok || time.Now().After(entry.expiresAt) {
		if ok {
			delete(c.byKey, key)
		}
		c.misses++
		return nil, false
	}
	entry.lastAccess = time.Now()
	c.hits++
	return search.CloneResults(entry.results), true
}

// GetByQuery embeds the query and returns the best stored entry whose
// cosine similarity reaches the threshold. Embedding failure is a miss.
func (c *SemanticCache) GetByQuery(ctx context.Context, query string) ([]search.Result, bool) {
	embedding, err := c.embedder.EmbedQuery(ctx, query)
	if err != nil {
		c.logger.Warn("query embedding failed, treating as miss", "error", err)
		c.mu.Lock()
		c.misses++
		c.mu.Unlock()
		return nil, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	var best *semanticEntry
	bestSim := c.threshold

	for key, entry := range c.byKey {
		if now.After(entry.expiresAt) {
			delete(c.byKey, key)
			continue
		}
		sim := CosineSimilarity(embedding, entry.embedding)
		if sim >= bestSim {
			best = entry
			bestSim = sim
		}
	}

	if best == nil {
		c.misses++
		return nil, false
	}
	best.lastAccess = now
	c.hits++
	return search.CloneResults(best.results), true
}

// Set stores results without an embedding; only exact lookups will find
// the entry. Prefer SetByQuery.
func (c *SemanticCache) Set(ctx context.Context, key string, results []search.Result, ttl time.Duration) error {
	return c.SetByQuery(ctx, "", key, results, ttl)
}

// SetByQuery embeds the query and stores it alongside the results.
func (c *SemanticCache) SetByQuery(ctx context.Context, query, key string, results []search.Result, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.ttl
	}

	var embedding []float32
	if query != "" {
		var err error
		embedding, err = c.embedder.EmbedQuery(ctx, query)
		if err != nil {
			c.logger.Warn("query embedding failed, storing exact-match only", "error", err)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	c.byKey[key] = &semanticEntry{
		key:        key,
		query:      query,
		embedding:  embedding,
		results:    search.CloneResults(results),
		expiresAt:  now.Add(ttl),
		lastAccess: now,
	}
	c.sets++

	for len(c.byKey) > c.maxSize {
		c.evictLRULocked()
	}
	return nil
}

// Invalidate drops one key.
func (c *SemanticCache) Invalidate(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.byKey[key]; ok {
		delete(c.byKey, key)
		c.invalidations++
	}
	return nil
}

// Clear drops every entry.
func (c *SemanticCache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byKey = make(map[string]*semanticEntry)
	return nil
}

// Stats returns a snapshot.
func (c *SemanticCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Hits:          c.hits,
		Misses:        c.misses,
		Sets:          c.sets,
		Invalidations: c.invalidations,
		Entries:       len(c.byKey),
		HitRate:       hitRate(c.hits, c.misses),
		Provider:      "semantic",
	}
}

// Close is a no-op.
func (c *SemanticCache) Close() error { return nil }

func (c *SemanticCache) evictLRULocked() {
	var oldestKey string
	var oldest time.Time
	for key, entry := range c.byKey {
		if oldestKey == "" || entry.lastAccess.Before(oldest) {
			oldestKey = key
			oldest = entry.lastAccess
		}
	}
	if oldestKey != "" {
		delete(c.byKey, oldestKey)
	}
}

// CosineSimilarity computes cos(a, b); 0 for mismatched or zero vectors.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
