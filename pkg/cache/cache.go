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

// Package cache maps request fingerprints to prior result lists. Three
// variants share one interface: an in-memory LRU, an embedding-similarity
// semantic cache, and a redis-backed distributed cache that falls back to
// local memory when the transport fails.
//
// Cache failures never fail a request: Get errors count as misses, Set
// errors are logged by the caller and dropped.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/youngouk/RAG-Standard-sub002/pkg/search"
)

// Manager is the cache surface consumed by the orchestrator.
type Manager interface {
	// Get returns the cached list for key, or false on miss. Returned
	// results are copies; mutating them does not affect the stored entry.
	Get(ctx context.Context, key string) ([]search.Result, bool)

	// Set stores results under key. ttl <= 0 uses the cache default.
	Set(ctx context.Context, key string, results []search.Result, ttl time.Duration) error

	// Invalidate drops one key.
	Invalidate(ctx context.Context, key string) error

	// Clear drops every entry.
	Clear(ctx context.Context) error

	// Stats returns a snapshot of counters.
	Stats() Stats

	// Close releases resources.
	Close() error
}

// Stats is a point-in-time counter snapshot. HitRate is computed on read.
type Stats struct {
	Hits          int64   `json:"hits"`
	Misses        int64   `json:"misses"`
	Sets          int64   `json:"sets"`
	Invalidations int64   `json:"invalidations"`
	Entries       int     `json:"entries"`
	HitRate       float64 `json:"hit_rate"`
	SavedTimeMS   int64   `json:"saved_time_ms"`
	Provider      string  `json:"provider"`
}

func hitRate(hits, misses int64) float64 {
	total := hits + misses
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}

// GenerateCacheKey derives the request fingerprint:
// SHA-256(query | top_k | sorted filters).
func GenerateCacheKey(query string, topK int, filters map[string]any) string {
	var b strings.Builder
	b.WriteString(query)
	b.WriteString("|")
	fmt.Fprintf(&b, "%d", topK)
	b.WriteString("|")

	if len(filters) > 0 {
		keys := make([]string, 0, len(filters))
		for k := range filters {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "%s=%v;", k, filters[k])
		}
	}

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
