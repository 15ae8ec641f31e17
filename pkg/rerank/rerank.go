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

// Package rerank re-scores candidate lists against a query. Three reranker
// families share one interface: API cross-encoders, late-interaction
// (ColBERT-style) scorers, and LLM-as-judge. Rerankers never raise; any
// failure returns the input sorted by existing score, truncated to topN.
package rerank

import (
	"context"
	"sync"
	"time"

	"github.com/youngouk/RAG-Standard-sub002/pkg/search"
)

// Reranker is the uniform reranking surface.
type Reranker interface {
	// Rerank re-scores results against query and returns up to topN,
	// best first. Never returns an error; failures fall back to the
	// input order.
	Rerank(ctx context.Context, query string, results []search.Result, topN int) []search.Result

	// SupportsCaching reports whether the reranker is deterministic.
	// API cross-encoders are; LLM judges are not.
	SupportsCaching() bool

	// Name identifies the reranker in metadata and stats.
	Name() string

	// Stats returns the request counters.
	Stats() Stats
}

// Stats tracks reranker request accounting.
type Stats struct {
	TotalRequests      int64   `json:"total_requests"`
	SuccessfulRequests int64   `json:"successful_requests"`
	FailedRequests     int64   `json:"failed_requests"`
	AvgProcessingMS    float64 `json:"avg_processing_ms"`
	TokensUsed         int64   `json:"tokens_used,omitempty"`
}

// statsTracker is the shared mutable counter set behind Stats.
type statsTracker struct {
	mu      sync.Mutex
	total   int64
	success int64
	failed  int64
	totalMS int64
	tokens  int64
}

func (t *statsTracker) record(start time.Time, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.total++
	if ok {
		t.success++
	} else {
		t.failed++
	}
	t.totalMS += time.Since(start).Milliseconds()
}

func (t *statsTracker) addTokens(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.tokens += int64(n)
}

func (t *statsTracker) snapshot() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := Stats{
		TotalRequests:      t.total,
		SuccessfulRequests: t.success,
		FailedRequests:     t.failed,
		TokensUsed:         t.tokens,
	}
	if t.total > 0 {
		s.AvgProcessingMS = float64(t.totalMS) / float64(t.total)
	}
	return s
}

// fallback returns the input sorted by existing score descending,
// truncated to topN. Every reranker failure path funnels through here.
func fallback(results []search.Result, topN int) []search.Result {
	out := search.CloneResults(results)
	search.SortByScore(out)
	return search.Truncate(out, topN)
}
