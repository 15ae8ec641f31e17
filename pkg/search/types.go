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

// Package search defines the result model shared by every retrieval stage:
// retrievers produce results, fusion and reranking mutate their scores, and
// the orchestrator returns them to the caller.
package search

import (
	"sort"
	"strings"
)

// Reserved metadata keys. Stages annotate results through these; consumers
// must treat unknown keys as opaque.
const (
	// MetaCollection is the backend collection a result came from.
	MetaCollection = "_collection"

	// MetaFileType is the source file type (normalized upper-case).
	MetaFileType = "file_type"

	// MetaRerankMethod records which reranker produced the current score.
	MetaRerankMethod = "rerank_method"

	// MetaOriginalScore preserves the score a stage overwrote.
	MetaOriginalScore = "original_score"

	// MetaRRFScore is the fused reciprocal-rank score.
	MetaRRFScore = "rrf_score"

	// MetaHybridScore is the vector+graph fused score.
	MetaHybridScore = "hybrid_score"

	// MetaVectorRank is the 1-based rank in the vector source (0 = absent).
	MetaVectorRank = "vector_rank"

	// MetaGraphRank is the 1-based rank in the graph source (0 = absent).
	MetaGraphRank = "graph_rank"

	// MetaScoreBeforeWeight preserves the score before scoring weights applied.
	MetaScoreBeforeWeight = "_score_before_weight"

	// MetaQueryAppearances counts how many expanded queries returned the doc.
	MetaQueryAppearances = "query_appearances"
)

// Result is one retrieved document.
//
// Score semantics depend on the stage that produced it: a similarity in [0,1]
// at the retriever, an un-normalized fused score after RRF, and the
// reranker's 0..1 relevance after reranking. MetaOriginalScore holds the
// pre-mutation value whenever a stage overwrites Score.
type Result struct {
	// ID uniquely identifies a document within one request. Two results
	// with equal ID in a merged list are a bug.
	ID string `json:"id"`

	// Content is the text payload fed to the generator.
	Content string `json:"content"`

	// Score is the current-stage score.
	Score float64 `json:"score"`

	// Metadata carries per-result annotations (reserved keys above).
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Collection returns the backend collection name, if set.
func (r *Result) Collection() string {
	if c, ok := r.Metadata[MetaCollection].(string); ok {
		return c
	}
	return ""
}

// FileType returns the normalized upper-case file type, if set.
func (r *Result) FileType() string {
	if ft, ok := r.Metadata[MetaFileType].(string); ok {
		return strings.ToUpper(ft)
	}
	return ""
}

// SetMeta sets a metadata key, allocating the map if needed.
func (r *Result) SetMeta(key string, value any) {
	if r.Metadata == nil {
		r.Metadata = make(map[string]any)
	}
	r.Metadata[key] = value
}

// Clone returns a deep copy (metadata map included). Caches hand out clones
// so callers cannot mutate stored entries.
func (r Result) Clone() Result {
	out := r
	if r.Metadata != nil {
		out.Metadata = make(map[string]any, len(r.Metadata))
		for k, v := range r.Metadata {
			out.Metadata[k] = v
		}
	}
	return out
}

// CloneResults deep-copies a result list.
func CloneResults(results []Result) []Result {
	if results == nil {
		return nil
	}
	out := make([]Result, len(results))
	for i, r := range results {
		out[i] = r.Clone()
	}
	return out
}

// SortByScore sorts results by score descending, stable so that ties keep
// their insertion order.
func SortByScore(results []Result) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
}

// Truncate limits a list to at most n results. n <= 0 returns the list
// unchanged.
func Truncate(results []Result, n int) []Result {
	if n > 0 && len(results) > n {
		return results[:n]
	}
	return results
}

// Dedupe removes duplicate IDs keeping the first (highest-ranked) occurrence.
func Dedupe(results []Result) []Result {
	seen := make(map[string]bool, len(results))
	out := results[:0]
	for _, r := range results {
		if seen[r.ID] {
			continue
		}
		seen[r.ID] = true
		out = append(out, r)
	}
	return out
}
