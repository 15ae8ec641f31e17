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

package rerank

import (
	"context"

	"github.com/youngouk/RAG-Standard-sub002/pkg/search"
)

// Stage is one chain member with an enable switch.
type Stage struct {
	Reranker Reranker
	Enabled  bool
}

// Chain runs rerankers sequentially, feeding each stage's output into the
// next. Disabled stages are skipped; a stage cannot fail the chain because
// rerankers themselves never raise.
type Chain struct {
	stages []Stage
}

var _ Reranker = (*Chain)(nil)

// NewChain builds a chain. An empty chain passes input through.
func NewChain(stages ...Stage) *Chain {
	return &Chain{stages: stages}
}

// Name identifies the chain.
func (c *Chain) Name() string { return "chain" }

// SupportsCaching is true only when every enabled stage is deterministic.
func (c *Chain) SupportsCaching() bool {
	for _, stage := range c.stages {
		if stage.Enabled && !stage.Reranker.SupportsCaching() {
			return false
		}
	}
	return true
}

// Rerank pipes results through each enabled stage.
func (c *Chain) Rerank(ctx context.Context, query string, results []search.Result, topN int) []search.Result {
	current := results
	for _, stage := range c.stages {
		if !stage.Enabled || len(current) == 0 {
			continue
		}
		next := stage.Reranker.Rerank(ctx, query, current, topN)
		if len(next) > 0 {
			current = next
		}
	}
	return search.Truncate(current, topN)
}

// Stats aggregates across stages.
func (c *Chain) Stats() Stats {
	var out Stats
	var totalMS float64
	for _, stage := range c.stages {
		s := stage.Reranker.Stats()
		out.TotalRequests += s.TotalRequests
		out.SuccessfulRequests += s.SuccessfulRequests
		out.FailedRequests += s.FailedRequests
		out.TokensUsed += s.TokensUsed
		totalMS += s.AvgProcessingMS * float64(s.TotalRequests)
	}
	if out.TotalRequests > 0 {
		out.AvgProcessingMS = totalMS / float64(out.TotalRequests)
	}
	return out
}

// StageStats returns per-stage counters keyed by reranker name.
func (c *Chain) StageStats() map[string]Stats {
	out := make(map[string]Stats, len(c.stages))
	for _, stage := range c.stages {
		out[stage.Reranker.Name()] = stage.Reranker.Stats()
	}
	return out
}
