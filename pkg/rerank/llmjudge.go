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
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/youngouk/RAG-Standard-sub002/pkg/config"
	"github.com/youngouk/RAG-Standard-sub002/pkg/llm"
	"github.com/youngouk/RAG-Standard-sub002/pkg/search"
)

// LLMJudge reranks by prompting a model with document snippets and
// parsing a JSON score list. Non-deterministic, so never cacheable.
type LLMJudge struct {
	model         llm.LLM
	name          string
	maxDocuments  int
	snippetLength int
	timeout       time.Duration
	logger        *slog.Logger
	stats         statsTracker
}

var _ Reranker = (*LLMJudge)(nil)

// NewLLMJudge wires a judge over any chat model. name distinguishes the
// gemini-flash and openai-llm providers in metadata.
func NewLLMJudge(model llm.LLM, cfg *config.LLMRerankerConfig, name string) *LLMJudge {
	return &LLMJudge{
		model:         model,
		name:          name,
		maxDocuments:  cfg.MaxDocuments,
		snippetLength: cfg.SnippetLength,
		timeout:       time.Duration(cfg.Timeout) * time.Second,
		logger:        slog.Default().With("component", "reranker", "provider", name),
	}
}

// Name returns the provider name.
func (r *LLMJudge) Name() string { return r.name }

// SupportsCaching is false: model output varies across calls.
func (r *LLMJudge) SupportsCaching() bool { return false }

// Stats returns a counter snapshot.
func (r *LLMJudge) Stats() Stats { return r.stats.snapshot() }

// Rerank prompts the judge with up to maxDocuments snippets. Any failure
// (generation, parse, empty response) keeps the retrieval order.
func (r *LLMJudge) Rerank(ctx context.Context, query string, results []search.Result, topN int) []search.Result {
	start := time.Now()
	if len(results) == 0 {
		return results
	}
	if topN <= 0 || topN > len(results) {
		topN = len(results)
	}

	judged := results
	if len(judged) > r.maxDocuments {
		judged = judged[:r.maxDocuments]
	}

	prompt := r.buildPrompt(query, judged)
	r.stats.addTokens(llm.CountTokens(r.model.Model(), prompt))

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	raw, err := r.model.Generate(ctx, prompt)
	if err != nil {
		r.logger.Warn("judge generation failed, keeping retrieval order", "error", err)
		r.stats.record(start, false)
		return fallback(results, topN)
	}

	var scores []struct {
		Index int     `json:"index"`
		Score float64 `json:"score"`
	}
	if err := llm.DecodeJSON(raw, &scores); err != nil || len(scores) == 0 {
		r.logger.Warn("judge response unparseable, keeping retrieval order", "error", err)
		r.stats.record(start, false)
		return fallback(results, topN)
	}

	out := make([]search.Result, 0, len(scores))
	seen := make(map[int]bool)
	for _, s := range scores {
		if s.Index < 0 || s.Index >= len(judged) || seen[s.Index] {
			continue
		}
		seen[s.Index] = true
		res := judged[s.Index].Clone()
		res.SetMeta(search.MetaOriginalScore, res.Score)
		res.SetMeta(search.MetaRerankMethod, r.name)
		res.Score = llm.Clamp01(s.Score)
		out = append(out, res)
	}
	// Documents the judge skipped keep their place behind the scored ones.
	for i, res := range judged {
		if !seen[i] {
			out = append(out, res.Clone())
		}
	}
	if len(out) == 0 {
		r.stats.record(start, false)
		return fallback(results, topN)
	}

	search.SortByScore(out)
	r.stats.record(start, true)
	return search.Truncate(out, topN)
}

func (r *LLMJudge) buildPrompt(query string, results []search.Result) string {
	var b strings.Builder
	b.WriteString("Score each document's relevance to the query from 0.0 to 1.0.\n")
	b.WriteString("Respond with only a JSON array of {\"index\": <int>, \"score\": <float>} objects.\n\n")
	fmt.Fprintf(&b, "Query: %s\n\nDocuments:\n", query)
	for i, res := range results {
		snippet := res.Content
		if len(snippet) > r.snippetLength {
			snippet = snippet[:r.snippetLength]
		}
		fmt.Fprintf(&b, "[%d] %s\n", i, snippet)
	}
	return b.String()
}
