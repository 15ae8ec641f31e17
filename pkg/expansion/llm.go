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

package expansion

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/youngouk/RAG-Standard-sub002/pkg/config"
	"github.com/youngouk/RAG-Standard-sub002/pkg/llm"
)

// LLMEngine expands queries with a chat model. Expansions are cached per
// query text so repeated requests in one process skip the model call.
type LLMEngine struct {
	model      llm.LLM
	maxQueries int
	logger     *slog.Logger

	mu    sync.RWMutex
	cache map[string]*ExpandedQuery
}

var _ Engine = (*LLMEngine)(nil)

// NewLLMEngine wires an engine over any chat model.
func NewLLMEngine(model llm.LLM, cfg *config.QueryExpansionConfig) *LLMEngine {
	return &LLMEngine{
		model:      model,
		maxQueries: cfg.MaxQueries,
		logger:     slog.Default().With("component", "query_expansion"),
		cache:      make(map[string]*ExpandedQuery),
	}
}

type expansionResponse struct {
	Queries []struct {
		Text   string  `json:"text"`
		Weight float64 `json:"weight"`
	} `json:"queries"`
	Complexity string `json:"complexity"`
	Intent     string `json:"intent"`
}

// Expand produces up to maxQueries weighted variants. Any model or parse
// failure degrades to the identity expansion.
func (e *LLMEngine) Expand(ctx context.Context, query string, sessionContext string) *ExpandedQuery {
	query = strings.TrimSpace(query)
	if query == "" {
		return Identity(query)
	}

	e.mu.RLock()
	cached, ok := e.cache[query]
	e.mu.RUnlock()
	if ok {
		return cached
	}

	raw, err := e.model.Generate(ctx, e.buildPrompt(query, sessionContext))
	if err != nil {
		e.logger.Warn("expansion generation failed, using original query", "error", err)
		return Identity(query)
	}

	var resp expansionResponse
	if err := llm.DecodeJSON(raw, &resp); err != nil {
		e.logger.Warn("expansion response unparseable, using original query", "error", err)
		return Identity(query)
	}

	out := e.normalize(query, &resp)
	e.mu.Lock()
	e.cache[query] = out
	e.mu.Unlock()
	return out
}

// normalize enforces the output contract: original first with weight 1.0,
// weights clamped to [0,1] and non-increasing, size capped, duplicates
// dropped.
func (e *LLMEngine) normalize(query string, resp *expansionResponse) *ExpandedQuery {
	out := &ExpandedQuery{
		Original:   query,
		Queries:    []WeightedQuery{{Text: query, Weight: 1.0}},
		Complexity: normalizeComplexity(resp.Complexity),
		Intent:     resp.Intent,
	}
	if out.Intent == "" {
		out.Intent = IntentUnknown
	}

	seen := map[string]bool{strings.ToLower(query): true}
	floor := 1.0
	for _, q := range resp.Queries {
		if len(out.Queries) >= e.maxQueries {
			break
		}
		text := strings.TrimSpace(q.Text)
		if text == "" || seen[strings.ToLower(text)] {
			continue
		}
		seen[strings.ToLower(text)] = true

		weight := llm.Clamp01(q.Weight)
		if weight > floor {
			weight = floor
		}
		floor = weight
		out.Queries = append(out.Queries, WeightedQuery{Text: text, Weight: weight})
	}
	return out
}

func normalizeComplexity(c string) string {
	switch strings.ToLower(strings.TrimSpace(c)) {
	case ComplexitySimple:
		return ComplexitySimple
	case ComplexityModerate:
		return ComplexityModerate
	case ComplexityComplex:
		return ComplexityComplex
	default:
		return ComplexitySimple
	}
}

func (e *LLMEngine) buildPrompt(query, sessionContext string) string {
	var b strings.Builder
	b.WriteString("Rewrite the user query into alternate search queries that would retrieve the same information.\n")
	fmt.Fprintf(&b, "Produce at most %d alternates. Assign each a weight in [0,1] reflecting how faithful it is to the original intent.\n", e.maxQueries-1)
	b.WriteString("Also classify the query complexity as simple, moderate, or complex, and tag its intent in one or two words.\n")
	b.WriteString("Respond with only JSON: {\"queries\": [{\"text\": ..., \"weight\": ...}], \"complexity\": ..., \"intent\": ...}\n\n")
	if sessionContext != "" {
		fmt.Fprintf(&b, "Conversation context:\n%s\n\n", sessionContext)
	}
	fmt.Fprintf(&b, "Query: %s\n", query)
	return b.String()
}
