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

package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/youngouk/RAG-Standard-sub002/pkg/cache"
	"github.com/youngouk/RAG-Standard-sub002/pkg/config"
	"github.com/youngouk/RAG-Standard-sub002/pkg/expansion"
	"github.com/youngouk/RAG-Standard-sub002/pkg/graph"
	"github.com/youngouk/RAG-Standard-sub002/pkg/hybrid"
	"github.com/youngouk/RAG-Standard-sub002/pkg/rerank"
	"github.com/youngouk/RAG-Standard-sub002/pkg/search"
)

type fakeRetriever struct {
	results []search.Result
	err     error
	calls   int
}

func (f *fakeRetriever) Search(ctx context.Context, query string, topK int, filters map[string]any) ([]search.Result, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return search.CloneResults(f.results), nil
}

type fakeHybrid struct {
	result *hybrid.Result
	err    error
	calls  int
}

func (f *fakeHybrid) Search(ctx context.Context, query string, topK int) (*hybrid.Result, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

// failingCache errors on every call.
type failingCache struct{}

func (f *failingCache) Get(ctx context.Context, key string) ([]search.Result, bool) {
	return nil, false
}
func (f *failingCache) Set(ctx context.Context, key string, results []search.Result, ttl time.Duration) error {
	return errors.New("cache down")
}
func (f *failingCache) Invalidate(ctx context.Context, key string) error {
	return errors.New("cache down")
}
func (f *failingCache) Clear(ctx context.Context) error { return errors.New("cache down") }
func (f *failingCache) Stats() cache.Stats              { return cache.Stats{} }
func (f *failingCache) Close() error                    { return nil }

// failingReranker simulates a reranker whose internals always degrade to
// the fallback ordering.
type failingReranker struct{}

func (f *failingReranker) Rerank(ctx context.Context, query string, results []search.Result, topN int) []search.Result {
	out := search.CloneResults(results)
	search.SortByScore(out)
	return search.Truncate(out, topN)
}
func (f *failingReranker) SupportsCaching() bool { return false }
func (f *failingReranker) Name() string          { return "failing" }
func (f *failingReranker) Stats() rerank.Stats   { return rerank.Stats{} }

// failingExpander always degrades to the identity expansion.
type failingExpander struct{}

func (f *failingExpander) Expand(ctx context.Context, query, sessionContext string) *expansion.ExpandedQuery {
	return expansion.Identity(query)
}

// failingGraph errors on every call.
type failingGraph struct{}

func (f *failingGraph) AddEntity(ctx context.Context, e graph.Entity) error {
	return errors.New("graph down")
}
func (f *failingGraph) AddRelation(ctx context.Context, r graph.Relation) error {
	return errors.New("graph down")
}
func (f *failingGraph) GetEntity(ctx context.Context, id string) (*graph.Entity, error) {
	return nil, errors.New("graph down")
}
func (f *failingGraph) GetNeighbors(ctx context.Context, id string, relationTypes []string, maxDepth int) (*graph.SearchResult, error) {
	return nil, errors.New("graph down")
}
func (f *failingGraph) Search(ctx context.Context, query string, entityTypes []string, topK int) (*graph.SearchResult, error) {
	return nil, errors.New("graph down")
}
func (f *failingGraph) Clear(ctx context.Context) error { return errors.New("graph down") }
func (f *failingGraph) GetStats(ctx context.Context) (graph.Stats, error) {
	return graph.Stats{}, errors.New("graph down")
}
func (f *failingGraph) Close(ctx context.Context) error { return nil }

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.SetDefaults()
	return cfg
}

func docs(n int, fileType string) []search.Result {
	out := make([]search.Result, n)
	for i := range out {
		out[i] = search.Result{
			ID:      fmt.Sprintf("doc-%d", i),
			Content: "content",
			Score:   1 - float64(i)*0.01,
		}
		if fileType != "" {
			out[i].SetMeta(search.MetaFileType, fileType)
		}
	}
	return out
}

func TestSearchAndRerank_CacheMissThenHit(t *testing.T) {
	cfg := testConfig()
	retriever := &fakeRetriever{results: docs(3, "")}
	memCache := cache.NewMemoryCache(100, time.Minute)
	o := New(cfg, Options{Retriever: retriever, Cache: memCache})

	first := o.SearchAndRerank(context.Background(), Request{Query: "x", TopK: 5})
	stats := o.Stats()
	if stats.CacheMisses != 1 || stats.RetrievalCount != 1 {
		t.Fatalf("after miss: %+v", stats)
	}

	second := o.SearchAndRerank(context.Background(), Request{Query: "x", TopK: 5})
	stats = o.Stats()
	if stats.CacheHits != 1 {
		t.Errorf("expected one cache hit, got %+v", stats)
	}
	if stats.RetrievalCount != 1 {
		t.Errorf("cache hit must skip retrieval, got %+v", stats)
	}
	if len(first) != len(second) {
		t.Errorf("hit returned a different list: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].ID != second[i].ID {
			t.Errorf("hit order differs at %d: %s vs %s", i, first[i].ID, second[i].ID)
		}
	}
}

func TestSearchAndRerank_AutoEnableRunsHybrid(t *testing.T) {
	cfg := testConfig()
	cfg.GraphRAG.HybridSearch.AutoEnable = true
	retriever := &fakeRetriever{results: docs(2, "")}
	hyb := &fakeHybrid{result: &hybrid.Result{Results: docs(2, ""), VectorCount: 2}}
	o := New(cfg, Options{Retriever: retriever, Hybrid: hyb})

	o.SearchAndRerank(context.Background(), Request{Query: "q"})
	stats := o.Stats()
	if stats.HybridSearchCount != 1 {
		t.Errorf("auto_enable=true must run hybrid, got %+v", stats)
	}
	if stats.RetrievalCount != 0 {
		t.Errorf("hybrid path must not hit the plain retriever, got %+v", stats)
	}
}

func TestSearchAndRerank_AutoEnableOffRunsVectorOnly(t *testing.T) {
	cfg := testConfig()
	cfg.GraphRAG.HybridSearch.AutoEnable = false
	retriever := &fakeRetriever{results: docs(2, "")}
	hyb := &fakeHybrid{result: &hybrid.Result{Results: docs(2, "")}}
	o := New(cfg, Options{Retriever: retriever, Hybrid: hyb})

	o.SearchAndRerank(context.Background(), Request{Query: "q"})
	stats := o.Stats()
	if stats.HybridSearchCount != 0 || stats.RetrievalCount != 1 {
		t.Errorf("auto_enable=false must run vector-only, got %+v", stats)
	}
}

func TestSearchAndRerank_UseGraphOverride(t *testing.T) {
	cfg := testConfig()
	cfg.GraphRAG.HybridSearch.AutoEnable = false
	retriever := &fakeRetriever{results: docs(2, "")}
	hyb := &fakeHybrid{result: &hybrid.Result{Results: docs(2, "")}}
	o := New(cfg, Options{Retriever: retriever, Hybrid: hyb})

	useGraph := true
	o.SearchAndRerank(context.Background(), Request{Query: "q", UseGraph: &useGraph})
	if stats := o.Stats(); stats.HybridSearchCount != 1 {
		t.Errorf("use_graph=true must force hybrid, got %+v", stats)
	}
}

func TestSearchAndRerank_DiversityCap(t *testing.T) {
	cfg := testConfig()
	retriever := &fakeRetriever{results: docs(20, "txt")}
	o := New(cfg, Options{Retriever: retriever})

	out := o.SearchAndRerank(context.Background(), Request{Query: "q", TopK: 20})
	if len(out) > 15 {
		t.Errorf("TXT results must cap at 15, got %d", len(out))
	}
}

func TestSearchAndRerank_DiversityCapOnCacheHit(t *testing.T) {
	cfg := testConfig()
	memCache := cache.NewMemoryCache(100, time.Minute)
	key := cache.GenerateCacheKey("q", 20, nil)
	if err := memCache.Set(context.Background(), key, docs(20, "txt"), 0); err != nil {
		t.Fatalf("seed cache: %v", err)
	}
	o := New(cfg, Options{Retriever: &fakeRetriever{}, Cache: memCache})

	out := o.SearchAndRerank(context.Background(), Request{Query: "q", TopK: 20})
	if len(out) > 15 {
		t.Errorf("cap must also apply to cached hits, got %d", len(out))
	}
}

func TestSearchAndRerank_AllCollaboratorsFailing(t *testing.T) {
	cfg := testConfig()
	cfg.QueryExpansion.Enabled = true
	cfg.GraphRAG.HybridSearch.AutoEnable = true
	o := New(cfg, Options{
		Retriever:  &fakeRetriever{err: errors.New("retriever down")},
		Reranker:   &failingReranker{},
		Cache:      &failingCache{},
		Expander:   &failingExpander{},
		GraphStore: &failingGraph{},
		Hybrid:     &fakeHybrid{err: errors.New("hybrid down")},
	})

	out := o.SearchAndRerank(context.Background(), Request{Query: "q"})
	if out == nil {
		t.Fatal("degraded pipeline must return a non-nil list")
	}
	if len(out) != 0 {
		t.Errorf("expected empty degraded result, got %d", len(out))
	}
}

func TestSearchAndRerank_RetrieverErrorDegrades(t *testing.T) {
	cfg := testConfig()
	o := New(cfg, Options{Retriever: &fakeRetriever{err: errors.New("embedding down")}})

	out := o.SearchAndRerank(context.Background(), Request{Query: "q"})
	if len(out) != 0 {
		t.Errorf("expected empty result on retriever failure, got %d", len(out))
	}
}

func TestSearchAndRerank_RerankDisabled(t *testing.T) {
	cfg := testConfig()
	retriever := &fakeRetriever{results: docs(3, "")}
	reranker := &countingReranker{}
	o := New(cfg, Options{Retriever: retriever, Reranker: reranker})

	off := false
	o.SearchAndRerank(context.Background(), Request{Query: "q", RerankEnabled: &off})
	if reranker.calls != 0 {
		t.Errorf("rerank_enabled=false must skip the reranker, calls=%d", reranker.calls)
	}

	o.SearchAndRerank(context.Background(), Request{Query: "q2"})
	if reranker.calls != 1 {
		t.Errorf("default must rerank, calls=%d", reranker.calls)
	}
}

type countingReranker struct{ calls int }

func (c *countingReranker) Rerank(ctx context.Context, query string, results []search.Result, topN int) []search.Result {
	c.calls++
	return search.Truncate(search.CloneResults(results), topN)
}
func (c *countingReranker) SupportsCaching() bool { return true }
func (c *countingReranker) Name() string          { return "counting" }
func (c *countingReranker) Stats() rerank.Stats   { return rerank.Stats{} }

type perQueryRetriever struct {
	byQuery map[string][]search.Result
	calls   int
}

func (p *perQueryRetriever) Search(ctx context.Context, query string, topK int, filters map[string]any) ([]search.Result, error) {
	p.calls++
	if results, ok := p.byQuery[query]; ok {
		return search.CloneResults(results), nil
	}
	return nil, errors.New("no results for query")
}

type staticExpander struct{ expanded *expansion.ExpandedQuery }

func (s *staticExpander) Expand(ctx context.Context, query, sessionContext string) *expansion.ExpandedQuery {
	return s.expanded
}

func TestSearchAndRerank_MultiQueryRRFMerge(t *testing.T) {
	cfg := testConfig()
	cfg.QueryExpansion.Enabled = true
	retriever := &perQueryRetriever{byQuery: map[string][]search.Result{
		"q":     {{ID: "A", Score: 0.9}, {ID: "B", Score: 0.8}},
		"alt":   {{ID: "B", Score: 0.9}, {ID: "C", Score: 0.7}},
		"broke": nil,
	}}
	expander := &staticExpander{expanded: &expansion.ExpandedQuery{
		Original: "q",
		Queries: []expansion.WeightedQuery{
			{Text: "q", Weight: 1.0},
			{Text: "alt", Weight: 0.8},
			{Text: "broke", Weight: 0.5},
		},
		Complexity: expansion.ComplexityModerate,
		Intent:     "lookup",
	}}
	o := New(cfg, Options{Retriever: retriever, Expander: expander})

	out := o.SearchAndRerank(context.Background(), Request{Query: "q", TopK: 5})
	if len(out) != 3 {
		t.Fatalf("expected A, B, C after merge, got %d", len(out))
	}
	// B appears in both lists so it must rank first.
	if out[0].ID != "B" {
		t.Errorf("expected B first after RRF merge, got %s", out[0].ID)
	}

	stats := o.Stats()
	if stats.RetrievalCount != 3 {
		t.Errorf("expected 3 retrievals (failing one included), got %+v", stats)
	}
	if stats.QueryExpansionCount != 1 {
		t.Errorf("expected expansion counted once, got %+v", stats)
	}
}

func TestLegacySearchSkipsRerank(t *testing.T) {
	cfg := testConfig()
	reranker := &countingReranker{}
	o := New(cfg, Options{Retriever: &fakeRetriever{results: docs(3, "")}, Reranker: reranker})

	out := o.Search(context.Background(), "q", map[string]any{"top_k": 2})
	if reranker.calls != 0 {
		t.Errorf("legacy search must not rerank, calls=%d", reranker.calls)
	}
	if len(out) != 2 {
		t.Errorf("top_k option ignored, got %d results", len(out))
	}
}

func TestLegacyRerankWithoutReranker(t *testing.T) {
	cfg := testConfig()
	o := New(cfg, Options{Retriever: &fakeRetriever{}})

	input := []search.Result{{ID: "low", Score: 0.2}, {ID: "high", Score: 0.9}}
	out := o.Rerank(context.Background(), "q", input, 2)
	if out[0].ID != "high" {
		t.Errorf("expected score-sorted fallback, got %s first", out[0].ID)
	}
}
