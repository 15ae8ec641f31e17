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

// Package orchestrator is the retrieval facade: cache, query expansion,
// vector or hybrid retrieval, multi-query RRF merging, scoring weights,
// reranking, and diversity capping behind one call.
//
// The facade never returns an error. Every stage degrades to the previous
// stage's output, and a catch-all converts anything unexpected into an
// empty list.
package orchestrator

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mitchellh/mapstructure"

	"github.com/youngouk/RAG-Standard-sub002/pkg/cache"
	"github.com/youngouk/RAG-Standard-sub002/pkg/config"
	"github.com/youngouk/RAG-Standard-sub002/pkg/expansion"
	"github.com/youngouk/RAG-Standard-sub002/pkg/graph"
	"github.com/youngouk/RAG-Standard-sub002/pkg/hybrid"
	"github.com/youngouk/RAG-Standard-sub002/pkg/rerank"
	"github.com/youngouk/RAG-Standard-sub002/pkg/scoring"
	"github.com/youngouk/RAG-Standard-sub002/pkg/search"
	"github.com/youngouk/RAG-Standard-sub002/pkg/vector"
)

// Retriever is the vector search surface the orchestrator consumes.
type Retriever interface {
	Search(ctx context.Context, query string, topK int, filters map[string]any) ([]search.Result, error)
}

// HybridSearcher runs fused vector+graph retrieval.
type HybridSearcher interface {
	Search(ctx context.Context, query string, topK int) (*hybrid.Result, error)
}

// DocumentAdder is implemented by retrievers that support ingestion.
type DocumentAdder interface {
	AddDocuments(ctx context.Context, docs []vector.Document) error
}

// Stats is a counter snapshot.
type Stats struct {
	TotalRequests       int64 `json:"total_requests"`
	CacheHits           int64 `json:"cache_hits"`
	CacheMisses         int64 `json:"cache_misses"`
	RetrievalCount      int64 `json:"retrieval_count"`
	HybridSearchCount   int64 `json:"hybrid_search_count"`
	RerankCount         int64 `json:"rerank_count"`
	QueryExpansionCount int64 `json:"query_expansion_count"`
}

// Request parameterizes one retrieval. Zero values take defaults: TopK
// from config, RerankEnabled true, expansion and graph usage from config.
type Request struct {
	Query   string
	TopK    int
	Filters map[string]any

	// RerankEnabled defaults to true when nil.
	RerankEnabled *bool

	// QueryExpansionEnabled defaults to the config toggle when nil.
	QueryExpansionEnabled *bool

	// UseGraph defaults to the auto_enable decision when nil.
	UseGraph *bool
}

// Options carries the collaborators. Retriever is required; everything
// else is optional and its absence skips the stage.
type Options struct {
	Retriever  Retriever
	Reranker   rerank.Reranker
	Cache      cache.Manager
	Expander   expansion.Engine
	GraphStore graph.Store
	Hybrid     HybridSearcher
	Scoring    *scoring.Service
}

// Orchestrator wires the retrieval pipeline.
type Orchestrator struct {
	retriever Retriever
	reranker  rerank.Reranker
	cache     cache.Manager
	expander  expansion.Engine
	graph     graph.Store
	hybrid    HybridSearcher
	scoring   *scoring.Service

	topK         int
	rerankTopK   int
	diversity    map[string]int
	cacheTTL     time.Duration
	expansionOn  bool
	autoUseGraph bool

	logger *slog.Logger

	totalRequests       atomic.Int64
	cacheHits           atomic.Int64
	cacheMisses         atomic.Int64
	retrievalCount      atomic.Int64
	hybridSearchCount   atomic.Int64
	rerankCount         atomic.Int64
	queryExpansionCount atomic.Int64
}

// New builds the orchestrator. When a graph store is present, hybrid
// search is enabled in config, and no strategy was injected, one is
// constructed over the retriever and the store.
func New(cfg *config.Config, opts Options) *Orchestrator {
	o := &Orchestrator{
		retriever:  opts.Retriever,
		reranker:   opts.Reranker,
		cache:      opts.Cache,
		expander:   opts.Expander,
		graph:      opts.GraphStore,
		hybrid:     opts.Hybrid,
		scoring:    opts.Scoring,
		topK:       cfg.RAG.TopK,
		rerankTopK: cfg.RAG.RerankTopK,
		diversity:  cfg.RAG.Diversity.MaxPerFileType,
		cacheTTL:   time.Duration(cfg.Cache.Memory.TTL) * time.Second,
		logger:     slog.Default().With("component", "orchestrator"),
	}
	if o.scoring == nil {
		o.scoring = scoring.New(cfg.Scoring)
	}

	hybridEnabled := cfg.GraphRAG.HybridSearch.IsEnabled()
	if o.hybrid == nil && o.graph != nil && hybridEnabled {
		o.hybrid = hybrid.New(opts.Retriever, opts.GraphStore, &cfg.GraphRAG.HybridSearch)
	}
	o.autoUseGraph = cfg.GraphRAG.HybridSearch.AutoEnable && o.hybrid != nil && hybridEnabled
	o.expansionOn = cfg.QueryExpansion.Enabled && o.expander != nil

	return o
}

// SearchAndRerank runs the full pipeline. It never returns an error;
// anything unexpected yields an empty list.
func (o *Orchestrator) SearchAndRerank(ctx context.Context, req Request) (results []search.Result) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("retrieval pipeline panicked, returning empty results", "panic", r)
			results = []search.Result{}
		}
	}()

	o.totalRequests.Add(1)

	topK := req.TopK
	if topK <= 0 {
		topK = o.topK
	}
	useGraph := o.autoUseGraph
	if req.UseGraph != nil {
		useGraph = *req.UseGraph
	}
	rerankEnabled := req.RerankEnabled == nil || *req.RerankEnabled
	expansionEnabled := o.expansionOn
	if req.QueryExpansionEnabled != nil {
		expansionEnabled = *req.QueryExpansionEnabled && o.expander != nil
	}

	key := cache.GenerateCacheKey(req.Query, topK, req.Filters)
	if cached, ok := o.cacheLookup(ctx, req.Query, key); ok {
		o.cacheHits.Add(1)
		return search.Truncate(o.applyDiversity(cached), topK)
	}
	if o.cache != nil {
		o.cacheMisses.Add(1)
	}

	queries := []string{req.Query}
	weights := []float64{1.0}
	if expansionEnabled {
		expanded := o.expander.Expand(ctx, req.Query, "")
		if len(expanded.Queries) > 1 {
			queries = expanded.Texts()
			weights = expanded.Weights()
			o.queryExpansionCount.Add(1)
		}
	}

	switch {
	case useGraph && o.hybrid != nil:
		results = o.hybridRetrieve(ctx, req.Query, topK)
	case len(queries) == 1:
		results = o.singleRetrieve(ctx, queries[0], topK, req.Filters)
	default:
		results = o.multiRetrieve(ctx, queries, weights, topK, req.Filters)
	}

	o.scoring.ApplyToResults(results)

	if rerankEnabled && o.reranker != nil && len(results) > 0 {
		rerankTopK := o.rerankTopK
		if rerankTopK <= 0 || rerankTopK > topK {
			rerankTopK = topK
		}
		results = o.reranker.Rerank(ctx, req.Query, results, rerankTopK)
		o.rerankCount.Add(1)
	}

	results = search.Truncate(o.applyDiversity(results), topK)
	o.cacheStore(ctx, req.Query, key, results)
	return results
}

// cacheLookup prefers the query-similarity path when the cache supports it.
func (o *Orchestrator) cacheLookup(ctx context.Context, query, key string) ([]search.Result, bool) {
	if o.cache == nil {
		return nil, false
	}
	if qa, ok := o.cache.(cache.QueryAware); ok {
		return qa.GetByQuery(ctx, query)
	}
	return o.cache.Get(ctx, key)
}

func (o *Orchestrator) cacheStore(ctx context.Context, query, key string, results []search.Result) {
	if o.cache == nil || len(results) == 0 {
		return
	}
	var err error
	if qa, ok := o.cache.(cache.QueryAware); ok {
		err = qa.SetByQuery(ctx, query, key, results, o.cacheTTL)
	} else {
		err = o.cache.Set(ctx, key, results, o.cacheTTL)
	}
	if err != nil {
		o.logger.Warn("cache store failed", "error", err)
	}
}

func (o *Orchestrator) hybridRetrieve(ctx context.Context, query string, topK int) []search.Result {
	o.hybridSearchCount.Add(1)
	res, err := o.hybrid.Search(ctx, query, 2*topK)
	if err != nil {
		o.logger.Warn("hybrid search failed, returning empty results", "error", err)
		return []search.Result{}
	}
	return res.Results
}

func (o *Orchestrator) singleRetrieve(ctx context.Context, query string, topK int, filters map[string]any) []search.Result {
	o.retrievalCount.Add(1)
	results, err := o.retriever.Search(ctx, query, 2*topK, filters)
	if err != nil {
		o.logger.Warn("retrieval failed, returning empty results", "error", err)
		return []search.Result{}
	}
	return results
}

// multiRetrieve fans searches out in parallel. A failing query contributes
// an empty list instead of failing the request, then the per-query rank
// lists merge with weighted RRF.
func (o *Orchestrator) multiRetrieve(ctx context.Context, queries []string, weights []float64, topK int, filters map[string]any) []search.Result {
	lists := make([][]search.Result, len(queries))
	var wg sync.WaitGroup
	for i, q := range queries {
		o.retrievalCount.Add(1)
		wg.Add(1)
		go func(i int, q string) {
			defer wg.Done()
			results, err := o.retriever.Search(ctx, q, 2*topK, filters)
			if err != nil {
				o.logger.Warn("expanded query failed, dropping its contribution",
					"query", q, "error", err)
				return
			}
			lists[i] = results
		}(i, q)
	}
	wg.Wait()
	return search.FuseWeighted(lists, weights, search.DefaultRRFK)
}

// applyDiversity caps per-file-type result counts. Types without a
// configured ceiling pass through unchanged.
func (o *Orchestrator) applyDiversity(results []search.Result) []search.Result {
	if len(o.diversity) == 0 || len(results) == 0 {
		return results
	}
	counts := make(map[string]int)
	out := make([]search.Result, 0, len(results))
	for _, r := range results {
		ft := r.FileType()
		if limit, capped := o.diversity[ft]; capped {
			if counts[ft] >= limit {
				continue
			}
			counts[ft]++
		}
		out = append(out, r)
	}
	return out
}

// searchOptions is the loosely-typed option map accepted by the legacy
// search surface.
type searchOptions struct {
	TopK           int            `mapstructure:"top_k"`
	Filters        map[string]any `mapstructure:"filters"`
	UseGraph       *bool          `mapstructure:"use_graph"`
	QueryExpansion *bool          `mapstructure:"query_expansion"`
}

// Search is the legacy adapter: retrieval without reranking, options as a
// free-form map.
func (o *Orchestrator) Search(ctx context.Context, query string, options map[string]any) []search.Result {
	var opts searchOptions
	if err := mapstructure.Decode(options, &opts); err != nil {
		o.logger.Warn("unrecognized search options, using defaults", "error", err)
	}
	rerankOff := false
	return o.SearchAndRerank(ctx, Request{
		Query:                 query,
		TopK:                  opts.TopK,
		Filters:               opts.Filters,
		RerankEnabled:         &rerankOff,
		QueryExpansionEnabled: opts.QueryExpansion,
		UseGraph:              opts.UseGraph,
	})
}

// Rerank is the legacy adapter for standalone reranking. Without a
// configured reranker the input comes back sorted by score.
func (o *Orchestrator) Rerank(ctx context.Context, query string, results []search.Result, topN int) []search.Result {
	if o.reranker == nil {
		out := search.CloneResults(results)
		search.SortByScore(out)
		return search.Truncate(out, topN)
	}
	o.rerankCount.Add(1)
	return o.reranker.Rerank(ctx, query, results, topN)
}

// AddDocuments delegates to the retriever when it supports ingestion.
func (o *Orchestrator) AddDocuments(ctx context.Context, docs []vector.Document) error {
	if adder, ok := o.retriever.(DocumentAdder); ok {
		return adder.AddDocuments(ctx, docs)
	}
	return nil
}

// Stats returns the pipeline counters.
func (o *Orchestrator) Stats() Stats {
	return Stats{
		TotalRequests:       o.totalRequests.Load(),
		CacheHits:           o.cacheHits.Load(),
		CacheMisses:         o.cacheMisses.Load(),
		RetrievalCount:      o.retrievalCount.Load(),
		HybridSearchCount:   o.hybridSearchCount.Load(),
		RerankCount:         o.rerankCount.Load(),
		QueryExpansionCount: o.queryExpansionCount.Load(),
	}
}

// CacheStats exposes the cache counters, zero-valued without a cache.
func (o *Orchestrator) CacheStats() cache.Stats {
	if o.cache == nil {
		return cache.Stats{}
	}
	return o.cache.Stats()
}
