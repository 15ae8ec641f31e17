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

// Package hybrid fuses vector and graph retrieval with weighted reciprocal
// rank fusion. The graph side is best-effort: a graph failure degrades to a
// vector-only result.
package hybrid

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/youngouk/RAG-Standard-sub002/pkg/config"
	"github.com/youngouk/RAG-Standard-sub002/pkg/graph"
	"github.com/youngouk/RAG-Standard-sub002/pkg/search"
)

// VectorSearcher is the slice of the vector retriever hybrid search needs.
type VectorSearcher interface {
	Search(ctx context.Context, query string, topK int, filters map[string]any) ([]search.Result, error)
}

// Result is one fused hybrid search outcome. TotalScore is the mean
// hybrid score of the returned documents, 0 when empty.
type Result struct {
	Results     []search.Result `json:"results"`
	VectorCount int             `json:"vector_count"`
	GraphCount  int             `json:"graph_count"`
	TotalScore  float64         `json:"total_score"`
	Metadata    map[string]any  `json:"metadata"`
}

// VectorGraphSearch runs vector and graph retrieval in parallel and merges
// the two rankings with weighted RRF. The graph store is optional; without
// one the strategy degenerates to plain vector search.
type VectorGraphSearch struct {
	vector       VectorSearcher
	graph        graph.Store
	vectorWeight float64
	graphWeight  float64
	rrfK         int
	logger       *slog.Logger
}

// New wires a hybrid strategy. graphStore may be nil.
func New(vectorSearcher VectorSearcher, graphStore graph.Store, cfg *config.HybridSearchConfig) *VectorGraphSearch {
	return &VectorGraphSearch{
		vector:       vectorSearcher,
		graph:        graphStore,
		vectorWeight: cfg.VectorWeight,
		graphWeight:  cfg.GraphWeight,
		rrfK:         cfg.RRFK,
		logger:       slog.Default().With("component", "hybrid_search"),
	}
}

// Search fuses with the configured weights.
func (h *VectorGraphSearch) Search(ctx context.Context, query string, topK int) (*Result, error) {
	return h.SearchWeighted(ctx, query, topK, h.vectorWeight, h.graphWeight)
}

// SearchWeighted fuses with per-call weight overrides. Weights are
// normalized to sum to 1; when both are zero the vector side takes all the
// weight. The query embedding failure is the only error path.
func (h *VectorGraphSearch) SearchWeighted(ctx context.Context, query string, topK int, vectorWeight, graphWeight float64) (*Result, error) {
	if topK <= 0 {
		return h.emptyResult(query, vectorWeight, graphWeight), nil
	}

	vectorWeight, graphWeight = normalizeWeights(vectorWeight, graphWeight)
	fanout := 2 * topK

	var (
		vectorResults []search.Result
		graphResults  []search.Result
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		results, err := h.vector.Search(gctx, query, fanout, nil)
		if err != nil {
			return fmt.Errorf("vector side of hybrid search: %w", err)
		}
		vectorResults = results
		return nil
	})
	if h.graph != nil && graphWeight > 0 {
		g.Go(func() error {
			results, err := h.graphSearch(gctx, query, fanout)
			if err != nil {
				h.logger.Error("graph search failed, continuing vector-only", "error", err)
				return nil
			}
			graphResults = results
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	vectorRanks := search.RankMap(vectorResults)
	graphRanks := search.RankMap(graphResults)

	byID := make(map[string]search.Result, len(vectorResults)+len(graphResults))
	var order []string
	for _, r := range vectorResults {
		if _, ok := byID[r.ID]; !ok {
			byID[r.ID] = r
			order = append(order, r.ID)
		}
	}
	for _, r := range graphResults {
		if _, ok := byID[r.ID]; !ok {
			byID[r.ID] = r
			order = append(order, r.ID)
		}
	}

	fused := make([]search.Result, 0, len(order))
	for _, id := range order {
		vRank := vectorRanks[id]
		gRank := graphRanks[id]
		score := search.RRFScore(vectorWeight, h.rrfK, vRank) +
			search.RRFScore(graphWeight, h.rrfK, gRank)

		res := byID[id].Clone()
		res.SetMeta(search.MetaOriginalScore, res.Score)
		res.SetMeta(search.MetaHybridScore, score)
		res.SetMeta(search.MetaVectorRank, vRank)
		res.SetMeta(search.MetaGraphRank, gRank)
		res.Score = score
		fused = append(fused, res)
	}

	search.SortByScore(fused)
	fused = search.Truncate(fused, topK)

	var total float64
	for _, r := range fused {
		total += r.Score
	}
	if len(fused) > 0 {
		total /= float64(len(fused))
	}

	return &Result{
		Results:     fused,
		VectorCount: len(vectorResults),
		GraphCount:  len(graphResults),
		TotalScore:  total,
		Metadata:    h.metadata(query, vectorWeight, graphWeight),
	}, nil
}

// graphSearch materializes graph entities as documents. Each entity needs a
// doc_id property to participate; the proxy score decays with rank so graph
// ordering survives into the fused ranking.
func (h *VectorGraphSearch) graphSearch(ctx context.Context, query string, topK int) ([]search.Result, error) {
	gr, err := h.graph.Search(ctx, query, nil, topK)
	if err != nil {
		return nil, err
	}
	if gr == nil || len(gr.Entities) == 0 {
		return nil, nil
	}

	out := make([]search.Result, 0, len(gr.Entities))
	seen := make(map[string]bool, len(gr.Entities))
	for rank, entity := range gr.Entities {
		docID := entity.DocID()
		if docID == "" || seen[docID] {
			continue
		}
		seen[docID] = true
		out = append(out, search.Result{
			ID:      docID,
			Content: entity.Name,
			Score:   gr.Score / float64(rank+1),
			Metadata: map[string]any{
				"entity_id":   entity.ID,
				"entity_type": entity.Type,
				"source":      "graph",
			},
		})
	}
	return out, nil
}

func (h *VectorGraphSearch) emptyResult(query string, vectorWeight, graphWeight float64) *Result {
	vectorWeight, graphWeight = normalizeWeights(vectorWeight, graphWeight)
	return &Result{
		Results:  []search.Result{},
		Metadata: h.metadata(query, vectorWeight, graphWeight),
	}
}

func (h *VectorGraphSearch) metadata(query string, vectorWeight, graphWeight float64) map[string]any {
	return map[string]any{
		"query":         query,
		"vector_weight": vectorWeight,
		"graph_weight":  graphWeight,
		"rrf_k":         h.rrfK,
	}
}

// normalizeWeights scales the pair to sum to 1. Both zero (or negative)
// falls back to pure vector search.
func normalizeWeights(vectorWeight, graphWeight float64) (float64, float64) {
	if vectorWeight < 0 {
		vectorWeight = 0
	}
	if graphWeight < 0 {
		graphWeight = 0
	}
	sum := vectorWeight + graphWeight
	if sum == 0 {
		return 1, 0
	}
	return vectorWeight / sum, graphWeight / sum
}
