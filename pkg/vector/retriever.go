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

package vector

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/youngouk/RAG-Standard-sub002/pkg/llm"
	"github.com/youngouk/RAG-Standard-sub002/pkg/search"
)

// Retriever is the facade the orchestrator consumes: it embeds the query,
// delegates to the active backend, and normalizes results. Backend
// failures return an empty list and a log line; embedding failures
// propagate so the orchestrator can degrade the whole request.
type Retriever struct {
	provider   Provider
	embedder   llm.Embedder
	collection string
	minScore   float64
	logger     *slog.Logger
}

// NewRetriever wires a backend and an embedder.
func NewRetriever(provider Provider, embedder llm.Embedder, collection string, minScore float64) *Retriever {
	return &Retriever{
		provider:   provider,
		embedder:   embedder,
		collection: collection,
		minScore:   minScore,
		logger:     slog.Default().With("component", "retriever", "backend", provider.Name()),
	}
}

// Search returns up to topK results with scores normalized to [0,1] and
// metadata._collection set.
func (r *Retriever) Search(ctx context.Context, query string, topK int, filters map[string]any) ([]search.Result, error) {
	if topK <= 0 {
		return nil, nil
	}

	vector, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query embedding failed: %w", err)
	}

	hits, err := r.provider.Search(ctx, r.collection, Query{
		Text:   query,
		Vector: vector,
		TopK:   topK,
		Filter: filters,
	})
	if err != nil {
		r.logger.Warn("vector search failed, returning empty results", "error", err)
		return []search.Result{}, nil
	}

	out := make([]search.Result, 0, len(hits))
	for _, hit := range hits {
		score := llm.Clamp01(hit.Score)
		if score < r.minScore {
			continue
		}
		result := search.Result{
			ID:       hit.ID,
			Content:  hit.Content,
			Score:    score,
			Metadata: hit.Metadata,
		}
		result.SetMeta(search.MetaCollection, r.collection)
		out = append(out, result)
	}
	return out, nil
}

// AddDocuments embeds documents lacking vectors and upserts the batch.
func (r *Retriever) AddDocuments(ctx context.Context, docs []Document) error {
	var missing []int
	var texts []string
	for i, doc := range docs {
		if len(doc.Vector) == 0 {
			missing = append(missing, i)
			texts = append(texts, doc.Content)
		}
	}
	if len(missing) > 0 {
		vectors, err := r.embedder.EmbedDocuments(ctx, texts)
		if err != nil {
			return fmt.Errorf("document embedding failed: %w", err)
		}
		for j, i := range missing {
			docs[i].Vector = vectors[j]
		}
	}
	return r.provider.Upsert(ctx, r.collection, docs)
}

// HealthCheck reports backend reachability.
func (r *Retriever) HealthCheck(ctx context.Context) bool {
	return r.provider.HealthCheck(ctx)
}

// Close releases the backend.
func (r *Retriever) Close() error {
	return r.provider.Close()
}
