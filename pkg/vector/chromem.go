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
	"runtime"
	"sync"

	chromem "github.com/philippgille/chromem-go"

	"github.com/youngouk/RAG-Standard-sub002/pkg/config"
)

// ChromemProvider is the embedded backend: pure Go, in-process, no external
// service. Vectors live in memory with optional gob persistence. Single
// process only; the default for dev and test wiring.
type ChromemProvider struct {
	db *chromem.DB

	mu          sync.Mutex
	collections map[string]*chromem.Collection
}

var _ Provider = (*ChromemProvider)(nil)

// NewChromemProvider creates the embedded store. An empty path keeps
// everything in memory.
func NewChromemProvider(cfg *config.ChromemConfig) (*ChromemProvider, error) {
	var db *chromem.DB
	if cfg.Path != "" {
		var err error
		db, err = chromem.NewPersistentDB(cfg.Path, false)
		if err != nil {
			return nil, fmt.Errorf("failed to open chromem db at %s: %w", cfg.Path, err)
		}
	} else {
		db = chromem.NewDB()
	}

	return &ChromemProvider{
		db:          db,
		collections: make(map[string]*chromem.Collection),
	}, nil
}

// Name returns the backend identifier.
func (p *ChromemProvider) Name() string { return "chromem" }

func (p *ChromemProvider) collection(name string) (*chromem.Collection, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if col, ok := p.collections[name]; ok {
		return col, nil
	}

	// Vectors are pre-computed by the retriever's embedder; the embedding
	// function must never run.
	col, err := p.db.GetOrCreateCollection(name, nil, func(ctx context.Context, text string) ([]float32, error) {
		return nil, fmt.Errorf("chromem embedding function called; vectors must be pre-computed")
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get/create collection %q: %w", name, err)
	}
	p.collections[name] = col
	return col, nil
}

// Search queries by pre-computed embedding.
func (p *ChromemProvider) Search(ctx context.Context, collection string, q Query) ([]Result, error) {
	col, err := p.collection(collection)
	if err != nil {
		return nil, err
	}

	// chromem errors when asked for more results than documents stored.
	topK := q.TopK
	if count := col.Count(); topK > count {
		topK = count
	}
	if topK == 0 {
		return nil, nil
	}

	var where map[string]string
	if len(q.Filter) > 0 {
		where = make(map[string]string, len(q.Filter))
		for k, v := range q.Filter {
			where[k] = fmt.Sprint(v)
		}
	}

	hits, err := col.QueryEmbedding(ctx, q.Vector, topK, where, nil)
	if err != nil {
		return nil, fmt.Errorf("chromem search failed: %w", err)
	}

	out := make([]Result, 0, len(hits))
	for _, hit := range hits {
		metadata := make(map[string]any, len(hit.Metadata))
		for k, v := range hit.Metadata {
			metadata[k] = v
		}
		out = append(out, Result{
			ID:       hit.ID,
			Content:  hit.Content,
			Score:    float64(hit.Similarity),
			Metadata: metadata,
		})
	}
	return out, nil
}

// Upsert adds documents with pre-computed vectors.
func (p *ChromemProvider) Upsert(ctx context.Context, collection string, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}
	col, err := p.collection(collection)
	if err != nil {
		return err
	}

	converted := make([]chromem.Document, 0, len(docs))
	for _, doc := range docs {
		metadata := make(map[string]string, len(doc.Metadata))
		for k, v := range doc.Metadata {
			metadata[k] = fmt.Sprint(v)
		}
		converted = append(converted, chromem.Document{
			ID:        doc.ID,
			Content:   doc.Content,
			Metadata:  metadata,
			Embedding: doc.Vector,
		})
	}

	if err := col.AddDocuments(ctx, converted, runtime.NumCPU()); err != nil {
		return fmt.Errorf("failed to add documents: %w", err)
	}
	return nil
}

// HealthCheck always succeeds for the embedded store.
func (p *ChromemProvider) HealthCheck(ctx context.Context) bool { return true }

// Close is a no-op.
func (p *ChromemProvider) Close() error { return nil }
