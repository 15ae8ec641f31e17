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

package cache

import (
	"context"
	"fmt"
	"testing"
	"time"
)

// fakeEmbedder returns fixed vectors per query text.
type fakeEmbedder struct {
	vectors map[string][]float32
}

func (f *fakeEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	v, ok := f.vectors[text]
	if !ok {
		return nil, fmt.Errorf("no vector for %q", text)
	}
	return v, nil
}

func (f *fakeEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := f.EmbedQuery(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (f *fakeEmbedder) Dimension() int { return 3 }

func TestSemanticCache_SimilarQueryHits(t *testing.T) {
	ctx := context.Background()
	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"what is RRF":     {1, 0, 0},
		"explain RRF":     {0.99, 0.1, 0}, // cosine ~0.995 with the first
		"weather in oslo": {0, 1, 0},
	}}
	c := NewSemanticCache(embedder, 0.92, 100, time.Minute)

	key := GenerateCacheKey("what is RRF", 5, nil)
	if err := c.SetByQuery(ctx, "what is RRF", key, sampleResults(), 0); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	if got, ok := c.GetByQuery(ctx, "explain RRF"); !ok || len(got) != 2 {
		t.Error("near-duplicate query should hit")
	}
	if _, ok := c.GetByQuery(ctx, "weather in oslo"); ok {
		t.Error("orthogonal query should miss")
	}
}

func TestSemanticCache_ExactKeyLookup(t *testing.T) {
	ctx := context.Background()
	embedder := &fakeEmbedder{vectors: map[string][]float32{"q": {1, 0, 0}}}
	c := NewSemanticCache(embedder, 0.92, 100, time.Minute)

	key := GenerateCacheKey("q", 5, nil)
	c.SetByQuery(ctx, "q", key, sampleResults(), 0)

	if _, ok := c.Get(ctx, key); !ok {
		t.Error("exact fingerprint lookup should hit")
	}
	if _, ok := c.Get(ctx, "other"); ok {
		t.Error("unknown fingerprint should miss")
	}
}

func TestSemanticCache_TTL(t *testing.T) {
	ctx := context.Background()
	embedder := &fakeEmbedder{vectors: map[string][]float32{"q": {1, 0, 0}}}
	c := NewSemanticCache(embedder, 0.92, 100, time.Minute)

	key := GenerateCacheKey("q", 5, nil)
	c.SetByQuery(ctx, "q", key, sampleResults(), 20*time.Millisecond)
	time.Sleep(40 * time.Millisecond)

	if _, ok := c.GetByQuery(ctx, "q"); ok {
		t.Error("expired entry should not match by similarity")
	}
}

func TestSemanticCache_EmbeddingFailureIsMiss(t *testing.T) {
	ctx := context.Background()
	embedder := &fakeEmbedder{vectors: map[string][]float32{}}
	c := NewSemanticCache(embedder, 0.92, 100, time.Minute)

	if _, ok := c.GetByQuery(ctx, "unembeddable"); ok {
		t.Error("embedding failure must be a miss, not an error")
	}
}

func TestSemanticCache_Eviction(t *testing.T) {
	ctx := context.Background()
	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"q1": {1, 0, 0}, "q2": {0, 1, 0}, "q3": {0, 0, 1},
	}}
	c := NewSemanticCache(embedder, 0.92, 2, time.Minute)

	c.SetByQuery(ctx, "q1", "k1", sampleResults(), 0)
	c.SetByQuery(ctx, "q2", "k2", sampleResults(), 0)
	c.SetByQuery(ctx, "q3", "k3", sampleResults(), 0)

	if c.Stats().Entries != 2 {
		t.Errorf("expected 2 entries after eviction, got %d", c.Stats().Entries)
	}
}

func TestCosineSimilarity(t *testing.T) {
	if got := CosineSimilarity([]float32{1, 0}, []float32{1, 0}); got < 0.999 {
		t.Errorf("identical vectors should be ~1, got %f", got)
	}
	if got := CosineSimilarity([]float32{1, 0}, []float32{0, 1}); got != 0 {
		t.Errorf("orthogonal vectors should be 0, got %f", got)
	}
	if got := CosineSimilarity([]float32{1, 0}, []float32{1}); got != 0 {
		t.Errorf("mismatched dims should be 0, got %f", got)
	}
}
