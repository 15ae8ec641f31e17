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
	"errors"
	"testing"

	"github.com/youngouk/RAG-Standard-sub002/pkg/search"
)

type fakeEmbedder struct {
	fail bool
}

func (f *fakeEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if f.fail {
		return nil, errors.New("embedding backend down")
	}
	return []float32{1, 0, 0}, nil
}

func (f *fakeEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}

func (f *fakeEmbedder) Dimension() int { return 3 }

type staticProvider struct {
	results []Result
	err     error
	gotTopK int
}

func (s *staticProvider) Name() string { return "static" }

func (s *staticProvider) Search(ctx context.Context, collection string, q Query) ([]Result, error) {
	s.gotTopK = q.TopK
	if s.err != nil {
		return nil, s.err
	}
	return s.results, nil
}

func (s *staticProvider) Upsert(ctx context.Context, collection string, docs []Document) error {
	return nil
}
func (s *staticProvider) HealthCheck(ctx context.Context) bool { return true }
func (s *staticProvider) Close() error                         { return nil }

func TestRetriever_NormalizesAndTagsResults(t *testing.T) {
	provider := &staticProvider{results: []Result{
		{ID: "a", Content: "alpha", Score: 0.9},
		{ID: "b", Content: "beta", Score: 1.4}, // clamped to 1
	}}
	r := NewRetriever(provider, &fakeEmbedder{}, "docs", 0)

	results, err := r.Search(context.Background(), "q", 5, nil)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[1].Score != 1.0 {
		t.Errorf("score should be clamped to 1, got %f", results[1].Score)
	}
	for _, res := range results {
		if res.Collection() != "docs" {
			t.Errorf("result %s missing _collection metadata", res.ID)
		}
	}
}

func TestRetriever_MinScoreFilter(t *testing.T) {
	provider := &staticProvider{results: []Result{
		{ID: "a", Score: 0.9},
		{ID: "b", Score: 0.1},
	}}
	r := NewRetriever(provider, &fakeEmbedder{}, "docs", 0.5)

	results, err := r.Search(context.Background(), "q", 5, nil)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(results) != 1 || results[0].ID != "a" {
		t.Errorf("expected only result a, got %+v", results)
	}
}

func TestRetriever_BackendFailureReturnsEmpty(t *testing.T) {
	provider := &staticProvider{err: errors.New("backend down")}
	r := NewRetriever(provider, &fakeEmbedder{}, "docs", 0)

	results, err := r.Search(context.Background(), "q", 5, nil)
	if err != nil {
		t.Fatalf("backend failure must not raise, got %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected empty results, got %d", len(results))
	}
}

func TestRetriever_EmbeddingFailureRaises(t *testing.T) {
	provider := &staticProvider{}
	r := NewRetriever(provider, &fakeEmbedder{fail: true}, "docs", 0)

	if _, err := r.Search(context.Background(), "q", 5, nil); err == nil {
		t.Error("embedding failure must propagate to the orchestrator")
	}
}

func TestRetriever_NonPositiveTopK(t *testing.T) {
	r := NewRetriever(&staticProvider{}, &fakeEmbedder{}, "docs", 0)
	results, err := r.Search(context.Background(), "q", 0, nil)
	if err != nil || results != nil {
		t.Errorf("top_k=0 should yield nil, nil; got %v, %v", results, err)
	}
}

func TestRetriever_ResultsUsableForFusion(t *testing.T) {
	provider := &staticProvider{results: []Result{{ID: "a", Score: 0.8}}}
	r := NewRetriever(provider, &fakeEmbedder{}, "docs", 0)

	results, _ := r.Search(context.Background(), "q", 5, nil)
	ranks := search.RankMap(results)
	if ranks["a"] != 1 {
		t.Errorf("expected rank 1 for a, got %d", ranks["a"])
	}
}
