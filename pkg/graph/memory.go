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

package graph

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/youngouk/RAG-Standard-sub002/pkg/llm"
)

// MemoryStore is the single-process adjacency-based backend. Contents are
// lost on restart. With an embedder set, Search ranks nodes by embedding
// cosine similarity; without one it falls back to substring name matching.
type MemoryStore struct {
	mu       sync.RWMutex
	embedder llm.Embedder
	logger   *slog.Logger

	entities   map[string]Entity
	embeddings map[string][]float32

	// relations keyed by source|type|target for MERGE semantics.
	relations map[relationKey]Relation

	// outgoing and incoming adjacency for bidirectional traversal.
	outgoing map[string][]relationKey
	incoming map[string][]relationKey
}

type relationKey struct {
	source, target, relType string
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store. embedder may be nil.
func NewMemoryStore(embedder llm.Embedder) *MemoryStore {
	return &MemoryStore{
		embedder:   embedder,
		logger:     slog.Default().With("component", "graph_memory"),
		entities:   make(map[string]Entity),
		embeddings: make(map[string][]float32),
		relations:  make(map[relationKey]Relation),
		outgoing:   make(map[string][]relationKey),
		incoming:   make(map[string][]relationKey),
	}
}

// AddEntity upserts by id; last write wins.
func (s *MemoryStore) AddEntity(ctx context.Context, e Entity) error {
	var embedding []float32
	if s.embedder != nil && e.Name != "" {
		var err error
		embedding, err = s.embedder.EmbedQuery(ctx, e.Name)
		if err != nil {
			// The node is still stored; it just won't rank by similarity.
			s.logger.Warn("entity embedding failed", "entity", e.ID, "error", err)
			embedding = nil
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entities[e.ID] = e
	if embedding != nil {
		s.embeddings[e.ID] = embedding
	}
	return nil
}

// AddRelation merges the edge and auto-creates missing endpoints.
func (s *MemoryStore) AddRelation(ctx context.Context, r Relation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range []string{r.SourceID, r.TargetID} {
		if _, ok := s.entities[id]; !ok {
			s.entities[id] = Entity{ID: id, Name: id, Type: TypeUnknown}
		}
	}

	key := relationKey{source: r.SourceID, target: r.TargetID, relType: r.Type}
	if _, exists := s.relations[key]; !exists {
		s.outgoing[r.SourceID] = append(s.outgoing[r.SourceID], key)
		s.incoming[r.TargetID] = append(s.incoming[r.TargetID], key)
	}
	s.relations[key] = r
	return nil
}

// GetEntity returns nil for unknown ids.
func (s *MemoryStore) GetEntity(ctx context.Context, id string) (*Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if e, ok := s.entities[id]; ok {
		return &e, nil
	}
	return nil, nil
}

// GetNeighbors runs a bidirectional BFS up to maxDepth hops.
func (s *MemoryStore) GetNeighbors(ctx context.Context, id string, relationTypes []string, maxDepth int) (*SearchResult, error) {
	if maxDepth <= 0 {
		maxDepth = 1
	}

	typeFilter := make(map[string]bool, len(relationTypes))
	for _, t := range relationTypes {
		typeFilter[t] = true
	}
	allowed := func(t string) bool {
		return len(typeFilter) == 0 || typeFilter[t]
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.entities[id]; !ok {
		return &SearchResult{}, nil
	}

	visited := map[string]bool{id: true}
	seenRelations := make(map[relationKey]bool)
	frontier := []string{id}

	result := &SearchResult{}
	for depth := 0; depth < maxDepth && len(frontier) > 0; depth++ {
		var next []string
		for _, node := range frontier {
			for _, key := range append(append([]relationKey{}, s.outgoing[node]...), s.incoming[node]...) {
				rel := s.relations[key]
				if !allowed(rel.Type) {
					continue
				}
				if !seenRelations[key] {
					seenRelations[key] = true
					result.Relations = append(result.Relations, rel)
				}
				neighbor := key.target
				if neighbor == node {
					neighbor = key.source
				}
				if visited[neighbor] {
					continue
				}
				visited[neighbor] = true
				result.Entities = append(result.Entities, s.entities[neighbor])
				next = append(next, neighbor)
			}
		}
		frontier = next
	}

	if len(result.Entities) > 0 {
		result.Score = 1.0
	}
	return result, nil
}

// Search ranks entities by embedding similarity when available, otherwise
// by substring name match.
func (s *MemoryStore) Search(ctx context.Context, query string, entityTypes []string, topK int) (*SearchResult, error) {
	if topK <= 0 {
		return &SearchResult{}, nil
	}

	typeFilter := make(map[string]bool, len(entityTypes))
	for _, t := range entityTypes {
		typeFilter[t] = true
	}
	typeOK := func(t string) bool {
		return len(typeFilter) == 0 || typeFilter[t]
	}

	var queryEmbedding []float32
	if s.embedder != nil {
		var err error
		queryEmbedding, err = s.embedder.EmbedQuery(ctx, query)
		if err != nil {
			s.logger.Warn("query embedding failed, using name match", "error", err)
			queryEmbedding = nil
		}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	type scored struct {
		entity Entity
		score  float64
	}
	var matches []scored

	if queryEmbedding != nil {
		for id, e := range s.entities {
			if !typeOK(e.Type) {
				continue
			}
			embedding, ok := s.embeddings[id]
			if !ok {
				continue
			}
			if sim := cosine(queryEmbedding, embedding); sim > 0 {
				matches = append(matches, scored{entity: e, score: sim})
			}
		}
	} else {
		needle := strings.ToLower(query)
		for _, e := range s.entities {
			if !typeOK(e.Type) {
				continue
			}
			if strings.Contains(strings.ToLower(e.Name), needle) {
				matches = append(matches, scored{entity: e, score: 1.0})
			}
		}
	}

	sort.SliceStable(matches, func(i, j int) bool { return matches[i].score > matches[j].score })
	if len(matches) > topK {
		matches = matches[:topK]
	}

	result := &SearchResult{}
	var total float64
	for _, m := range matches {
		result.Entities = append(result.Entities, m.entity)
		total += m.score
	}
	if len(matches) > 0 {
		result.Score = total / float64(len(matches))
	}
	return result, nil
}

// Clear drops everything.
func (s *MemoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entities = make(map[string]Entity)
	s.embeddings = make(map[string][]float32)
	s.relations = make(map[relationKey]Relation)
	s.outgoing = make(map[string][]relationKey)
	s.incoming = make(map[string][]relationKey)
	return nil
}

// GetStats returns counts.
func (s *MemoryStore) GetStats(ctx context.Context) (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Stats{
		EntityCount:   len(s.entities),
		RelationCount: len(s.relations),
		Provider:      "memory",
	}, nil
}

// Close is a no-op.
func (s *MemoryStore) Close(ctx context.Context) error { return nil }

func cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
