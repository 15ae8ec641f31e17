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
	"testing"
)

func TestMemoryStore_IdempotentUpsert(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(nil)

	s.AddEntity(ctx, Entity{ID: "e1", Name: "Acme", Type: "company"})
	s.AddEntity(ctx, Entity{ID: "e1", Name: "Acme Corp", Type: "company"})

	stats, _ := s.GetStats(ctx)
	if stats.EntityCount != 1 {
		t.Fatalf("expected 1 entity after double upsert, got %d", stats.EntityCount)
	}
	e, _ := s.GetEntity(ctx, "e1")
	if e == nil || e.Name != "Acme Corp" {
		t.Errorf("last write should win, got %+v", e)
	}
}

func TestMemoryStore_GetEntityUnknown(t *testing.T) {
	s := NewMemoryStore(nil)
	e, err := s.GetEntity(context.Background(), "missing")
	if err != nil || e != nil {
		t.Errorf("unknown id should yield nil, nil; got %v, %v", e, err)
	}
}

func TestMemoryStore_RelationMergeSemantics(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(nil)

	rel := Relation{SourceID: "a", TargetID: "b", Type: "works_at", Weight: 0.5}
	s.AddRelation(ctx, rel)
	rel.Weight = 0.9
	s.AddRelation(ctx, rel)

	stats, _ := s.GetStats(ctx)
	if stats.RelationCount != 1 {
		t.Errorf("same (source, target, type) must merge, got %d edges", stats.RelationCount)
	}

	neighbors, _ := s.GetNeighbors(ctx, "a", nil, 1)
	if len(neighbors.Relations) != 1 || neighbors.Relations[0].Weight != 0.9 {
		t.Errorf("merged edge should carry the latest weight: %+v", neighbors.Relations)
	}
}

func TestMemoryStore_PlaceholderEndpoints(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(nil)

	s.AddRelation(ctx, Relation{SourceID: "x", TargetID: "y", Type: "knows"})

	for _, id := range []string{"x", "y"} {
		e, _ := s.GetEntity(ctx, id)
		if e == nil {
			t.Fatalf("endpoint %s should be auto-created", id)
		}
		if e.Type != TypeUnknown {
			t.Errorf("placeholder %s should have type %q, got %q", id, TypeUnknown, e.Type)
		}
	}
}

func TestMemoryStore_NeighborsBidirectionalAndDeduped(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(nil)

	// a -> b, c -> a: both directions must be reachable from a.
	s.AddRelation(ctx, Relation{SourceID: "a", TargetID: "b", Type: "r"})
	s.AddRelation(ctx, Relation{SourceID: "c", TargetID: "a", Type: "r"})

	result, err := s.GetNeighbors(ctx, "a", nil, 1)
	if err != nil {
		t.Fatalf("neighbors failed: %v", err)
	}
	ids := make(map[string]int)
	for _, e := range result.Entities {
		ids[e.ID]++
	}
	if ids["b"] != 1 || ids["c"] != 1 {
		t.Errorf("expected b and c exactly once each, got %v", ids)
	}
	if ids["a"] != 0 {
		t.Error("starting node must be excluded")
	}
}

func TestMemoryStore_NeighborsDepth(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(nil)

	// chain a - b - c - d
	s.AddRelation(ctx, Relation{SourceID: "a", TargetID: "b", Type: "r"})
	s.AddRelation(ctx, Relation{SourceID: "b", TargetID: "c", Type: "r"})
	s.AddRelation(ctx, Relation{SourceID: "c", TargetID: "d", Type: "r"})

	depth1, _ := s.GetNeighbors(ctx, "a", nil, 1)
	if len(depth1.Entities) != 1 {
		t.Errorf("depth 1 should reach only b, got %d entities", len(depth1.Entities))
	}
	depth2, _ := s.GetNeighbors(ctx, "a", nil, 2)
	if len(depth2.Entities) != 2 {
		t.Errorf("depth 2 should reach b and c, got %d entities", len(depth2.Entities))
	}
	depth3, _ := s.GetNeighbors(ctx, "a", nil, 3)
	if len(depth3.Entities) != 3 {
		t.Errorf("depth 3 should reach b, c, d, got %d entities", len(depth3.Entities))
	}
}

func TestMemoryStore_NeighborsRelationTypeFilter(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(nil)

	s.AddRelation(ctx, Relation{SourceID: "a", TargetID: "b", Type: "works_at"})
	s.AddRelation(ctx, Relation{SourceID: "a", TargetID: "c", Type: "knows"})

	result, _ := s.GetNeighbors(ctx, "a", []string{"knows"}, 1)
	if len(result.Entities) != 1 || result.Entities[0].ID != "c" {
		t.Errorf("type filter should keep only c, got %+v", result.Entities)
	}
}

func TestMemoryStore_SearchNameMatch(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(nil)

	s.AddEntity(ctx, Entity{ID: "e1", Name: "Acme Corporation", Type: "company"})
	s.AddEntity(ctx, Entity{ID: "e2", Name: "Jane Doe", Type: "person"})

	result, err := s.Search(ctx, "acme", nil, 10)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(result.Entities) != 1 || result.Entities[0].ID != "e1" {
		t.Errorf("expected only e1, got %+v", result.Entities)
	}
	if result.Score <= 0 || result.Score > 1 {
		t.Errorf("aggregate score out of range: %f", result.Score)
	}

	empty, _ := s.Search(ctx, "nothing-matches", nil, 10)
	if empty.Score != 0 || len(empty.Entities) != 0 {
		t.Errorf("empty search should have score 0, got %+v", empty)
	}
}

func TestMemoryStore_SearchEntityTypeFilter(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(nil)

	s.AddEntity(ctx, Entity{ID: "e1", Name: "Acme", Type: "company"})
	s.AddEntity(ctx, Entity{ID: "e2", Name: "Acme Founder", Type: "person"})

	result, _ := s.Search(ctx, "acme", []string{"person"}, 10)
	if len(result.Entities) != 1 || result.Entities[0].ID != "e2" {
		t.Errorf("type filter should keep only e2, got %+v", result.Entities)
	}
}

func TestMemoryStore_Clear(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(nil)

	s.AddRelation(ctx, Relation{SourceID: "a", TargetID: "b", Type: "r"})
	s.Clear(ctx)

	stats, _ := s.GetStats(ctx)
	if stats.EntityCount != 0 || stats.RelationCount != 0 {
		t.Errorf("clear should empty the store: %+v", stats)
	}
}
