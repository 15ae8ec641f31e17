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

// Package graph stores the knowledge graph used by hybrid retrieval:
// entities, weighted relations, neighbor expansion, and text search.
// Two backends share the Store interface: a single-process in-memory
// store and a durable neo4j store.
package graph

import "context"

// PropertyDocID is the reserved entity property linking an entity back to
// a retrievable document.
const PropertyDocID = "doc_id"

// TypeUnknown is the placeholder type for entities auto-created as
// relation endpoints.
const TypeUnknown = "unknown"

// Entity is one graph node. Type is a free-form tag such as "company" or
// "person".
type Entity struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Type       string         `json:"type"`
	Properties map[string]any `json:"properties,omitempty"`
}

// DocID returns the linked document id, if any.
func (e *Entity) DocID() string {
	if e.Properties == nil {
		return ""
	}
	if id, ok := e.Properties[PropertyDocID].(string); ok {
		return id
	}
	return ""
}

// Relation is one directed edge with weight in [0,1]. Traversal may ignore
// direction when requested.
type Relation struct {
	SourceID   string         `json:"source_id"`
	TargetID   string         `json:"target_id"`
	Type       string         `json:"type"`
	Weight     float64        `json:"weight"`
	Properties map[string]any `json:"properties,omitempty"`
}

// SearchResult is the outcome of a neighbor expansion or a text search.
// Score aggregates match quality in [0,1]; 0 when empty.
type SearchResult struct {
	Entities  []Entity   `json:"entities"`
	Relations []Relation `json:"relations"`
	Score     float64    `json:"score"`
}

// Stats is a store snapshot.
type Stats struct {
	EntityCount   int    `json:"entity_count"`
	RelationCount int    `json:"relation_count"`
	Provider      string `json:"provider"`
}

// Store is the graph surface consumed by hybrid search.
//
// AddEntity upserts by id, last write wins. AddRelation creates at most
// one edge per (source, target, type) triple and auto-creates missing
// endpoints as placeholder entities of type unknown.
type Store interface {
	AddEntity(ctx context.Context, e Entity) error
	AddRelation(ctx context.Context, r Relation) error

	// GetEntity returns nil when the id is unknown.
	GetEntity(ctx context.Context, id string) (*Entity, error)

	// GetNeighbors returns every entity reachable within maxDepth hops
	// of id, exclusive of the starting node, each at most once.
	// Traversal is bidirectional; relationTypes filters traversed edges
	// when non-empty.
	GetNeighbors(ctx context.Context, id string, relationTypes []string, maxDepth int) (*SearchResult, error)

	// Search ranks entities against a text query, optionally filtered
	// by entity type.
	Search(ctx context.Context, query string, entityTypes []string, topK int) (*SearchResult, error)

	Clear(ctx context.Context) error
	GetStats(ctx context.Context) (Stats, error)
	Close(ctx context.Context) error
}
