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

// Package vector wraps pluggable vector-index backends behind one Provider
// interface and exposes the Retriever facade the orchestrator consumes.
// Which backend is active is a wiring decision, not a runtime branch.
package vector

import "context"

// Result is one backend search hit with a normalized similarity in [0,1].
// Backends that report distance convert with 1 - distance before returning.
type Result struct {
	ID       string
	Content  string
	Score    float64
	Metadata map[string]any
}

// Document is one indexable document with a pre-computed embedding.
type Document struct {
	ID       string
	Content  string
	Vector   []float32
	Metadata map[string]any
}

// Query carries one backend search. Vector is always set; Text is
// additionally set for backends that fuse BM25 server-side.
type Query struct {
	Text   string
	Vector []float32
	TopK   int

	// Filter is a conjunction over metadata fields.
	Filter map[string]any
}

// Provider is the backend surface. Implementations must be safe for
// concurrent use.
type Provider interface {
	// Name returns the backend identifier.
	Name() string

	// Search returns up to TopK hits ordered by descending similarity.
	Search(ctx context.Context, collection string, q Query) ([]Result, error)

	// Upsert adds or replaces documents by ID.
	Upsert(ctx context.Context, collection string, docs []Document) error

	// HealthCheck reports backend reachability.
	HealthCheck(ctx context.Context) bool

	// Close releases backend connections.
	Close() error
}
