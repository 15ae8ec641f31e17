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

// Package expansion rewrites one user query into a small weighted set of
// alternate queries for multi-query retrieval.
package expansion

import (
	"context"
)

// Complexity classifies how much retrieval effort a query warrants.
const (
	ComplexitySimple   = "simple"
	ComplexityModerate = "moderate"
	ComplexityComplex  = "complex"
)

// IntentUnknown is the fallback intent tag.
const IntentUnknown = "unknown"

// WeightedQuery is one query variant with its fusion weight.
type WeightedQuery struct {
	Text   string  `json:"text"`
	Weight float64 `json:"weight"`
}

// ExpandedQuery is the expansion outcome. The original query is always the
// first element with weight 1.0 and later weights never increase.
type ExpandedQuery struct {
	Original   string          `json:"original"`
	Queries    []WeightedQuery `json:"queries"`
	Complexity string          `json:"complexity"`
	Intent     string          `json:"intent"`
}

// Texts returns the query strings in order.
func (e *ExpandedQuery) Texts() []string {
	out := make([]string, len(e.Queries))
	for i, q := range e.Queries {
		out[i] = q.Text
	}
	return out
}

// Weights returns the fusion weights in order.
func (e *ExpandedQuery) Weights() []float64 {
	out := make([]float64, len(e.Queries))
	for i, q := range e.Queries {
		out[i] = q.Weight
	}
	return out
}

// Engine produces query expansions. Implementations never return an error
// for model trouble; they degrade to Identity.
type Engine interface {
	Expand(ctx context.Context, query string, sessionContext string) *ExpandedQuery
}

// Identity is the degraded expansion: just the original query.
func Identity(query string) *ExpandedQuery {
	return &ExpandedQuery{
		Original:   query,
		Queries:    []WeightedQuery{{Text: query, Weight: 1.0}},
		Complexity: ComplexitySimple,
		Intent:     IntentUnknown,
	}
}
