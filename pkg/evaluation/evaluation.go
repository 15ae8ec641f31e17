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

// Package evaluation scores generated answers for faithfulness to the
// retrieved context and relevance to the query. Evaluators never fail a
// request; anything broken yields the neutral result.
package evaluation

import (
	"context"
	"time"
)

// DefaultAcceptThreshold is the conventional acceptability bar.
const DefaultAcceptThreshold = 0.7

// Sample is one (query, answer, contexts) triple to evaluate. Reference is
// an optional ground-truth answer.
type Sample struct {
	Query     string   `json:"query"`
	Answer    string   `json:"answer"`
	Contexts  []string `json:"contexts"`
	Reference string   `json:"reference,omitempty"`
}

// Result is one evaluation outcome. All scores live in [0,1]. Overall is
// owned by the evaluator; the internal judge defines it as
// 0.5*faithfulness + 0.5*relevance.
type Result struct {
	Faithfulness     float64            `json:"faithfulness"`
	Relevance        float64            `json:"relevance"`
	Overall          float64            `json:"overall"`
	Reasoning        string             `json:"reasoning"`
	ContextPrecision *float64           `json:"context_precision,omitempty"`
	AnswerSimilarity *float64           `json:"answer_similarity,omitempty"`
	RawScores        map[string]float64 `json:"raw_scores,omitempty"`
	EvaluatedAt      time.Time          `json:"evaluated_at"`
}

// IsAcceptable reports whether the overall score clears threshold.
func (r *Result) IsAcceptable(threshold float64) bool {
	return r.Overall >= threshold
}

// Neutral is the degraded result returned when evaluation cannot run.
func Neutral(reason string) *Result {
	return &Result{
		Faithfulness: 0.5,
		Relevance:    0.5,
		Overall:      0.5,
		Reasoning:    reason,
		EvaluatedAt:  time.Now(),
	}
}

// Evaluator scores answers. Implementations return the neutral result
// instead of an error whenever the backing judge is unreachable.
type Evaluator interface {
	Evaluate(ctx context.Context, sample Sample) *Result
	BatchEvaluate(ctx context.Context, samples []Sample) []*Result

	// IsAvailable reports whether the backing judge is usable.
	IsAvailable() bool

	Name() string
}
