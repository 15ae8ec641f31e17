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

package evaluation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/youngouk/RAG-Standard-sub002/pkg/config"
	"github.com/youngouk/RAG-Standard-sub002/pkg/llm"
)

// InternalEvaluator is the LLM-as-judge implementation. One model call per
// sample; any failure yields the neutral result.
type InternalEvaluator struct {
	model   llm.LLM
	timeout time.Duration
	logger  *slog.Logger
}

var _ Evaluator = (*InternalEvaluator)(nil)

// NewInternalEvaluator wires a judge over any chat model. model may be
// nil; the evaluator then reports unavailable.
func NewInternalEvaluator(model llm.LLM, cfg *config.InternalEvalConfig) *InternalEvaluator {
	return &InternalEvaluator{
		model:   model,
		timeout: time.Duration(cfg.Timeout) * time.Second,
		logger:  slog.Default().With("component", "evaluator", "provider", "internal"),
	}
}

// Name returns the provider name.
func (e *InternalEvaluator) Name() string { return "internal" }

// IsAvailable reports whether a judge model is wired.
func (e *InternalEvaluator) IsAvailable() bool { return e.model != nil }

type judgeResponse struct {
	Faithfulness float64 `json:"faithfulness"`
	Relevance    float64 `json:"relevance"`
	Reasoning    string  `json:"reasoning"`
}

// Evaluate scores one sample. overall = 0.5*faithfulness + 0.5*relevance.
func (e *InternalEvaluator) Evaluate(ctx context.Context, sample Sample) *Result {
	if e.model == nil {
		return Neutral("no judge model configured")
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	raw, err := e.model.Generate(ctx, e.buildPrompt(sample))
	if err != nil {
		e.logger.Warn("evaluation generation failed, returning neutral result", "error", err)
		return Neutral(fmt.Sprintf("judge unavailable: %v", err))
	}

	var resp judgeResponse
	if err := llm.DecodeJSON(raw, &resp); err != nil {
		e.logger.Warn("evaluation response unparseable, returning neutral result", "error", err)
		return Neutral("judge response unparseable")
	}

	faithfulness := llm.Clamp01(resp.Faithfulness)
	relevance := llm.Clamp01(resp.Relevance)
	return &Result{
		Faithfulness: faithfulness,
		Relevance:    relevance,
		Overall:      0.5*faithfulness + 0.5*relevance,
		Reasoning:    resp.Reasoning,
		RawScores: map[string]float64{
			"faithfulness": resp.Faithfulness,
			"relevance":    resp.Relevance,
		},
		EvaluatedAt: time.Now(),
	}
}

// BatchEvaluate runs samples sequentially. The judge API has no batch
// endpoint, and evaluation is off the response hot path.
func (e *InternalEvaluator) BatchEvaluate(ctx context.Context, samples []Sample) []*Result {
	out := make([]*Result, len(samples))
	for i, sample := range samples {
		out[i] = e.Evaluate(ctx, sample)
	}
	return out
}

func (e *InternalEvaluator) buildPrompt(sample Sample) string {
	var b strings.Builder
	b.WriteString("Judge the answer against the context documents and the question.\n")
	b.WriteString("faithfulness: is every claim in the answer supported by the context (0.0 to 1.0)?\n")
	b.WriteString("relevance: does the answer address the question (0.0 to 1.0)?\n")
	b.WriteString("Respond with only JSON: {\"faithfulness\": <float>, \"relevance\": <float>, \"reasoning\": <string>}\n\n")
	fmt.Fprintf(&b, "Question: %s\n\n", sample.Query)
	if len(sample.Contexts) == 0 {
		b.WriteString("Context: (none)\n")
	} else {
		b.WriteString("Context:\n")
		for i, doc := range sample.Contexts {
			fmt.Fprintf(&b, "[%d] %s\n", i+1, doc)
		}
	}
	fmt.Fprintf(&b, "\nAnswer: %s\n", sample.Answer)
	if sample.Reference != "" {
		fmt.Fprintf(&b, "\nReference answer: %s\n", sample.Reference)
	}
	return b.String()
}
