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
	"log/slog"
	"time"

	"github.com/youngouk/RAG-Standard-sub002/internal/httpclient"
	"github.com/youngouk/RAG-Standard-sub002/pkg/config"
	"github.com/youngouk/RAG-Standard-sub002/pkg/llm"
)

// RagasEvaluator delegates scoring to a ragas sidecar over HTTP. Without a
// configured endpoint it reports unavailable and returns neutral results.
type RagasEvaluator struct {
	client    *httpclient.Client
	endpoint  string
	metrics   []string
	batchSize int
	llmModel  string
	embedding string
	logger    *slog.Logger
}

var _ Evaluator = (*RagasEvaluator)(nil)

// NewRagasEvaluator wires the sidecar client.
func NewRagasEvaluator(cfg *config.RagasConfig) *RagasEvaluator {
	return &RagasEvaluator{
		client:    httpclient.New(httpclient.WithTimeout(time.Duration(cfg.Timeout) * time.Second)),
		endpoint:  cfg.Endpoint,
		metrics:   cfg.Metrics,
		batchSize: cfg.BatchSize,
		llmModel:  cfg.LLMModel,
		embedding: cfg.EmbeddingModel,
		logger:    slog.Default().With("component", "evaluator", "provider", "ragas"),
	}
}

// Name returns the provider name.
func (e *RagasEvaluator) Name() string { return "ragas" }

// IsAvailable reports whether a sidecar endpoint is configured.
func (e *RagasEvaluator) IsAvailable() bool { return e.endpoint != "" }

type ragasRequest struct {
	Samples []ragasSample `json:"samples"`
	Metrics []string      `json:"metrics"`
	LLM     string        `json:"llm_model,omitempty"`
	Embed   string        `json:"embedding_model,omitempty"`
}

type ragasSample struct {
	Question  string   `json:"question"`
	Answer    string   `json:"answer"`
	Contexts  []string `json:"contexts"`
	Reference string   `json:"ground_truth,omitempty"`
}

type ragasResponse struct {
	Results []map[string]float64 `json:"results"`
}

// Evaluate scores one sample through the batch endpoint.
func (e *RagasEvaluator) Evaluate(ctx context.Context, sample Sample) *Result {
	return e.BatchEvaluate(ctx, []Sample{sample})[0]
}

// BatchEvaluate posts samples in batchSize chunks and maps per-metric
// scores back. A failed chunk yields neutral results for its samples.
func (e *RagasEvaluator) BatchEvaluate(ctx context.Context, samples []Sample) []*Result {
	out := make([]*Result, len(samples))
	if !e.IsAvailable() {
		for i := range out {
			out[i] = Neutral("ragas endpoint not configured")
		}
		return out
	}

	for start := 0; start < len(samples); start += e.batchSize {
		end := start + e.batchSize
		if end > len(samples) {
			end = len(samples)
		}
		e.evaluateChunk(ctx, samples[start:end], out[start:end])
	}
	return out
}

func (e *RagasEvaluator) evaluateChunk(ctx context.Context, samples []Sample, out []*Result) {
	req := ragasRequest{
		Metrics: e.metrics,
		LLM:     e.llmModel,
		Embed:   e.embedding,
		Samples: make([]ragasSample, len(samples)),
	}
	for i, s := range samples {
		req.Samples[i] = ragasSample{
			Question:  s.Query,
			Answer:    s.Answer,
			Contexts:  s.Contexts,
			Reference: s.Reference,
		}
	}

	var resp ragasResponse
	if err := e.client.PostJSON(ctx, e.endpoint+"/evaluate", req, &resp); err != nil {
		e.logger.Warn("ragas batch failed, returning neutral results", "error", err)
		for i := range out {
			out[i] = Neutral("ragas sidecar unreachable")
		}
		return
	}

	for i := range out {
		if i >= len(resp.Results) {
			out[i] = Neutral("ragas returned fewer results than samples")
			continue
		}
		out[i] = e.mapScores(resp.Results[i])
	}
}

// mapScores converts ragas metric names into the shared result shape.
// answer_relevancy feeds relevance; context_precision and answer_similarity
// pass through when present.
func (e *RagasEvaluator) mapScores(scores map[string]float64) *Result {
	res := &Result{
		Faithfulness: 0.5,
		Relevance:    0.5,
		Reasoning:    "scored by ragas",
		RawScores:    scores,
		EvaluatedAt:  time.Now(),
	}
	if v, ok := scores["faithfulness"]; ok {
		res.Faithfulness = llm.Clamp01(v)
	}
	if v, ok := scores["answer_relevancy"]; ok {
		res.Relevance = llm.Clamp01(v)
	}
	if v, ok := scores["context_precision"]; ok {
		p := llm.Clamp01(v)
		res.ContextPrecision = &p
	}
	if v, ok := scores["answer_similarity"]; ok {
		s := llm.Clamp01(v)
		res.AnswerSimilarity = &s
	}
	res.Overall = 0.5*res.Faithfulness + 0.5*res.Relevance
	return res
}

// Close releases the HTTP pool.
func (e *RagasEvaluator) Close() {
	e.client.Close()
}
