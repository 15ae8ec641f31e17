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

package rerank

import (
	"context"
	"errors"
	"testing"

	"github.com/youngouk/RAG-Standard-sub002/pkg/config"
	"github.com/youngouk/RAG-Standard-sub002/pkg/search"
)

// fakeLLM returns a canned response or an error.
type fakeLLM struct {
	response string
	err      error
	calls    int
}

func (f *fakeLLM) Generate(ctx context.Context, prompt string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func (f *fakeLLM) Model() string { return "fake-model" }

func judgeConfig() *config.LLMRerankerConfig {
	return &config.LLMRerankerConfig{MaxDocuments: 20, SnippetLength: 250, Timeout: 5}
}

func candidates() []search.Result {
	return []search.Result{
		{ID: "a", Content: "first", Score: 0.9},
		{ID: "b", Content: "second", Score: 0.8},
		{ID: "c", Content: "third", Score: 0.7},
	}
}

func TestLLMJudge_ReordersByModelScores(t *testing.T) {
	model := &fakeLLM{response: `[{"index": 2, "score": 0.95}, {"index": 0, "score": 0.4}, {"index": 1, "score": 0.6}]`}
	judge := NewLLMJudge(model, judgeConfig(), "openai-llm")

	out := judge.Rerank(context.Background(), "q", candidates(), 3)
	if len(out) != 3 {
		t.Fatalf("expected 3 results, got %d", len(out))
	}
	if out[0].ID != "c" {
		t.Errorf("expected c first (score 0.95), got %s", out[0].ID)
	}
	if method, _ := out[0].Metadata[search.MetaRerankMethod].(string); method != "openai-llm" {
		t.Errorf("rerank_method not set: %v", out[0].Metadata)
	}
	if orig, _ := out[0].Metadata[search.MetaOriginalScore].(float64); orig != 0.7 {
		t.Errorf("original_score not preserved: %v", out[0].Metadata)
	}
}

func TestLLMJudge_ClampsOutOfRangeScores(t *testing.T) {
	model := &fakeLLM{response: `[{"index": 0, "score": 7.5}, {"index": 1, "score": -2}]`}
	judge := NewLLMJudge(model, judgeConfig(), "openai-llm")

	out := judge.Rerank(context.Background(), "q", candidates(), 3)
	for _, res := range out {
		if res.Score < 0 || res.Score > 1 {
			t.Errorf("score %f out of [0,1] for %s", res.Score, res.ID)
		}
	}
}

func TestLLMJudge_GenerationFailureFallsBack(t *testing.T) {
	model := &fakeLLM{err: errors.New("model unavailable")}
	judge := NewLLMJudge(model, judgeConfig(), "openai-llm")

	out := judge.Rerank(context.Background(), "q", candidates(), 2)
	if len(out) != 2 {
		t.Fatalf("expected truncation to 2, got %d", len(out))
	}
	// Fallback keeps existing score order.
	if out[0].ID != "a" || out[1].ID != "b" {
		t.Errorf("fallback should keep score order, got %s, %s", out[0].ID, out[1].ID)
	}

	stats := judge.Stats()
	if stats.FailedRequests != 1 {
		t.Errorf("expected 1 failed request, got %d", stats.FailedRequests)
	}
}

func TestLLMJudge_UnparseableResponseFallsBack(t *testing.T) {
	model := &fakeLLM{response: "I cannot rank these documents."}
	judge := NewLLMJudge(model, judgeConfig(), "openai-llm")

	out := judge.Rerank(context.Background(), "q", candidates(), 3)
	if out[0].ID != "a" {
		t.Errorf("fallback should keep score order, got %s", out[0].ID)
	}
}

func TestLLMJudge_FencedJSONAccepted(t *testing.T) {
	model := &fakeLLM{response: "```json\n[{\"index\": 1, \"score\": 0.99}]\n```"}
	judge := NewLLMJudge(model, judgeConfig(), "gemini-flash")

	out := judge.Rerank(context.Background(), "q", candidates(), 3)
	if out[0].ID != "b" {
		t.Errorf("expected b first from fenced JSON, got %s", out[0].ID)
	}
}

func TestLLMJudge_MaxDocumentsCap(t *testing.T) {
	cfg := judgeConfig()
	cfg.MaxDocuments = 2
	model := &fakeLLM{response: `[{"index": 0, "score": 0.5}, {"index": 1, "score": 0.6}]`}
	judge := NewLLMJudge(model, cfg, "openai-llm")

	out := judge.Rerank(context.Background(), "q", candidates(), 10)
	for _, res := range out {
		if res.ID == "c" {
			t.Error("document beyond max_documents must not be judged")
		}
	}
}

func TestLLMJudge_DoesNotCache(t *testing.T) {
	judge := NewLLMJudge(&fakeLLM{}, judgeConfig(), "openai-llm")
	if judge.SupportsCaching() {
		t.Error("LLM judge must not report cacheable")
	}
}

func TestLLMJudge_EmptyInput(t *testing.T) {
	judge := NewLLMJudge(&fakeLLM{}, judgeConfig(), "openai-llm")
	if out := judge.Rerank(context.Background(), "q", nil, 5); len(out) != 0 {
		t.Errorf("empty input should stay empty, got %d", len(out))
	}
}

// passthroughReranker flips scores so chain ordering is observable.
type passthroughReranker struct {
	name  string
	score float64
	fail  bool
}

func (p *passthroughReranker) Rerank(ctx context.Context, query string, results []search.Result, topN int) []search.Result {
	if p.fail {
		return fallback(results, topN)
	}
	out := search.CloneResults(results)
	for i := range out {
		out[i].Score = p.score
		out[i].SetMeta(search.MetaRerankMethod, p.name)
	}
	return search.Truncate(out, topN)
}

func (p *passthroughReranker) SupportsCaching() bool { return true }
func (p *passthroughReranker) Name() string          { return p.name }
func (p *passthroughReranker) Stats() Stats          { return Stats{} }

func TestChain_SequentialStages(t *testing.T) {
	chain := NewChain(
		Stage{Reranker: &passthroughReranker{name: "first", score: 0.3}, Enabled: true},
		Stage{Reranker: &passthroughReranker{name: "second", score: 0.8}, Enabled: true},
	)

	out := chain.Rerank(context.Background(), "q", candidates(), 3)
	for _, res := range out {
		if method, _ := res.Metadata[search.MetaRerankMethod].(string); method != "second" {
			t.Errorf("last stage should own the final annotation, got %q", method)
		}
		if res.Score != 0.8 {
			t.Errorf("last stage should own the final score, got %f", res.Score)
		}
	}
}

func TestChain_DisabledStageSkipped(t *testing.T) {
	chain := NewChain(
		Stage{Reranker: &passthroughReranker{name: "first", score: 0.3}, Enabled: true},
		Stage{Reranker: &passthroughReranker{name: "second", score: 0.8}, Enabled: false},
	)

	out := chain.Rerank(context.Background(), "q", candidates(), 3)
	if out[0].Score != 0.3 {
		t.Errorf("disabled stage must not run, got score %f", out[0].Score)
	}
}

func TestChain_CachingRequiresAllStagesDeterministic(t *testing.T) {
	judge := NewLLMJudge(&fakeLLM{}, judgeConfig(), "openai-llm")
	chain := NewChain(
		Stage{Reranker: &passthroughReranker{name: "api"}, Enabled: true},
		Stage{Reranker: judge, Enabled: true},
	)
	if chain.SupportsCaching() {
		t.Error("chain with an LLM stage must not report cacheable")
	}

	disabled := NewChain(
		Stage{Reranker: &passthroughReranker{name: "api"}, Enabled: true},
		Stage{Reranker: judge, Enabled: false},
	)
	if !disabled.SupportsCaching() {
		t.Error("disabled LLM stage should not block caching")
	}
}
