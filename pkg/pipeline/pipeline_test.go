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

package pipeline

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/youngouk/RAG-Standard-sub002/pkg/config"
	"github.com/youngouk/RAG-Standard-sub002/pkg/evaluation"
	"github.com/youngouk/RAG-Standard-sub002/pkg/llm"
	"github.com/youngouk/RAG-Standard-sub002/pkg/orchestrator"
	"github.com/youngouk/RAG-Standard-sub002/pkg/search"
	"github.com/youngouk/RAG-Standard-sub002/pkg/session"
)

type fakeRetriever struct {
	results []search.Result
}

func (f *fakeRetriever) SearchAndRerank(ctx context.Context, req orchestrator.Request) []search.Result {
	return search.CloneResults(f.results)
}

type fakeGenerator struct {
	answers []string
	err     error
	calls   int
}

func (f *fakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	return "", errors.New("not used")
}

func (f *fakeGenerator) Model() string { return "fake-model" }

func (f *fakeGenerator) GenerateAnswer(ctx context.Context, query string, contextDocs []string, sessionContext string) (*llm.GenerationResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	answer := f.answers[len(f.answers)-1]
	if f.calls < len(f.answers) {
		answer = f.answers[f.calls]
	}
	f.calls++
	return &llm.GenerationResult{Answer: answer, TokensUsed: 10, ModelUsed: "fake-model", Provider: "fake"}, nil
}

// scriptedEvaluator returns each score once, repeating the last.
type scriptedEvaluator struct {
	scores []float64
	calls  int
}

func (s *scriptedEvaluator) Evaluate(ctx context.Context, sample evaluation.Sample) *evaluation.Result {
	score := s.scores[len(s.scores)-1]
	if s.calls < len(s.scores) {
		score = s.scores[s.calls]
	}
	s.calls++
	return &evaluation.Result{Faithfulness: score, Relevance: score, Overall: score}
}

func (s *scriptedEvaluator) BatchEvaluate(ctx context.Context, samples []evaluation.Sample) []*evaluation.Result {
	out := make([]*evaluation.Result, len(samples))
	for i, sample := range samples {
		out[i] = s.Evaluate(ctx, sample)
	}
	return out
}

func (s *scriptedEvaluator) IsAvailable() bool { return true }
func (s *scriptedEvaluator) Name() string      { return "scripted" }

func selfRAGConfig(enabled bool) *config.SelfRAGConfig {
	cfg := &config.SelfRAGConfig{Enabled: enabled, AcceptThreshold: 0.7, RegenerateThreshold: 0.6}
	return cfg
}

func sources(n int) []search.Result {
	out := make([]search.Result, n)
	for i := range out {
		out[i] = search.Result{ID: string(rune('a' + i)), Content: "context", Score: 0.8}
	}
	return out
}

func newTestPipeline(t *testing.T, enabled bool, gen *fakeGenerator, eval evaluation.Evaluator) (*RAGPipeline, session.Store) {
	t.Helper()
	store := session.NewMemoryStore(0)
	t.Cleanup(store.Close)
	return New(selfRAGConfig(enabled), &fakeRetriever{results: sources(3)}, gen, eval, store), store
}

func TestProcess_AcceptOnHighQuality(t *testing.T) {
	gen := &fakeGenerator{answers: []string{"good answer"}}
	eval := &scriptedEvaluator{scores: []float64{0.9}}
	p, _ := newTestPipeline(t, true, gen, eval)

	resp := p.Process(context.Background(), "question", "", Options{})
	if resp.Answer != "good answer" {
		t.Errorf("expected accepted answer, got %q", resp.Answer)
	}
	if resp.SelfRAGMetadata == nil || resp.SelfRAGMetadata.Regenerated {
		t.Errorf("high quality must not regenerate: %+v", resp.SelfRAGMetadata)
	}
	if resp.QualityScore == nil || *resp.QualityScore != 0.9 {
		t.Errorf("quality score wrong: %v", resp.QualityScore)
	}
	if gen.calls != 1 {
		t.Errorf("expected one generation, got %d", gen.calls)
	}
}

func TestProcess_RegenerateOnMidQuality(t *testing.T) {
	gen := &fakeGenerator{answers: []string{"first answer", "better answer"}}
	eval := &scriptedEvaluator{scores: []float64{0.55, 0.85}}
	cfg := &config.SelfRAGConfig{Enabled: true, AcceptThreshold: 0.7, RegenerateThreshold: 0.5}
	store := session.NewMemoryStore(0)
	defer store.Close()
	p := New(cfg, &fakeRetriever{results: sources(3)}, gen, eval, store)

	resp := p.Process(context.Background(), "question", "", Options{})
	if resp.Answer != "better answer" {
		t.Errorf("expected regenerated answer, got %q", resp.Answer)
	}
	meta := resp.SelfRAGMetadata
	if meta == nil || !meta.Regenerated {
		t.Fatalf("expected regenerated=true, got %+v", meta)
	}
	if math.Abs(meta.InitialQuality-0.55) > 1e-9 || math.Abs(meta.FinalQuality-0.85) > 1e-9 {
		t.Errorf("quality record wrong: %+v", meta)
	}
	if resp.RefusalReason != "" {
		t.Errorf("accepted answer must not carry a refusal reason: %q", resp.RefusalReason)
	}
}

func TestProcess_RegenerationWorseKeepsFirst(t *testing.T) {
	gen := &fakeGenerator{answers: []string{"first answer", "worse answer"}}
	eval := &scriptedEvaluator{scores: []float64{0.65, 0.4}}
	p, _ := newTestPipeline(t, true, gen, eval)

	resp := p.Process(context.Background(), "question", "", Options{})
	if resp.Answer != "first answer" {
		t.Errorf("worse regeneration must be discarded, got %q", resp.Answer)
	}
	if resp.SelfRAGMetadata.Regenerated {
		t.Error("discarded regeneration must not mark regenerated")
	}
	if math.Abs(resp.SelfRAGMetadata.FinalQuality-0.65) > 1e-9 {
		t.Errorf("final quality must keep the first score: %+v", resp.SelfRAGMetadata)
	}
}

func TestProcess_RefuseOnLowQuality(t *testing.T) {
	gen := &fakeGenerator{answers: []string{"bad answer"}}
	eval := &scriptedEvaluator{scores: []float64{0.3}}
	p, _ := newTestPipeline(t, true, gen, eval)

	resp := p.Process(context.Background(), "question", "", Options{})
	if resp.RefusalReason != RefusalLowQuality {
		t.Errorf("expected low_quality refusal, got %q", resp.RefusalReason)
	}
	if !resp.SelfRAGMetadata.Refused {
		t.Error("refusal must be recorded in metadata")
	}
	if resp.Answer == "bad answer" {
		t.Error("refused response must replace the answer")
	}
}

func TestProcess_SelfRAGDisabledSkipsEvaluation(t *testing.T) {
	gen := &fakeGenerator{answers: []string{"answer"}}
	eval := &scriptedEvaluator{scores: []float64{0.1}}
	p, _ := newTestPipeline(t, false, gen, eval)

	resp := p.Process(context.Background(), "question", "", Options{})
	if resp.SelfRAGMetadata != nil {
		t.Errorf("disabled self-rag must not evaluate: %+v", resp.SelfRAGMetadata)
	}
	if eval.calls != 0 {
		t.Errorf("evaluator must not run, calls=%d", eval.calls)
	}
}

func TestProcess_EmptyRetrievalRefusesWithoutGeneration(t *testing.T) {
	gen := &fakeGenerator{answers: []string{"answer"}}
	store := session.NewMemoryStore(0)
	defer store.Close()
	p := New(selfRAGConfig(true), &fakeRetriever{}, gen, &scriptedEvaluator{scores: []float64{0.9}}, store)

	resp := p.Process(context.Background(), "question", "", Options{})
	if resp.RefusalReason != RefusalNoContext {
		t.Errorf("expected no_context refusal, got %q", resp.RefusalReason)
	}
	if gen.calls != 0 {
		t.Errorf("generation must be skipped without context, calls=%d", gen.calls)
	}
}

func TestProcess_GenerationFailureDegrades(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("provider down")}
	p, _ := newTestPipeline(t, true, gen, &scriptedEvaluator{scores: []float64{0.9}})

	resp := p.Process(context.Background(), "question", "", Options{})
	if resp.RefusalReason != RefusalGenerationDown {
		t.Errorf("expected generation_unavailable, got %q", resp.RefusalReason)
	}
	if resp.Answer == "" {
		t.Error("degraded response must still carry an answer")
	}
}

func TestProcess_SessionHistoryRecorded(t *testing.T) {
	gen := &fakeGenerator{answers: []string{"answer"}}
	p, store := newTestPipeline(t, false, gen, nil)

	resp := p.Process(context.Background(), "question", "", Options{})
	if resp.SessionID == "" || resp.MessageID == "" {
		t.Fatalf("missing ids: %+v", resp)
	}

	messages, total, err := store.GetChatHistory(resp.SessionID, 0, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 2 {
		t.Errorf("expected a user/assistant pair, got %d", total)
	}
	if messages[1].ID != resp.MessageID {
		t.Error("message id must reference the assistant turn")
	}
}

func TestProcess_DebugTraceOnlyWhenRequested(t *testing.T) {
	gen := &fakeGenerator{answers: []string{"answer"}}
	eval := &scriptedEvaluator{scores: []float64{0.9}}
	p, store := newTestPipeline(t, true, gen, eval)

	plain := p.Process(context.Background(), "question", "", Options{})
	if plain.DebugTrace != nil {
		t.Error("trace must be omitted unless requested")
	}

	traced := p.Process(context.Background(), "question", "", Options{EnableDebugTrace: true})
	if traced.DebugTrace == nil {
		t.Fatal("expected a trace")
	}
	if len(traced.DebugTrace.States) == 0 || traced.DebugTrace.States[len(traced.DebugTrace.States)-1] != StateDone {
		t.Errorf("trace must end in done: %v", traced.DebugTrace.States)
	}
	if _, ok := store.GetDebugTrace(traced.SessionID, traced.MessageID); !ok {
		t.Error("trace must be retrievable from the session store")
	}
}
