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

package expansion

import (
	"context"
	"errors"
	"testing"

	"github.com/youngouk/RAG-Standard-sub002/pkg/config"
)

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

func engineConfig() *config.QueryExpansionConfig {
	cfg := &config.QueryExpansionConfig{Enabled: true}
	cfg.SetDefaults()
	return cfg
}

func TestExpand_OriginalFirstWithFullWeight(t *testing.T) {
	model := &fakeLLM{response: `{"queries": [{"text": "alt one", "weight": 0.8}, {"text": "alt two", "weight": 0.6}], "complexity": "moderate", "intent": "lookup"}`}
	engine := NewLLMEngine(model, engineConfig())

	out := engine.Expand(context.Background(), "original query", "")
	if out.Queries[0].Text != "original query" || out.Queries[0].Weight != 1.0 {
		t.Fatalf("first element must be the original with weight 1.0, got %+v", out.Queries[0])
	}
	if len(out.Queries) != 3 {
		t.Fatalf("expected 3 queries, got %d", len(out.Queries))
	}
	if out.Complexity != ComplexityModerate || out.Intent != "lookup" {
		t.Errorf("classification lost: %s / %s", out.Complexity, out.Intent)
	}
}

func TestExpand_WeightsNonIncreasing(t *testing.T) {
	model := &fakeLLM{response: `{"queries": [{"text": "a", "weight": 0.5}, {"text": "b", "weight": 0.9}, {"text": "c", "weight": 2.0}], "complexity": "simple", "intent": "x"}`}
	engine := NewLLMEngine(model, engineConfig())

	out := engine.Expand(context.Background(), "q", "")
	prev := 1.0
	for _, q := range out.Queries {
		if q.Weight > prev {
			t.Errorf("weight %f for %q exceeds previous %f", q.Weight, q.Text, prev)
		}
		if q.Weight < 0 || q.Weight > 1 {
			t.Errorf("weight %f out of [0,1]", q.Weight)
		}
		prev = q.Weight
	}
}

func TestExpand_SizeCapped(t *testing.T) {
	model := &fakeLLM{response: `{"queries": [
		{"text": "a", "weight": 0.9}, {"text": "b", "weight": 0.8},
		{"text": "c", "weight": 0.7}, {"text": "d", "weight": 0.6},
		{"text": "e", "weight": 0.5}, {"text": "f", "weight": 0.4}],
		"complexity": "complex", "intent": "x"}`}
	engine := NewLLMEngine(model, engineConfig())

	out := engine.Expand(context.Background(), "q", "")
	if len(out.Queries) > 5 {
		t.Errorf("expansion must stay within max_queries, got %d", len(out.Queries))
	}
}

func TestExpand_FailureDegradesToIdentity(t *testing.T) {
	engine := NewLLMEngine(&fakeLLM{err: errors.New("model down")}, engineConfig())

	out := engine.Expand(context.Background(), "q", "")
	if len(out.Queries) != 1 || out.Queries[0].Text != "q" {
		t.Fatalf("expected identity expansion, got %+v", out.Queries)
	}
	if out.Complexity != ComplexitySimple || out.Intent != IntentUnknown {
		t.Errorf("degraded tags wrong: %s / %s", out.Complexity, out.Intent)
	}
}

func TestExpand_GarbageDegradesToIdentity(t *testing.T) {
	engine := NewLLMEngine(&fakeLLM{response: "sorry, cannot help"}, engineConfig())

	out := engine.Expand(context.Background(), "q", "")
	if len(out.Queries) != 1 {
		t.Fatalf("expected identity expansion, got %+v", out.Queries)
	}
}

func TestExpand_DuplicatesDropped(t *testing.T) {
	model := &fakeLLM{response: `{"queries": [{"text": "Q", "weight": 0.9}, {"text": "alt", "weight": 0.8}, {"text": "ALT", "weight": 0.7}], "complexity": "simple", "intent": "x"}`}
	engine := NewLLMEngine(model, engineConfig())

	out := engine.Expand(context.Background(), "q", "")
	if len(out.Queries) != 2 {
		t.Errorf("case-insensitive duplicates must be dropped, got %v", out.Texts())
	}
}

func TestExpand_CachesByQueryText(t *testing.T) {
	model := &fakeLLM{response: `{"queries": [{"text": "alt", "weight": 0.9}], "complexity": "simple", "intent": "x"}`}
	engine := NewLLMEngine(model, engineConfig())

	first := engine.Expand(context.Background(), "q", "")
	second := engine.Expand(context.Background(), "q", "")
	if model.calls != 1 {
		t.Errorf("expected one model call, got %d", model.calls)
	}
	if len(first.Queries) != len(second.Queries) {
		t.Error("cached expansion differs from the first")
	}
}

func TestExpand_UnknownComplexityNormalized(t *testing.T) {
	model := &fakeLLM{response: `{"queries": [], "complexity": "bizarre", "intent": ""}`}
	engine := NewLLMEngine(model, engineConfig())

	out := engine.Expand(context.Background(), "q", "")
	if out.Complexity != ComplexitySimple {
		t.Errorf("unknown complexity must normalize to simple, got %s", out.Complexity)
	}
	if out.Intent != IntentUnknown {
		t.Errorf("empty intent must normalize to unknown, got %s", out.Intent)
	}
}
