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

package llm

import (
	"strings"
	"testing"
)

func TestDecodeJSON_Direct(t *testing.T) {
	var out map[string]float64
	if err := DecodeJSON(`{"faithfulness": 0.9}`, &out); err != nil {
		t.Fatalf("direct parse failed: %v", err)
	}
	if out["faithfulness"] != 0.9 {
		t.Errorf("expected 0.9, got %f", out["faithfulness"])
	}
}

func TestDecodeJSON_Fenced(t *testing.T) {
	raw := "Here are the scores:\n```json\n{\"relevance\": 0.8}\n```\nDone."
	var out map[string]float64
	if err := DecodeJSON(raw, &out); err != nil {
		t.Fatalf("fenced parse failed: %v", err)
	}
	if out["relevance"] != 0.8 {
		t.Errorf("expected 0.8, got %f", out["relevance"])
	}
}

func TestDecodeJSON_Greedy(t *testing.T) {
	raw := `Sure! The result is {"score": 0.7} as requested.`
	var out map[string]float64
	if err := DecodeJSON(raw, &out); err != nil {
		t.Fatalf("greedy parse failed: %v", err)
	}
	if out["score"] != 0.7 {
		t.Errorf("expected 0.7, got %f", out["score"])
	}
}

func TestDecodeJSON_Array(t *testing.T) {
	raw := "```\n[{\"index\": 0, \"score\": 0.5}]\n```"
	var out []struct {
		Index int     `json:"index"`
		Score float64 `json:"score"`
	}
	if err := DecodeJSON(raw, &out); err != nil {
		t.Fatalf("array parse failed: %v", err)
	}
	if len(out) != 1 || out[0].Score != 0.5 {
		t.Errorf("unexpected result: %+v", out)
	}
}

func TestDecodeJSON_Garbage(t *testing.T) {
	var out map[string]any
	if err := DecodeJSON("no json here at all", &out); err == nil {
		t.Error("expected error for garbage input")
	}
	if err := DecodeJSON("", &out); err == nil {
		t.Error("expected error for empty input")
	}
}

func TestClamp01(t *testing.T) {
	cases := []struct{ in, want float64 }{
		{-0.5, 0}, {0, 0}, {0.42, 0.42}, {1, 1}, {1.7, 1},
	}
	for _, c := range cases {
		if got := Clamp01(c.in); got != c.want {
			t.Errorf("Clamp01(%f) = %f, want %f", c.in, got, c.want)
		}
	}
}

func TestBuildGroundedPrompt(t *testing.T) {
	prompt := BuildGroundedPrompt("what is RRF?", []string{"doc one", "doc two"}, "prior chat")
	for _, want := range []string{"prior chat", "[1] doc one", "[2] doc two", "Question: what is RRF?"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}

	empty := BuildGroundedPrompt("q", nil, "")
	if !strings.Contains(empty, "No context documents") {
		t.Error("empty-context prompt should flag missing context")
	}
}
