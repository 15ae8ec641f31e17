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

// Package llm holds the generation and embedding clients consumed by the
// retrieval pipeline: answer generation, LLM-as-judge scoring, query
// expansion, and query embedding.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/pkoukk/tiktoken-go"
)

// LLM is the minimal chat-completion surface used by rerankers, the
// evaluator, and the query-expansion engine.
type LLM interface {
	// Generate returns the model's text completion for a single prompt.
	Generate(ctx context.Context, prompt string) (string, error)

	// Model returns the configured model identifier.
	Model() string
}

// GenerationResult is one generated answer with accounting.
type GenerationResult struct {
	Answer         string        `json:"answer"`
	TokensUsed     int           `json:"tokens_used"`
	ModelUsed      string        `json:"model_used"`
	Provider       string        `json:"provider"`
	GenerationTime time.Duration `json:"generation_time"`
}

// Generator produces answers grounded in retrieved context.
type Generator interface {
	LLM

	// GenerateAnswer builds a grounded prompt from the query, the
	// retrieved context documents, and the session context.
	GenerateAnswer(ctx context.Context, query string, contextDocs []string, sessionContext string) (*GenerationResult, error)
}

// Embedder converts text into dense vectors. Dimensionality is fixed per
// instance.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}

var (
	fencedJSONPattern = regexp.MustCompile("```(?:json)?\\s*([\\s\\S]*?)```")
	greedyJSONPattern = regexp.MustCompile(`[\[{][\s\S]*[\]}]`)
)

// DecodeJSON parses model output that should contain a JSON value. Models
// wrap JSON in prose or code fences often enough that a strict parse is not
// viable: try the raw text first, then the content of a ``` fence, then the
// widest {...} or [...] span. Returns an error only when all three fail.
func DecodeJSON(raw string, out any) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fmt.Errorf("empty model response")
	}

	if err := json.Unmarshal([]byte(raw), out); err == nil {
		return nil
	}

	if m := fencedJSONPattern.FindStringSubmatch(raw); m != nil {
		if err := json.Unmarshal([]byte(strings.TrimSpace(m[1])), out); err == nil {
			return nil
		}
	}

	if m := greedyJSONPattern.FindString(raw); m != "" {
		if err := json.Unmarshal([]byte(m), out); err == nil {
			return nil
		}
	}

	return fmt.Errorf("no parseable JSON in model response")
}

// Clamp01 clamps a score into [0,1].
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// CountTokens estimates the token count of text for the given model.
// Falls back to a bytes/4 heuristic when no encoding is available.
func CountTokens(model, text string) int {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding("cl100k_base")
	}
	if err != nil {
		return len(text) / 4
	}
	return len(enc.Encode(text, nil, nil))
}
