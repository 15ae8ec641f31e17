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

package config

import "fmt"

// Evaluator provider types.
const (
	EvaluationProviderInternal = "internal"
	EvaluationProviderRagas    = "ragas"
)

// EvaluationConfig configures answer-quality evaluation.
type EvaluationConfig struct {
	// Enabled gates evaluator construction; false yields no evaluator.
	Enabled bool `yaml:"enabled,omitempty"`

	// Provider: internal (LLM judge), ragas (batch sidecar).
	Provider string `yaml:"provider,omitempty"`

	Thresholds EvaluationThresholds `yaml:"thresholds,omitempty"`
	Internal   InternalEvalConfig   `yaml:"internal,omitempty"`
	Ragas      RagasConfig          `yaml:"ragas,omitempty"`
}

// EvaluationThresholds classify overall scores.
type EvaluationThresholds struct {
	MinAcceptable    float64 `yaml:"min_acceptable,omitempty"`
	GoodQuality      float64 `yaml:"good_quality,omitempty"`
	ExcellentQuality float64 `yaml:"excellent_quality,omitempty"`
}

// InternalEvalConfig configures the LLM-as-judge evaluator.
type InternalEvalConfig struct {
	Model string `yaml:"model,omitempty"`

	// Timeout in seconds (default 30).
	Timeout int `yaml:"timeout,omitempty"`
}

// RagasConfig configures the batch evaluation sidecar. With an empty
// endpoint the evaluator reports unavailable and returns neutral results.
type RagasConfig struct {
	Endpoint       string   `yaml:"endpoint,omitempty"`
	Metrics        []string `yaml:"metrics,omitempty"`
	BatchSize      int      `yaml:"batch_size,omitempty"`
	LLMModel       string   `yaml:"llm_model,omitempty"`
	EmbeddingModel string   `yaml:"embedding_model,omitempty"`

	// Timeout in seconds (default 120; batch calls are slow).
	Timeout int `yaml:"timeout,omitempty"`
}

// SetDefaults applies default values.
func (c *EvaluationConfig) SetDefaults() {
	if c.Provider == "" {
		c.Provider = EvaluationProviderInternal
	}
	if c.Thresholds.MinAcceptable == 0 {
		c.Thresholds.MinAcceptable = 0.7
	}
	if c.Thresholds.GoodQuality == 0 {
		c.Thresholds.GoodQuality = 0.8
	}
	if c.Thresholds.ExcellentQuality == 0 {
		c.Thresholds.ExcellentQuality = 0.9
	}
	if c.Internal.Model == "" {
		c.Internal.Model = "gpt-4o-mini"
	}
	if c.Internal.Timeout == 0 {
		c.Internal.Timeout = 30
	}
	if len(c.Ragas.Metrics) == 0 {
		c.Ragas.Metrics = []string{"faithfulness", "answer_relevancy"}
	}
	if c.Ragas.BatchSize == 0 {
		c.Ragas.BatchSize = 10
	}
	if c.Ragas.Timeout == 0 {
		c.Ragas.Timeout = 120
	}
}

// Validate checks the configuration.
func (c *EvaluationConfig) Validate() error {
	switch c.Provider {
	case EvaluationProviderInternal, EvaluationProviderRagas:
	default:
		return fmt.Errorf("unsupported evaluation provider: %s", c.Provider)
	}
	for name, v := range map[string]float64{
		"min_acceptable":    c.Thresholds.MinAcceptable,
		"good_quality":      c.Thresholds.GoodQuality,
		"excellent_quality": c.Thresholds.ExcellentQuality,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("threshold %s must be in [0,1], got %f", name, v)
		}
	}
	return nil
}
