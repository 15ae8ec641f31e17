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

// Reranker provider types.
const (
	RerankerProviderGeminiFlash = "gemini-flash"
	RerankerProviderJina        = "jina"
	RerankerProviderJinaColbert = "jina-colbert"
	RerankerProviderOpenAILLM   = "openai-llm"
)

// RerankingConfig configures the reranker chain. Stages run in the order
// listed; a disabled or failing stage passes the previous output through.
type RerankingConfig struct {
	// Enabled turns reranking on for search_and_rerank.
	Enabled bool `yaml:"enabled,omitempty"`

	// Provider selects the primary reranker when Stages is empty.
	Provider string `yaml:"provider,omitempty"`

	// Stages optionally configures a multi-stage chain.
	Stages []RerankerStageConfig `yaml:"stages,omitempty"`

	GeminiFlash LLMRerankerConfig `yaml:"gemini-flash,omitempty"`
	Jina        APIRerankerConfig `yaml:"jina,omitempty"`
	JinaColbert APIRerankerConfig `yaml:"jina-colbert,omitempty"`
	OpenAILLM   LLMRerankerConfig `yaml:"openai-llm,omitempty"`
}

// RerankerStageConfig is one chain stage.
type RerankerStageConfig struct {
	Provider string `yaml:"provider"`
	Enabled  bool   `yaml:"enabled"`
}

// APIRerankerConfig configures an HTTP cross-encoder reranker.
type APIRerankerConfig struct {
	// Model identifies the hosted reranking model.
	Model string `yaml:"model,omitempty"`

	// APIKey; JINA_API_KEY is used when empty.
	APIKey string `yaml:"api_key,omitempty"`

	// Endpoint overrides the default API URL.
	Endpoint string `yaml:"endpoint,omitempty"`

	// Timeout in seconds (default 30).
	Timeout int `yaml:"timeout,omitempty"`
}

// LLMRerankerConfig configures an LLM-as-judge reranker.
type LLMRerankerConfig struct {
	Model string `yaml:"model,omitempty"`

	// MaxDocuments caps the candidates listed in one prompt (default 20).
	MaxDocuments int `yaml:"max_documents,omitempty"`

	// SnippetLength is the per-document excerpt length (default 250).
	SnippetLength int `yaml:"snippet_length,omitempty"`

	// Timeout in seconds (default 30).
	Timeout int `yaml:"timeout,omitempty"`
}

// SetDefaults applies default values.
func (c *RerankingConfig) SetDefaults() {
	if c.Provider == "" {
		c.Provider = RerankerProviderJina
	}
	if c.GeminiFlash.Model == "" {
		c.GeminiFlash.Model = "gemini-2.0-flash"
	}
	if c.OpenAILLM.Model == "" {
		c.OpenAILLM.Model = "gpt-4o-mini"
	}
	if c.Jina.Model == "" {
		c.Jina.Model = "jina-reranker-v2-base-multilingual"
	}
	if c.JinaColbert.Model == "" {
		c.JinaColbert.Model = "jina-colbert-v2"
	}
	for _, llm := range []*LLMRerankerConfig{&c.GeminiFlash, &c.OpenAILLM} {
		if llm.MaxDocuments == 0 {
			llm.MaxDocuments = 20
		}
		if llm.SnippetLength == 0 {
			llm.SnippetLength = 250
		}
		if llm.Timeout == 0 {
			llm.Timeout = 30
		}
	}
	for _, api := range []*APIRerankerConfig{&c.Jina, &c.JinaColbert} {
		if api.Timeout == 0 {
			api.Timeout = 30
		}
	}
}

// Validate checks the configuration.
func (c *RerankingConfig) Validate() error {
	if err := validRerankerProvider(c.Provider); err != nil {
		return err
	}
	for _, stage := range c.Stages {
		if err := validRerankerProvider(stage.Provider); err != nil {
			return err
		}
	}
	return nil
}

func validRerankerProvider(p string) error {
	switch p {
	case RerankerProviderGeminiFlash, RerankerProviderJina,
		RerankerProviderJinaColbert, RerankerProviderOpenAILLM:
		return nil
	default:
		return fmt.Errorf("unsupported reranker provider: %s", p)
	}
}
