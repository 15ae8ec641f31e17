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
	"fmt"

	"github.com/youngouk/RAG-Standard-sub002/pkg/config"
)

// NewGenerator constructs the generator for the configured provider.
func NewGenerator(cfg *config.LLMConfig) (Generator, error) {
	switch cfg.Provider {
	case config.LLMProviderOpenAI:
		return NewOpenAIClient(cfg)
	case config.LLMProviderGemini:
		return NewGeminiClient(cfg)
	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", cfg.Provider)
	}
}

// NewEmbedder constructs the embedder. Embeddings go through the OpenAI
// embeddings API regardless of the generation provider.
func NewEmbedder(cfg *config.LLMConfig) (Embedder, error) {
	embCfg := *cfg
	if embCfg.Provider == config.LLMProviderGemini {
		// The gemini generation key is not valid for OpenAI embeddings;
		// require an explicit OPENAI_API_KEY in that case.
		embCfg = config.LLMConfig{Provider: config.LLMProviderOpenAI, Embedder: cfg.Embedder}
		embCfg.SetDefaults()
	}
	return NewOpenAIClient(&embCfg)
}
