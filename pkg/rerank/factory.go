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
	"fmt"

	"github.com/youngouk/RAG-Standard-sub002/pkg/config"
	"github.com/youngouk/RAG-Standard-sub002/pkg/llm"
)

// New constructs the configured reranker. When Stages is set a Chain is
// built, otherwise the single Provider. Returns nil with nil error when
// reranking is disabled.
func New(cfg *config.RerankingConfig, llmCfg *config.LLMConfig) (Reranker, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	if len(cfg.Stages) > 0 {
		stages := make([]Stage, 0, len(cfg.Stages))
		for _, stageCfg := range cfg.Stages {
			r, err := newProvider(stageCfg.Provider, cfg, llmCfg)
			if err != nil {
				return nil, err
			}
			stages = append(stages, Stage{Reranker: r, Enabled: stageCfg.Enabled})
		}
		return NewChain(stages...), nil
	}

	return newProvider(cfg.Provider, cfg, llmCfg)
}

func newProvider(provider string, cfg *config.RerankingConfig, llmCfg *config.LLMConfig) (Reranker, error) {
	switch provider {
	case config.RerankerProviderJina:
		return NewJinaReranker(&cfg.Jina), nil
	case config.RerankerProviderJinaColbert:
		return NewJinaColbertReranker(&cfg.JinaColbert), nil
	case config.RerankerProviderGeminiFlash:
		judgeCfg := *llmCfg
		judgeCfg.Provider = config.LLMProviderGemini
		judgeCfg.Model = cfg.GeminiFlash.Model
		judgeCfg.SetDefaults()
		model, err := llm.NewGeminiClient(&judgeCfg)
		if err != nil {
			return nil, fmt.Errorf("gemini-flash reranker: %w", err)
		}
		return NewLLMJudge(model, &cfg.GeminiFlash, provider), nil
	case config.RerankerProviderOpenAILLM:
		judgeCfg := *llmCfg
		judgeCfg.Provider = config.LLMProviderOpenAI
		judgeCfg.Model = cfg.OpenAILLM.Model
		judgeCfg.SetDefaults()
		model, err := llm.NewOpenAIClient(&judgeCfg)
		if err != nil {
			return nil, fmt.Errorf("openai-llm reranker: %w", err)
		}
		return NewLLMJudge(model, &cfg.OpenAILLM, provider), nil
	default:
		return nil, fmt.Errorf("unsupported reranker provider: %s", provider)
	}
}
