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
	"fmt"

	"github.com/youngouk/RAG-Standard-sub002/pkg/config"
	"github.com/youngouk/RAG-Standard-sub002/pkg/llm"
)

// New constructs the configured evaluator. Returns nil with nil error when
// evaluation is disabled.
func New(cfg *config.EvaluationConfig, llmCfg *config.LLMConfig) (Evaluator, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	switch cfg.Provider {
	case config.EvaluationProviderInternal:
		judgeCfg := *llmCfg
		judgeCfg.Model = cfg.Internal.Model
		judgeCfg.SetDefaults()
		model, err := llm.NewGenerator(&judgeCfg)
		if err != nil {
			return nil, fmt.Errorf("internal evaluator: %w", err)
		}
		return NewInternalEvaluator(model, &cfg.Internal), nil
	case config.EvaluationProviderRagas:
		return NewRagasEvaluator(&cfg.Ragas), nil
	default:
		return nil, fmt.Errorf("unsupported evaluation provider: %s", cfg.Provider)
	}
}
