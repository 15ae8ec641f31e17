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

package cache

import (
	"fmt"
	"time"

	"github.com/youngouk/RAG-Standard-sub002/pkg/config"
	"github.com/youngouk/RAG-Standard-sub002/pkg/llm"
)

// New constructs the configured cache. A nil return with nil error means
// caching is disabled; the orchestrator runs without it.
func New(cfg *config.CacheConfig, embedder llm.Embedder) (Manager, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	switch cfg.Provider {
	case config.CacheProviderMemory:
		return NewMemoryCache(cfg.Memory.MaxSize, time.Duration(cfg.Memory.TTL)*time.Second), nil
	case config.CacheProviderSemantic:
		if embedder == nil {
			return nil, fmt.Errorf("semantic cache requires an embedder")
		}
		return NewSemanticCache(embedder, cfg.Semantic.SimilarityThreshold,
			cfg.Semantic.MaxEntries, time.Duration(cfg.Semantic.TTL)*time.Second), nil
	case config.CacheProviderRedis:
		return NewRedisCache(&cfg.Redis)
	default:
		return nil, fmt.Errorf("unsupported cache provider: %s", cfg.Provider)
	}
}
