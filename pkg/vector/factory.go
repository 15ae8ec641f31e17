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

package vector

import (
	"fmt"

	"github.com/youngouk/RAG-Standard-sub002/pkg/config"
	"github.com/youngouk/RAG-Standard-sub002/pkg/llm"
)

// NewProvider constructs the configured backend.
func NewProvider(cfg *config.VectorStoreConfig) (Provider, error) {
	switch cfg.Provider {
	case config.VectorProviderQdrant:
		return NewQdrantProvider(&cfg.Qdrant)
	case config.VectorProviderWeaviate:
		return NewWeaviateProvider(&cfg.Weaviate)
	case config.VectorProviderChromem:
		return NewChromemProvider(&cfg.Chromem)
	default:
		return nil, fmt.Errorf("unsupported vector store provider: %s", cfg.Provider)
	}
}

// NewRetrieverFromConfig builds the full retriever facade.
func NewRetrieverFromConfig(cfg *config.VectorStoreConfig, retrievalCfg *config.RetrievalConfig, embedder llm.Embedder) (*Retriever, error) {
	provider, err := NewProvider(cfg)
	if err != nil {
		return nil, err
	}
	return NewRetriever(provider, embedder, cfg.Collection, retrievalCfg.MinScore), nil
}
