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

package graph

import (
	"fmt"

	"github.com/youngouk/RAG-Standard-sub002/pkg/config"
	"github.com/youngouk/RAG-Standard-sub002/pkg/llm"
)

// New constructs the configured graph store. Returns nil with nil error
// when graph RAG is disabled; the orchestrator runs vector-only.
func New(cfg *config.GraphRAGConfig, embedder llm.Embedder) (Store, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	switch cfg.Provider {
	case config.GraphProviderMemory:
		return NewMemoryStore(embedder), nil
	case config.GraphProviderNeo4j:
		return NewNeo4jStore(&cfg.Neo4j)
	default:
		return nil, fmt.Errorf("unsupported graph provider: %s", cfg.Provider)
	}
}
