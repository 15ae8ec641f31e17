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

import (
	"fmt"
	"os"
)

// LLM provider types.
const (
	LLMProviderOpenAI = "openai"
	LLMProviderGemini = "gemini"
)

// LLMConfig configures the generation model and the embedder.
type LLMConfig struct {
	// Provider: openai, gemini.
	Provider string `yaml:"provider,omitempty"`

	Model string `yaml:"model,omitempty"`

	// APIKey; OPENAI_API_KEY / GOOGLE_API_KEY used when empty.
	APIKey string `yaml:"api_key,omitempty"`

	// BaseURL overrides the provider endpoint (proxies, compatible APIs).
	BaseURL string `yaml:"base_url,omitempty"`

	Temperature float64 `yaml:"temperature,omitempty"`
	MaxTokens   int     `yaml:"max_tokens,omitempty"`

	// Timeout in seconds (default 60).
	Timeout int `yaml:"timeout,omitempty"`

	Embedder EmbedderConfig `yaml:"embedder,omitempty"`
}

// EmbedderConfig configures the embedding model.
type EmbedderConfig struct {
	Model string `yaml:"model,omitempty"`

	// Dimension is fixed per embedder instance (default 1536).
	Dimension int `yaml:"dimension,omitempty"`
}

// SetDefaults applies default values.
func (c *LLMConfig) SetDefaults() {
	if c.Provider == "" {
		c.Provider = LLMProviderOpenAI
	}
	if c.Model == "" {
		switch c.Provider {
		case LLMProviderGemini:
			c.Model = "gemini-2.0-flash"
		default:
			c.Model = "gpt-4o-mini"
		}
	}
	if c.APIKey == "" {
		switch c.Provider {
		case LLMProviderGemini:
			c.APIKey = os.Getenv("GOOGLE_API_KEY")
		default:
			c.APIKey = os.Getenv("OPENAI_API_KEY")
		}
	}
	if c.Temperature == 0 {
		c.Temperature = 0.2
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = 2048
	}
	if c.Timeout == 0 {
		c.Timeout = 60
	}
	if c.Embedder.Model == "" {
		c.Embedder.Model = "text-embedding-3-small"
	}
	if c.Embedder.Dimension == 0 {
		c.Embedder.Dimension = 1536
	}
}

// Vector store provider types.
const (
	VectorProviderQdrant   = "qdrant"
	VectorProviderWeaviate = "weaviate"
	VectorProviderChromem  = "chromem"
)

// VectorStoreConfig configures the vector search backend.
type VectorStoreConfig struct {
	// Provider: qdrant (dense), weaviate (hybrid dense+BM25),
	// chromem (embedded, dev/test).
	Provider string `yaml:"provider,omitempty"`

	// Collection is the backend collection/class name.
	Collection string `yaml:"collection,omitempty"`

	Qdrant   QdrantConfig   `yaml:"qdrant,omitempty"`
	Weaviate WeaviateConfig `yaml:"weaviate,omitempty"`
	Chromem  ChromemConfig  `yaml:"chromem,omitempty"`
}

// QdrantConfig configures the qdrant backend.
type QdrantConfig struct {
	Host   string `yaml:"host,omitempty"`
	Port   int    `yaml:"port,omitempty"`
	APIKey string `yaml:"api_key,omitempty"`
	UseTLS bool   `yaml:"use_tls,omitempty"`
}

// WeaviateConfig configures the weaviate backend.
type WeaviateConfig struct {
	Endpoint string `yaml:"endpoint,omitempty"`
	APIKey   string `yaml:"api_key,omitempty"`

	// Properties are the schema fields fetched with each hit.
	Properties []string `yaml:"properties,omitempty"`

	// Alpha balances BM25 vs vector in the backend fusion (default 0.5).
	Alpha float64 `yaml:"alpha,omitempty"`

	// Timeout in seconds (default 30).
	Timeout int `yaml:"timeout,omitempty"`
}

// ChromemConfig configures the embedded backend.
type ChromemConfig struct {
	// Path is the persistence directory; empty keeps the DB in memory.
	Path string `yaml:"path,omitempty"`
}

// SetDefaults applies default values.
func (c *VectorStoreConfig) SetDefaults() {
	if c.Provider == "" {
		c.Provider = VectorProviderChromem
	}
	if c.Collection == "" {
		c.Collection = "documents"
	}
	if c.Qdrant.Host == "" {
		c.Qdrant.Host = "localhost"
	}
	if c.Qdrant.Port == 0 {
		c.Qdrant.Port = 6334
	}
	if c.Weaviate.Endpoint == "" {
		c.Weaviate.Endpoint = "http://localhost:8080"
	}
	if len(c.Weaviate.Properties) == 0 {
		c.Weaviate.Properties = []string{"content", "file_type"}
	}
	if c.Weaviate.Alpha == 0 {
		c.Weaviate.Alpha = 0.5
	}
	if c.Weaviate.Timeout == 0 {
		c.Weaviate.Timeout = 30
	}
}

// Validate checks the configuration.
func (c *VectorStoreConfig) Validate() error {
	switch c.Provider {
	case VectorProviderQdrant, VectorProviderWeaviate, VectorProviderChromem:
	default:
		return fmt.Errorf("unsupported vector store provider: %s", c.Provider)
	}
	return nil
}
