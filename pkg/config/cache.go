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

// Cache provider types.
const (
	CacheProviderMemory   = "memory"
	CacheProviderRedis    = "redis"
	CacheProviderSemantic = "semantic"
)

// CacheConfig configures the result cache.
type CacheConfig struct {
	// Enabled turns the cache on. With it off the orchestrator runs
	// every request through retrieval.
	Enabled bool `yaml:"enabled,omitempty"`

	// Provider: memory, redis, semantic.
	Provider string `yaml:"provider,omitempty"`

	Memory   MemoryCacheConfig   `yaml:"memory,omitempty"`
	Redis    RedisCacheConfig    `yaml:"redis,omitempty"`
	Semantic SemanticCacheConfig `yaml:"semantic,omitempty"`
}

// MemoryCacheConfig configures the in-memory LRU cache.
type MemoryCacheConfig struct {
	// MaxSize is the entry bound (default 1000).
	MaxSize int `yaml:"maxsize,omitempty"`

	// TTL is per-entry time to live in seconds (default 3600).
	TTL int `yaml:"ttl,omitempty"`
}

// RedisCacheConfig configures the distributed cache variant.
type RedisCacheConfig struct {
	// Addr is host:port; REDIS_URL takes precedence when set.
	Addr     string `yaml:"addr,omitempty"`
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db,omitempty"`

	// TTL in seconds (default 3600).
	TTL int `yaml:"ttl,omitempty"`

	// Prefix namespaces cache keys (default "ragcache:").
	Prefix string `yaml:"prefix,omitempty"`
}

// SemanticCacheConfig configures the embedding-similarity cache.
type SemanticCacheConfig struct {
	// SimilarityThreshold is the cosine hit threshold (default 0.92).
	SimilarityThreshold float64 `yaml:"similarity_threshold,omitempty"`

	// MaxEntries bounds the cache (default 1000).
	MaxEntries int `yaml:"max_entries,omitempty"`

	// TTL in seconds (default 3600).
	TTL int `yaml:"ttl,omitempty"`
}

// SetDefaults applies default values.
func (c *CacheConfig) SetDefaults() {
	if c.Provider == "" {
		c.Provider = CacheProviderMemory
	}
	if c.Memory.MaxSize == 0 {
		c.Memory.MaxSize = 1000
	}
	if c.Memory.TTL == 0 {
		c.Memory.TTL = 3600
	}
	if c.Redis.Addr == "" {
		c.Redis.Addr = "localhost:6379"
	}
	if c.Redis.TTL == 0 {
		c.Redis.TTL = 3600
	}
	if c.Redis.Prefix == "" {
		c.Redis.Prefix = "ragcache:"
	}
	if c.Semantic.SimilarityThreshold == 0 {
		c.Semantic.SimilarityThreshold = 0.92
	}
	if c.Semantic.MaxEntries == 0 {
		c.Semantic.MaxEntries = 1000
	}
	if c.Semantic.TTL == 0 {
		c.Semantic.TTL = 3600
	}
}

// Validate checks the configuration.
func (c *CacheConfig) Validate() error {
	switch c.Provider {
	case CacheProviderMemory, CacheProviderRedis, CacheProviderSemantic:
	default:
		return fmt.Errorf("unsupported cache provider: %s", c.Provider)
	}
	if c.Semantic.SimilarityThreshold < 0 || c.Semantic.SimilarityThreshold > 1 {
		return fmt.Errorf("semantic similarity_threshold must be in [0,1], got %f",
			c.Semantic.SimilarityThreshold)
	}
	if c.Memory.MaxSize < 0 {
		return fmt.Errorf("memory maxsize must be non-negative, got %d", c.Memory.MaxSize)
	}
	return nil
}
