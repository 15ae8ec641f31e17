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

// Graph store provider types.
const (
	GraphProviderMemory = "memory"
	GraphProviderNeo4j  = "neo4j"
)

// GraphRAGConfig configures the knowledge-graph side of retrieval.
type GraphRAGConfig struct {
	Enabled bool `yaml:"enabled,omitempty"`

	// Provider: memory, neo4j.
	Provider string `yaml:"provider,omitempty"`

	HybridSearch HybridSearchConfig `yaml:"hybrid_search,omitempty"`
	Neo4j        Neo4jConfig        `yaml:"neo4j,omitempty"`
}

// HybridSearchConfig configures vector+graph RRF fusion.
type HybridSearchConfig struct {
	// Enabled defaults to true when a graph store is wired.
	Enabled *bool `yaml:"enabled,omitempty"`

	// AutoEnable makes hybrid the default retrieval path when the
	// caller does not specify use_graph.
	AutoEnable bool `yaml:"auto_enable,omitempty"`

	VectorWeight float64 `yaml:"vector_weight,omitempty"`
	GraphWeight  float64 `yaml:"graph_weight,omitempty"`
	RRFK         int     `yaml:"rrf_k,omitempty"`
}

// IsEnabled reports hybrid-search enablement (default true).
func (c *HybridSearchConfig) IsEnabled() bool {
	if c.Enabled == nil {
		return true
	}
	return *c.Enabled
}

// Neo4jConfig configures the networked graph backend.
type Neo4jConfig struct {
	// URI; NEO4J_URI is used when empty.
	URI      string `yaml:"uri,omitempty"`
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`
	Database string `yaml:"database,omitempty"`

	ConnectionPool Neo4jPoolConfig  `yaml:"connection_pool,omitempty"`
	Retry          Neo4jRetryConfig `yaml:"retry,omitempty"`
}

// Neo4jPoolConfig bounds the driver connection pool.
type Neo4jPoolConfig struct {
	MaxPoolSize int `yaml:"max_pool_size,omitempty"`

	// AcquisitionTimeout in seconds (default 60).
	AcquisitionTimeout int `yaml:"acquisition_timeout,omitempty"`

	// QueryTimeout in seconds (default 30).
	QueryTimeout int `yaml:"query_timeout,omitempty"`
}

// Neo4jRetryConfig controls exponential backoff for transient errors.
type Neo4jRetryConfig struct {
	MaxAttempts int `yaml:"max_attempts,omitempty"`

	// Delay is the base backoff in milliseconds (default 1000);
	// attempt n waits delay * 2^n.
	Delay int `yaml:"delay,omitempty"`
}

// SetDefaults applies default values.
func (c *GraphRAGConfig) SetDefaults() {
	if c.Provider == "" {
		c.Provider = GraphProviderMemory
	}
	if c.HybridSearch.VectorWeight == 0 && c.HybridSearch.GraphWeight == 0 {
		c.HybridSearch.VectorWeight = 0.6
		c.HybridSearch.GraphWeight = 0.4
	}
	if c.HybridSearch.RRFK == 0 {
		c.HybridSearch.RRFK = 60
	}
	if c.Neo4j.URI == "" {
		c.Neo4j.URI = os.Getenv("NEO4J_URI")
	}
	if c.Neo4j.Username == "" {
		c.Neo4j.Username = os.Getenv("NEO4J_USER")
	}
	if c.Neo4j.Password == "" {
		c.Neo4j.Password = os.Getenv("NEO4J_PASSWORD")
	}
	if c.Neo4j.Database == "" {
		c.Neo4j.Database = os.Getenv("NEO4J_DATABASE")
	}
	if c.Neo4j.Database == "" {
		c.Neo4j.Database = "neo4j"
	}
	if c.Neo4j.ConnectionPool.MaxPoolSize == 0 {
		c.Neo4j.ConnectionPool.MaxPoolSize = 50
	}
	if c.Neo4j.ConnectionPool.AcquisitionTimeout == 0 {
		c.Neo4j.ConnectionPool.AcquisitionTimeout = 60
	}
	if c.Neo4j.ConnectionPool.QueryTimeout == 0 {
		c.Neo4j.ConnectionPool.QueryTimeout = 30
	}
	if c.Neo4j.Retry.MaxAttempts == 0 {
		c.Neo4j.Retry.MaxAttempts = 3
	}
	if c.Neo4j.Retry.Delay == 0 {
		c.Neo4j.Retry.Delay = 1000
	}
}

// Validate checks the configuration.
func (c *GraphRAGConfig) Validate() error {
	switch c.Provider {
	case GraphProviderMemory, GraphProviderNeo4j:
	default:
		return fmt.Errorf("unsupported graph provider: %s", c.Provider)
	}
	if c.Enabled && c.Provider == GraphProviderNeo4j && c.Neo4j.URI == "" {
		return fmt.Errorf("neo4j provider requires uri (or NEO4J_URI)")
	}
	if c.HybridSearch.VectorWeight < 0 || c.HybridSearch.GraphWeight < 0 {
		return fmt.Errorf("hybrid search weights must be non-negative")
	}
	return nil
}
