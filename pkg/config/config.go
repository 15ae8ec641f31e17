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

// Package config defines the typed configuration for the RAG serving core.
//
// Every section follows the same contract: SetDefaults fills zero values,
// Validate rejects unsupported providers and missing required fields.
// Provider sets are closed; an unknown provider is a construction-time
// error, never a per-request one.
package config

import (
	"fmt"
	"os"
	"regexp"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration.
type Config struct {
	Server         ServerConfig         `yaml:"server"`
	Logger         LoggerConfig         `yaml:"logger"`
	Scoring        ScoringConfig        `yaml:"scoring"`
	Cache          CacheConfig          `yaml:"cache"`
	Reranking      RerankingConfig      `yaml:"reranking"`
	GraphRAG       GraphRAGConfig       `yaml:"graph_rag"`
	Evaluation     EvaluationConfig     `yaml:"evaluation"`
	QueryExpansion QueryExpansionConfig `yaml:"query_expansion"`
	RAG            RAGConfig            `yaml:"rag"`
	Retrieval      RetrievalConfig      `yaml:"retrieval"`
	SelfRAG        SelfRAGConfig        `yaml:"self_rag"`
	LLM            LLMConfig            `yaml:"llm"`
	VectorStore    VectorStoreConfig    `yaml:"vector_store"`
}

// SetDefaults applies defaults to all sections.
func (c *Config) SetDefaults() {
	c.Server.SetDefaults()
	c.Logger.SetDefaults()
	c.Scoring.SetDefaults()
	c.Cache.SetDefaults()
	c.Reranking.SetDefaults()
	c.GraphRAG.SetDefaults()
	c.Evaluation.SetDefaults()
	c.QueryExpansion.SetDefaults()
	c.RAG.SetDefaults()
	c.Retrieval.SetDefaults()
	c.SelfRAG.SetDefaults()
	c.LLM.SetDefaults()
	c.VectorStore.SetDefaults()
}

// Validate checks all sections.
func (c *Config) Validate() error {
	validators := []struct {
		name string
		fn   func() error
	}{
		{"server", c.Server.Validate},
		{"scoring", c.Scoring.Validate},
		{"cache", c.Cache.Validate},
		{"reranking", c.Reranking.Validate},
		{"graph_rag", c.GraphRAG.Validate},
		{"evaluation", c.Evaluation.Validate},
		{"rag", c.RAG.Validate},
		{"self_rag", c.SelfRAG.Validate},
		{"vector_store", c.VectorStore.Validate},
	}
	for _, v := range validators {
		if err := v.fn(); err != nil {
			return fmt.Errorf("%s: %w", v.name, err)
		}
	}
	return nil
}

// envVarPattern matches ${VAR} and ${VAR:-default} references.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(:-([^}]*))?\}`)

// expandEnv substitutes ${VAR} references with environment values.
// ${VAR:-default} falls back to default when VAR is unset.
func expandEnv(raw []byte) []byte {
	return envVarPattern.ReplaceAllFunc(raw, func(match []byte) []byte {
		groups := envVarPattern.FindSubmatch(match)
		name := string(groups[1])
		if val, ok := os.LookupEnv(name); ok {
			return []byte(val)
		}
		if len(groups[3]) > 0 {
			return groups[3]
		}
		return []byte("")
	})
}

// Load reads a YAML config file, expands environment references, applies
// defaults, and validates. A missing path yields a pure-defaults config.
func Load(path string) (*Config, error) {
	// Best-effort .env loading; absence is not an error.
	_ = godotenv.Load()

	cfg := &Config{}

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		raw = expandEnv(raw)
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Host string `yaml:"host,omitempty"`
	Port int    `yaml:"port,omitempty"`
}

// SetDefaults applies default values.
func (c *ServerConfig) SetDefaults() {
	if c.Host == "" {
		c.Host = "0.0.0.0"
	}
	if c.Port == 0 {
		c.Port = 8000
	}
}

// Validate checks the configuration.
func (c *ServerConfig) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	return nil
}

// Address returns host:port.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// LoggerConfig configures logging.
type LoggerConfig struct {
	// Level: debug, info, warn, error.
	Level string `yaml:"level,omitempty"`

	// Format: simple, json, text.
	Format string `yaml:"format,omitempty"`

	// File is the log file path (empty = stderr).
	File string `yaml:"file,omitempty"`
}

// SetDefaults applies default values.
func (c *LoggerConfig) SetDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.Format == "" {
		c.Format = "simple"
	}
}
