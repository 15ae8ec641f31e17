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

// QueryExpansionConfig toggles multi-query expansion.
type QueryExpansionConfig struct {
	Enabled bool `yaml:"enabled,omitempty"`

	// MaxQueries caps expansion output, original included (default 5).
	MaxQueries int `yaml:"max_queries,omitempty"`

	Model string `yaml:"model,omitempty"`
}

// SetDefaults applies default values.
func (c *QueryExpansionConfig) SetDefaults() {
	if c.MaxQueries == 0 {
		c.MaxQueries = 5
	}
	if c.Model == "" {
		c.Model = "gpt-4o-mini"
	}
}

// RAGConfig holds pipeline-level retrieval knobs.
type RAGConfig struct {
	// TopK is the default number of documents returned (default 15).
	TopK int `yaml:"top_k,omitempty"`

	// RerankTopK caps reranker output (default TopK).
	RerankTopK int `yaml:"rerank_top_k,omitempty"`

	Diversity DiversityConfig `yaml:"diversity,omitempty"`
}

// DiversityConfig caps per-file-type result counts. The TXT cap was raised
// from 7 to 15 to allow a mix with other file types.
type DiversityConfig struct {
	// MaxPerFileType maps upper-case file type to its ceiling.
	// Absent types pass through unchanged.
	MaxPerFileType map[string]int `yaml:"max_per_file_type,omitempty"`
}

// RetrievalConfig filters raw retrieval output.
type RetrievalConfig struct {
	// MinScore drops retriever results below this similarity.
	MinScore float64 `yaml:"min_score,omitempty"`
}

// SelfRAGConfig configures the evaluate/regenerate/refuse loop.
type SelfRAGConfig struct {
	Enabled bool `yaml:"enabled,omitempty"`

	// AcceptThreshold: answers at or above it are returned as-is.
	AcceptThreshold float64 `yaml:"accept_threshold,omitempty"`

	// RegenerateThreshold: answers between it and AcceptThreshold are
	// regenerated once; below it the pipeline refuses.
	RegenerateThreshold float64 `yaml:"regenerate_threshold,omitempty"`
}

// SetDefaults applies default values.
func (c *RAGConfig) SetDefaults() {
	if c.TopK == 0 {
		c.TopK = 15
	}
	if c.RerankTopK == 0 {
		c.RerankTopK = c.TopK
	}
	if c.Diversity.MaxPerFileType == nil {
		c.Diversity.MaxPerFileType = map[string]int{"TXT": 15}
	}
}

// Validate checks the configuration.
func (c *RAGConfig) Validate() error {
	if c.TopK < 0 {
		return fmt.Errorf("top_k must be non-negative, got %d", c.TopK)
	}
	for ft, n := range c.Diversity.MaxPerFileType {
		if n < 0 {
			return fmt.Errorf("diversity cap for %q must be non-negative, got %d", ft, n)
		}
	}
	return nil
}

// SetDefaults applies default values.
func (c *RetrievalConfig) SetDefaults() {}

// SetDefaults applies default values.
func (c *SelfRAGConfig) SetDefaults() {
	if c.AcceptThreshold == 0 {
		c.AcceptThreshold = 0.7
	}
	if c.RegenerateThreshold == 0 {
		c.RegenerateThreshold = 0.5
	}
}

// Validate checks the configuration.
func (c *SelfRAGConfig) Validate() error {
	if c.AcceptThreshold < 0 || c.AcceptThreshold > 1 {
		return fmt.Errorf("accept_threshold must be in [0,1], got %f", c.AcceptThreshold)
	}
	if c.RegenerateThreshold < 0 || c.RegenerateThreshold > 1 {
		return fmt.Errorf("regenerate_threshold must be in [0,1], got %f", c.RegenerateThreshold)
	}
	if c.RegenerateThreshold > c.AcceptThreshold {
		return fmt.Errorf("regenerate_threshold %f exceeds accept_threshold %f",
			c.RegenerateThreshold, c.AcceptThreshold)
	}
	return nil
}
