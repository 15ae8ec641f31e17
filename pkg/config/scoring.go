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

// ScoringConfig configures post-fusion score multipliers.
//
// Both toggles default to false: with them off, apply_weight is the
// identity and shipping without weights produces scores identical to not
// invoking the service at all.
type ScoringConfig struct {
	// CollectionWeightEnabled turns on per-collection multipliers.
	CollectionWeightEnabled bool `yaml:"collection_weight_enabled,omitempty"`

	// FileTypeWeightEnabled turns on per-file-type multipliers.
	FileTypeWeightEnabled bool `yaml:"file_type_weight_enabled,omitempty"`

	// CollectionWeights maps collection name to multiplier.
	// Unknown collections take weight 1.0.
	CollectionWeights map[string]float64 `yaml:"collection_weights,omitempty"`

	// FileTypeWeights maps upper-case file type to multiplier.
	// Unknown file types take weight 1.0.
	FileTypeWeights map[string]float64 `yaml:"file_type_weights,omitempty"`
}

// SetDefaults applies default values.
func (c *ScoringConfig) SetDefaults() {
	if c.CollectionWeights == nil {
		c.CollectionWeights = make(map[string]float64)
	}
	if c.FileTypeWeights == nil {
		c.FileTypeWeights = make(map[string]float64)
	}
}

// Validate checks the configuration.
func (c *ScoringConfig) Validate() error {
	for name, w := range c.CollectionWeights {
		if w < 0 {
			return fmt.Errorf("collection weight %q must be non-negative, got %f", name, w)
		}
	}
	for name, w := range c.FileTypeWeights {
		if w < 0 {
			return fmt.Errorf("file type weight %q must be non-negative, got %f", name, w)
		}
	}
	return nil
}
