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

// Package scoring applies configurable per-collection and per-file-type
// score multipliers to fused results. Both toggles default off: the
// default deployment must produce scores identical to not invoking this
// service at all.
package scoring

import (
	"strings"

	"github.com/youngouk/RAG-Standard-sub002/pkg/config"
	"github.com/youngouk/RAG-Standard-sub002/pkg/search"
)

// Service holds the weight maps and toggles.
type Service struct {
	cfg config.ScoringConfig
}

// New creates the service from config.
func New(cfg config.ScoringConfig) *Service {
	return &Service{cfg: cfg}
}

// Enabled reports whether any weight toggle is on.
func (s *Service) Enabled() bool {
	return s.cfg.CollectionWeightEnabled || s.cfg.FileTypeWeightEnabled
}

// ApplyWeight multiplies score by the configured weights. Unknown keys
// take weight 1.0; file types are normalized to upper-case. With both
// toggles off the input is returned unchanged.
func (s *Service) ApplyWeight(score float64, collection, fileType string) float64 {
	if s.cfg.CollectionWeightEnabled && collection != "" {
		if w, ok := s.cfg.CollectionWeights[collection]; ok {
			score *= w
		}
	}
	if s.cfg.FileTypeWeightEnabled && fileType != "" {
		if w, ok := s.cfg.FileTypeWeights[strings.ToUpper(fileType)]; ok {
			score *= w
		}
	}
	return score
}

// ApplyToResults rewrites scores in place, preserving the pre-weight
// score in metadata. A no-op when disabled.
func (s *Service) ApplyToResults(results []search.Result) {
	if !s.Enabled() {
		return
	}
	for i := range results {
		before := results[i].Score
		after := s.ApplyWeight(before, results[i].Collection(), results[i].FileType())
		if after != before {
			results[i].SetMeta(search.MetaScoreBeforeWeight, before)
			results[i].Score = after
		}
	}
	search.SortByScore(results)
}
