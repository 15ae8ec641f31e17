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

package scoring

import (
	"testing"

	"github.com/youngouk/RAG-Standard-sub002/pkg/config"
	"github.com/youngouk/RAG-Standard-sub002/pkg/search"
)

func TestApplyWeight_DefaultIdentity(t *testing.T) {
	// Both toggles off: apply_weight must be the identity for all inputs.
	s := New(config.ScoringConfig{
		CollectionWeights: map[string]float64{"docs": 2.0},
		FileTypeWeights:   map[string]float64{"TXT": 0.5},
	})

	for _, score := range []float64{0, 0.001, 0.5, 1.0, 42.0} {
		if got := s.ApplyWeight(score, "docs", "txt"); got != score {
			t.Errorf("disabled service must be identity: %f -> %f", score, got)
		}
	}
	if s.Enabled() {
		t.Error("service with both toggles off must report disabled")
	}
}

func TestApplyWeight_CollectionWeight(t *testing.T) {
	s := New(config.ScoringConfig{
		CollectionWeightEnabled: true,
		CollectionWeights:       map[string]float64{"docs": 2.0},
	})

	if got := s.ApplyWeight(0.4, "docs", ""); got != 0.8 {
		t.Errorf("expected 0.8, got %f", got)
	}
	// Unknown collections take weight 1.0.
	if got := s.ApplyWeight(0.4, "other", ""); got != 0.4 {
		t.Errorf("unknown collection must be neutral, got %f", got)
	}
}

func TestApplyWeight_FileTypeUpperCased(t *testing.T) {
	s := New(config.ScoringConfig{
		FileTypeWeightEnabled: true,
		FileTypeWeights:       map[string]float64{"PDF": 1.5},
	})

	if got := s.ApplyWeight(0.4, "", "pdf"); got != 0.6000000000000001 && got != 0.6 {
		t.Errorf("lower-case file type should match upper-case map key, got %f", got)
	}
}

func TestApplyWeight_IndependentToggles(t *testing.T) {
	s := New(config.ScoringConfig{
		CollectionWeightEnabled: true,
		CollectionWeights:       map[string]float64{"docs": 2.0},
		FileTypeWeights:         map[string]float64{"TXT": 0.0},
	})

	// File-type toggle off: its weight map must not apply.
	if got := s.ApplyWeight(0.5, "docs", "txt"); got != 1.0 {
		t.Errorf("expected only collection weight applied, got %f", got)
	}
}

func TestApplyToResults_PreservesPreWeightScore(t *testing.T) {
	s := New(config.ScoringConfig{
		FileTypeWeightEnabled: true,
		FileTypeWeights:       map[string]float64{"TXT": 2.0},
	})

	results := []search.Result{
		{ID: "a", Score: 0.3, Metadata: map[string]any{search.MetaFileType: "txt"}},
		{ID: "b", Score: 0.5, Metadata: map[string]any{search.MetaFileType: "pdf"}},
	}
	s.ApplyToResults(results)

	// a: 0.3*2 = 0.6 outranks b's untouched 0.5 after resort.
	if results[0].ID != "a" {
		t.Fatalf("expected a first after reweighting, got %s", results[0].ID)
	}
	if before, _ := results[0].Metadata[search.MetaScoreBeforeWeight].(float64); before != 0.3 {
		t.Errorf("pre-weight score not preserved: %v", results[0].Metadata)
	}
	if _, ok := results[1].Metadata[search.MetaScoreBeforeWeight]; ok {
		t.Error("untouched result should not record a pre-weight score")
	}
}
