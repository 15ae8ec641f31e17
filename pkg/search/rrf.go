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

package search

import "sort"

// DefaultRRFK is the conventional reciprocal-rank-fusion constant.
const DefaultRRFK = 60

// RankMap builds a 1-based rank lookup from an ordered result list.
func RankMap(results []Result) map[string]int {
	ranks := make(map[string]int, len(results))
	for i, r := range results {
		if _, seen := ranks[r.ID]; seen {
			continue
		}
		ranks[r.ID] = i + 1
	}
	return ranks
}

// RRFScore computes w / (k + rank). A rank of 0 (absent) contributes nothing.
func RRFScore(weight float64, k, rank int) float64 {
	if rank <= 0 {
		return 0
	}
	return weight / float64(k+rank)
}

// FuseWeighted merges multiple ranked lists with weighted reciprocal rank
// fusion: score(id) = sum_i weight_i / (k + rank_i(id)), where lists in which
// the document does not appear contribute nothing.
//
// The returned document object is taken from the first list that produced it
// (insertion order breaks ties deterministically). Each result's Score is
// overwritten with the fused value, the previous score is preserved under
// MetaOriginalScore, and MetaQueryAppearances counts how many input lists
// contained the document.
func FuseWeighted(lists [][]Result, weights []float64, k int) []Result {
	if k <= 0 {
		k = DefaultRRFK
	}

	type fused struct {
		result      Result
		score       float64
		appearances int
		order       int // insertion order for deterministic ties
	}

	byID := make(map[string]*fused)
	var ordered []*fused

	for li, list := range lists {
		weight := 1.0
		if li < len(weights) {
			weight = weights[li]
		}
		for rank, r := range list {
			entry, ok := byID[r.ID]
			if !ok {
				clone := r.Clone()
				clone.SetMeta(MetaOriginalScore, r.Score)
				entry = &fused{result: clone, order: len(ordered)}
				byID[r.ID] = entry
				ordered = append(ordered, entry)
			}
			entry.score += RRFScore(weight, k, rank+1)
			entry.appearances++
		}
	}

	out := make([]Result, 0, len(ordered))
	for _, entry := range ordered {
		entry.result.Score = entry.score
		entry.result.SetMeta(MetaRRFScore, entry.score)
		entry.result.SetMeta(MetaQueryAppearances, entry.appearances)
		out = append(out, entry.result)
	}

	// Stable sort keeps first-source insertion order on equal scores.
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})

	return out
}
