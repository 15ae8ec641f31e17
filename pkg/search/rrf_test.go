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

import "testing"

func results(ids ...string) []Result {
	out := make([]Result, len(ids))
	for i, id := range ids {
		out[i] = Result{ID: id, Content: id, Score: 1.0 - float64(i)*0.1}
	}
	return out
}

func TestRankMap_OneBased(t *testing.T) {
	ranks := RankMap(results("a", "b", "c"))
	if ranks["a"] != 1 || ranks["b"] != 2 || ranks["c"] != 3 {
		t.Errorf("unexpected ranks: %v", ranks)
	}
}

func TestRRFScore_AbsentRankContributesNothing(t *testing.T) {
	if got := RRFScore(1.0, 60, 0); got != 0 {
		t.Errorf("expected 0 for absent rank, got %f", got)
	}
}

func TestFuseWeighted_RankOrderPreserved(t *testing.T) {
	// A at rank 1 must always beat B at rank 2 for any k >= 1.
	for _, k := range []int{1, 10, 60, 1000} {
		fused := FuseWeighted([][]Result{results("A", "B")}, []float64{1.0}, k)
		if len(fused) != 2 {
			t.Fatalf("k=%d: expected 2 results, got %d", k, len(fused))
		}
		if fused[0].ID != "A" {
			t.Errorf("k=%d: expected A first, got %s", k, fused[0].ID)
		}
		if fused[0].Score <= fused[1].Score {
			t.Errorf("k=%d: rrf(A)=%f not greater than rrf(B)=%f",
				k, fused[0].Score, fused[1].Score)
		}
	}
}

func TestFuseWeighted_CoOccurrenceWins(t *testing.T) {
	// X appears in both lists at ranks 2 and 2; Y appears only in the first
	// list at rank 2's minimum. With equal weights X must outscore Y.
	listA := results("Y", "X")
	listB := results("Z", "X")

	fused := FuseWeighted([][]Result{listA, listB}, []float64{1.0, 1.0}, 60)

	scores := make(map[string]float64)
	for _, r := range fused {
		scores[r.ID] = r.Score
	}
	if scores["X"] <= scores["Y"] {
		t.Errorf("co-occurring X (%f) should outscore single-source Y (%f)",
			scores["X"], scores["Y"])
	}
}

func TestFuseWeighted_UniqueIDs(t *testing.T) {
	fused := FuseWeighted([][]Result{
		results("a", "b", "c"),
		results("b", "c", "d"),
		results("c", "d", "e"),
	}, []float64{1.0, 0.8, 0.5}, 60)

	seen := make(map[string]bool)
	for _, r := range fused {
		if seen[r.ID] {
			t.Fatalf("duplicate id %q in fused output", r.ID)
		}
		seen[r.ID] = true
	}
	if len(fused) != 5 {
		t.Errorf("expected 5 unique docs, got %d", len(fused))
	}
}

func TestFuseWeighted_QueryAppearances(t *testing.T) {
	fused := FuseWeighted([][]Result{
		results("a", "b"),
		results("b"),
	}, []float64{1.0, 1.0}, 60)

	for _, r := range fused {
		count, _ := r.Metadata[MetaQueryAppearances].(int)
		switch r.ID {
		case "a":
			if count != 1 {
				t.Errorf("a: expected 1 appearance, got %d", count)
			}
		case "b":
			if count != 2 {
				t.Errorf("b: expected 2 appearances, got %d", count)
			}
		}
	}
}

func TestFuseWeighted_OriginalScorePreserved(t *testing.T) {
	in := []Result{{ID: "a", Score: 0.93}}
	fused := FuseWeighted([][]Result{in}, []float64{1.0}, 60)
	if got, _ := fused[0].Metadata[MetaOriginalScore].(float64); got != 0.93 {
		t.Errorf("expected original_score 0.93, got %v", got)
	}
}

func TestClone_Independent(t *testing.T) {
	orig := Result{ID: "x", Score: 0.5, Metadata: map[string]any{"k": "v"}}
	clone := orig.Clone()
	clone.Metadata["k"] = "changed"
	if orig.Metadata["k"] != "v" {
		t.Error("mutating the clone leaked into the original")
	}
}

func TestDedupe_KeepsFirst(t *testing.T) {
	in := []Result{{ID: "a", Score: 0.9}, {ID: "b", Score: 0.8}, {ID: "a", Score: 0.1}}
	out := Dedupe(in)
	if len(out) != 2 {
		t.Fatalf("expected 2 results, got %d", len(out))
	}
	if out[0].Score != 0.9 {
		t.Errorf("expected first occurrence kept, got score %f", out[0].Score)
	}
}
