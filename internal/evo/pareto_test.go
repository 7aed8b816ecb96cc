package evo

import "testing"

func TestDominates(t *testing.T) {
	cases := []struct {
		name string
		a, b []float64
		want bool
	}{
		{"strictly better everywhere", []float64{2, 2}, []float64{1, 1}, true},
		{"better on one, equal on other", []float64{2, 1}, []float64{1, 1}, true},
		{"equal vectors", []float64{1, 1}, []float64{1, 1}, false},
		{"trade-off", []float64{2, 0}, []float64{1, 1}, false},
		{"strictly worse", []float64{0, 0}, []float64{1, 1}, false},
		{"length mismatch", []float64{1, 1, 1}, []float64{1, 1}, false},
	}
	for _, c := range cases {
		if got := Dominates(c.a, c.b); got != c.want {
			t.Fatalf("%s: Dominates(%v, %v) = %v, want %v", c.name, c.a, c.b, got, c.want)
		}
	}
}

func TestRankPeelsFronts(t *testing.T) {
	matrix := [][]float64{
		{3, 3}, // 0: dominates everything
		{2, 1}, // 1: second front
		{1, 2}, // 2: second front (trade-off with 1)
		{0, 0}, // 3: dominated by all
	}
	fronts := Rank(matrix)
	if len(fronts) != 3 {
		t.Fatalf("got %d fronts, want 3", len(fronts))
	}
	if len(fronts[0]) != 1 || fronts[0][0] != 0 {
		t.Fatalf("front 1 = %v, want [0]", fronts[0])
	}
	if len(fronts[1]) != 2 {
		t.Fatalf("front 2 = %v, want two members", fronts[1])
	}
	if len(fronts[2]) != 1 || fronts[2][0] != 3 {
		t.Fatalf("front 3 = %v, want [3]", fronts[2])
	}
}

func TestRankFrontsAreMutuallyNonDominating(t *testing.T) {
	matrix := [][]float64{
		{0.9, 0.1, 0.5},
		{0.1, 0.9, 0.5},
		{0.5, 0.5, 0.5},
		{0.9, 0.9, 0.9},
		{0.1, 0.1, 0.1},
		{0.5, 0.5, 0.9},
		{0.2, 0.8, 0.4},
	}
	fronts := Rank(matrix)

	total := 0
	for _, front := range fronts {
		total += len(front)
		for _, i := range front {
			for _, j := range front {
				if i != j && Dominates(matrix[i], matrix[j]) {
					t.Fatalf("index %d dominates %d within the same front", i, j)
				}
			}
		}
	}
	if total != len(matrix) {
		t.Fatalf("fronts cover %d individuals, want %d", total, len(matrix))
	}
}

func TestRankEmptyMatrix(t *testing.T) {
	if fronts := Rank(nil); fronts != nil {
		t.Fatalf("got %v, want nil", fronts)
	}
}

func TestFrontOf(t *testing.T) {
	fronts := [][]int{{2}, {0, 3}, {1}}
	got := FrontOf(fronts, 4)
	want := []int{2, 3, 1, 2}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("rank of %d = %d, want %d", i, got[i], want[i])
		}
	}
}
