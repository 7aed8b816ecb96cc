package evo

import (
	"errors"
	"math"
	"math/rand"
	"testing"
)

func TestSelectionWeightsDisabled(t *testing.T) {
	fronts := [][]int{{0}, {1, 2}}
	weights := SelectionWeights(fronts, 3, false, 0.5)
	for i, w := range weights {
		if w != 1 {
			t.Fatalf("weight %d = %g, want 1", i, w)
		}
	}
}

func TestSelectionWeightsDecayPerFront(t *testing.T) {
	fronts := [][]int{{0}, {1, 2}, {3}}
	weights := SelectionWeights(fronts, 4, true, 0.5)
	want := []float64{1, 0.5, 0.5, 0.25}
	for i := range want {
		if math.Abs(weights[i]-want[i]) > 1e-12 {
			t.Fatalf("weight %d = %g, want %g", i, weights[i], want[i])
		}
	}
}

func TestSelectionWeightsDefaultsBadDecay(t *testing.T) {
	fronts := [][]int{{0}, {1}}
	for _, decay := range []float64{0, -1, 1.5} {
		weights := SelectionWeights(fronts, 2, true, decay)
		if weights[1] != DefaultFrontDecay {
			t.Fatalf("decay %g: second-front weight = %g, want %g", decay, weights[1], DefaultFrontDecay)
		}
	}
}

func TestSampleParentBiasesTowardFirstFront(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	weights := SelectionWeights([][]int{{0}, {1}}, 2, true, 0.5)

	counts := [2]int{}
	const draws = 10000
	for i := 0; i < draws; i++ {
		idx, err := SampleParent(rng, weights)
		if err != nil {
			t.Fatalf("sample: %v", err)
		}
		counts[idx]++
	}
	// Expected split 2:1; allow generous slack around 6667.
	if counts[0] < 6300 || counts[0] > 7000 {
		t.Fatalf("first-front draws = %d of %d, want roughly two thirds", counts[0], draws)
	}
}

func TestSampleParentUniformWhenDisabled(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	weights := SelectionWeights(nil, 4, false, 0)

	counts := make([]int, 4)
	const draws = 8000
	for i := 0; i < draws; i++ {
		idx, err := SampleParent(rng, weights)
		if err != nil {
			t.Fatalf("sample: %v", err)
		}
		counts[idx]++
	}
	for i, c := range counts {
		if c < 1700 || c > 2300 {
			t.Fatalf("index %d drawn %d of %d times, want near uniform", i, c, draws)
		}
	}
}

func TestSampleParentNoWeight(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	if _, err := SampleParent(rng, []float64{0, 0}); !errors.Is(err, ErrNoSelectionWeight) {
		t.Fatalf("expected ErrNoSelectionWeight, got %v", err)
	}
}
