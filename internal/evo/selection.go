package evo

import (
	"errors"
	"math/rand"
)

// DefaultFrontDecay is the geometric decay applied per Pareto front when
// weighted pairing is enabled. The source material does not pin down the
// mating-weight formula; front weights here are decay^(front-1) with a
// configurable decay, so front 1 individuals mate most often and the bias
// strength is a run-level knob.
const DefaultFrontDecay = 0.5

var ErrNoSelectionWeight = errors.New("no positive selection weight")

// SelectionWeights derives per-individual mating weights from the front
// assignment. With weighted pairing disabled every individual weighs 1.
func SelectionWeights(fronts [][]int, n int, weightedPairing bool, decay float64) []float64 {
	weights := make([]float64, n)
	if !weightedPairing {
		for i := range weights {
			weights[i] = 1
		}
		return weights
	}
	if decay <= 0 || decay > 1 {
		decay = DefaultFrontDecay
	}
	frontWeight := 1.0
	for _, front := range fronts {
		for _, idx := range front {
			if idx >= 0 && idx < n {
				weights[idx] = frontWeight
			}
		}
		frontWeight *= decay
	}
	return weights
}

// SampleParent draws one population index with probability proportional to
// its weight. Draws are independent: sampling with replacement, so the same
// parent may be drawn for both slots of a pairing.
func SampleParent(rng *rand.Rand, weights []float64) (int, error) {
	total := 0.0
	for _, w := range weights {
		if w > 0 {
			total += w
		}
	}
	if total <= 0 {
		return 0, ErrNoSelectionWeight
	}

	pick := rng.Float64() * total
	acc := 0.0
	for i, w := range weights {
		if w <= 0 {
			continue
		}
		acc += w
		if pick <= acc {
			return i, nil
		}
	}
	for i := len(weights) - 1; i >= 0; i-- {
		if weights[i] > 0 {
			return i, nil
		}
	}
	return 0, ErrNoSelectionWeight
}
