package evo

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"

	"bipedevo/internal/genome"
	"bipedevo/internal/model"
)

var ErrFittestMismatch = errors.New("fittest split does not match population size")

// ValidateFittest rejects a split whose groups do not sum to the population
// size. This is a configuration error and is never silently corrected.
func ValidateFittest(f model.Fittest, population int) error {
	if f.EliteCopy < 0 || f.EliteMutated < 0 || f.Children < 0 {
		return fmt.Errorf("%w: negative group in (%d, %d, %d)", ErrFittestMismatch, f.EliteCopy, f.EliteMutated, f.Children)
	}
	if f.EliteCopy+f.EliteMutated+f.Children != population {
		return fmt.Errorf("%w: %d+%d+%d != %d", ErrFittestMismatch, f.EliteCopy, f.EliteMutated, f.Children, population)
	}
	return nil
}

// EliteOrder sorts population indices best-first: ascending front rank,
// ties broken by descending fitness-vector sum, then by index for
// stability.
func EliteOrder(fronts [][]int, matrix [][]float64) []int {
	n := len(matrix)
	rankOf := FrontOf(fronts, n)
	sums := make([]float64, n)
	for i, vector := range matrix {
		for _, v := range vector {
			sums[i] += v
		}
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		ia, ib := order[a], order[b]
		if rankOf[ia] != rankOf[ib] {
			return rankOf[ia] < rankOf[ib]
		}
		if sums[ia] != sums[ib] {
			return sums[ia] > sums[ib]
		}
		return ia < ib
	})
	return order
}

// NextGeneration builds generation g+1: elite copies, mutated elite copies,
// then crossover children from weighted parent draws. The children loop
// absorbs the odd-pair remainder so the total always equals the population
// size exactly. The input genomes are never mutated in place.
func NextGeneration(
	rng *rand.Rand,
	codec *genome.Codec,
	genomes []model.Genome,
	matrix [][]float64,
	fronts [][]int,
	cfg model.RunConfig,
	generation int,
) ([]model.Genome, error) {
	if len(genomes) != cfg.PopulationSize || len(matrix) != cfg.PopulationSize {
		return nil, fmt.Errorf("generation size mismatch: genomes=%d fitness=%d want=%d",
			len(genomes), len(matrix), cfg.PopulationSize)
	}
	if err := ValidateFittest(cfg.Fittest, cfg.PopulationSize); err != nil {
		return nil, err
	}

	order := EliteOrder(fronts, matrix)
	next := make([]model.Genome, 0, cfg.PopulationSize)

	for i := 0; i < cfg.Fittest.EliteCopy; i++ {
		src := genomes[order[i]]
		next = append(next, model.Genome{
			ID:    childID(src.ID, generation, len(next)),
			Genes: append([]float64(nil), src.Genes...),
		})
	}

	for i := 0; i < cfg.Fittest.EliteMutated; i++ {
		src := genomes[order[i%len(order)]]
		mutated, err := codec.Mutate(rng, src, cfg.MutationRate, cfg.MutationSigma, childID(src.ID, generation, len(next)))
		if err != nil {
			return nil, err
		}
		next = append(next, mutated)
	}

	weights := SelectionWeights(fronts, cfg.PopulationSize, cfg.WeightedPairing, cfg.FrontDecay)
	for len(next) < cfg.PopulationSize {
		ia, err := SampleParent(rng, weights)
		if err != nil {
			return nil, err
		}
		ib, err := SampleParent(rng, weights)
		if err != nil {
			return nil, err
		}

		childA, childB, err := codec.Crossover(rng, genomes[ia], genomes[ib],
			childID(genomes[ia].ID, generation, len(next)),
			childID(genomes[ib].ID, generation, len(next)+1))
		if err != nil {
			return nil, err
		}
		childA, err = codec.Mutate(rng, childA, cfg.MutationRate, cfg.MutationSigma, childA.ID)
		if err != nil {
			return nil, err
		}
		next = append(next, childA)
		if len(next) >= cfg.PopulationSize {
			break
		}
		childB, err = codec.Mutate(rng, childB, cfg.MutationRate, cfg.MutationSigma, childB.ID)
		if err != nil {
			return nil, err
		}
		next = append(next, childB)
	}

	return next, nil
}

func childID(parentID string, generation, index int) string {
	return fmt.Sprintf("%s-g%d-i%d", parentID, generation+1, index)
}
